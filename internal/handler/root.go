package handler

import "net/http"

// HandleRoot is the landing/health route.
//
// HTTP: GET /
func HandleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Welcome to Secure File Sharing System",
	})
}
