package model

import "time"

// File represents one uploaded artifact.
//
// Filename is the name the uploader supplied, kept verbatim for display.
// StoragePath is the server-chosen name on disk ({random token}{ext}) and is
// never reused across files. DownloadToken is a separate opaque random
// string that identifies the file for retrieval — one token per file for its
// whole lifetime.
//
// WHY TWO TOKENS?
// The storage name only has to be collision-free; the download token has to
// be unguessable, because holding it is what authorizes a download. Keeping
// them independent means leaking a directory listing never leaks download
// capability.
type File struct {
	ID            int64     `json:"id"`
	Filename      string    `json:"filename"`
	StoragePath   string    `json:"-"`
	UploadedAt    time.Time `json:"uploaded_at"`
	UploadedBy    int64     `json:"uploaded_by"`
	DownloadToken string    `json:"-"`
}
