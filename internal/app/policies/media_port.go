package policies

import (
	"context"
	"io"
)

// MediaUpload is a single file headed for durable storage.
type MediaUpload struct {
	Folder      string
	FileName    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// MediaStore persists uploads and returns a URL clients can fetch.
type MediaStore interface {
	Upload(ctx context.Context, upload MediaUpload) (string, error)
}
