package cohostpost

import "context"

// Request describes one single-attachment post.
type Request struct {
	// Name is used both as the post headline and as the uploaded filename.
	Name     string
	FilePath string
	MimeType string

	AltText        string
	Tags           []string
	ContentWarning []string
	Adult          bool
}

// Poster abstracts a destination that can publish a Request.
type Poster interface {
	Name() string
	Post(ctx context.Context, req Request) error
}
