package domain

// Label is one classification entry returned by the vision service.
type Label struct {
	Name       string
	Confidence float32
}

// Image is an image payload ready to be attached to a captioning request.
type Image struct {
	MediaType string
	Data      []byte
}

// CaptionRequest is the provider-agnostic input to the captioning model.
// Image is nil when the caption is generated from labels alone.
type CaptionRequest struct {
	Prompt    string
	MaxTokens int
	Image     *Image
}

// CaptionRecord is a persisted caption for one uploaded object.
type CaptionRecord struct {
	PK        string
	SK        string
	Bucket    string
	Key       string
	Labels    []Label
	Caption   string
	ModelID   string
	RequestID string
	CreatedAt string
	TTL       int64
}
