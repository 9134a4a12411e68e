package domain

// Notification is a single storage-upload event: the bucket and the object key
// exactly as delivered by S3 (still percent-encoded).
type Notification struct {
	Bucket string
	Key    string
}
