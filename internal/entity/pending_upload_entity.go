package entity

// PendingUpload is a file queued by the user but not sent yet.
type PendingUpload struct {
	Name     string
	Path     string
	MimeType string
	Size     int64
}
