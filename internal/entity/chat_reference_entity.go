package entity

// ChatReference is a citation into an ingested document.
type ChatReference struct {
	Text   string
	Page   int
	Source string
}
