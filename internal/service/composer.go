package service

import (
	"sync"

	"ai-pdfchat-client/internal/entity"
)

// composer holds what the user is typing and the files queued with it.
type composer struct {
	mu      sync.Mutex
	input   string
	uploads []entity.PendingUpload
}

func (c *composer) SetInput(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.input = text
}

func (c *composer) Add(files ...entity.PendingUpload) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.uploads = append(c.uploads, files...)
}

// Remove drops the upload at index and reports whether it existed.
func (c *composer) Remove(index int) (entity.PendingUpload, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if index < 0 || index >= len(c.uploads) {
		return entity.PendingUpload{}, false
	}
	removed := c.uploads[index]
	c.uploads = append(c.uploads[:index:index], c.uploads[index+1:]...)
	return removed, true
}

// Clear empties the input and the queue. The generation controller calls it
// once the user message is in the ledger.
func (c *composer) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.input = ""
	c.uploads = nil
}

func (c *composer) Snapshot() (string, []entity.PendingUpload) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.input, append([]entity.PendingUpload(nil), c.uploads...)
}
