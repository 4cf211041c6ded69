package devserver

import (
	"fmt"
	"strings"

	"ai-pdfchat-client/internal/constant"
	"ai-pdfchat-client/internal/dto"
)

// Answer builds the canned reply for a question asked in a session that
// holds documents. References point at the first page of every document.
func Answer(question string, documents []string) (string, []dto.ReferenceDTO) {
	question = strings.TrimSpace(question)

	var b strings.Builder
	switch {
	case len(documents) == 0:
		fmt.Fprintf(&b, "There are no documents in this conversation yet. You asked: %q.\n", question)
		b.WriteString("Upload a PDF to get answers grounded in its content.")
		return b.String(), nil
	case question == constant.SummaryPrompt:
		fmt.Fprintf(&b, "Summary of %s\n\n", documents[len(documents)-1])
		b.WriteString("The document was received and indexed. ")
		b.WriteString("This development server does not read PDF content, so this summary is a placeholder.")
	default:
		fmt.Fprintf(&b, "Based on %s: ", strings.Join(documents, ", "))
		fmt.Fprintf(&b, "you asked %q. ", question)
		b.WriteString("This development server answers every question with the same template.")
	}

	refs := make([]dto.ReferenceDTO, 0, len(documents))
	for _, doc := range documents {
		refs = append(refs, dto.ReferenceDTO{
			Text:   "Opening section of " + doc,
			Page:   1,
			Source: doc,
		})
	}
	return b.String(), refs
}

// Tokens splits text into chunks that concatenate back to text, each word
// carrying its trailing whitespace.
func Tokens(text string) []string {
	var out []string
	start := 0
	inSpace := false
	for i, r := range text {
		space := r == ' ' || r == '\n' || r == '\t'
		if inSpace && !space {
			out = append(out, text[start:i])
			start = i
		}
		inSpace = space
	}
	if start < len(text) {
		out = append(out, text[start:])
	}
	return out
}
