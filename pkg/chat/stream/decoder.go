// Package stream decodes the answer stream of the question endpoint.
//
// The body is a sequence of lines; lines starting with "data:" carry a JSON
// payload {answer?, references?}. Everything else (event names, comments,
// keep-alives) is ignored.
package stream

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"ai-pdfchat-client/internal/dto"
	"ai-pdfchat-client/internal/entity"
	"ai-pdfchat-client/internal/mapper"
	"ai-pdfchat-client/internal/pkg/apperr"
	"ai-pdfchat-client/internal/pkg/logger"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

const (
	FramePrefix = "data:"

	logModule = "TokenStreamDecoder"
)

// Fragment is one decoded unit of a streaming answer.
type Fragment struct {
	Answer string
	// References is only meaningful when HasReferences is true; an explicit
	// empty list and an absent field are different things.
	References    []entity.ChatReference
	HasReferences bool
}

// Decoder pulls fragments out of a byte stream. It is consumed once:
// after Next returns false it keeps returning false.
type Decoder struct {
	r       *bufio.Reader
	log     logger.ILogger
	current Fragment
	err     error
	done    bool

	frames  int
	skipped int
}

// NewDecoder wraps r. Invalid UTF-8 is replaced; a multi-byte character
// split across two reads is reassembled before lines are cut.
func NewDecoder(r io.Reader, log logger.ILogger) *Decoder {
	utf8 := transform.NewReader(r, unicode.UTF8.NewDecoder())
	return &Decoder{
		r:   bufio.NewReaderSize(utf8, 64*1024),
		log: log,
	}
}

// Next advances to the next fragment carrying a non-empty answer.
func (d *Decoder) Next() bool {
	if d.done {
		return false
	}

	for {
		line, err := d.r.ReadString('\n')
		if err != nil {
			// A line without its terminator at end of stream is dropped.
			if !errors.Is(err, io.EOF) {
				d.err = fmt.Errorf("%w: read: %w", apperr.ErrStream, err)
			} else if strings.TrimSpace(line) != "" {
				d.log.Debug(logModule, "dropping unterminated trailing line", map[string]interface{}{
					"length": len(line),
				})
			}
			d.finish()
			return false
		}

		frag, ok := d.parseLine(line)
		if !ok {
			continue
		}
		d.current = frag
		return true
	}
}

// Fragment returns the fragment produced by the last successful Next.
func (d *Decoder) Fragment() Fragment {
	return d.current
}

// Err returns the transport error that ended the stream, nil on clean EOF.
func (d *Decoder) Err() error {
	return d.err
}

func (d *Decoder) finish() {
	d.done = true
	d.current = Fragment{}
	d.log.Debug(logModule, "stream finished", map[string]interface{}{
		"frames":  d.frames,
		"skipped": d.skipped,
		"failed":  d.err != nil,
	})
}

func (d *Decoder) parseLine(line string) (Fragment, bool) {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, FramePrefix) {
		return Fragment{}, false
	}
	payload := strings.TrimSpace(strings.TrimPrefix(trimmed, FramePrefix))
	if payload == "" {
		return Fragment{}, false
	}

	frag, err := ParseFrame(payload)
	if err != nil {
		d.skipped++
		d.log.Warn(logModule, "skipping malformed frame", map[string]interface{}{
			"error":   err.Error(),
			"payload": truncate(payload, 200),
		})
		return Fragment{}, false
	}
	if frag.Answer == "" {
		return Fragment{}, false
	}
	d.frames++
	return frag, true
}

// ParseFrame decodes the JSON payload of one data line.
func ParseFrame(payload string) (Fragment, error) {
	var frame dto.StreamFrame
	if err := json.Unmarshal([]byte(payload), &frame); err != nil {
		return Fragment{}, fmt.Errorf("%w: %w", apperr.ErrDecode, err)
	}

	frag := Fragment{Answer: frame.Answer}
	if frame.References != nil {
		frag.HasReferences = true
		frag.References = mapper.NewChatMapper().ReferencesToEntities(*frame.References)
		if frag.References == nil {
			frag.References = []entity.ChatReference{}
		}
	}
	return frag, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
