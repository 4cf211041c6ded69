package dto

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// FlexibleId accepts both numeric and string identifiers from the server.
type FlexibleId string

func (f *FlexibleId) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexibleId(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id is neither string nor number: %w", err)
	}
	*f = FlexibleId(n.String())
	return nil
}

func (f FlexibleId) String() string {
	return string(f)
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05",
}

// FlexibleTime accepts RFC 3339 timestamps and the zone-less form some
// servers emit; the latter is read as UTC.
type FlexibleTime struct {
	time.Time
}

func NewFlexibleTime(t time.Time) FlexibleTime {
	return FlexibleTime{Time: t}
}

func (f *FlexibleTime) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		f.Time = time.Time{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("timestamp is not a string: %w", err)
	}
	if s == "" {
		f.Time = time.Time{}
		return nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			f.Time = t
			return nil
		}
	}
	return fmt.Errorf("unrecognized timestamp %q", s)
}

func (f FlexibleTime) MarshalJSON() ([]byte, error) {
	return json.Marshal(f.Time.UTC().Format(time.RFC3339Nano))
}
