package prismic

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Timestamp accepts the content API's "2006-01-02T15:04:05-0700" layout as
// well as RFC 3339.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	"2006-01-02T15:04:05-0700",
	time.RFC3339,
	time.RFC3339Nano,
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("timestamp: %w", err)
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("timestamp: unsupported format %q", raw)
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Time.Format("2006-01-02T15:04:05-0700"))
}

// Ptr returns the wrapped time, or nil when t is nil or zero.
func (t *Timestamp) Ptr() *time.Time {
	if t == nil || t.IsZero() {
		return nil
	}
	v := t.Time
	return &v
}

// Document is a single content record. Data is decoded by the caller into the
// shape of its custom type.
type Document struct {
	ID                   string          `json:"id" validate:"required"`
	UID                  string          `json:"uid"`
	Type                 string          `json:"type" validate:"required"`
	Href                 string          `json:"href"`
	Tags                 []string        `json:"tags"`
	Lang                 string          `json:"lang"`
	FirstPublicationDate *Timestamp      `json:"first_publication_date"`
	LastPublicationDate  *Timestamp      `json:"last_publication_date"`
	Data                 json.RawMessage `json:"data"`
}

// Response is the body of a documents search, and of any next_page URL.
type Response struct {
	Page             int        `json:"page"`
	ResultsPerPage   int        `json:"results_per_page"`
	ResultsSize      int        `json:"results_size"`
	TotalResultsSize int        `json:"total_results_size"`
	TotalPages       int        `json:"total_pages"`
	NextPage         *string    `json:"next_page"`
	PrevPage         *string    `json:"prev_page"`
	Results          []Document `json:"results" validate:"required,dive"`
}

// Next returns the continuation cursor, or "" at the end of the collection.
func (r *Response) Next() string {
	if r == nil || r.NextPage == nil {
		return ""
	}
	return strings.TrimSpace(*r.NextPage)
}

// Ref is a content release reference. The master ref points at published content.
type Ref struct {
	ID          string `json:"id" validate:"required"`
	Ref         string `json:"ref" validate:"required"`
	Label       string `json:"label"`
	IsMasterRef bool   `json:"isMasterRef"`
}

type apiInfo struct {
	Refs []Ref `json:"refs" validate:"required,min=1,dive"`
}
