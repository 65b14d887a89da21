package prismictest

import (
	"encoding/json"
	"time"

	"github.com/spacetraveling/internal/prismic"
)

// Section is one heading plus body paragraphs of a post.
type Section struct {
	Heading    string
	Paragraphs []string
}

// PostFixture describes a posts document.
type PostFixture struct {
	ID       string
	UID      string
	Title    string
	Subtitle string
	Author   string
	Banner   string
	First    time.Time
	Last     time.Time
	Sections []Section
}

// Post builds a posts document the way the content API returns it.
func Post(f PostFixture) prismic.Document {
	type span struct {
		Start int    `json:"start"`
		End   int    `json:"end"`
		Type  string `json:"type"`
	}
	type block struct {
		Type  string `json:"type"`
		Text  string `json:"text"`
		Spans []span `json:"spans"`
	}
	type group struct {
		Heading string  `json:"heading"`
		Body    []block `json:"body"`
	}

	content := make([]group, 0, len(f.Sections))
	for _, s := range f.Sections {
		body := make([]block, 0, len(s.Paragraphs))
		for _, p := range s.Paragraphs {
			body = append(body, block{Type: "paragraph", Text: p, Spans: []span{}})
		}
		content = append(content, group{Heading: s.Heading, Body: body})
	}

	data, _ := json.Marshal(map[string]any{
		"title":    f.Title,
		"subtitle": f.Subtitle,
		"author":   f.Author,
		"banner":   map[string]any{"url": f.Banner, "alt": f.Title},
		"content":  content,
	})

	doc := prismic.Document{
		ID:   f.ID,
		UID:  f.UID,
		Type: "posts",
		Lang: "pt-br",
		Data: data,
	}
	if !f.First.IsZero() {
		doc.FirstPublicationDate = &prismic.Timestamp{Time: f.First}
	}
	last := f.Last
	if last.IsZero() {
		last = f.First
	}
	if !last.IsZero() {
		doc.LastPublicationDate = &prismic.Timestamp{Time: last}
	}
	return doc
}
