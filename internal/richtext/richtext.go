package richtext

import (
	"bytes"
	"html/template"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

// Block types of structured text.
const (
	TypeParagraph    = "paragraph"
	TypePreformatted = "preformatted"
	TypeListItem     = "list-item"
	TypeOListItem    = "o-list-item"
	TypeImage        = "image"
	TypeEmbed        = "embed"
)

// Span types.
const (
	SpanStrong    = "strong"
	SpanEm        = "em"
	SpanHyperlink = "hyperlink"
)

type SpanData struct {
	LinkType string `json:"link_type,omitempty"`
	URL      string `json:"url,omitempty"`
	Target   string `json:"target,omitempty"`
}

// Span marks a formatted range of a block's text. Start and End are UTF-16
// offsets.
type Span struct {
	Start int       `json:"start"`
	End   int       `json:"end"`
	Type  string    `json:"type"`
	Data  *SpanData `json:"data,omitempty"`
}

type Embed struct {
	EmbedURL string `json:"embed_url,omitempty"`
	Title    string `json:"title,omitempty"`
}

// Block is one structured text element.
type Block struct {
	Type   string `json:"type"`
	Text   string `json:"text"`
	Spans  []Span `json:"spans,omitempty"`
	URL    string `json:"url,omitempty"`
	Alt    string `json:"alt,omitempty"`
	Oembed *Embed `json:"oembed,omitempty"`
}

// Blocks is an ordered structured text field.
type Blocks []Block

var (
	markdownEngine = goldmark.New(
		goldmark.WithExtensions(extension.GFM, extension.Linkify),
		goldmark.WithRendererOptions(html.WithHardWraps(), html.WithXHTML(), html.WithUnsafe()),
	)
	sanitizer = bluemonday.UGCPolicy()
)

// HTML renders blocks to sanitized markup. Embeds of known video hosts
// become players; other embeds render as links.
func (b Blocks) HTML() (template.HTML, error) {
	var out bytes.Buffer
	start := 0
	flush := func(end int) error {
		if start >= end {
			return nil
		}
		var buf bytes.Buffer
		if err := markdownEngine.Convert([]byte(b[start:end].Markdown()), &buf); err != nil {
			return err
		}
		out.Write(sanitizer.SanitizeBytes(buf.Bytes()))
		return nil
	}

	for i, block := range b {
		if block.Type != TypeEmbed || block.Oembed == nil {
			continue
		}
		video, ok := parseVideoEmbed(block.Oembed.EmbedURL, block.Oembed.Title)
		if !ok {
			continue
		}
		if err := flush(i); err != nil {
			return "", err
		}
		out.WriteString(video.html())
		start = i + 1
	}
	if err := flush(len(b)); err != nil {
		return "", err
	}
	return template.HTML(out.String()), nil
}

// Text returns the plain text of all blocks separated by blank lines.
func (b Blocks) Text() string {
	parts := make([]string, 0, len(b))
	for _, block := range b {
		if t := strings.TrimSpace(block.Text); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, "\n\n")
}

// Words counts whitespace-delimited tokens across all block texts.
func (b Blocks) Words() int {
	total := 0
	for _, block := range b {
		total += len(strings.Fields(block.Text))
	}
	return total
}
