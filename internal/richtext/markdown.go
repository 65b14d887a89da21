package richtext

import (
	"sort"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf16"
)

const markdownSpecials = "\\`*_{}[]()<>#+-=.!|~&"

// Markdown converts blocks to CommonMark with inline tags for emphasis.
// Consecutive list items of the same kind are grouped into one list.
func (b Blocks) Markdown() string {
	var out strings.Builder
	prevList := ""
	for i, block := range b {
		listKind := ""
		if block.Type == TypeListItem || block.Type == TypeOListItem {
			listKind = block.Type
		}
		if i > 0 {
			if listKind != "" && listKind == prevList {
				out.WriteString("\n")
			} else {
				out.WriteString("\n\n")
			}
		}
		prevList = listKind

		switch {
		case block.Type == TypePreformatted:
			fence := codeFence(block.Text)
			out.WriteString(fence)
			out.WriteString("\n")
			out.WriteString(block.Text)
			out.WriteString("\n")
			out.WriteString(fence)
		case block.Type == TypeListItem:
			out.WriteString("- ")
			out.WriteString(formatSpans(block.Text, block.Spans))
		case block.Type == TypeOListItem:
			out.WriteString("1. ")
			out.WriteString(formatSpans(block.Text, block.Spans))
		case block.Type == TypeImage:
			if block.URL != "" {
				out.WriteString("![")
				out.WriteString(escapeMarkdown(block.Alt))
				out.WriteString("](")
				out.WriteString(escapeURL(block.URL))
				out.WriteString(")")
			}
		case block.Type == TypeEmbed:
			if block.Oembed != nil && block.Oembed.EmbedURL != "" {
				label := block.Oembed.Title
				if label == "" {
					label = block.Oembed.EmbedURL
				}
				out.WriteString("[")
				out.WriteString(escapeMarkdown(label))
				out.WriteString("](")
				out.WriteString(escapeURL(block.Oembed.EmbedURL))
				out.WriteString(")")
			}
		case strings.HasPrefix(block.Type, "heading"):
			level, err := strconv.Atoi(strings.TrimPrefix(block.Type, "heading"))
			if err != nil || level < 1 || level > 6 {
				level = 2
			}
			out.WriteString(strings.Repeat("#", level))
			out.WriteString(" ")
			out.WriteString(formatSpans(block.Text, block.Spans))
		default:
			out.WriteString(formatSpans(block.Text, block.Spans))
		}
	}
	return out.String()
}

type spanRange struct {
	start, end  int
	open, close string
}

// formatSpans escapes text and wraps span ranges in inline markup. Strong and
// em become inline tags, links stay markdown. Overlapping spans are split so
// tags always nest.
func formatSpans(text string, spans []Span) string {
	units := utf16.Encode([]rune(text))
	n := len(units)

	var ranges []spanRange
	for _, span := range spans {
		start, end := trimUnits(units, clamp(span.Start, n), clamp(span.End, n))
		if start >= end {
			continue
		}
		r := spanRange{start: start, end: end}
		switch span.Type {
		case SpanStrong:
			r.open, r.close = "<strong>", "</strong>"
		case SpanEm:
			r.open, r.close = "<em>", "</em>"
		case SpanHyperlink:
			if span.Data == nil || span.Data.URL == "" {
				continue
			}
			r.open, r.close = "[", "]("+escapeURL(span.Data.URL)+")"
		default:
			continue
		}
		ranges = append(ranges, r)
	}

	positions := make([]int, 0, 2*len(ranges))
	for _, r := range ranges {
		positions = append(positions, r.start, r.end)
	}
	sort.Ints(positions)

	var out strings.Builder
	var stack []int
	cursor := 0
	for i, pos := range positions {
		if i > 0 && positions[i-1] == pos {
			continue
		}
		if pos > cursor {
			out.WriteString(escapeMarkdown(string(utf16.Decode(units[cursor:pos]))))
			cursor = pos
		}

		// Close every range ending here, reopening the ones above it.
		lowest := len(stack)
		for j, idx := range stack {
			if ranges[idx].end == pos {
				lowest = j
				break
			}
		}
		var reopen []int
		for j := len(stack) - 1; j >= lowest; j-- {
			idx := stack[j]
			out.WriteString(ranges[idx].close)
			if ranges[idx].end != pos {
				reopen = append(reopen, idx)
			}
		}
		stack = stack[:lowest]
		for j := len(reopen) - 1; j >= 0; j-- {
			out.WriteString(ranges[reopen[j]].open)
			stack = append(stack, reopen[j])
		}

		var opening []int
		for idx, r := range ranges {
			if r.start == pos {
				opening = append(opening, idx)
			}
		}
		sort.SliceStable(opening, func(a, b int) bool {
			return ranges[opening[a]].end > ranges[opening[b]].end
		})
		for _, idx := range opening {
			out.WriteString(ranges[idx].open)
			stack = append(stack, idx)
		}
	}
	if cursor < n {
		out.WriteString(escapeMarkdown(string(utf16.Decode(units[cursor:]))))
	}
	return trimIndent(out.String())
}

// trimUnits narrows [start, end) so it neither begins nor ends with whitespace.
func trimUnits(units []uint16, start, end int) (int, int) {
	for start < end && isSpaceUnit(units[start]) {
		start++
	}
	for end > start && isSpaceUnit(units[end-1]) {
		end--
	}
	return start, end
}

func isSpaceUnit(u uint16) bool {
	return !utf16.IsSurrogate(rune(u)) && unicode.IsSpace(rune(u))
}

// trimIndent drops leading blanks of every line so indentation never turns
// prose into a code block.
func trimIndent(s string) string {
	if !strings.ContainsAny(s, " \t") {
		return s
	}
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimLeft(line, " \t")
	}
	return strings.Join(lines, "\n")
}

// codeFence returns a backtick fence longer than any backtick run in s.
func codeFence(s string) string {
	longest, run := 0, 0
	for _, r := range s {
		if r == '`' {
			run++
			if run > longest {
				longest = run
			}
			continue
		}
		run = 0
	}
	return strings.Repeat("`", max(3, longest+1))
}

func clamp(v, n int) int {
	if v < 0 {
		return 0
	}
	if v > n {
		return n
	}
	return v
}

func escapeMarkdown(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r < 128 && strings.ContainsRune(markdownSpecials, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

func escapeURL(u string) string {
	u = strings.TrimSpace(u)
	u = strings.ReplaceAll(u, " ", "%20")
	u = strings.ReplaceAll(u, "(", "%28")
	return strings.ReplaceAll(u, ")", "%29")
}
