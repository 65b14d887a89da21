package service

import "strings"

const wordsPerMinute = 200

// ReadingTime estimates minutes to read content: every whitespace-delimited
// token of the headings and body texts, divided by 200 and rounded up.
func ReadingTime(content []ContentSection) int {
	words := 0
	for _, section := range content {
		words += len(strings.Fields(section.Heading))
		words += section.Body.Words()
	}
	return (words + wordsPerMinute - 1) / wordsPerMinute
}
