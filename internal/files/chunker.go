package files

import (
	"strings"
	"unicode/utf8"
)

const (
	defaultChunkTarget = 400
	defaultChunkMax    = 600
)

// ChunkText splits extracted text into passage-sized pieces for
// embedding. Paragraphs are the unit: adjacent short paragraphs merge
// until the target size, and a single paragraph longer than the maximum
// is split on line boundaries. Text at or under the maximum comes back
// as one chunk.
func ChunkText(text string, target, max int) []string {
	if target <= 0 {
		target = defaultChunkTarget
	}
	if max <= 0 {
		max = defaultChunkMax
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if len(text) <= max {
		return []string{text}
	}

	var chunks []string
	var accum string
	for _, para := range splitParagraphs(text) {
		if accum == "" {
			accum = para
			continue
		}
		if len(accum)+len(para)+2 <= target {
			accum += "\n\n" + para
			continue
		}
		chunks = appendChunk(chunks, accum, target, max)
		accum = para
	}
	return appendChunk(chunks, accum, target, max)
}

// splitParagraphs breaks text on blank lines and markdown headings so
// chunk boundaries follow the document's own structure.
func splitParagraphs(text string) []string {
	var paras []string
	var current []string

	flush := func() {
		p := strings.TrimSpace(strings.Join(current, "\n"))
		if p != "" {
			paras = append(paras, p)
		}
		current = current[:0]
	}

	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			flush()
			continue
		}
		if strings.HasPrefix(trimmed, "#") && len(current) > 0 {
			flush()
		}
		current = append(current, line)
	}
	flush()
	return paras
}

func appendChunk(chunks []string, text string, target, max int) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return chunks
	}
	if len(text) <= max {
		return append(chunks, text)
	}

	// Oversized paragraph: split on lines, falling back to a hard cut
	// for a single line with no break points.
	var current string
	for _, line := range strings.Split(text, "\n") {
		for len(line) > max {
			if current != "" {
				chunks = append(chunks, current)
				current = ""
			}
			cut := runeCut(line, max)
			chunks = append(chunks, strings.TrimSpace(line[:cut]))
			line = strings.TrimSpace(line[cut:])
		}
		if current != "" && len(current)+len(line)+1 > target {
			chunks = append(chunks, current)
			current = ""
		}
		if current == "" {
			current = line
		} else {
			current += "\n" + line
		}
	}
	if strings.TrimSpace(current) != "" {
		chunks = append(chunks, strings.TrimSpace(current))
	}
	return chunks
}

// runeCut backs a byte offset off to the nearest rune boundary so a
// hard split never leaves an invalid UTF-8 fragment.
func runeCut(s string, n int) int {
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	if n == 0 {
		return len(s)
	}
	return n
}
