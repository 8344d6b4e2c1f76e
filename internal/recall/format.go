package recall

import (
	"fmt"
	"strings"
)

const defaultSnippetLen = 200

// FormatContext renders hits as the block injected ahead of a prompt:
// one `[<source>] <content>` line per hit inside a wrapper tag, each
// line's content truncated to snippetLen runes. Empty input renders
// nothing at all, so the host can prepend the result unconditionally.
func FormatContext(hits []Hit, snippetLen int) string {
	if len(hits) == 0 {
		return ""
	}
	if snippetLen <= 0 {
		snippetLen = defaultSnippetLen
	}

	var b strings.Builder
	b.WriteString("<memory-context>\n")
	for _, h := range hits {
		fmt.Fprintf(&b, "[%s] %s\n", h.Source, snippet(h.Content, snippetLen))
	}
	b.WriteString("</memory-context>")
	return b.String()
}

func snippet(text string, limit int) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return strings.TrimSpace(string(runes[:limit])) + "..."
}
