// Package capture decides which conversational text becomes a durable
// memory. It is a heuristic gate kept as data tables of patterns, not a
// model: missed captures are acceptable, noisy captures are bounded by
// the structural rejects.
package capture

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/mnemo-ai/mnemo/internal/memory"
)

const (
	minCaptureLen = 10
	maxCaptureLen = 500
	maxEmoji      = 3
)

// rejectMarkers are substrings of text the engine itself produced:
// injected context blocks and save acknowledgments must never round-trip
// back into storage.
var rejectMarkers = []string{
	"<memory-context>",
	"</memory-context>",
	"[memory]",
	"saved to memory",
	"memory saved",
	"i'll remember that",
	"i will remember that",
	"noted, i'll keep that in mind",
}

// triggerPatterns accept text as capture-worthy. First-person statements
// of preference, habit, or decision, explicit memorization cues, contact
// details, possessive facts, and absolute-emphasis statements.
var triggerPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bI (really |truly |absolutely )?(prefer|like|love|hate|dislike|enjoy|want|need)\b`),
	regexp.MustCompile(`(?i)\bmy favou?rite\b`),
	regexp.MustCompile(`(?i)\bI (always|usually|never|often|rarely|typically) \w+`),
	regexp.MustCompile(`(?i)\b(I|we)('ve| have)? (decided|chose|chosen|agreed|settled) (to|on|that)\b`),
	regexp.MustCompile(`(?i)\b(I am|I'm|we are|we're) (going to|planning to) \w+`),
	regexp.MustCompile(`(?i)\b(remember|don't forget|note|keep in mind) that\b`),
	regexp.MustCompile(`(?i)\bfor (future |the )?(reference|record)\b`),
	regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`),
	regexp.MustCompile(`\+?\d[\d ().-]{7,}\d`),
	regexp.MustCompile(`(?i)\bmy [a-z][a-z' -]{0,30} (is|are|was) \S+`),
	regexp.MustCompile(`(?i)\b(always|never|every time|without exception)\b`),
}

// categoryRules map accepted text to a category, ordered and
// first-match-wins. Specific language wins over the generic copula
// fallback at the end.
var categoryRules = []struct {
	category memory.Category
	patterns []*regexp.Regexp
}{
	{
		category: memory.CategoryPreference,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\bI (really |truly |absolutely )?(prefer|like|love|hate|dislike|enjoy)\b`),
			regexp.MustCompile(`(?i)\bmy favou?rite\b`),
			regexp.MustCompile(`(?i)\bI (always|usually|never|often|rarely|typically) \w+`),
		},
	},
	{
		category: memory.CategoryDecision,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\b(I|we)('ve| have)? (decided|chose|chosen|agreed|settled) (to|on|that)\b`),
			regexp.MustCompile(`(?i)\b(I am|I'm|we are|we're) (going to|planning to) \w+`),
			regexp.MustCompile(`(?i)\b(let's|we'll) (go with|use|stick with)\b`),
		},
	},
	{
		category: memory.CategoryEntity,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\bmy name is\b`),
			regexp.MustCompile(`(?i)\bI (live|work) (in|at)\b`),
			regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`),
			regexp.MustCompile(`\+?\d[\d ().-]{7,}\d`),
		},
	},
	{
		category: memory.CategoryFact,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)\bmy [a-z][a-z' -]{0,30} (is|are|was) \S+`),
			regexp.MustCompile(`(?i)\b(is|are|has|have|was|were)\b`),
		},
	},
}

var (
	tagWrapped     = regexp.MustCompile(`(?s)^\s*<[^>]+>.*</[^>]+>\s*$`)
	markdownItem   = regexp.MustCompile(`(?m)^\s*([-*+]|\d+[.)])\s+\S`)
	maxListsInText = 2
)

// ShouldCapture reports whether raw conversational text is worth storing
// as a memory. Stateless per input.
func ShouldCapture(text string) bool {
	trimmed := strings.TrimSpace(text)
	// Length bounds count runes, not bytes, so non-ASCII statements are
	// measured the same as English ones.
	if n := utf8.RuneCountInString(trimmed); n < minCaptureLen || n > maxCaptureLen {
		return false
	}

	lower := strings.ToLower(trimmed)
	for _, marker := range rejectMarkers {
		if strings.Contains(lower, marker) {
			return false
		}
	}
	if countEmoji(trimmed) > maxEmoji {
		return false
	}
	if tagWrapped.MatchString(trimmed) {
		return false
	}
	if len(markdownItem.FindAllStringIndex(trimmed, -1)) > maxListsInText {
		return false
	}

	for _, p := range triggerPatterns {
		if p.MatchString(trimmed) {
			return true
		}
	}
	return false
}

// DetectCategory assigns a category to text already accepted by
// ShouldCapture. Unmatched text falls back to "other".
func DetectCategory(text string) memory.Category {
	trimmed := strings.TrimSpace(text)
	for _, rule := range categoryRules {
		for _, p := range rule.patterns {
			if p.MatchString(trimmed) {
				return rule.category
			}
		}
	}
	return memory.CategoryOther
}

func countEmoji(text string) int {
	n := 0
	for _, r := range text {
		switch {
		case r >= 0x1F300 && r <= 0x1FAFF:
			n++
		case r >= 0x2600 && r <= 0x27BF:
			n++
		case r >= 0x1F000 && r <= 0x1F2FF:
			n++
		}
	}
	return n
}
