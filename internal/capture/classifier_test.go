package capture

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mnemo-ai/mnemo/internal/memory"
)

func TestShouldCapture_LengthBounds(t *testing.T) {
	assert.False(t, ShouldCapture(""))
	assert.False(t, ShouldCapture("short"))
	assert.False(t, ShouldCapture("I like it")) // 9 chars
	assert.False(t, ShouldCapture("I prefer "+strings.Repeat("very ", 120)+"long walks"))
}

func TestShouldCapture_LengthCountsRunes(t *testing.T) {
	// Under 500 runes but well over 500 bytes; must not be rejected on
	// byte length.
	text := "my favourite book is " + strings.Repeat("本", 170)
	assert.True(t, ShouldCapture(text))
}

func TestShouldCapture_Triggers(t *testing.T) {
	accepted := []string{
		"I always drink coffee in the morning",
		"I prefer dark mode in every editor I use",
		"My favorite language is Go, hands down",
		"We decided to ship the beta on Friday",
		"Remember that the staging database resets nightly",
		"You can reach me at jane.doe@example.com anytime",
		"My phone number is +1 (555) 123-4567",
		"My dog's name is Biscuit",
		"I'm going to train for the marathon this fall",
	}
	for _, text := range accepted {
		assert.True(t, ShouldCapture(text), "expected capture: %q", text)
	}
}

func TestShouldCapture_NoTrigger(t *testing.T) {
	rejected := []string{
		"What's my name?",
		"Can you explain how this works?",
		"Thanks, that looks good to me today",
		"Here is the summary you asked for",
	}
	for _, text := range rejected {
		assert.False(t, ShouldCapture(text), "expected reject: %q", text)
	}
}

func TestShouldCapture_StructuralRejects(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"injected context", "<memory-context>\n[memory] I prefer dark mode\n</memory-context>"},
		{"save acknowledgment", "Got it, saved to memory. I prefer dark mode."},
		{"tag wrapped", "<result>I always drink coffee in the morning</result>"},
		{"emoji flood", "I always celebrate 🎉🎉🎉🎉 every single release"},
		{"markdown list body", "I prefer these:\n- option one\n- option two\n- option three"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.False(t, ShouldCapture(tt.text))
		})
	}
}

func TestDetectCategory(t *testing.T) {
	tests := []struct {
		text string
		want memory.Category
	}{
		{"I always drink coffee in the morning", memory.CategoryPreference},
		{"I prefer tabs over spaces", memory.CategoryPreference},
		{"We decided to use Postgres for the new service", memory.CategoryDecision},
		{"My name is Jane and I work at Initech", memory.CategoryEntity},
		{"Reach me at jane@example.com", memory.CategoryEntity},
		{"My deadline is Friday", memory.CategoryFact},
		{"The cluster has twelve nodes", memory.CategoryFact},
		{"Remember that thing from before", memory.CategoryOther},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DetectCategory(tt.text), "text: %q", tt.text)
	}
}

func TestDetectCategory_PrecedenceOverCopula(t *testing.T) {
	// Preference language wins even though the text also contains a copula.
	assert.Equal(t, memory.CategoryPreference, DetectCategory("I prefer coffee that is freshly ground"))
	// Decision language wins over the entity email pattern.
	assert.Equal(t, memory.CategoryDecision, DetectCategory("We decided to route alerts to ops@example.com"))
}
