package ai

import (
	"context"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notewell/notewell/pkg/models"
)

// cannedGenerator returns a fixed reply and records the prompt it saw.
type cannedGenerator struct {
	reply  string
	err    error
	prompt string
}

func (c *cannedGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	c.prompt = prompt
	return c.reply, c.err
}

func TestJSONSpan(t *testing.T) {
	span, ok := jsonSpan("Sure! Here you go:\n```json\n{\"a\": 1}\n```\nHope that helps.")
	require.True(t, ok)
	assert.Equal(t, `{"a": 1}`, span)

	span, ok = jsonSpan(`{"outer": {"inner": 2}} trailing`)
	require.True(t, ok)
	assert.Equal(t, `{"outer": {"inner": 2}}`, span)

	_, ok = jsonSpan("no json here")
	assert.False(t, ok)

	_, ok = jsonSpan("} backwards {")
	assert.False(t, ok)
}

func TestParseClassification(t *testing.T) {
	c := parseClassification(`{"category": "Work", "tags": ["Meetings", "meetings", " PLANNING "]}`)
	assert.Equal(t, "Work", c.Category)
	assert.Equal(t, []string{"meetings", "planning"}, []string(c.Tags))

	// Oversized category is truncated.
	long := strings.Repeat("x", 100)
	c = parseClassification(`{"category": "` + long + `", "tags": []}`)
	assert.Len(t, c.Category, models.MaxCategoryLen)

	// Garbage degrades to the zero value.
	assert.Equal(t, Classification{}, parseClassification("the note is about work"))
	assert.Equal(t, Classification{}, parseClassification(`{"category": [broken`))
}

func TestParseRewriteFallsBackToRawText(t *testing.T) {
	r := parseRewrite(`{"title": "Better Title", "content": "Better content."}`, "orig")
	assert.Equal(t, "Better Title", r.Title)
	assert.Equal(t, "Better content.", r.Content)

	// Missing title keeps the original.
	r = parseRewrite(`{"content": "Just content."}`, "orig")
	assert.Equal(t, "orig", r.Title)

	// Non-JSON output becomes the content verbatim.
	r = parseRewrite("  Here is your improved note text.  ", "orig")
	assert.Equal(t, "orig", r.Title)
	assert.Equal(t, "Here is your improved note text.", r.Content)
}

func TestParseMergeSuggestion(t *testing.T) {
	m := parseMergeSuggestion(`{"shouldMerge": true, "title": "Combined", "content": "Both notes."}`, "a", "ca")
	assert.True(t, m.ShouldMerge)
	assert.Equal(t, "Combined", m.Title)

	// Parse failure declines the merge and keeps note A.
	m = parseMergeSuggestion("cannot decide", "a", "ca")
	assert.False(t, m.ShouldMerge)
	assert.Equal(t, "a", m.Title)
	assert.Equal(t, "ca", m.Content)
}

func TestParseMemories(t *testing.T) {
	raw := `{"memories": [
		{"content": "Prefers tea over coffee", "topic": "preferences", "importance": 3},
		{"content": "   ", "topic": "empty", "importance": 2},
		{"content": "Sister's birthday is in June", "topic": "family", "importance": 99}
	]}`
	ms := parseMemories(raw)
	require.Len(t, ms, 2, "blank memories dropped")
	assert.Equal(t, 5, ms[1].Importance, "importance clamped")

	// Cap at MaxExtractedMemories.
	var b strings.Builder
	b.WriteString(`{"memories": [`)
	for i := 0; i < 15; i++ {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString(`{"content": "fact `)
		b.WriteString(strings.Repeat("x", i+1))
		b.WriteString(`", "topic": "t", "importance": 1}`)
	}
	b.WriteString(`]}`)
	assert.Len(t, parseMemories(b.String()), MaxExtractedMemories)

	assert.Nil(t, parseMemories("nothing"))
	assert.Nil(t, parseMemories(`{"memories": []}`))
}

func TestParseSearchMatchesDropsUnknownIDs(t *testing.T) {
	known := map[string]struct{}{"n1": {}, "n2": {}}
	raw := `{"matches": [
		{"id": "n2", "reason": "mentions the trip"},
		{"id": "invented", "reason": "hallucinated"},
		{"id": "n1", "reason": "same topic"}
	]}`
	ms := parseSearchMatches(raw, known)
	require.Len(t, ms, 2)
	assert.Equal(t, "n2", ms[0].ID, "model ordering preserved")

	assert.Nil(t, parseSearchMatches("no matches found", known))
}

func TestParseSearchMatchesDropsRepeatedIDs(t *testing.T) {
	known := map[string]struct{}{"n1": {}, "n2": {}}
	raw := `{"matches": [
		{"id": "n1", "reason": "best match"},
		{"id": "n2", "reason": "related"},
		{"id": "n1", "reason": "restated"}
	]}`
	ms := parseSearchMatches(raw, known)
	require.Len(t, ms, 2)
	assert.Equal(t, "n1", ms[0].ID)
	assert.Equal(t, "best match", ms[0].Reason, "first entry for an ID wins")
	assert.Equal(t, "n2", ms[1].ID)
}

func TestGatewayClassifyUsesPromptAndParses(t *testing.T) {
	gen := &cannedGenerator{reply: `{"category": "travel", "tags": ["japan"]}`}
	gw := NewGateway(gen)

	c, err := gw.Classify(context.Background(), "Trip plan", "Tokyo itinerary", []string{"travel", "2026"})
	require.NoError(t, err)
	assert.Equal(t, "travel", c.Category)
	assert.Contains(t, gen.prompt, "Trip plan")
	assert.Contains(t, gen.prompt, "Tokyo itinerary")
	assert.Contains(t, gen.prompt, "Existing tags: travel, 2026")
}

func TestGatewaySearchFiltersToCorpus(t *testing.T) {
	gen := &cannedGenerator{reply: `{"matches": [{"id": "a", "reason": "r"}, {"id": "zzz", "reason": "r"}]}`}
	gw := NewGateway(gen)

	matches, err := gw.Search(context.Background(), "query", []CorpusNote{
		{ID: "a", Title: "A", Snippet: "alpha"},
		{ID: "b", Title: "B", Snippet: "beta"},
	})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "a", matches[0].ID)
	assert.Contains(t, gen.prompt, `"snippet":"alpha"`)
}

func TestSnippet(t *testing.T) {
	assert.Equal(t, "short", Snippet("  short  ", 400))

	long := strings.Repeat("word ", 200)
	s := Snippet(long, CorpusSnippetLen)
	assert.LessOrEqual(t, len(s), CorpusSnippetLen)
	assert.NotEmpty(t, s)
}

func TestSnippetKeepsMultiByteRunesIntact(t *testing.T) {
	// One unbroken run of two-byte runes gives the splitter no boundary to
	// cut at, forcing the truncation path.
	long := strings.Repeat("é", 3*ResultSnippetLen)
	s := Snippet(long, ResultSnippetLen)
	assert.True(t, utf8.ValidString(s))
	assert.NotEmpty(t, s)
	assert.LessOrEqual(t, utf8.RuneCountInString(s), ResultSnippetLen)
}
