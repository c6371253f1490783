package ai

import (
	"encoding/json"
	"strings"

	"github.com/notewell/notewell/pkg/models"
)

// Result types for the five model operations. Every numeric and string field
// is clamped to the models package limits before leaving this package, so
// downstream code never sees an oversized value regardless of what the model
// returned.

// Classification is the category and tag set suggested for a note.
type Classification struct {
	Category string   `json:"category"`
	Tags     []string `json:"tags"`
}

// Rewrite is a cleaned-up version of a note.
type Rewrite struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// MergeSuggestion is the model's verdict on combining two notes.
type MergeSuggestion struct {
	ShouldMerge bool   `json:"shouldMerge"`
	Title       string `json:"title"`
	Content     string `json:"content"`
}

// ExtractedMemory is one durable fact pulled from note content.
type ExtractedMemory struct {
	Content    string `json:"content"`
	Topic      string `json:"topic"`
	Importance int    `json:"importance"`
}

// SearchMatch is one note the model judged relevant to a query.
type SearchMatch struct {
	ID     string `json:"id"`
	Reason string `json:"reason"`
}

// jsonSpan extracts the substring from the first '{' to the last '}' in raw.
// Models wrap JSON in prose and code fences often enough that parsing the
// span directly beats asking for clean output. ok is false when no such span
// exists.
func jsonSpan(raw string) (string, bool) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return "", false
	}
	return raw[start : end+1], true
}

// parseClassification parses model output into a Classification. Parse
// failures return the zero value.
func parseClassification(raw string) Classification {
	span, ok := jsonSpan(raw)
	if !ok {
		return Classification{}
	}
	var c Classification
	if err := json.Unmarshal([]byte(span), &c); err != nil {
		return Classification{}
	}
	c.Category = models.Truncate(strings.TrimSpace(c.Category), models.MaxCategoryLen)
	c.Tags = models.NormalizeTags(c.Tags)
	return c
}

// parseRewrite parses model output into a Rewrite. When the output is not
// JSON the whole text becomes the content and the original title is kept, so
// a chatty model still produces a usable rewrite.
func parseRewrite(raw, fallbackTitle string) Rewrite {
	span, ok := jsonSpan(raw)
	if ok {
		var r Rewrite
		if err := json.Unmarshal([]byte(span), &r); err == nil && strings.TrimSpace(r.Content) != "" {
			if strings.TrimSpace(r.Title) == "" {
				r.Title = fallbackTitle
			}
			return r
		}
	}
	return Rewrite{Title: fallbackTitle, Content: strings.TrimSpace(raw)}
}

// parseMergeSuggestion parses model output into a MergeSuggestion. Parse
// failures decline the merge and keep note A's fields.
func parseMergeSuggestion(raw, fallbackTitle, fallbackContent string) MergeSuggestion {
	span, ok := jsonSpan(raw)
	if ok {
		var m MergeSuggestion
		if err := json.Unmarshal([]byte(span), &m); err == nil {
			if strings.TrimSpace(m.Title) == "" {
				m.Title = fallbackTitle
			}
			if strings.TrimSpace(m.Content) == "" {
				m.Content = fallbackContent
			}
			return m
		}
	}
	return MergeSuggestion{ShouldMerge: false, Title: fallbackTitle, Content: fallbackContent}
}

// parseMemories parses model output into at most MaxExtractedMemories
// extracted facts, dropping empty ones and clamping fields. Parse failures
// return nil.
func parseMemories(raw string) []ExtractedMemory {
	span, ok := jsonSpan(raw)
	if !ok {
		return nil
	}
	var envelope struct {
		Memories []ExtractedMemory `json:"memories"`
	}
	if err := json.Unmarshal([]byte(span), &envelope); err != nil {
		return nil
	}
	out := make([]ExtractedMemory, 0, len(envelope.Memories))
	for _, m := range envelope.Memories {
		m.Content = models.Truncate(strings.TrimSpace(m.Content), models.MaxMemoryContent)
		if m.Content == "" {
			continue
		}
		m.Topic = models.Truncate(strings.TrimSpace(m.Topic), models.MaxMemoryTopic)
		m.Importance = models.ClampImportance(m.Importance)
		out = append(out, m)
		if len(out) == MaxExtractedMemories {
			break
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// parseSearchMatches parses model output into at most MaxSearchMatches
// matches against the set of known note IDs. Unknown IDs are dropped (the
// model occasionally invents plausible-looking identifiers) and repeated
// IDs keep only their first, best-ranked entry.
func parseSearchMatches(raw string, known map[string]struct{}) []SearchMatch {
	span, ok := jsonSpan(raw)
	if !ok {
		return nil
	}
	var envelope struct {
		Matches []SearchMatch `json:"matches"`
	}
	if err := json.Unmarshal([]byte(span), &envelope); err != nil {
		return nil
	}
	out := make([]SearchMatch, 0, len(envelope.Matches))
	seen := make(map[string]struct{}, len(envelope.Matches))
	for _, m := range envelope.Matches {
		if _, ok := known[m.ID]; !ok {
			continue
		}
		if _, dup := seen[m.ID]; dup {
			continue
		}
		seen[m.ID] = struct{}{}
		out = append(out, m)
		if len(out) == MaxSearchMatches {
			break
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
