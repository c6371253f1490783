package ai

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/notewell/notewell/pkg/models"
)

// Output caps per operation.
const (
	MaxExtractedMemories = 10
	MaxSearchMatches     = 10
)

// Prompt length caps. Content beyond these limits adds cost without changing
// the answer, so it is cut before the prompt is built.
const (
	maxClassifyContent = 6000
	maxExtractContent  = 8000
	maxCorpusJSON      = 14000
)

func classifyPrompt(title, content string, existingTags []string) string {
	existing := "(none)"
	if len(existingTags) > 0 {
		existing = strings.Join(existingTags, ", ")
	}
	return fmt.Sprintf(`You are a note organizer. Given a note, pick one short category and up to %d lowercase tags. Keep the existing tags in mind and only suggest tags that add to them.

Respond with only JSON in this exact shape:
{"category": "string", "tags": ["string"]}

Note title: %s
Existing tags: %s
Note content:
%s`, models.MaxTags, title, existing, models.Truncate(content, maxClassifyContent))
}

func rewritePrompt(title, content string) string {
	return fmt.Sprintf(`You are a writing assistant. Rewrite the note below to be clear and well structured. Keep the author's meaning and voice. Fix grammar and organization only.

Respond with only JSON in this exact shape:
{"title": "string", "content": "string"}

Note title: %s
Note content:
%s`, title, content)
}

func mergePrompt(titleA, contentA, titleB, contentB string) string {
	return fmt.Sprintf(`You are a note organizer. Two notes below may cover the same topic. Decide whether they should be merged into one note. If yes, produce a combined title and content that keeps all distinct information from both.

Respond with only JSON in this exact shape:
{"shouldMerge": true or false, "title": "string", "content": "string"}

Note A title: %s
Note A content:
%s

Note B title: %s
Note B content:
%s`, titleA, models.Truncate(contentA, maxClassifyContent), titleB, models.Truncate(contentB, maxClassifyContent))
}

func extractMemoryPrompt(title, content string) string {
	return fmt.Sprintf(`You extract durable personal facts from notes: preferences, commitments, relationships, recurring details worth remembering across sessions. Ignore transient todo items and filler. Return at most %d facts. Importance is 1 (minor) to 5 (critical).

Respond with only JSON in this exact shape:
{"memories": [{"content": "string", "topic": "string", "importance": 1}]}

If there is nothing worth remembering, respond with {"memories": []}.

Note title: %s
Note content:
%s`, MaxExtractedMemories, title, models.Truncate(content, maxExtractContent))
}

// CorpusNote is the compact note representation sent to the model for
// search. Snippets are pre-cut so the serialized corpus stays within budget.
type CorpusNote struct {
	ID       string   `json:"id"`
	Title    string   `json:"title"`
	Tags     []string `json:"tags,omitempty"`
	Category string   `json:"category,omitempty"`
	Snippet  string   `json:"snippet"`
}

func searchPrompt(query string, corpus []CorpusNote) string {
	corpusJSON, err := json.Marshal(corpus)
	if err != nil {
		corpusJSON = []byte("[]")
	}
	return fmt.Sprintf(`You are a search engine over the user's personal notes. Given a query and the notes below, return the IDs of notes relevant to the query, best match first, at most %d. Only use IDs that appear in the notes. Give a one-sentence reason per match.

Respond with only JSON in this exact shape:
{"matches": [{"id": "string", "reason": "string"}]}

If nothing matches, respond with {"matches": []}.

Query: %s
Notes:
%s`, MaxSearchMatches, query, models.Truncate(string(corpusJSON), maxCorpusJSON))
}
