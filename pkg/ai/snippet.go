package ai

import (
	"strings"

	"github.com/tmc/langchaingo/textsplitter"

	"github.com/notewell/notewell/pkg/models"
)

// Snippet length caps used when building the search corpus and enriching
// results.
const (
	CorpusSnippetLen = 400
	ResultSnippetLen = 200
)

// Snippet returns the leading chunk of content, at most maxLen characters,
// cut at a natural boundary (paragraph, sentence, word) rather than
// mid-token.
func Snippet(content string, maxLen int) string {
	content = strings.TrimSpace(content)
	if len(content) <= maxLen {
		return content
	}
	splitter := textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(maxLen),
		textsplitter.WithChunkOverlap(0),
	)
	chunks, err := splitter.SplitText(content)
	if err != nil || len(chunks) == 0 {
		return models.Truncate(content, maxLen)
	}
	first := strings.TrimSpace(chunks[0])
	if first == "" || len(first) > maxLen {
		return models.Truncate(content, maxLen)
	}
	return first
}
