// Package ai is the gateway to the language model behind the five
// enrichment operations: classify, rewrite, merge suggestion, memory
// extraction, and search.
//
// Each operation builds a prompt, sends it to Gemini, and parses the JSON
// span out of the reply. The model is treated as unreliable by contract:
// malformed output degrades to zero-value results (or a raw-text fallback
// for rewrite) rather than surfacing an error, while transport failures do
// return errors so callers can distinguish "the model said nothing useful"
// from "the call never happened".
package ai

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// DefaultModel is the Gemini model used for all operations.
const DefaultModel = "gemini-2.5-flash"

// Generator produces raw model output for a prompt. The concrete
// implementation is Gemini; tests substitute a canned one.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// GeminiGenerator calls the Gemini API through the google.golang.org/genai
// client.
type GeminiGenerator struct {
	client *genai.Client
	model  string
}

// NewGeminiGenerator creates a generator authenticated with the given API
// key.
func NewGeminiGenerator(ctx context.Context, apiKey string) (*GeminiGenerator, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &GeminiGenerator{client: client, model: DefaultModel}, nil
}

func (g *GeminiGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	result, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("gemini api call failed: %w", err)
	}
	if len(result.Candidates) == 0 || result.Candidates[0].Content == nil {
		return "", nil
	}
	var text strings.Builder
	for _, p := range result.Candidates[0].Content.Parts {
		if p.Text != "" {
			text.WriteString(p.Text)
		}
	}
	return text.String(), nil
}

// Gateway exposes the five enrichment operations over a Generator.
type Gateway struct {
	gen Generator
}

func NewGateway(gen Generator) *Gateway {
	return &Gateway{gen: gen}
}

// Classify suggests a category and tags for a note. existingTags are shown
// to the model so it extends the user's tagging instead of restating it.
func (g *Gateway) Classify(ctx context.Context, title, content string, existingTags []string) (Classification, error) {
	raw, err := g.gen.Generate(ctx, classifyPrompt(title, content, existingTags))
	if err != nil {
		return Classification{}, err
	}
	return parseClassification(raw), nil
}

// RewriteNote produces a cleaned-up title and content for a note.
func (g *Gateway) RewriteNote(ctx context.Context, title, content string) (Rewrite, error) {
	raw, err := g.gen.Generate(ctx, rewritePrompt(title, content))
	if err != nil {
		return Rewrite{}, err
	}
	return parseRewrite(raw, title), nil
}

// SuggestMerge asks whether two notes should be combined and, if so, what
// the combined note looks like.
func (g *Gateway) SuggestMerge(ctx context.Context, titleA, contentA, titleB, contentB string) (MergeSuggestion, error) {
	raw, err := g.gen.Generate(ctx, mergePrompt(titleA, contentA, titleB, contentB))
	if err != nil {
		return MergeSuggestion{}, err
	}
	return parseMergeSuggestion(raw, titleA, contentA), nil
}

// ExtractMemories pulls durable personal facts out of note content.
func (g *Gateway) ExtractMemories(ctx context.Context, title, content string) ([]ExtractedMemory, error) {
	raw, err := g.gen.Generate(ctx, extractMemoryPrompt(title, content))
	if err != nil {
		return nil, err
	}
	return parseMemories(raw), nil
}

// Search ranks the corpus notes against a free-text query.
func (g *Gateway) Search(ctx context.Context, query string, corpus []CorpusNote) ([]SearchMatch, error) {
	raw, err := g.gen.Generate(ctx, searchPrompt(query, corpus))
	if err != nil {
		return nil, err
	}
	known := make(map[string]struct{}, len(corpus))
	for _, n := range corpus {
		known[n.ID] = struct{}{}
	}
	return parseSearchMatches(raw, known), nil
}
