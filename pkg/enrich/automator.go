package enrich

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/notewell/notewell/pkg/client"
	"github.com/notewell/notewell/pkg/debounce"
	"github.com/notewell/notewell/pkg/models"
	"github.com/notewell/notewell/pkg/notestore"
	"github.com/notewell/notewell/pkg/similarity"
)

const (
	// Settle delays after the last edit before each automation fires.
	classifyDelay = 800 * time.Millisecond
	memoryDelay   = 1200 * time.Millisecond
	mergeDelay    = 1400 * time.Millisecond

	// minClassifyContent and minClassifyTitle gate classification: a note
	// shorter than both is too thin to categorize.
	minClassifyContent = 20
	minClassifyTitle   = 3

	// minMemoryContent gates extraction; short notes rarely hold facts.
	minMemoryContent = 40

	// minMergeLength gates merge scanning on title+content length.
	minMergeLength = 30

	// MergeSimilarityThreshold is the Jaccard score two notes must reach
	// before the model is asked whether they should be combined.
	MergeSimilarityThreshold = 0.88

	opTimeout = 30 * time.Second
)

// Assistant is the slice of the server client the automator needs.
// *client.Client satisfies it.
type Assistant interface {
	Classify(ctx context.Context, req client.ClassifyRequest) (client.ClassifyResponse, error)
	Rewrite(ctx context.Context, req client.RewriteRequest) (client.RewriteResponse, error)
	SuggestMerge(ctx context.Context, req client.MergeRequest) (client.MergeResponse, error)
	ExtractMemories(ctx context.Context, req client.ExtractMemoryRequest) (client.ExtractMemoryResponse, error)
	Search(ctx context.Context, req client.SearchRequest) ([]client.SearchResult, error)
}

// Automator watches note edits and runs the enabled AI assists once the
// edit settles. Automation failures are logged and dropped; they never
// surface to the editing flow.
type Automator struct {
	notes    *notestore.Store
	ai       Assistant
	deviceID string
	log      zerolog.Logger

	mu       sync.Mutex
	settings Settings
	pending  models.NoteID

	classify *debounce.Debouncer
	memory   *debounce.Debouncer
	merge    *debounce.Debouncer
}

// NewAutomator wires an automator over the local store. deviceID scopes
// extracted memories on the server.
func NewAutomator(notes *notestore.Store, ai Assistant, deviceID string, settings Settings, log zerolog.Logger) *Automator {
	a := &Automator{
		notes:    notes,
		ai:       ai,
		deviceID: deviceID,
		settings: settings,
		log:      log,
	}
	a.classify = debounce.New(classifyDelay, a.runClassify)
	a.memory = debounce.New(memoryDelay, a.runMemory)
	a.merge = debounce.New(mergeDelay, a.runMerge)
	return a
}

// UpdateSettings swaps the active settings.
func (a *Automator) UpdateSettings(settings Settings) {
	a.mu.Lock()
	a.settings = settings
	a.mu.Unlock()
}

// NoteChanged records an edit and arms the enabled automations. Only the
// most recently edited note is processed when a timer fires.
func (a *Automator) NoteChanged(id models.NoteID) {
	a.mu.Lock()
	a.pending = id
	settings := a.settings
	a.mu.Unlock()

	if settings.GeminiKey == "" {
		return
	}
	if settings.AutoClassify {
		a.classify.Trigger()
	}
	if settings.AutoMemory {
		a.memory.Trigger()
	}
	if settings.AutoMerge {
		a.merge.Trigger()
	}
}

// Stop cancels any armed automations.
func (a *Automator) Stop() {
	a.classify.Stop()
	a.memory.Stop()
	a.merge.Stop()
}

func (a *Automator) pendingNote() (models.Note, Settings, bool) {
	a.mu.Lock()
	id := a.pending
	settings := a.settings
	a.mu.Unlock()

	if id.IsZero() {
		return models.Note{}, settings, false
	}
	note, ok := a.notes.Get(id)
	return note, settings, ok
}

func (a *Automator) runClassify() {
	note, settings, ok := a.pendingNote()
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	if err := a.ClassifyNote(ctx, note.ID, settings.GeminiKey); err != nil {
		a.log.Warn().Err(err).Str("note", note.ID.String()).Msg("auto-classify failed")
	}
}

func (a *Automator) runMemory() {
	note, settings, ok := a.pendingNote()
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	if _, err := a.ExtractFromNote(ctx, note.ID, settings.GeminiKey); err != nil {
		a.log.Warn().Err(err).Str("note", note.ID.String()).Msg("auto-memory failed")
	}
}

func (a *Automator) runMerge() {
	note, settings, ok := a.pendingNote()
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	if _, err := a.MergeScan(ctx, note.ID, settings.GeminiKey); err != nil {
		a.log.Warn().Err(err).Str("note", note.ID.String()).Msg("auto-merge failed")
	}
}

// ClassifyNote assigns a category and tags to the note when it is
// substantial enough and not already classified. No-op cases return nil.
func (a *Automator) ClassifyNote(ctx context.Context, id models.NoteID, apiKey string) error {
	note, ok := a.notes.Get(id)
	if !ok || note.Trashed {
		return nil
	}
	if len(note.Content) < minClassifyContent && len(note.Title) < minClassifyTitle {
		return nil
	}
	if note.Category != "" && len(note.Tags) > 0 {
		return nil
	}

	result, err := a.ai.Classify(ctx, client.ClassifyRequest{
		Title:        note.Title,
		Content:      note.Content,
		ExistingTags: note.Tags,
		APIKey:       apiKey,
	})
	if err != nil {
		return err
	}
	if result.Category == "" && len(result.Tags) == 0 {
		return nil
	}

	// Suggested tags extend the user's own, never replace them.
	union := append(append([]string{}, note.Tags...), result.Tags...)
	tags := models.NormalizeTags(union)
	aiGenerated := true
	return a.notes.Apply(id, notestore.Patch{
		Category:    &result.Category,
		Tags:        &tags,
		AIGenerated: &aiGenerated,
	})
}

// RewriteNote asks the model to clean up the note and applies the result.
// Unlike the automations this is user-initiated, so errors surface.
func (a *Automator) RewriteNote(ctx context.Context, id models.NoteID, apiKey string) error {
	note, ok := a.notes.Get(id)
	if !ok {
		return fmt.Errorf("note %s not found", id)
	}

	result, err := a.ai.Rewrite(ctx, client.RewriteRequest{
		Title:   note.Title,
		Content: note.Content,
		APIKey:  apiKey,
	})
	if err != nil {
		return err
	}
	if result.Title == "" && result.Content == "" {
		return nil
	}

	title, content := result.Title, result.Content
	if title == "" {
		title = note.Title
	}
	if content == "" {
		content = note.Content
	}
	aiGenerated := true
	return a.notes.Apply(id, notestore.Patch{
		Title:       &title,
		Content:     &content,
		AIGenerated: &aiGenerated,
	})
}

// Search runs a model-ranked search over the local collection, excluding
// trashed notes.
func (a *Automator) Search(ctx context.Context, query, apiKey string) ([]client.SearchResult, error) {
	var corpus []client.SearchNote
	for _, note := range a.notes.Notes() {
		if note.Trashed {
			continue
		}
		corpus = append(corpus, client.SearchNote{
			ID:       note.ID.String(),
			Title:    note.Title,
			Content:  note.Content,
			Tags:     note.Tags,
			Category: note.Category,
		})
	}
	if len(corpus) == 0 {
		return nil, nil
	}

	return a.ai.Search(ctx, client.SearchRequest{
		Query:  query,
		Notes:  corpus,
		APIKey: apiKey,
	})
}

// ExtractFromNote sends the note's content for memory extraction. The
// server persists the results; the count of newly stored facts is returned.
func (a *Automator) ExtractFromNote(ctx context.Context, id models.NoteID, apiKey string) (int, error) {
	note, ok := a.notes.Get(id)
	if !ok || note.Trashed {
		return 0, nil
	}
	if len(note.Content) < minMemoryContent {
		return 0, nil
	}

	result, err := a.ai.ExtractMemories(ctx, client.ExtractMemoryRequest{
		Title:        note.Title,
		Content:      note.Content,
		DeviceID:     a.deviceID,
		SourceNoteID: note.ID.String(),
		APIKey:       apiKey,
	})
	if err != nil {
		return 0, err
	}
	if result.Added > 0 {
		a.log.Info().Int("added", result.Added).Str("note", id.String()).Msg("memories extracted")
	}
	return result.Added, nil
}

// MergeScan looks for the most lexically similar live note, asks the model
// whether the pair should be combined, and merges when it agrees. Returns
// true when a merge happened.
func (a *Automator) MergeScan(ctx context.Context, id models.NoteID, apiKey string) (bool, error) {
	note, ok := a.notes.Get(id)
	if !ok || note.Trashed {
		return false, nil
	}
	if len(note.Title)+len(note.Content) < minMergeLength {
		return false, nil
	}

	var (
		candidates   []string
		candidateIDs []models.NoteID
	)
	for _, other := range a.notes.Notes() {
		if other.ID == note.ID || other.Trashed {
			continue
		}
		candidates = append(candidates, other.Title+" "+other.Content)
		candidateIDs = append(candidateIDs, other.ID)
	}

	match, ok := similarity.FindMostSimilar(note.Title+" "+note.Content, candidates)
	if !ok || match.Score < MergeSimilarityThreshold {
		return false, nil
	}
	otherID := candidateIDs[match.Index]
	other, ok := a.notes.Get(otherID)
	if !ok {
		return false, nil
	}

	suggestion, err := a.ai.SuggestMerge(ctx, client.MergeRequest{
		TitleA:   note.Title,
		ContentA: note.Content,
		TitleB:   other.Title,
		ContentB: other.Content,
		APIKey:   apiKey,
	})
	if err != nil {
		return false, err
	}
	if !suggestion.ShouldMerge {
		return false, nil
	}

	merged, err := a.notes.ApplyMerge(note.ID, otherID, suggestion.Title, suggestion.Content, note.ID)
	if err != nil {
		return false, err
	}
	a.log.Info().
		Str("kept", merged.String()).
		Str("other", otherID.String()).
		Float64("score", match.Score).
		Msg("notes merged")
	return true, nil
}
