package syncengine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notewell/notewell/pkg/models"
)

func note(t *testing.T, id string, updatedAt int64) models.Note {
	t.Helper()
	nid, err := models.ParseNoteID(id)
	require.NoError(t, err)
	return models.Note{ID: nid, Title: "title-" + id, UpdatedAt: updatedAt, CreatedAt: updatedAt}
}

func ids(notes []models.Note) []string {
	out := make([]string, len(notes))
	for i, n := range notes {
		out[i] = n.ID.String()
	}
	return out
}

func TestReconcileLastWriterWins(t *testing.T) {
	local := []models.Note{note(t, "a", 200), note(t, "b", 100)}
	remote := []models.Note{note(t, "a", 150), note(t, "b", 300)}
	remote[0].Title = "stale"
	remote[1].Title = "fresher"

	merged := Reconcile(local, remote)
	require.Len(t, merged, 2)
	assert.Equal(t, "title-a", merged[0].Title, "newer local wins")
	assert.Equal(t, "fresher", merged[1].Title, "newer remote wins")
}

func TestReconcileTieKeepsLocal(t *testing.T) {
	local := []models.Note{note(t, "a", 100)}
	remote := []models.Note{note(t, "a", 100)}
	remote[0].Title = "remote"

	merged := Reconcile(local, remote)
	assert.Equal(t, "title-a", merged[0].Title)
}

func TestReconcileOneSidedNotesKept(t *testing.T) {
	local := []models.Note{note(t, "only-local", 100)}
	remote := []models.Note{note(t, "only-remote", 200)}

	merged := Reconcile(local, remote)
	assert.Equal(t, []string{"only-local", "only-remote"}, ids(merged),
		"local order first, remote-only appended")
}

func TestReconcileIsIdempotent(t *testing.T) {
	local := []models.Note{note(t, "a", 200), note(t, "c", 50)}
	remote := []models.Note{note(t, "a", 150), note(t, "b", 300)}

	once := Reconcile(local, remote)
	twice := Reconcile(once, remote)
	assert.Equal(t, once, twice)
}

func TestReconcileEmptySides(t *testing.T) {
	assert.Empty(t, Reconcile(nil, nil))
	local := []models.Note{note(t, "a", 1)}
	assert.Equal(t, local, Reconcile(local, nil))
	assert.Equal(t, local, Reconcile(nil, local))
}

// fakeLocal is a minimal Local for engine tests.
type fakeLocal struct {
	mu    sync.Mutex
	notes []models.Note
}

func (f *fakeLocal) Notes() []models.Note {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Note{}, f.notes...)
}

func (f *fakeLocal) ReplaceAll(notes []models.Note) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notes = append([]models.Note{}, notes...)
	return nil
}

// fakeRemote records pulls and pushes and can be told to fail.
type fakeRemote struct {
	mu       sync.Mutex
	notes    []models.Note
	pulls    []int64
	pushes   int
	pullErr  error
	pushErr  error
	lastPush []models.Note
}

func (f *fakeRemote) PullNotes(ctx context.Context, since int64) ([]models.Note, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pulls = append(f.pulls, since)
	if f.pullErr != nil {
		return nil, f.pullErr
	}
	out := []models.Note{}
	for _, n := range f.notes {
		if n.UpdatedAt >= since {
			out = append(out, n)
		}
	}
	return out, nil
}

func (f *fakeRemote) PushNotes(ctx context.Context, notes []models.Note) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pushes++
	if f.pushErr != nil {
		return 0, f.pushErr
	}
	f.lastPush = append([]models.Note{}, notes...)
	return len(notes), nil
}

func TestStartDoesInitialFullSync(t *testing.T) {
	local := &fakeLocal{notes: []models.Note{note(t, "local", 100)}}
	remote := &fakeRemote{notes: []models.Note{note(t, "server", 200)}}
	e := New(local, remote, zerolog.Nop(), WithPullInterval(time.Hour))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	e.Start(ctx)

	remote.mu.Lock()
	require.NotEmpty(t, remote.pulls)
	assert.Equal(t, int64(0), remote.pulls[0], "first pull is full")
	assert.ElementsMatch(t, []string{"local", "server"}, ids(remote.lastPush),
		"merged collection pushed back")
	remote.mu.Unlock()

	assert.ElementsMatch(t, []string{"local", "server"}, ids(local.Notes()))
}

func TestPeriodicPullUsesCursor(t *testing.T) {
	local := &fakeLocal{}
	remote := &fakeRemote{}
	e := New(local, remote, zerolog.Nop(), WithPullInterval(30*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	e.Start(ctx)

	assert.Eventually(t, func() bool {
		remote.mu.Lock()
		defer remote.mu.Unlock()
		return len(remote.pulls) >= 2
	}, time.Second, 5*time.Millisecond)

	remote.mu.Lock()
	defer remote.mu.Unlock()
	assert.Equal(t, int64(0), remote.pulls[0])
	assert.Greater(t, remote.pulls[1], int64(0), "later pulls use the cursor")
}

func TestPullFailureDoesNotAdvanceCursorOrClobberLocal(t *testing.T) {
	local := &fakeLocal{notes: []models.Note{note(t, "keep", 100)}}
	remote := &fakeRemote{pullErr: errors.New("network down")}
	e := New(local, remote, zerolog.Nop(), WithPullInterval(time.Hour))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	e.Start(ctx)

	assert.Equal(t, []string{"keep"}, ids(local.Notes()))
	assert.Equal(t, int64(0), e.cursor.Load())
}

func TestPushFailureDoesNotAdvanceCursor(t *testing.T) {
	local := &fakeLocal{notes: []models.Note{note(t, "a", 1)}}
	remote := &fakeRemote{pushErr: errors.New("server 500")}
	e := New(local, remote, zerolog.Nop(), WithPullInterval(time.Hour))

	e.pushNow(context.Background())

	assert.Equal(t, int64(0), e.cursor.Load())
}

func TestPushAdvancesCursor(t *testing.T) {
	local := &fakeLocal{notes: []models.Note{note(t, "a", 1)}}
	remote := &fakeRemote{}
	e := New(local, remote, zerolog.Nop(),
		WithPullInterval(time.Hour), WithPushDelay(10*time.Millisecond))

	e.NoteChanged()
	assert.Eventually(t, func() bool {
		return e.cursor.Load() > 0
	}, time.Second, 5*time.Millisecond, "a successful push moves the cursor forward")
}

func TestPeriodicTickOnlyPulls(t *testing.T) {
	local := &fakeLocal{notes: []models.Note{note(t, "a", 1)}}
	remote := &fakeRemote{}
	e := New(local, remote, zerolog.Nop(), WithPullInterval(20*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	e.Start(ctx)

	assert.Eventually(t, func() bool {
		remote.mu.Lock()
		defer remote.mu.Unlock()
		return len(remote.pulls) >= 3
	}, time.Second, 5*time.Millisecond)

	remote.mu.Lock()
	defer remote.mu.Unlock()
	assert.Equal(t, 1, remote.pushes, "only the startup sync pushes, ticks pull")
}

func TestNoteChangedDebouncesPush(t *testing.T) {
	local := &fakeLocal{notes: []models.Note{note(t, "a", 1)}}
	remote := &fakeRemote{}
	e := New(local, remote, zerolog.Nop(),
		WithPullInterval(time.Hour), WithPushDelay(20*time.Millisecond))

	// Burst of edits produces a single push.
	for i := 0; i < 5; i++ {
		e.NoteChanged()
	}
	assert.Eventually(t, func() bool {
		remote.mu.Lock()
		defer remote.mu.Unlock()
		return remote.pushes == 1
	}, time.Second, 5*time.Millisecond)

	time.Sleep(50 * time.Millisecond)
	remote.mu.Lock()
	assert.Equal(t, 1, remote.pushes)
	assert.Equal(t, []string{"a"}, ids(remote.lastPush))
	remote.mu.Unlock()
}

func TestUnsavedLocalEditSurvivesPull(t *testing.T) {
	// The local copy of "doc" is newer than the server's; a pull must not
	// roll it back.
	localNote := note(t, "doc", 500)
	localNote.Content = "unsaved local edit"
	serverNote := note(t, "doc", 400)
	serverNote.Content = "older server copy"

	local := &fakeLocal{notes: []models.Note{localNote}}
	remote := &fakeRemote{notes: []models.Note{serverNote}}
	e := New(local, remote, zerolog.Nop(), WithPullInterval(time.Hour))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	e.Start(ctx)

	notes := local.Notes()
	require.Len(t, notes, 1)
	assert.Equal(t, "unsaved local edit", notes[0].Content)
}
