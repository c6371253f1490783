// Package syncengine keeps the local note store and the server eventually
// consistent through periodic pulls and debounced pushes.
//
// The engine never blocks editing: transport failures are logged and
// swallowed, and the next tick or the next local change retries naturally.
// There is no retry loop or backoff beyond the fixed cadence.
package syncengine

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/notewell/notewell/pkg/debounce"
	"github.com/notewell/notewell/pkg/models"
)

// Default cadence. Pushes settle quickly after an edit burst; pulls are the
// slow path for picking up other devices' changes.
const (
	DefaultPullInterval = 30 * time.Second
	DefaultPushDelay    = 800 * time.Millisecond
)

// Remote is the server surface the engine depends on.
type Remote interface {
	// PullNotes returns notes changed at or after since (0 means all).
	PullNotes(ctx context.Context, since int64) ([]models.Note, error)
	// PushNotes uploads the full local collection; returns the accepted
	// count.
	PushNotes(ctx context.Context, notes []models.Note) (int, error)
}

// Local is the note store surface the engine depends on.
type Local interface {
	Notes() []models.Note
	ReplaceAll(notes []models.Note) error
}

// Engine drives the pull/push cycle between a Local store and a Remote.
type Engine struct {
	remote Remote
	local  Local
	pusher *debounce.Debouncer
	// cursor is the millisecond timestamp of the last successful pull or
	// push, used as the since parameter on periodic pulls. It lives in
	// memory only: losing it just makes the next pull a full one.
	cursor       atomic.Int64
	pullInterval time.Duration
	log          zerolog.Logger
}

// Option adjusts engine cadence, mainly for tests.
type Option func(*Engine)

func WithPullInterval(d time.Duration) Option {
	return func(e *Engine) { e.pullInterval = d }
}

func WithPushDelay(d time.Duration) Option {
	return func(e *Engine) {
		e.pusher.Stop()
		e.pusher = debounce.New(d, e.push)
	}
}

// New creates an engine. Wire NoteChanged to the store's change hook before
// calling Start.
func New(local Local, remote Remote, log zerolog.Logger, opts ...Option) *Engine {
	e := &Engine{
		remote:       remote,
		local:        local,
		pullInterval: DefaultPullInterval,
		log:          log.With().Str("component", "syncengine").Logger(),
	}
	e.pusher = debounce.New(DefaultPushDelay, e.push)
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// NoteChanged schedules a debounced push. Call on every local mutation.
func (e *Engine) NoteChanged() {
	e.pusher.Trigger()
}

// Start performs the initial full sync (a full pull followed by a push of
// the merged collection), then runs the periodic pull loop in a goroutine
// until ctx is cancelled. Periodic ticks only pull; uploads ride the
// debounced push triggered by local edits.
func (e *Engine) Start(ctx context.Context) {
	if e.pullOnce(ctx, 0) {
		e.pushNow(ctx)
	}

	go func() {
		ticker := time.NewTicker(e.pullInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				e.pusher.Stop()
				return
			case <-ticker.C:
				e.pullOnce(ctx, e.cursor.Load())
			}
		}
	}()
}

// pullOnce pulls changes since the cursor and reconciles them into the
// local store. The cursor only advances after a successful pull, so a
// failed tick is retried in full on the next one. Returns whether the pull
// landed.
func (e *Engine) pullOnce(ctx context.Context, since int64) bool {
	started := models.NowMillis()

	remoteNotes, err := e.remote.PullNotes(ctx, since)
	if err != nil {
		e.log.Warn().Err(err).Msg("pull failed, will retry next tick")
		return false
	}

	local := e.local.Notes()
	merged := Reconcile(local, remoteNotes)
	if err := e.local.ReplaceAll(merged); err != nil {
		e.log.Error().Err(err).Msg("failed to install reconciled notes")
		return false
	}

	e.cursor.Store(started)
	e.log.Debug().Int("notes", len(merged)).Int64("since", since).Msg("pull complete")
	return true
}

// push uploads the current local collection. Runs on the debounce timer
// after local edits settle.
func (e *Engine) push() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	e.pushNow(ctx)
}

// pushNow uploads the local collection and advances the cursor when the
// server accepts it, so the next pull skips notes this device just sent.
func (e *Engine) pushNow(ctx context.Context) {
	started := models.NowMillis()
	notes := e.local.Notes()
	count, err := e.remote.PushNotes(ctx, notes)
	if err != nil {
		e.log.Warn().Err(err).Msg("push failed, local edits remain queued")
		return
	}
	e.cursor.Store(started)
	e.log.Debug().Int("count", count).Msg("pushed local notes")
}
