package filesystem

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/robfig/cron/v3"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/logger"
)

// DefaultDebounce is how long a file must be quiet before it is reindexed.
const DefaultDebounce = 500 * time.Millisecond

// Indexer builds document indexes. driving.QAService satisfies it.
type Indexer interface {
	Index(ctx context.Context, path string, rebuild bool) (*domain.IndexManifest, error)
	Documents(ctx context.Context) ([]domain.DocumentInfo, error)
}

// Watcher keeps the indexes of a documents directory current. Created or
// written files are rebuilt after a quiet period; a cron rescan builds any
// index that is missing from storage.
type Watcher struct {
	source   *Source
	indexer  Indexer
	schedule string
	debounce time.Duration

	mu     sync.Mutex
	timers map[string]*time.Timer
	closed bool
	wg     sync.WaitGroup

	// onIndexed is called after each index attempt. Tests use it to observe
	// progress.
	onIndexed func(path string, err error)
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithSchedule sets the cron rescan schedule. An empty schedule disables rescans.
func WithSchedule(spec string) WatcherOption {
	return func(w *Watcher) {
		w.schedule = spec
	}
}

// WithDebounce sets the quiet period before a changed file is reindexed.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		w.debounce = d
	}
}

// NewWatcher creates a watcher over source's directory.
func NewWatcher(source *Source, indexer Indexer, opts ...WatcherOption) *Watcher {
	w := &Watcher{
		source:   source,
		indexer:  indexer,
		schedule: domain.DefaultRescanSchedule,
		debounce: DefaultDebounce,
		timers:   make(map[string]*time.Timer),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run watches until ctx is cancelled. It rescans once at start so every
// document has an index before events are handled.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fsw.Close()

	if err := fsw.Add(w.source.Dir()); err != nil {
		return fmt.Errorf("watch %s: %w", w.source.Dir(), err)
	}

	var scheduler *cron.Cron
	if w.schedule != "" {
		scheduler = cron.New()
		if _, err := scheduler.AddFunc(w.schedule, func() { w.Rescan(ctx) }); err != nil {
			return fmt.Errorf("%w: rescan schedule %q: %w", domain.ErrInvalidInput, w.schedule, err)
		}
		scheduler.Start()
		logger.Info("Rescanning %s on schedule %q", w.source.Dir(), w.schedule)
	}

	w.Rescan(ctx)
	logger.Info("Watching %s for changes", w.source.Dir())

	defer func() {
		if scheduler != nil {
			<-scheduler.Stop().Done()
		}
		w.stopTimers()
		w.wg.Wait()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if change := w.handleFsEvent(event); change != nil {
				w.apply(ctx, *change)
			}
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			logger.Warn("Watcher error: %v", err)
		}
	}
}

// Rescan builds the index of every listed document that has none.
func (w *Watcher) Rescan(ctx context.Context) {
	docs, err := w.indexer.Documents(ctx)
	if err != nil {
		logger.Warn("Rescan of %s failed: %v", w.source.Dir(), err)
		return
	}

	built := 0
	for _, d := range docs {
		if ctx.Err() != nil {
			return
		}
		if d.Indexed {
			continue
		}
		if w.index(ctx, d.Path, false) == nil {
			built++
		}
	}
	logger.Debug("Rescan of %s: %d documents, %d indexed", w.source.Dir(), len(docs), built)
}

// handleFsEvent maps an fsnotify event to a document change. Directories,
// hidden files, unsupported types and chmod-only events yield nil.
func (w *Watcher) handleFsEvent(event fsnotify.Event) *domain.DocumentChange {
	if !w.source.Supports(event.Name) {
		return nil
	}

	switch {
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		return &domain.DocumentChange{Type: domain.ChangeDeleted, Path: event.Name}
	case event.Has(fsnotify.Create), event.Has(fsnotify.Write):
		info, err := os.Stat(event.Name)
		if err != nil || info.IsDir() {
			return nil
		}
		changeType := domain.ChangeUpdated
		if event.Has(fsnotify.Create) {
			changeType = domain.ChangeCreated
		}
		return &domain.DocumentChange{Type: changeType, Path: event.Name}
	default:
		return nil
	}
}

// apply schedules a rebuild for created and updated files, resetting the
// timer on each event so a burst of writes causes one rebuild.
func (w *Watcher) apply(ctx context.Context, change domain.DocumentChange) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.timers[change.Path]; ok {
		t.Stop()
		delete(w.timers, change.Path)
	}

	if change.Type == domain.ChangeDeleted {
		logger.Debug("Document %s %s; stored index left in place", change.Path, change.Type)
		return
	}

	logger.Debug("Document %s %s", change.Path, change.Type)
	path := change.Path
	w.timers[path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.timers, path)
		if w.closed {
			w.mu.Unlock()
			return
		}
		w.wg.Add(1)
		w.mu.Unlock()
		defer w.wg.Done()

		if ctx.Err() == nil {
			_ = w.index(ctx, path, true)
		}
	})
}

func (w *Watcher) index(ctx context.Context, path string, rebuild bool) error {
	done := logger.Timed("Indexing %s", path)
	_, err := w.indexer.Index(ctx, path, rebuild)
	done()

	switch {
	case err == nil:
	case errors.Is(err, context.Canceled):
	default:
		logger.Warn("Indexing %s failed: %v", path, err)
	}

	if w.onIndexed != nil {
		w.onIndexed(path, err)
	}
	return err
}

func (w *Watcher) stopTimers() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	for path, t := range w.timers {
		t.Stop()
		delete(w.timers, path)
	}
}
