// Package watcher feeds files dropped into an inbox directory to a handler,
// bounding how many are processed at once.
package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

type Handler func(ctx context.Context, path string) error

type Options struct {
	MaxConcurrent int
	// SettleDelay is how long a file must stay unchanged before it is handed
	// off, so half-copied uploads are not picked up.
	SettleDelay time.Duration
	Extensions  []string
	Logger      *slog.Logger
}

type Watcher struct {
	dir        string
	handler    Handler
	logger     *slog.Logger
	settle     time.Duration
	extensions map[string]struct{}

	fs        *fsnotify.Watcher
	semaphore chan struct{}
	wg        sync.WaitGroup

	mu      sync.Mutex
	pending map[string]*pendingFile
}

type pendingFile struct {
	timer *time.Timer
	seq   uint64
}

func New(dir string, handler Handler, opts Options) (*Watcher, error) {
	if handler == nil {
		return nil, fmt.Errorf("watcher: handler is nil")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create inbox dir: %w", err)
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}

	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = 2
	}
	if opts.SettleDelay <= 0 {
		opts.SettleDelay = 500 * time.Millisecond
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	exts := make(map[string]struct{}, len(opts.Extensions))
	for _, ext := range opts.Extensions {
		exts[strings.ToLower(ext)] = struct{}{}
	}

	return &Watcher{
		dir:        dir,
		handler:    handler,
		logger:     opts.Logger,
		settle:     opts.SettleDelay,
		extensions: exts,
		fs:         fsw,
		semaphore:  make(chan struct{}, opts.MaxConcurrent),
		pending:    make(map[string]*pendingFile),
	}, nil
}

// Run blocks until ctx is cancelled and waits for in-flight handlers.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fs.Close()
	w.logger.Info("inbox_watcher_started", "dir", w.dir, "max_concurrent", cap(w.semaphore))

	ready := make(chan string)
	for {
		select {
		case <-ctx.Done():
			w.stopPending()
			w.wg.Wait()
			w.logger.Info("inbox_watcher_stopped")
			return nil

		case event, ok := <-w.fs.Events:
			if !ok {
				return fmt.Errorf("watcher events channel closed")
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 || !w.accepts(event.Name) {
				continue
			}
			w.debounce(ctx, event.Name, ready)

		case path := <-ready:
			select {
			case w.semaphore <- struct{}{}:
			case <-ctx.Done():
				continue
			}
			w.wg.Add(1)
			go func() {
				defer w.wg.Done()
				defer func() { <-w.semaphore }()

				w.logger.Info("inbox_file_detected", "path", path)
				if err := w.handler(ctx, path); err != nil {
					w.logger.Error("inbox_file_failed", "path", path, "error", err)
				}
			}()

		case err, ok := <-w.fs.Errors:
			if !ok {
				return fmt.Errorf("watcher errors channel closed")
			}
			w.logger.Error("inbox_watcher_error", "error", err)
		}
	}
}

// debounce restarts the settle timer on every write to path. A timer that
// already fired is ignored once a newer write bumps seq.
func (w *Watcher) debounce(ctx context.Context, path string, ready chan<- string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	p, ok := w.pending[path]
	if ok {
		p.timer.Stop()
		p.seq++
	} else {
		p = &pendingFile{}
		w.pending[path] = p
	}
	seq := p.seq
	p.timer = time.AfterFunc(w.settle, func() {
		w.mu.Lock()
		current, ok := w.pending[path]
		if !ok || current.seq != seq {
			w.mu.Unlock()
			return
		}
		delete(w.pending, path)
		w.mu.Unlock()

		select {
		case ready <- path:
		case <-ctx.Done():
		}
	})
}

func (w *Watcher) stopPending() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for path, p := range w.pending {
		p.timer.Stop()
		delete(w.pending, path)
	}
}

func (w *Watcher) accepts(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") {
		return false
	}
	if info, err := os.Stat(path); err != nil || info.IsDir() {
		return false
	}
	if len(w.extensions) == 0 {
		return true
	}
	_, ok := w.extensions[strings.ToLower(filepath.Ext(path))]
	return ok
}
