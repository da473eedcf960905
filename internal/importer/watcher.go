// Package importer watches a drop directory for Outlook export files
// and feeds them through the reconciliation pipeline. Handled files are
// moved into a processed/ subdirectory so a crashed run can be resumed
// by hand.
package importer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/caselink/internal/mail"
	"github.com/fyrsmithlabs/caselink/internal/matcher"
	"github.com/fyrsmithlabs/caselink/internal/metrics"
)

// ErrWatcherFailed indicates the filesystem watcher failed to initialize.
var ErrWatcherFailed = errors.New("failed to initialize filesystem watcher")

// processedDirName is where handled export files are moved.
const processedDirName = "processed"

// Watcher watches a drop directory for export files.
type Watcher struct {
	dir      string
	debounce time.Duration
	matcher  *matcher.Matcher
	logger   *zap.Logger

	watcher *fsnotify.Watcher
	stop    chan struct{}

	// pending maps file paths to their debounce timers. Export writers
	// flush in bursts, so each write resets the timer and the file is
	// imported only after it has been quiet for the debounce window.
	mu      sync.Mutex
	pending map[string]*time.Timer
}

// New creates a watcher over the given drop directory.
func New(dir string, debounce time.Duration, m *matcher.Matcher, logger *zap.Logger) (*Watcher, error) {
	if dir == "" {
		return nil, fmt.Errorf("watch directory cannot be empty")
	}
	if m == nil {
		return nil, fmt.Errorf("matcher cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if debounce <= 0 {
		debounce = 2 * time.Second
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWatcherFailed, err)
	}

	return &Watcher{
		dir:      dir,
		debounce: debounce,
		matcher:  m,
		logger:   logger,
		watcher:  fw,
		stop:     make(chan struct{}),
		pending:  make(map[string]*time.Timer),
	}, nil
}

// Start begins watching. Files already sitting in the drop directory
// are imported immediately; new files go through the debounce window.
// Runs a background goroutine until Stop or context cancellation.
func (w *Watcher) Start(ctx context.Context) error {
	if err := os.MkdirAll(filepath.Join(w.dir, processedDirName), 0o755); err != nil {
		return fmt.Errorf("create processed directory: %w", err)
	}
	if err := w.watcher.Add(w.dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}

	if err := w.importExisting(ctx); err != nil {
		return err
	}

	go w.processEvents(ctx)

	w.logger.Info("import watcher started",
		zap.String("dir", w.dir),
		zap.Duration("debounce", w.debounce),
	)
	return nil
}

// Stop stops the watcher and cleans up resources.
func (w *Watcher) Stop() {
	select {
	case <-w.stop:
		// Already stopped
		return
	default:
		close(w.stop)
		_ = w.watcher.Close()
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	for path, timer := range w.pending {
		timer.Stop()
		delete(w.pending, path)
	}
}

// importExisting handles files left in the drop directory from before
// the watcher started.
func (w *Watcher) importExisting(ctx context.Context) error {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return fmt.Errorf("read drop directory: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() || !isExportFile(entry.Name()) {
			continue
		}
		w.importFile(ctx, filepath.Join(w.dir, entry.Name()))
	}
	return nil
}

// processEvents handles filesystem events until stopped.
func (w *Watcher) processEvents(ctx context.Context) {
	for {
		select {
		case <-w.stop:
			return
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			if !isExportFile(filepath.Base(event.Name)) {
				continue
			}
			w.schedule(ctx, event.Name)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watcher error", zap.Error(err))
		}
	}
}

// schedule (re)arms the debounce timer for a file.
func (w *Watcher) schedule(ctx context.Context, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if timer, ok := w.pending[path]; ok {
		timer.Reset(w.debounce)
		return
	}
	w.pending[path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.pending, path)
		w.mu.Unlock()

		select {
		case <-w.stop:
			return
		case <-ctx.Done():
			return
		default:
		}
		w.importFile(ctx, path)
	})
}

// importFile parses one export file, reconciles it, and moves it aside.
// Failures leave the file in place for a retry after the operator fixes
// the cause.
func (w *Watcher) importFile(ctx context.Context, path string) {
	content, err := os.ReadFile(path)
	if err != nil {
		w.logger.Error("read export file", zap.String("path", path), zap.Error(err))
		return
	}

	export, err := mail.ParseExport(content)
	if err != nil {
		metrics.Get().ImportErrors.Inc()
		w.logger.Error("parse export file", zap.String("path", path), zap.Error(err))
		return
	}

	start := time.Now()
	report, err := w.matcher.Reconcile(ctx, export)
	if err != nil {
		metrics.Get().ImportErrors.Inc()
		w.logger.Error("reconcile export file", zap.String("path", path), zap.Error(err))
		return
	}
	metrics.Get().ImportDuration.Observe(time.Since(start).Seconds())

	w.logger.Info("export file imported",
		zap.String("path", path),
		zap.Int("emails", len(export.Emails)),
		zap.Int("assigned", len(report.Assigned)),
		zap.Int("created", len(report.CreatedCases)),
	)

	dest := filepath.Join(w.dir, processedDirName, timestampedName(filepath.Base(path)))
	if err := os.Rename(path, dest); err != nil {
		w.logger.Warn("move handled file", zap.String("path", path), zap.Error(err))
	}
}

// isExportFile reports whether a file name looks like an Outlook export.
func isExportFile(name string) bool {
	return strings.HasSuffix(strings.ToLower(name), ".json")
}

// timestampedName prefixes a file name with the handling time so
// repeated drops of the same name never collide in processed/.
func timestampedName(name string) string {
	return time.Now().Format("20060102-150405") + "-" + name
}
