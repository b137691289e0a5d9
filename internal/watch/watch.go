package watch

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const batchBuffer = 16

type Options struct {
	Debounce   time.Duration // default 500ms
	Extensions []string      // default [".xml"]
	Logger     *slog.Logger
}

// Watcher reports changed corpus documents under a root in debounced
// batches: a burst of saves produces one batch once writes go quiet.
type Watcher struct {
	root       string
	debounce   time.Duration
	extensions map[string]bool
	logger     *slog.Logger
	fsw        *fsnotify.Watcher

	mu      sync.Mutex
	pending map[string]bool

	batches chan []string
}

func New(root string, opts Options) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if opts.Debounce <= 0 {
		opts.Debounce = 500 * time.Millisecond
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	exts := map[string]bool{}
	if len(opts.Extensions) == 0 {
		opts.Extensions = []string{".xml"}
	}
	for _, e := range opts.Extensions {
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		exts[strings.ToLower(e)] = true
	}
	return &Watcher{
		root:       root,
		debounce:   opts.Debounce,
		extensions: exts,
		logger:     opts.Logger,
		fsw:        fsw,
		pending:    map[string]bool{},
		batches:    make(chan []string, batchBuffer),
	}, nil
}

// Batches is closed when the watcher stops.
func (w *Watcher) Batches() <-chan []string { return w.batches }

// Start installs the directory watches and begins processing events until
// ctx is done or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.addRecursive(w.root); err != nil {
		_ = w.fsw.Close()
		return err
	}
	go w.loop(ctx)
	w.logger.Info("watching corpus", "root", w.root, "debounce", w.debounce)
	return nil
}

func (w *Watcher) Stop() error { return w.fsw.Close() }

func (w *Watcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if name := d.Name(); path != root && strings.HasPrefix(name, ".") {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			w.logger.Warn("watch directory failed", "path", path, "err", err)
		}
		return nil
	})
}

func (w *Watcher) loop(ctx context.Context) {
	defer close(w.batches)
	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if w.handle(ev) {
				timer.Reset(w.debounce)
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watch error", "err", err)
		case <-timer.C:
			if b := w.drain(); len(b) > 0 {
				select {
				case w.batches <- b:
				case <-ctx.Done():
					return
				}
			}
		}
	}
}

// handle records ev and reports whether it is relevant.
func (w *Watcher) handle(ev fsnotify.Event) bool {
	if ev.Has(fsnotify.Create) {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			if err := w.addRecursive(ev.Name); err != nil {
				w.logger.Warn("watch new directory failed", "path", ev.Name, "err", err)
			}
			return false
		}
	}
	if !w.extensions[strings.ToLower(filepath.Ext(ev.Name))] {
		return false
	}
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
		return false
	}
	w.mu.Lock()
	w.pending[ev.Name] = true
	w.mu.Unlock()
	w.logger.Debug("document changed", "path", ev.Name, "op", ev.Op.String())
	return true
}

func (w *Watcher) drain() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]string, 0, len(w.pending))
	for p := range w.pending {
		out = append(out, p)
	}
	clear(w.pending)
	sort.Strings(out)
	return out
}
