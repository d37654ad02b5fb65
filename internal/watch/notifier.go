package watch

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/qobs-build/glut/internal/msg"
)

// DefaultDebounce is the quiet period that ends a burst of file events
const DefaultDebounce = 100 * time.Millisecond

// Filter decides which paths take part in watching
type Filter interface {
	// Watched reports whether a change to the file at path matters
	Watched(path string) bool
	// WatchDir reports whether the directory at path should be descended into
	WatchDir(path string) bool
}

// Change is one debounced batch of modified paths
type Change struct {
	Paths []string
}

// Notifier watches a project tree and emits a Change per burst of relevant events
type Notifier struct {
	fsw       *fsnotify.Watcher
	root      string
	filter    Filter
	debouncer *Debouncer
	changes   chan Change
}

// NewNotifier starts watching root and every subdirectory accepted by filter
func NewNotifier(root string, filter Filter, window time.Duration) (*Notifier, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	n := &Notifier{
		fsw:     fsw,
		root:    root,
		filter:  filter,
		changes: make(chan Change, 1),
	}
	n.debouncer = NewDebouncer(window, n.emit)

	if err := n.addRecursive(root); err != nil {
		fsw.Close()
		return nil, err
	}
	return n, nil
}

// Changes delivers debounced changes. If the consumer is busy a single change is kept;
// later ones are merged into it by being dropped, since one rebuild covers them all.
func (n *Notifier) Changes() <-chan Change {
	return n.changes
}

func (n *Notifier) emit(paths []string) {
	select {
	case n.changes <- Change{Paths: paths}:
	default:
	}
}

// addRecursive adds dir and its accepted subdirectories to the watcher
func (n *Notifier) addRecursive(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// directory vanished or is unreadable, keep going
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != n.root && !n.filter.WatchDir(path) {
			return fs.SkipDir
		}
		return n.fsw.Add(path)
	})
}

// Run processes file system events until ctx is cancelled, then releases the watcher
func (n *Notifier) Run(ctx context.Context) error {
	defer n.fsw.Close()
	defer n.debouncer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-n.fsw.Events:
			if !ok {
				return nil
			}
			n.handle(event)

		case err, ok := <-n.fsw.Errors:
			if !ok {
				return nil
			}
			msg.Warn("file watcher: %v", err)
		}
	}
}

func (n *Notifier) handle(event fsnotify.Event) {
	if event.Has(fsnotify.Create) {
		if stat, err := os.Stat(event.Name); err == nil && stat.IsDir() {
			if n.filter.WatchDir(event.Name) {
				if err := n.addRecursive(event.Name); err != nil {
					msg.Warn("could not watch %s: %v", event.Name, err)
				}
			}
			return
		}
	}

	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return
	}
	if n.filter.Watched(event.Name) {
		n.debouncer.Add(event.Name)
	}
}
