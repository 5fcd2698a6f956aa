package devserver

import (
	"context"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cortesi/moddwatch"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
)

// DefaultLull is how long the watcher waits for a burst of file events to
// settle before publishing it as one batch.
const DefaultLull = 100 * time.Millisecond

// DefaultExcludes are never watched.
var DefaultExcludes = []string{"node_modules/**", ".git/**", "**/.git/**"}

// Change is one modified, added or deleted file.
type Change struct {
	// Path is the absolute path of the file.
	Path string

	// RelPath is Path relative to the watched root, with forward slashes.
	RelPath string
}

// Watcher publishes file changes under a root directory to subscribers.
// Each subscriber owns a bounded channel; changes that do not fit are
// dropped for that subscriber only.
type Watcher struct {
	root     string
	excludes []string
	lull     time.Duration
	logger   zerolog.Logger

	mu     sync.Mutex
	subs   map[int]chan Change
	nextID int
	closed bool
}

// NewWatcher creates a watcher for root. excludes are glob patterns
// relative to root and are added to DefaultExcludes.
func NewWatcher(root string, excludes []string, logger zerolog.Logger) *Watcher {
	return &Watcher{
		root:     root,
		excludes: append(append([]string{}, DefaultExcludes...), excludes...),
		lull:     DefaultLull,
		logger:   logger,
		subs:     make(map[int]chan Change),
	}
}

// Subscribe returns a channel receiving changes and a function that ends
// the subscription. The channel holds at most buf pending changes. It is
// closed by the unsubscribe function or when the watcher stops.
func (w *Watcher) Subscribe(buf int) (<-chan Change, func()) {
	if buf < 1 {
		buf = 1
	}
	ch := make(chan Change, buf)

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		close(ch)
		return ch, func() {}
	}

	id := w.nextID
	w.nextID++
	w.subs[id] = ch

	return ch, func() {
		w.mu.Lock()
		defer w.mu.Unlock()
		if sub, ok := w.subs[id]; ok {
			delete(w.subs, id)
			close(sub)
		}
	}
}

// Run watches the root until ctx is done. Every subscriber channel is
// closed when Run returns.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.closeAll()

	mods := make(chan *moddwatch.Mod, 1)
	mw, err := moddwatch.Watch(w.root, []string{"**"}, w.excludes, w.lull, mods)
	if err != nil {
		return eris.Wrapf(err, "watch %s", w.root)
	}
	defer mw.Stop()

	w.logger.Debug().Str("root", w.root).Strs("excludes", w.excludes).Msg("watching for changes")

	for {
		select {
		case <-ctx.Done():
			return nil
		case mod, ok := <-mods:
			if !ok {
				return nil
			}
			if mod == nil || mod.Empty() {
				continue
			}
			w.publish(mod.All())
		}
	}
}

// publish sends one batch of paths to every subscriber.
func (w *Watcher) publish(paths []string) {
	changes := w.changes(paths)
	if len(changes) == 0 {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	for id, ch := range w.subs {
		for _, c := range changes {
			select {
			case ch <- c:
			default:
				w.logger.Debug().Int("subscriber", id).Str("path", c.RelPath).Msg("subscriber full, dropping change")
			}
		}
	}
}

// changes normalizes watcher paths into sorted, de-duplicated Changes.
func (w *Watcher) changes(paths []string) []Change {
	seen := make(map[string]bool, len(paths))
	var out []Change
	for _, p := range paths {
		abs := p
		if !filepath.IsAbs(abs) {
			abs = filepath.Join(w.root, abs)
		}
		abs = filepath.Clean(abs)
		rel, err := filepath.Rel(w.root, abs)
		if err != nil || rel == "." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || rel == ".." {
			continue
		}
		if seen[abs] {
			continue
		}
		seen[abs] = true
		out = append(out, Change{Path: abs, RelPath: filepath.ToSlash(rel)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RelPath < out[j].RelPath })
	return out
}

func (w *Watcher) closeAll() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	for id, ch := range w.subs {
		close(ch)
		delete(w.subs, id)
	}
}
