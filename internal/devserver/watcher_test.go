package devserver

import (
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcher_Changes(t *testing.T) {
	root := t.TempDir()
	w := NewWatcher(root, nil, zerolog.Nop())

	got := w.changes([]string{
		filepath.Join(root, "src", "b.js"),
		"src/a.scss",
		filepath.Join(root, "src", "b.js"),
		filepath.Join(filepath.Dir(root), "outside.js"),
		root,
	})

	assert.Equal(t, []Change{
		{Path: filepath.Join(root, "src", "a.scss"), RelPath: "src/a.scss"},
		{Path: filepath.Join(root, "src", "b.js"), RelPath: "src/b.js"},
	}, got)
}

func TestWatcher_FanOut(t *testing.T) {
	root := t.TempDir()
	w := NewWatcher(root, nil, zerolog.Nop())

	first, unsubFirst := w.Subscribe(4)
	second, unsubSecond := w.Subscribe(4)
	defer unsubSecond()

	w.publish([]string{"index.html"})

	require.Len(t, first, 1)
	require.Len(t, second, 1)
	assert.Equal(t, "index.html", (<-first).RelPath)
	assert.Equal(t, "index.html", (<-second).RelPath)

	unsubFirst()
	unsubFirst()
	_, ok := <-first
	assert.False(t, ok, "unsubscribe closes the channel")

	w.publish([]string{"app.js"})
	assert.Equal(t, "app.js", (<-second).RelPath)
}

func TestWatcher_DropsWhenFull(t *testing.T) {
	w := NewWatcher(t.TempDir(), nil, zerolog.Nop())
	ch, unsubscribe := w.Subscribe(1)
	defer unsubscribe()

	w.publish([]string{"a.js", "b.js", "c.js"})

	require.Len(t, ch, 1)
	assert.Equal(t, "a.js", (<-ch).RelPath)
}

func TestWatcher_CloseAll(t *testing.T) {
	w := NewWatcher(t.TempDir(), []string{"build/**"}, zerolog.Nop())
	ch, unsubscribe := w.Subscribe(1)

	w.closeAll()
	unsubscribe()

	_, ok := <-ch
	assert.False(t, ok)

	late, _ := w.Subscribe(1)
	_, ok = <-late
	assert.False(t, ok, "subscribing after stop yields a closed channel")
	assert.Contains(t, w.excludes, "build/**")
	assert.Contains(t, w.excludes, "node_modules/**")
}
