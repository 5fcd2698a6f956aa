package devserver

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shinji-kodama/brick/internal/bundle"
	"github.com/shinji-kodama/brick/internal/model"
	"github.com/shinji-kodama/brick/internal/style"
)

// cannedCSS compiles every style sheet to the same CSS.
type cannedCSS string

func (c cannedCSS) Compile(string, style.OutputStyle) (string, error) {
	return string(c), nil
}

// stubModules records bundle requests.
type stubModules struct {
	paths []string
	err   error
}

func (m *stubModules) BundleModule(_ context.Context, path string) ([]byte, error) {
	m.paths = append(m.paths, path)
	if m.err != nil {
		return nil, m.err
	}
	return []byte("export const bundled = true;\n"), nil
}

func writeFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		p := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
	return root
}

func newTestServer(t *testing.T, modules ModuleBundler) (*Server, string) {
	t.Helper()
	root := writeFiles(t, map[string]string{
		"index.html":          `<html><head><title>demo</title></head><body><my-element></my-element></body></html>`,
		"src/my-element.js":   "export {};\n",
		"src/my-element.scss": ":host { display: block; }",
		"src/reset.css":       "body { margin: 0; }",
		"favicon.png":         "png",
	})
	tr, err := style.ForServe(cannedCSS(":host { display: block; }"), []string{"chrome64"})
	require.NoError(t, err)

	cfg := model.ServeConfig{
		RootDir:    root,
		AppIndex:   "index.html",
		Hostname:   "127.0.0.1",
		LiveReload: true,
	}
	return New(cfg, tr, modules, zerolog.Nop()), root
}

func get(t *testing.T, h http.Handler, target string, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestServer_HTMLGetsReloadClient(t *testing.T) {
	srv, _ := newTestServer(t, &stubModules{})
	rec := get(t, srv.Handler(), "/", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), `<script type="module" src="/__brick/client.js"></script></head>`)
}

func TestServer_AppIndexFallback(t *testing.T) {
	srv, _ := newTestServer(t, &stubModules{})
	h := srv.Handler()

	rec := get(t, h, "/settings/profile", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "<my-element>")

	rec = get(t, h, "/missing.js", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_StyleSheets(t *testing.T) {
	srv, _ := newTestServer(t, &stubModules{})
	h := srv.Handler()

	rec := get(t, h, "/src/my-element.scss", map[string]string{"Sec-Fetch-Dest": "script"})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/javascript")
	assert.Contains(t, rec.Body.String(), "import { css } from 'lit';")
	assert.Contains(t, rec.Body.String(), "display: block")

	rec = get(t, h, "/src/my-element.scss", map[string]string{"Sec-Fetch-Dest": "style"})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/css")
	assert.NotContains(t, rec.Body.String(), "lit")

	// Plain CSS is added to the document rather than wrapped in lit.
	rec = get(t, h, "/src/reset.css", map[string]string{"Sec-Fetch-Dest": "script"})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/javascript")
	assert.Contains(t, rec.Body.String(), `style.textContent = "body { margin: 0; }";`)
	assert.NotContains(t, rec.Body.String(), "lit")

	rec = get(t, h, "/src/reset.css", map[string]string{"Sec-Fetch-Dest": "style"})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/css")
	assert.Equal(t, "body { margin: 0; }", rec.Body.String())
}

func TestServer_Modules(t *testing.T) {
	modules := &stubModules{}
	srv, root := newTestServer(t, modules)
	h := srv.Handler()

	rec := get(t, h, "/src/my-element.js", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/javascript")
	assert.Equal(t, "export const bundled = true;\n", rec.Body.String())
	assert.Equal(t, []string{filepath.Join(root, "src", "my-element.js")}, modules.paths)

	modules.err = eris.New("Expected identifier")
	rec = get(t, h, "/src/my-element.js", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "src/my-element.js: Expected identifier")
}

func TestServer_ModulesShareImports(t *testing.T) {
	root := writeFiles(t, map[string]string{
		"index.html": `<script type="module" src="./src/a.js"></script><script type="module" src="./src/b.js"></script>`,
		"src/a.js":   "import { tag } from './comp.js';\nexport const a = tag;\n",
		"src/b.js":   "import { tag } from './comp.js';\nexport const b = tag;\n",
		"src/comp.js": `export const tag = 'x-comp';
customElements.define(tag, class extends HTMLElement {});
`,
	})
	modules, err := bundle.NewModuleBundler(root, []string{"chrome64"})
	require.NoError(t, err)
	tr, err := style.ForServe(cannedCSS(""), []string{"chrome64"})
	require.NoError(t, err)
	h := New(model.ServeConfig{RootDir: root, AppIndex: "index.html"}, tr, modules, zerolog.Nop()).Handler()

	for _, entry := range []string{"/src/a.js", "/src/b.js"} {
		rec := get(t, h, entry, map[string]string{"Sec-Fetch-Dest": "script"})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Contains(t, rec.Body.String(), `from "/src/comp.js"`)
		assert.NotContains(t, rec.Body.String(), "customElements.define", "%s inlines the shared module", entry)
	}

	rec := get(t, h, "/src/comp.js", map[string]string{"Sec-Fetch-Dest": "script"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 1, strings.Count(rec.Body.String(), "customElements.define"))
}

func TestServer_StaticAndClient(t *testing.T) {
	srv, _ := newTestServer(t, &stubModules{})
	h := srv.Handler()

	rec := get(t, h, "/favicon.png", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "png", rec.Body.String())

	rec = get(t, h, ClientPath, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "location.reload()")

	assert.Equal(t, filepath.Join(srv.cfg.RootDir, "etc", "passwd"), srv.resolve("/../../etc/passwd"))
}

func TestServer_StartFallsBackToNextPort(t *testing.T) {
	taken, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer taken.Close()
	port := taken.Addr().(*net.TCPAddr).Port

	srv, _ := newTestServer(t, &stubModules{})
	srv.cfg.Port = port

	require.NoError(t, srv.Start(context.Background()))
	assert.NotEqual(t, port, srv.Port())
	assert.Greater(t, srv.Port(), port)

	resp, err := http.Get("http://127.0.0.1:" + strconv.Itoa(srv.Port()) + "/")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Contains(t, string(body), "<my-element>")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, srv.Stop(ctx))
	require.NoError(t, srv.Stop(ctx))
}

func TestServer_StopWithoutStart(t *testing.T) {
	srv, _ := newTestServer(t, &stubModules{})
	assert.NoError(t, srv.Stop(context.Background()))
	assert.NoError(t, srv.Wait())
	assert.Nil(t, srv.Addr())
}

func TestHub_Broadcast(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	ts := httptest.NewServer(hub)
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.Len() == 1 }, 2*time.Second, 10*time.Millisecond)

	hub.Broadcast(ReloadMessage)
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, ReloadMessage, string(msg))

	hub.Close()
	assert.Equal(t, 0, hub.Len())
	_, _, err = conn.ReadMessage()
	assert.Error(t, err)
}

func TestBrowserCommand(t *testing.T) {
	name, args := browserCommand("darwin", "http://localhost:8000/")
	assert.Equal(t, "open", name)
	assert.Equal(t, []string{"http://localhost:8000/"}, args)

	name, _ = browserCommand("linux", "http://localhost:8000/")
	assert.Equal(t, "xdg-open", name)

	name, args = browserCommand("windows", "http://localhost:8000/")
	assert.Equal(t, "rundll32", name)
	assert.Equal(t, "url.dll,FileProtocolHandler", args[0])
}
