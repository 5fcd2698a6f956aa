package devserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/shinji-kodama/brick/internal/bundle"
	"github.com/shinji-kodama/brick/internal/model"
	"github.com/shinji-kodama/brick/internal/network"
	"github.com/shinji-kodama/brick/internal/style"
)

// portSearchRange is how many ports above the configured one are tried
// when it is taken.
const portSearchRange = 100

// ModuleBundler transforms a JavaScript module on request.
type ModuleBundler interface {
	BundleModule(ctx context.Context, path string) ([]byte, error)
}

// Server is the development server.
type Server struct {
	cfg     model.ServeConfig
	styles  *style.Transformer
	modules ModuleBundler
	hub     *Hub
	watcher *Watcher
	logger  zerolog.Logger

	mu     sync.Mutex
	http   *http.Server
	addr   *net.TCPAddr
	cancel context.CancelFunc
	group  *errgroup.Group
}

// New creates a server for cfg. styles transforms style sheets and modules
// bundles JavaScript requests.
func New(cfg model.ServeConfig, styles *style.Transformer, modules ModuleBundler, logger zerolog.Logger) *Server {
	return &Server{
		cfg:     cfg,
		styles:  styles,
		modules: modules,
		hub:     NewHub(logger),
		watcher: NewWatcher(cfg.RootDir, cfg.WatchExcludes, logger),
		logger:  logger,
	}
}

// Handler returns the HTTP handler of the server.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	if s.cfg.LiveReload {
		r.Handle(ReloadPath, s.hub)
		r.HandleFunc(ClientPath, s.serveClient).Methods(http.MethodGet, http.MethodHead)
	}
	r.PathPrefix("/").HandlerFunc(s.serveFile).Methods(http.MethodGet, http.MethodHead)
	r.Use(s.logRequests)
	return r
}

// Subscribe returns the file changes seen by the server's watcher.
// See Watcher.Subscribe.
func (s *Server) Subscribe(buf int) (<-chan Change, func()) {
	return s.watcher.Subscribe(buf)
}

// Start binds the listener and starts serving and watching in the
// background. If the configured port is taken, the next free port is used.
// The server runs until ctx is done or Stop is called.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.http != nil {
		return eris.New("server already started")
	}

	ln, err := s.listen()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(ctx)
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 15 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return gctx },
	}

	s.http = srv
	s.addr = ln.Addr().(*net.TCPAddr)
	s.cancel = cancel
	s.group = g

	g.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return eris.Wrap(err, "serve")
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, done := context.WithTimeout(context.WithoutCancel(gctx), 5*time.Second)
		defer done()
		return srv.Shutdown(shutdownCtx)
	})

	if s.cfg.Watch {
		changes, unsubscribe := s.watcher.Subscribe(64)
		g.Go(func() error {
			return s.watcher.Run(gctx)
		})
		g.Go(func() error {
			defer unsubscribe()
			s.reloadOnChange(gctx, changes)
			return nil
		})
	}

	s.logger.Debug().Str("addr", s.addr.String()).Bool("watch", s.cfg.Watch).Msg("dev server started")
	return nil
}

// Addr returns the bound address, or nil before Start.
func (s *Server) Addr() *net.TCPAddr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// Port returns the bound port, or 0 before Start.
func (s *Server) Port() int {
	if addr := s.Addr(); addr != nil {
		return addr.Port
	}
	return 0
}

// Wait blocks until the server has stopped and returns the first error of
// its goroutines. It returns nil immediately if the server never started.
func (s *Server) Wait() error {
	s.mu.Lock()
	g := s.group
	s.mu.Unlock()
	if g == nil {
		return nil
	}
	return g.Wait()
}

// Stop shuts the server down, stops the watcher and disconnects reload
// clients. It is safe to call on a server that was never started and to
// call more than once.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	srv, cancel, g := s.http, s.cancel, s.group
	s.mu.Unlock()

	s.hub.Close()
	if srv == nil {
		return nil
	}

	cancel()
	done := make(chan error, 1)
	go func() { done <- g.Wait() }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		_ = srv.Close()
		return eris.Wrap(ctx.Err(), "shut down dev server")
	}
}

// listen binds the configured host and port, falling back to the next
// free port.
func (s *Server) listen() (net.Listener, error) {
	port := s.cfg.Port
	if port != 0 {
		free, err := network.NewScanner(s.cfg.Hostname).FindAvailablePort(port, port+portSearchRange)
		if err != nil {
			return nil, eris.Wrapf(err, "find a free port from %d", port)
		}
		if free != port {
			s.logger.Info().Int("configured", port).Int("port", free).Msg("port in use, using next free port")
		}
		port = free
	}

	ln, err := net.Listen("tcp", net.JoinHostPort(s.cfg.Hostname, strconv.Itoa(port)))
	if err != nil {
		return nil, eris.Wrapf(err, "listen on %s:%d", s.cfg.Hostname, port)
	}
	return ln, nil
}

// reloadOnChange tells browsers to reload once per batch of changes.
func (s *Server) reloadOnChange(ctx context.Context, changes <-chan Change) {
	for {
		select {
		case <-ctx.Done():
			return
		case c, ok := <-changes:
			if !ok {
				return
			}
			n := 1 + drain(changes)
			s.logger.Debug().Str("first", c.RelPath).Int("files", n).Int("clients", s.hub.Len()).Msg("broadcasting reload")
			s.hub.Broadcast(ReloadMessage)
		}
	}
}

// drain discards the changes already queued on ch and returns their count.
func drain(ch <-chan Change) int {
	n := 0
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return n
			}
			n++
		default:
			return n
		}
	}
}

func (s *Server) serveClient(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	_, _ = w.Write([]byte(reloadClient))
}

// serveFile answers every request below the root.
func (s *Server) serveFile(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-cache")

	file := s.resolve(r.URL.Path)
	info, err := os.Stat(file)
	if err == nil && info.IsDir() {
		file = filepath.Join(file, "index.html")
		info, err = os.Stat(file)
	}
	if err != nil {
		if path.Ext(r.URL.Path) != "" || !os.IsNotExist(err) {
			http.NotFound(w, r)
			return
		}
		// Client-side routes resolve to the application index.
		file = s.resolve("/" + s.cfg.AppIndex)
		if _, err := os.Stat(file); err != nil {
			http.NotFound(w, r)
			return
		}
	}

	switch ext := strings.ToLower(filepath.Ext(file)); {
	case ext == ".html" || ext == ".htm":
		s.serveHTML(w, r, file)
	case style.IsSass(file) && wantsCSS(r):
		s.serveCSS(w, file)
	case style.IsSass(file):
		s.serveStyleModule(w, file)
	case ext == ".css" && !wantsCSS(r):
		s.serveStyleInjector(w, file)
	case ext == ".js" || ext == ".mjs" || ext == ".ts":
		s.serveModule(w, r, file)
	default:
		http.ServeFile(w, r, file)
	}
}

// resolve maps a URL path onto a file below the root.
func (s *Server) resolve(urlPath string) string {
	clean := path.Clean("/" + urlPath)
	return filepath.Join(s.cfg.RootDir, filepath.FromSlash(clean))
}

// wantsCSS reports whether the browser asked for a style sheet (a <link>)
// rather than a module (an import).
func wantsCSS(r *http.Request) bool {
	if dest := r.Header.Get("Sec-Fetch-Dest"); dest != "" {
		return dest == "style"
	}
	return strings.Contains(r.Header.Get("Accept"), "text/css")
}

func (s *Server) serveHTML(w http.ResponseWriter, r *http.Request, file string) {
	if !s.cfg.LiveReload {
		http.ServeFile(w, r, file)
		return
	}

	f, err := os.Open(file)
	if err != nil {
		s.fail(w, file, eris.Wrap(err, "open page"))
		return
	}
	defer f.Close()

	page, err := bundle.ParsePage(f)
	if err != nil {
		s.fail(w, file, err)
		return
	}
	page.AddModuleScript(ClientPath)

	var buf bytes.Buffer
	if err := page.Render(&buf); err != nil {
		s.fail(w, file, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) serveCSS(w http.ResponseWriter, file string) {
	css, err := s.styles.Transform(file)
	if err != nil {
		s.fail(w, file, err)
		return
	}
	w.Header().Set("Content-Type", "text/css; charset=utf-8")
	_, _ = w.Write([]byte(css))
}

func (s *Server) serveStyleModule(w http.ResponseWriter, file string) {
	module, err := s.styles.TransformModule(file)
	if err != nil {
		s.fail(w, file, err)
		return
	}
	w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
	_, _ = w.Write([]byte(module))
}

// serveStyleInjector answers a JavaScript import of plain CSS with a module
// that adds the sheet to the document.
func (s *Server) serveStyleInjector(w http.ResponseWriter, file string) {
	css, err := os.ReadFile(file)
	if err != nil {
		s.fail(w, file, eris.Wrap(err, "read style sheet"))
		return
	}
	text, err := json.Marshal(string(css))
	if err != nil {
		s.fail(w, file, eris.Wrap(err, "encode style sheet"))
		return
	}
	w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
	fmt.Fprintf(w, "const style = document.createElement('style');\nstyle.textContent = %s;\ndocument.head.appendChild(style);\n", text)
}

func (s *Server) serveModule(w http.ResponseWriter, r *http.Request, file string) {
	out, err := s.modules.BundleModule(r.Context(), file)
	if err != nil {
		s.fail(w, file, err)
		return
	}
	w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
	_, _ = w.Write(out)
}

// fail logs a transform failure and reports it to the browser.
func (s *Server) fail(w http.ResponseWriter, file string, err error) {
	rel, relErr := filepath.Rel(s.cfg.RootDir, file)
	if relErr != nil {
		rel = file
	}
	s.logger.Error().Err(err).Str("file", filepath.ToSlash(rel)).Msg("failed to serve file")
	http.Error(w, fmt.Sprintf("%s: %v", filepath.ToSlash(rel), err), http.StatusInternalServerError)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Dur("took", time.Since(start)).
			Msg("request")
	})
}
