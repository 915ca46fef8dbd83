package webui

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"html/template"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"os/exec"
	"runtime"
	"sync"
	"time"

	"github.com/Masterminds/sprig/v3"
	"github.com/go-chi/chi/v5"

	"github.com/giantswarm/azauth/pkg/logging"
)

// DefaultCallbackTimeout is how long Loopback waits for the browser to come back.
const DefaultCallbackTimeout = 10 * time.Minute

//go:embed templates/landing.html
var landingHTML string

var landingTemplate = template.Must(template.New("landing").Funcs(sprig.FuncMap()).Parse(landingHTML))

// Loopback completes the sign-in in the system browser. It listens on the host
// and port of an http://localhost redirect URI and waits for the identity
// provider to redirect the browser there.
type Loopback struct {
	openBrowser func(string) error
	out         io.Writer
	timeout     time.Duration
	application string
}

// LoopbackOption configures a Loopback.
type LoopbackOption func(*Loopback)

// WithBrowserOpener replaces the function used to open the system browser.
func WithBrowserOpener(fn func(string) error) LoopbackOption {
	return func(l *Loopback) {
		if fn != nil {
			l.openBrowser = fn
		}
	}
}

// WithOutput sets where instructions are printed when the browser cannot be opened.
func WithOutput(w io.Writer) LoopbackOption {
	return func(l *Loopback) {
		if w != nil {
			l.out = w
		}
	}
}

// WithCallbackTimeout bounds the wait for the redirect.
func WithCallbackTimeout(d time.Duration) LoopbackOption {
	return func(l *Loopback) {
		if d > 0 {
			l.timeout = d
		}
	}
}

// WithApplicationName is shown on the landing page.
func WithApplicationName(name string) LoopbackOption {
	return func(l *Loopback) {
		l.application = name
	}
}

// NewLoopback creates a loopback web UI.
func NewLoopback(opts ...LoopbackOption) *Loopback {
	l := &Loopback{
		openBrowser: OpenBrowser,
		out:         os.Stderr,
		timeout:     DefaultCallbackTimeout,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Authenticate implements WebUI.
func (l *Loopback) Authenticate(ctx context.Context, requestURI, redirectURI string) (string, error) {
	redirect, err := url.Parse(redirectURI)
	if err != nil || !IsLoopbackRedirect(redirectURI) {
		return "", fmt.Errorf("loopback web UI needs an http://localhost redirect URI, got %q", redirectURI)
	}

	port := redirect.Port()
	if port == "" {
		port = "80"
	}
	addr := net.JoinHostPort(listenHost(redirect.Hostname()), port)

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return "", fmt.Errorf("failed to start callback server on %s: %w", addr, err)
	}

	cb := &callback{
		base:        redirect.Scheme + "://" + redirect.Host,
		application: l.application,
		resultCh:    make(chan string, 1),
	}

	path := redirect.Path
	if path == "" {
		path = "/"
	}
	r := chi.NewRouter()
	r.Use(securityHeaders)
	r.Get(path, cb.handle)

	server := &http.Server{
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	logging.Debug("WebUI", "Waiting for authorization callback on %s%s", addr, path)

	if err := l.openBrowser(requestURI); err != nil {
		logging.Warn("WebUI", "Could not open browser: %v", err)
		fmt.Fprintf(l.out, "Open the following URL in your browser to sign in:\n\n  %s\n\n", requestURI)
	}

	timer := time.NewTimer(l.timeout)
	defer timer.Stop()

	select {
	case result := <-cb.resultCh:
		return result, nil
	case err := <-errCh:
		return "", fmt.Errorf("callback server failed: %w", err)
	case <-ctx.Done():
		return "", ctx.Err()
	case <-timer.C:
		return "", fmt.Errorf("%w: no authorization callback within %s", ErrCanceled, l.timeout)
	}
}

// listenHost keeps the callback off external interfaces.
func listenHost(host string) string {
	if host == "::1" {
		return host
	}
	return "127.0.0.1"
}

type callback struct {
	base        string
	application string
	once        sync.Once
	resultCh    chan string
}

func (c *callback) handle(w http.ResponseWriter, r *http.Request) {
	var handled bool
	c.once.Do(func() {
		handled = true
		c.process(w, r)
	})

	if !handled {
		http.Error(w, "Callback already processed", http.StatusBadRequest)
	}
}

func (c *callback) process(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	data := map[string]interface{}{
		"Error":       query.Get("error"),
		"Description": query.Get("error_description"),
		"Application": c.application,
		"Time":        time.Now(),
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := landingTemplate.Execute(w, data); err != nil {
		logging.Error("WebUI", err, "Failed to render landing page")
	}

	c.resultCh <- c.base + r.URL.RequestURI()
}

func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "default-src 'none'; style-src 'unsafe-inline'")
		w.Header().Set("Referrer-Policy", "no-referrer")
		w.Header().Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}

// OpenBrowser opens url in the default web browser on Linux, macOS and Windows.
func OpenBrowser(url string) error {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to open browser: %w", err)
	}
	go func() { _ = cmd.Wait() }()
	return nil
}
