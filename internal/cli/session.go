package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/hashicorp/go-cleanhttp"

	"github.com/giantswarm/azauth/internal/config"
	"github.com/giantswarm/azauth/pkg/adal"
	"github.com/giantswarm/azauth/pkg/logging"
	"github.com/giantswarm/azauth/pkg/tokencache"
	"github.com/giantswarm/azauth/pkg/webui"
)

// Session is everything a command needs to acquire tokens.
type Session struct {
	Config config.Config
	// CachePath is the token cache file, empty when the cache lives in Redis.
	CachePath string
	Cache     *tokencache.Cache
	Auth      *adal.AuthContext
}

// SessionOptions are the command-specific parts of a session.
type SessionOptions struct {
	// Output receives web UI instructions.
	Output io.Writer
	// BeforeSignIn is called right before the web UI is shown.
	BeforeSignIn func()
}

// NewTokenCache opens the cache configured in cfg: Redis when a URL is set,
// otherwise the cache file. It returns the file path for file caches.
func NewTokenCache(cfg config.Config) (*tokencache.Cache, string, error) {
	if cfg.Cache.RedisURL != "" {
		cache, err := tokencache.NewRedisCache(cfg.Cache.RedisURL,
			tokencache.WithRedisKey(cfg.Cache.RedisKey),
			tokencache.WithRedisLockRetry(cfg.Cache.LockAttempts, cfg.Cache.LockDelay))
		return cache, "", err
	}

	path := cfg.Cache.Path
	if path == "" {
		var err error
		if path, err = tokencache.DefaultPath(); err != nil {
			return nil, "", err
		}
	}
	cache, err := tokencache.NewFileCache(path, tokencache.WithLockRetry(cfg.Cache.LockAttempts, cfg.Cache.LockDelay))
	return cache, path, err
}

// NewWebUI returns the web UI selected by cfg.WebUI.
func NewWebUI(cfg config.Config, opts SessionOptions) (webui.WebUI, error) {
	var ui webui.WebUI
	switch cfg.WebUI {
	case config.WebUILoopback:
		ui = webui.NewLoopback(webui.WithOutput(opts.Output), webui.WithApplicationName("azauth"))
	case config.WebUIPrompt:
		ui = webui.NewPrompt(webui.WithPromptOutput(opts.Output))
	case config.WebUIAuto, "":
		if webui.IsLoopbackRedirect(cfg.RedirectURI) {
			ui = webui.NewLoopback(webui.WithOutput(opts.Output), webui.WithApplicationName("azauth"))
		} else {
			ui = webui.NewPrompt(webui.WithPromptOutput(opts.Output))
		}
	default:
		return nil, fmt.Errorf("unknown web UI %q", cfg.WebUI)
	}
	if opts.BeforeSignIn == nil {
		return ui, nil
	}
	return &notifyingWebUI{WebUI: ui, before: opts.BeforeSignIn}, nil
}

// NewSession builds the cache and AuthContext for cfg.
func NewSession(cfg config.Config, opts SessionOptions) (*Session, error) {
	cache, path, err := NewTokenCache(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open the token cache: %w", err)
	}

	ui, err := NewWebUI(cfg, opts)
	if err != nil {
		return nil, err
	}

	httpClient := cleanhttp.DefaultPooledClient()
	httpClient.Timeout = cfg.HTTP.Timeout

	auth, err := adal.NewAuthContext(cfg.Authority, cfg.ValidateAuthority,
		adal.WithTokenCache(cache),
		adal.WithWebUI(ui),
		adal.WithHTTPClient(httpClient),
		adal.WithLogger(logging.Logger()),
		adal.WithCodeFreshness(cfg.Acquisition.CodeFreshness),
		adal.WithExpiryMargin(cfg.Acquisition.ExpiryMargin),
	)
	if err != nil {
		return nil, err
	}

	logging.Debug("CLI", "Using authority %s (%s) with cache %s", auth.Authority(), auth.AuthorityType(), describeCache(cfg, path))
	return &Session{Config: cfg, CachePath: path, Cache: cache, Auth: auth}, nil
}

// ClientKey returns the public client key for the configured client id.
func (s *Session) ClientKey() (adal.ClientKey, error) {
	return adal.NewClientKey(s.Config.ClientID)
}

// ClearCache removes every cached token and persists the empty cache.
func (s *Session) ClearCache(ctx context.Context) (int, error) {
	if err := s.Cache.BeforeAccess(ctx); err != nil {
		return 0, err
	}
	n := s.Cache.Count()
	s.Cache.Clear()
	if err := s.Cache.AfterAccess(ctx); err != nil {
		return 0, err
	}
	logging.Audit(logging.AuditEvent{
		Action:    "cache_cleared",
		Outcome:   "success",
		Authority: s.Config.Authority,
	})
	return n, nil
}

// LoadCache reads the persisted cache and returns a snapshot of its entries.
func (s *Session) LoadCache(ctx context.Context) ([]tokencache.Entry, error) {
	if err := s.Cache.BeforeAccess(ctx); err != nil {
		return nil, err
	}
	return s.Cache.Items(), nil
}

func describeCache(cfg config.Config, path string) string {
	if path != "" {
		return path
	}
	return "redis key " + cfg.Cache.RedisKey
}

// notifyingWebUI calls before ahead of every interactive sign-in.
type notifyingWebUI struct {
	webui.WebUI
	before func()
}

func (n *notifyingWebUI) Authenticate(ctx context.Context, requestURI, redirectURI string) (string, error) {
	n.before()
	return n.WebUI.Authenticate(ctx, requestURI, redirectURI)
}

// WithTimeout bounds ctx by d when d is positive.
func WithTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
