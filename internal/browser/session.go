// Package browser owns the Chrome instance shared by the browser-driven
// services. Chrome starts on first use and restarts if it has gone away.
package browser

import (
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"sync"

	"github.com/chromedp/chromedp"

	"marvin/internal/config"
)

var ErrClosed = errors.New("browser session closed")

type Session struct {
	opts config.Browser

	mu          sync.Mutex
	closed      bool
	root        context.Context
	rootCancel  context.CancelFunc
	allocCancel context.CancelFunc
	tabs        map[string]*Tab
}

func NewSession(opts config.Browser) *Session {
	return &Session{opts: opts, tabs: make(map[string]*Tab)}
}

// Tab returns the named tab, creating the handle on first use. The page
// itself opens lazily on the first Run.
func (s *Session) Tab(name string) *Tab {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tabs[name]
	if !ok {
		t = &Tab{session: s, name: name}
		s.tabs[name] = t
	}
	return t
}

func (s *Session) browser() (context.Context, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrClosed
	}
	if s.root != nil && s.root.Err() == nil {
		return s.root, nil
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", s.opts.Headless),
		chromedp.Flag("mute-audio", false),
		chromedp.WindowSize(1280, 800),
	)
	if s.opts.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(s.opts.ExecPath))
	}
	if s.opts.ProfileDir != "" {
		opts = append(opts, chromedp.UserDataDir(s.opts.ProfileDir))
	}

	alloc, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	root, rootCancel := chromedp.NewContext(alloc)
	if err := chromedp.Run(root); err != nil {
		rootCancel()
		allocCancel()
		return nil, fmt.Errorf("start chrome: %w", err)
	}

	log.Info("Browser started", "headless", s.opts.Headless, "profile", s.opts.ProfileDir)
	s.root, s.rootCancel, s.allocCancel = root, rootCancel, allocCancel
	return root, nil
}

// Close shuts Chrome down. Later Runs fail with ErrClosed.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	if s.rootCancel != nil {
		s.rootCancel()
		s.allocCancel()
	}
	s.root = nil
	return nil
}

// Tab is one page of the shared browser. Runs on the same tab are
// serialised; different tabs proceed independently.
type Tab struct {
	session *Session
	name    string

	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
}

func (t *Tab) Run(ctx context.Context, actions ...chromedp.Action) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	tab, err := t.page()
	if err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(tab)
	defer cancel()
	if deadline, ok := ctx.Deadline(); ok {
		runCtx, cancel = context.WithDeadline(runCtx, deadline)
		defer cancel()
	}
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	if err := chromedp.Run(runCtx, actions...); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	return nil
}

func (t *Tab) page() (context.Context, error) {
	root, err := t.session.browser()
	if err != nil {
		return nil, err
	}
	if t.ctx != nil && t.ctx.Err() == nil {
		return t.ctx, nil
	}

	t.ctx, t.cancel = chromedp.NewContext(root)
	log.Debug("Browser tab opened", "tab", t.name)
	return t.ctx, nil
}

func (t *Tab) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cancel != nil {
		t.cancel()
		t.ctx = nil
	}
}
