// Package system implements the local machine actions: clock, web search,
// application launcher, timers and master volume.
package system

import (
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/pkg/browser"

	"marvin/internal/audio"
	"marvin/internal/capability"
	"marvin/internal/config"
	"marvin/internal/notify"
)

const about = "Eu sou Marvin, seu assistente pessoal. Estou aqui para ajudar no que precisar!"

var months = [...]string{
	"janeiro", "fevereiro", "março", "abril", "maio", "junho",
	"julho", "agosto", "setembro", "outubro", "novembro", "dezembro",
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithURLOpener replaces the system browser, mostly for tests.
func WithURLOpener(open func(string) error) Option {
	return func(s *Service) { s.openURL = open }
}

func WithLauncher(start func(argv []string) error) Option {
	return func(s *Service) { s.start = start }
}

func WithVolume(set func(ctx context.Context, percent int) error) Option {
	return func(s *Service) { s.setVolume = set }
}

// WithAlarm sets what runs when a timer expires.
func WithAlarm(ring func(label string)) Option {
	return func(s *Service) { s.ring = ring }
}

type Service struct {
	apps map[string]config.App

	now       func() time.Time
	openURL   func(string) error
	start     func(argv []string) error
	setVolume func(ctx context.Context, percent int) error
	ring      func(label string)
	lookup    func(name string) []desktopEntry

	mu     sync.Mutex
	timers map[*time.Timer]struct{}
}

func New(cfg config.Config, opts ...Option) *Service {
	s := &Service{
		apps:      cfg.Apps,
		now:       time.Now,
		openURL:   browser.OpenURL,
		start:     startDetached,
		setVolume: audio.SetVolume,
		lookup:    findDesktopEntries,
		timers:    make(map[*time.Timer]struct{}),
	}
	s.ring = func(label string) {
		if err := notify.Desktop("Marvin", fmt.Sprintf("O tempo de %s acabou!", label)); err != nil {
			log.Debug("Desktop notification failed", "err", err)
		}
		if cfg.AlarmSound == "" {
			return
		}
		if err := notify.Play(cfg.AlarmSound); err != nil {
			log.Warn("Failed to play alarm", "path", cfg.AlarmSound, "err", err)
		}
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Service) Now() capability.Result {
	t := s.now()
	return capability.Success("São %d horas e %d minutos. Hoje é dia %d de %s de %d.",
		t.Hour(), t.Minute(), t.Day(), months[t.Month()-1], t.Year())
}

func (s *Service) About() capability.Result {
	return capability.Success(about)
}

func (s *Service) SearchWeb(query string) capability.Result {
	query = strings.TrimSpace(query)
	if query == "" {
		return capability.Errorf("Nenhum termo de pesquisa fornecido.")
	}
	u := "https://www.google.com/search?q=" + url.QueryEscape(query)
	if err := s.openURL(u); err != nil {
		return capability.Fail(err, "Erro ao abrir navegador")
	}
	return capability.Success("Pesquisando por '%s' na web.", query)
}

// StartTimer schedules the alarm and returns at once.
func (s *Service) StartTimer(spoken string) capability.Result {
	d, ok := ParseDuration(spoken)
	if !ok {
		return capability.Errorf("Duração do timer inválida: '%s'", spoken)
	}

	log.Info("Timer started", "duration", d, "label", spoken)

	s.mu.Lock()
	defer s.mu.Unlock()

	var t *time.Timer
	t = time.AfterFunc(d, func() {
		s.mu.Lock()
		delete(s.timers, t)
		s.mu.Unlock()

		log.Info("Timer expired", "label", spoken)
		s.ring(spoken)
	})
	s.timers[t] = struct{}{}
	return capability.Success("Timer definido para %s.", spoken)
}

// Pending returns how many timers have not fired yet.
func (s *Service) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

func (s *Service) SetVolume(spoken string) capability.Result {
	level, err := ParseVolume(spoken)
	switch {
	case errors.Is(err, ErrVolumeRange):
		return capability.Errorf("Nível de volume inválido. Use um valor entre 0 e 100.")
	case err != nil:
		return capability.Errorf("Valor de volume inválido: '%s'. Use um número.", spoken)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.setVolume(ctx, level); err != nil {
		return capability.Fail(err, "Erro ao ajustar volume")
	}
	return capability.Success("Volume ajustado para %d%%.", level)
}

// Close stops every pending timer.
func (s *Service) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for t := range s.timers {
		t.Stop()
	}
	clear(s.timers)
	return nil
}
