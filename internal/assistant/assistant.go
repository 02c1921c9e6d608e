// Package assistant binds the intent catalogue of Marvin to its service
// collaborators.
package assistant

import (
	"context"
	"strings"
	"sync"
	"time"

	"marvin/internal/intent"
)

const (
	NoCommand = "Nenhum comando recebido."
	Farewell  = "Até logo! Tenha um ótimo dia."
)

var farewellWords = []string{"até logo", "tchau", "desligando"}

// IsFarewell reports whether a reply should end the session.
func IsFarewell(reply string) bool {
	r := strings.ToLower(reply)
	for _, w := range farewellWords {
		if strings.Contains(r, w) {
			return true
		}
	}
	return false
}

type Option func(*Assistant)

// WithTimeout bounds each collaborator call made by a handler.
func WithTimeout(d time.Duration) Option {
	return func(a *Assistant) {
		a.timeout = d
	}
}

func WithObserver(o intent.Observer) Option {
	return func(a *Assistant) {
		a.observers = append(a.observers, intent.WithObserver(o))
	}
}

// Assistant answers one utterance at a time. The voice loop, the control
// socket and the bus shard may all feed it, so Respond serialises them.
type Assistant struct {
	svc        *Services
	dispatcher *intent.Dispatcher
	observers  []intent.Option
	timeout    time.Duration
	pause      func(time.Duration)

	mu sync.Mutex
}

func New(svc *Services, opts ...Option) *Assistant {
	a := &Assistant{
		svc:     svc,
		timeout: 30 * time.Second,
		pause:   time.Sleep,
	}
	for _, o := range opts {
		o(a)
	}
	a.dispatcher = intent.NewDispatcher(a.Catalogue(), a.observers...)
	return a
}

func (a *Assistant) Dispatcher() *intent.Dispatcher {
	return a.dispatcher
}

// Handle returns the reply for one command.
func (a *Assistant) Handle(text string) string {
	return a.Respond(text).Response
}

func (a *Assistant) Respond(text string) intent.Outcome {
	text = strings.TrimSpace(text)
	if text == "" {
		return intent.Outcome{Kind: intent.KindNotUnderstood, Response: NoCommand}
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	return a.dispatcher.Dispatch(text)
}

func (a *Assistant) call() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), a.timeout)
}
