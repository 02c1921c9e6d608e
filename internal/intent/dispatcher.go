package intent

import (
	"fmt"
	log "log/slog"

	"marvin/internal/capability"
)

// NotUnderstood is returned when no intent matches.
const NotUnderstood = "Desculpe, não consegui entender o comando."

type Kind int

const (
	KindHandled Kind = iota
	KindUnavailable
	KindNotUnderstood
)

func (k Kind) String() string {
	switch k {
	case KindHandled:
		return "handled"
	case KindUnavailable:
		return "unavailable"
	case KindNotUnderstood:
		return "not_understood"
	default:
		return "unknown"
	}
}

// Outcome describes a single dispatch.
type Outcome struct {
	Intent   string
	Kind     Kind
	State    capability.State
	Entities []string
	Response string
}

// Observer is told about every dispatch after it completes.
type Observer func(Outcome)

type Option func(*Dispatcher)

func WithObserver(o Observer) Option {
	return func(d *Dispatcher) {
		d.observers = append(d.observers, o)
	}
}

// Dispatcher runs utterances through a catalogue, first match wins.
// It holds no mutable state of its own; callers serialise dispatches.
type Dispatcher struct {
	catalogue *Catalogue
	observers []Observer
}

func NewDispatcher(c *Catalogue, opts ...Option) *Dispatcher {
	d := &Dispatcher{catalogue: c}
	for _, o := range opts {
		o(d)
	}
	return d
}

func (d *Dispatcher) Catalogue() *Catalogue {
	return d.catalogue
}

// Process returns the reply for text.
func (d *Dispatcher) Process(text string) string {
	return d.Dispatch(text).Response
}

// Dispatch is Process with the details of what happened.
//
// Once a pattern matches, that intent owns the utterance: if its
// collaborator is unavailable the search stops there and later intents are
// not tried.
func (d *Dispatcher) Dispatch(text string) Outcome {
	def, m, ok := d.catalogue.First(text)
	if !ok {
		log.Debug("No intent matched", "text", text)
		return d.notify(Outcome{Kind: KindNotUnderstood, Response: NotUnderstood})
	}

	log.Debug("Matched intent", "intent", def.Name, "text", text)

	if def.Requires != nil {
		state := capability.NotConfigured
		if a := def.Requires(); a != nil {
			state = a.State()
		}
		if state != capability.Ready {
			log.Warn("Capability unavailable", "intent", def.Name, "state", state)
			return d.notify(Outcome{
				Intent:   def.Name,
				Kind:     KindUnavailable,
				State:    state,
				Response: Unavailable(def.Name, state),
			})
		}
	}

	ents := Extract(m, def.Entities)
	for _, name := range ents.Names() {
		log.Debug("Extracted entity", "intent", def.Name, "entity", name, "value", ents.Get(name))
	}

	return d.notify(Outcome{
		Intent:   def.Name,
		Kind:     KindHandled,
		State:    capability.Ready,
		Entities: ents.Names(),
		Response: def.Handler(ents, text),
	})
}

func (d *Dispatcher) notify(o Outcome) Outcome {
	for _, obs := range d.observers {
		obs(o)
	}
	return o
}

// Unavailable is the reply for an intent whose collaborator is not ready.
func Unavailable(name string, state capability.State) string {
	var why string
	switch state {
	case capability.Unauthenticated:
		why = "não foi autenticado"
	default:
		why = "não está configurado"
	}
	return fmt.Sprintf("Desculpe, o serviço para executar '%s' não está disponível: %s.", name, why)
}
