// Package voice runs the spoken side of Marvin: record, transcribe, answer
// and speak.
package voice

import (
	"context"
	"errors"
	log "log/slog"
	"regexp"
	"strings"
	"time"

	"marvin/internal/assistant"
	"marvin/internal/intent"
)

const (
	Ready       = "Marvin está pronto."
	Prompt      = "Sim?"
	ShuttingOff = "Desligando."
	Failure     = "Ocorreu um erro interno. Por favor, tente novamente."
)

type Recorder interface {
	Record(ctx context.Context) ([]float32, error)
}

type Speaker interface {
	Speak(text string) error
}

type Responder interface {
	Respond(text string) intent.Outcome
}

// Ducker lowers other audio while Marvin listens.
type Ducker interface {
	Duck(ctx context.Context, factor float64, over time.Duration) error
	Restore(ctx context.Context, over time.Duration) error
}

type Config struct {
	WakeWord   string
	DuckFactor float64
	DuckFade   time.Duration
	// Cue runs right before recording, e.g. a beep.
	Cue func()
}

type Session struct {
	cfg       Config
	wake      *regexp.Regexp
	rec       Recorder
	stt       Transcriber
	speaker   Speaker
	assistant Responder
	ducker    Ducker
}

func NewSession(cfg Config, rec Recorder, stt Transcriber, speaker Speaker, a Responder, d Ducker) *Session {
	s := &Session{
		cfg:       cfg,
		rec:       rec,
		stt:       stt,
		speaker:   speaker,
		assistant: a,
		ducker:    d,
	}
	if cfg.WakeWord != "" {
		s.wake = regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(cfg.WakeWord) + `\b`)
	}
	return s
}

// Command extracts what follows the wake word. woke is false when the wake
// word was not heard.
func (s *Session) Command(transcript string) (cmd string, woke bool) {
	if s.wake == nil {
		return trimCommand(transcript), true
	}
	loc := s.wake.FindStringIndex(transcript)
	if loc == nil {
		return "", false
	}
	return trimCommand(transcript[loc[1]:]), true
}

func trimCommand(s string) string {
	return strings.Trim(s, " \t\n,.;:!?")
}

// Turn is one exchange.
type Turn struct {
	Transcript string
	Outcome    intent.Outcome
	Reply      string
	End        bool
}

// Listen records one utterance and answers it. With wake set, utterances
// without the wake word are ignored and yield an empty Turn.
func (s *Session) Listen(ctx context.Context, wake bool) (Turn, error) {
	if s.cfg.Cue != nil {
		s.cfg.Cue()
	}

	pcm, err := s.record(ctx)
	if err != nil {
		return Turn{}, err
	}
	if len(pcm) == 0 {
		return Turn{}, nil
	}

	text, err := s.stt.Transcribe(ctx, pcm)
	if err != nil {
		return Turn{}, err
	}
	log.Info("Transcribed", "text", text)

	return s.Answer(text, wake), nil
}

// Answer handles a transcript as if it had been heard.
func (s *Session) Answer(transcript string, wake bool) Turn {
	t := Turn{Transcript: transcript}

	cmd := trimCommand(transcript)
	if wake {
		var woke bool
		if cmd, woke = s.Command(transcript); !woke {
			return t
		}
		if cmd == "" {
			t.Reply = Prompt
			return t
		}
	}

	t.Outcome = s.assistant.Respond(cmd)
	t.Reply = t.Outcome.Response
	t.End = assistant.IsFarewell(t.Reply)
	return t
}

func (s *Session) record(ctx context.Context) ([]float32, error) {
	if s.ducker != nil {
		if err := s.ducker.Duck(ctx, s.cfg.DuckFactor, s.cfg.DuckFade); err != nil {
			log.Warn("Failed to duck audio", "err", err)
		}
		defer func() {
			if err := s.ducker.Restore(context.WithoutCancel(ctx), s.cfg.DuckFade); err != nil {
				log.Warn("Failed to restore audio", "err", err)
			}
		}()
	}
	return s.rec.Record(ctx)
}

func (s *Session) say(text string) {
	if text == "" {
		return
	}
	log.Info("Reply", "text", text)
	if err := s.speaker.Speak(text); err != nil {
		log.Error("Failed to voice out", "err", err)
	}
}

// Run listens for the wake word until a farewell or until ctx is done.
func (s *Session) Run(ctx context.Context) error {
	s.say(Ready)

	for {
		turn, err := s.Listen(ctx, true)
		switch {
		case ctx.Err() != nil:
			s.say(ShuttingOff)
			return nil
		case err != nil:
			log.Error("Voice turn failed", "err", err)
			s.say(Failure)
			if !sleep(ctx, time.Second) {
				s.say(ShuttingOff)
				return nil
			}
			continue
		}

		s.say(turn.Reply)
		if turn.End {
			return nil
		}
	}
}

// Trigger runs one push-to-talk exchange without the wake word.
func (s *Session) Trigger(ctx context.Context) (Turn, error) {
	turn, err := s.Listen(ctx, false)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			s.say(Failure)
		}
		return turn, err
	}
	if turn.Transcript == "" {
		turn.Reply = assistant.NoCommand
	}
	s.say(turn.Reply)
	return turn, nil
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
