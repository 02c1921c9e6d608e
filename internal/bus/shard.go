package bus

import (
	"context"
	"errors"
	log "log/slog"

	"marvin/internal/intent"
	"marvin/pkg/audioconv"
)

// maxClip bounds decoded bus audio to one minute.
const maxClip = 60 * audioconv.TargetRate

type Responder interface {
	Respond(text string) intent.Outcome
}

type Transcriber interface {
	Transcribe(ctx context.Context, pcm16k []float32) (string, error)
}

// Shard answers commands addressed to it, either as text or as audio.
type Shard struct {
	name string
	conn *Conn
	a    Responder
	stt  Transcriber
}

// NewShard wires a shard. stt may be nil, in which case audio commands are
// rejected.
func NewShard(name string, conn *Conn, a Responder, stt Transcriber) *Shard {
	return &Shard{name: name, conn: conn, a: a, stt: stt}
}

func (s *Shard) accepts(m *Message) bool {
	if m.From == s.name || m.Kind != KindCommand {
		return false
	}
	return m.To == s.name || m.To == Broadcast
}

// Handle returns the reply to m, or nil when m is not meant for this shard.
func (s *Shard) Handle(ctx context.Context, m *Message) *Message {
	if !s.accepts(m) {
		return nil
	}

	reply := &Message{From: s.name, To: m.From, Kind: KindReply}

	text := m.Content
	if len(m.Audio) > 0 {
		var err error
		if text, err = s.transcribe(ctx, m.Audio); err != nil {
			log.Error("Failed to transcribe bus audio", "from", m.From, "err", err)
			reply.Kind = KindError
			reply.Content = err.Error()
			return reply
		}
		log.Info("Transcribed", "from", m.From, "text", text)
	}

	out := s.a.Respond(text)
	reply.Content = out.Response
	reply.Intent = out.Intent
	return reply
}

func (s *Shard) transcribe(ctx context.Context, clip []byte) (string, error) {
	if s.stt == nil {
		return "", errors.New("no transcriber configured")
	}
	pcm, err := audioconv.DecodeBytes(clip, audioconv.Options{MaxSamples: maxClip})
	if err != nil {
		return "", err
	}
	return s.stt.Transcribe(ctx, pcm)
}

// Run serves the hub until ctx is done, redialling when the hub goes away.
func (s *Shard) Run(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() { _ = s.conn.Close() })
	defer stop()

	log.Info("Shard ready", "name", s.name)

	for {
		m, err := s.conn.Read()
		switch {
		case ctx.Err() != nil:
			return nil
		case errors.Is(err, ErrMalformed):
			log.Warn("Failed to parse", "err", err)
			continue
		case err != nil:
			if !IsClosed(err) {
				log.Error("Failed to read", "err", err)
			}
			log.Warn("Trying to reconnect on", "url", s.conn.url)
			if err := s.conn.Reconnect(ctx); err != nil {
				return nil
			}
			log.Info("Successfully reconnected")
			continue
		}

		reply := s.Handle(ctx, m)
		if reply == nil {
			continue
		}
		if err := s.conn.Write(reply); err != nil {
			log.Error("Failed to send response", "err", err)
		}
	}
}
