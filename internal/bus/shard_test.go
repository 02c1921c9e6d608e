package bus

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	ws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marvin/internal/intent"
	"marvin/pkg/audioconv"
)

type echoResponder struct{}

func (echoResponder) Respond(text string) intent.Outcome {
	return intent.Outcome{Intent: "ECHO", Response: "eco: " + text}
}

type fixedSTT struct {
	text string
	err  error
}

func (f fixedSTT) Transcribe(context.Context, []float32) (string, error) {
	return f.text, f.err
}

func TestShard_Handle(t *testing.T) {
	s := NewShard("marvin", nil, echoResponder{}, fixedSTT{text: "que horas são"})
	ctx := context.Background()

	reply := s.Handle(ctx, &Message{From: "panel", To: "marvin", Kind: KindCommand, Content: "olá"})
	require.NotNil(t, reply)
	assert.Equal(t, Message{From: "marvin", To: "panel", Kind: KindReply, Content: "eco: olá", Intent: "ECHO"}, *reply)

	reply = s.Handle(ctx, &Message{From: "panel", To: Broadcast, Kind: KindCommand, Content: "oi"})
	require.NotNil(t, reply)
	assert.Equal(t, "eco: oi", reply.Content)

	assert.Nil(t, s.Handle(ctx, &Message{From: "panel", To: "lights", Kind: KindCommand}))
	assert.Nil(t, s.Handle(ctx, &Message{From: "marvin", To: Broadcast, Kind: KindCommand}))
	assert.Nil(t, s.Handle(ctx, &Message{From: "panel", To: "marvin", Kind: KindReply}))
}

func TestShard_HandleAudio(t *testing.T) {
	clip, err := audioconv.WAVBytes(make([]float32, 1600), audioconv.TargetRate)
	require.NoError(t, err)
	ctx := context.Background()

	s := NewShard("marvin", nil, echoResponder{}, fixedSTT{text: "que horas são"})
	reply := s.Handle(ctx, &Message{From: "phone", To: "marvin", Kind: KindCommand, Audio: clip})
	assert.Equal(t, KindReply, reply.Kind)
	assert.Equal(t, "eco: que horas são", reply.Content)

	reply = s.Handle(ctx, &Message{From: "phone", To: "marvin", Kind: KindCommand, Audio: []byte("not audio")})
	assert.Equal(t, KindError, reply.Kind)
	assert.Contains(t, reply.Content, audioconv.ErrUnsupported.Error())

	failing := NewShard("marvin", nil, echoResponder{}, fixedSTT{err: errors.New("model busy")})
	reply = failing.Handle(ctx, &Message{From: "phone", To: "marvin", Kind: KindCommand, Audio: clip})
	assert.Equal(t, KindError, reply.Kind)
	assert.Equal(t, "model busy", reply.Content)

	deaf := NewShard("marvin", nil, echoResponder{}, nil)
	reply = deaf.Handle(ctx, &Message{From: "phone", To: "marvin", Kind: KindCommand, Audio: clip})
	assert.Equal(t, KindError, reply.Kind)
}

func TestShard_Run(t *testing.T) {
	replies := make(chan Message, 4)
	upgrader := ws.Upgrader{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		_ = conn.WriteMessage(ws.TextMessage, []byte("{not json"))
		_ = conn.WriteJSON(Message{From: "panel", To: "lights", Kind: KindCommand, Content: "acender"})
		_ = conn.WriteJSON(Message{From: "panel", To: "marvin", Kind: KindCommand, Content: "olá"})

		for {
			var m Message
			if err := conn.ReadJSON(&m); err != nil {
				return
			}
			replies <- m
		}
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, err := Dial(ctx, url, 10*time.Millisecond)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- NewShard("marvin", conn, echoResponder{}, nil).Run(ctx) }()

	select {
	case m := <-replies:
		assert.Equal(t, "panel", m.To)
		assert.Equal(t, "eco: olá", m.Content)
	case <-time.After(5 * time.Second):
		t.Fatal("no reply from shard")
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("shard did not stop")
	}
}

func TestIsClosed(t *testing.T) {
	assert.True(t, IsClosed(&ws.CloseError{Code: ws.CloseGoingAway}))
	assert.False(t, IsClosed(errors.New("boom")))
}
