package voice

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marvin/internal/assistant"
	"marvin/internal/intent"
)

type fakeRecorder struct {
	clips [][]float32
	err   error
	calls int
}

func (r *fakeRecorder) Record(ctx context.Context) ([]float32, error) {
	r.calls++
	if r.err != nil {
		return nil, r.err
	}
	if len(r.clips) == 0 {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	c := r.clips[0]
	r.clips = r.clips[1:]
	return c, nil
}

// fakeSTT maps the first sample of a clip to a transcript.
type fakeSTT map[float32]string

func (f fakeSTT) Transcribe(_ context.Context, pcm []float32) (string, error) {
	text, ok := f[pcm[0]]
	if !ok {
		return "", errors.New("unknown clip")
	}
	return text, nil
}

type fakeSpeaker struct{ said []string }

func (s *fakeSpeaker) Speak(text string) error {
	s.said = append(s.said, text)
	return nil
}

type fakeResponder struct{ heard []string }

func (r *fakeResponder) Respond(text string) intent.Outcome {
	r.heard = append(r.heard, text)
	if text == "tchau" {
		return intent.Outcome{Intent: "GOODBYE", Response: assistant.Farewell}
	}
	return intent.Outcome{Intent: "TIME", Response: "ok: " + text}
}

type fakeDucker struct{ events []string }

func (d *fakeDucker) Duck(context.Context, float64, time.Duration) error {
	d.events = append(d.events, "duck")
	return nil
}

func (d *fakeDucker) Restore(context.Context, time.Duration) error {
	d.events = append(d.events, "restore")
	return nil
}

func newTestSession(rec Recorder, stt Transcriber) (*Session, *fakeSpeaker, *fakeResponder, *fakeDucker) {
	sp, resp, duck := &fakeSpeaker{}, &fakeResponder{}, &fakeDucker{}
	s := NewSession(Config{WakeWord: "marvin"}, rec, stt, sp, resp, duck)
	return s, sp, resp, duck
}

func TestSession_Command(t *testing.T) {
	s, _, _, _ := newTestSession(nil, nil)

	tests := []struct {
		in   string
		cmd  string
		woke bool
	}{
		{"Marvin, que horas são?", "que horas são", true},
		{"ei marvin abrir calculadora.", "abrir calculadora", true},
		{"MARVIN", "", true},
		{"que horas são", "", false},
		{"marvinho tocar música", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			cmd, woke := s.Command(tt.in)
			assert.Equal(t, tt.woke, woke)
			assert.Equal(t, tt.cmd, cmd)
		})
	}

	open := NewSession(Config{}, nil, nil, nil, nil, nil)
	cmd, woke := open.Command(" que horas são? ")
	assert.True(t, woke)
	assert.Equal(t, "que horas são", cmd)
}

func TestSession_Answer(t *testing.T) {
	s, _, resp, _ := newTestSession(nil, nil)

	turn := s.Answer("bom dia", true)
	assert.Empty(t, turn.Reply)
	assert.Empty(t, resp.heard)

	turn = s.Answer("Marvin!", true)
	assert.Equal(t, Prompt, turn.Reply)
	assert.Empty(t, resp.heard)

	turn = s.Answer("Marvin, que horas são?", true)
	assert.Equal(t, "ok: que horas são", turn.Reply)
	assert.False(t, turn.End)

	turn = s.Answer("tchau", false)
	assert.True(t, turn.End)
	assert.Equal(t, []string{"que horas são", "tchau"}, resp.heard)
}

func TestSession_Run(t *testing.T) {
	rec := &fakeRecorder{clips: [][]float32{{1}, {2}, {3}}}
	stt := fakeSTT{1: "conversa de fundo", 2: "marvin que horas são", 3: "marvin, tchau"}
	s, sp, resp, duck := newTestSession(rec, stt)

	cues := 0
	s.cfg.Cue = func() { cues++ }

	require.NoError(t, s.Run(context.Background()))

	assert.Equal(t, []string{Ready, "ok: que horas são", assistant.Farewell}, sp.said)
	assert.Equal(t, []string{"que horas são", "tchau"}, resp.heard)
	assert.Equal(t, 3, cues)
	assert.Equal(t, []string{"duck", "restore", "duck", "restore", "duck", "restore"}, duck.events)
}

func TestSession_RunStopsOnCancel(t *testing.T) {
	s, sp, _, _ := newTestSession(&fakeRecorder{}, fakeSTT{})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	require.NoError(t, s.Run(ctx))
	assert.Equal(t, []string{Ready, ShuttingOff}, sp.said)
}

func TestSession_Trigger(t *testing.T) {
	rec := &fakeRecorder{clips: [][]float32{{7}, {}}}
	s, sp, resp, _ := newTestSession(rec, fakeSTT{7: "abrir calculadora"})

	turn, err := s.Trigger(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ok: abrir calculadora", turn.Reply)
	assert.Equal(t, []string{"abrir calculadora"}, resp.heard)

	turn, err = s.Trigger(context.Background())
	require.NoError(t, err)
	assert.Equal(t, assistant.NoCommand, turn.Reply)
	assert.Equal(t, []string{"ok: abrir calculadora", assistant.NoCommand}, sp.said)
}

func TestSession_TriggerRecordError(t *testing.T) {
	s, sp, _, _ := newTestSession(&fakeRecorder{err: errors.New("no device")}, fakeSTT{})

	_, err := s.Trigger(context.Background())
	assert.Error(t, err)
	assert.Equal(t, []string{Failure}, sp.said)
}

func TestFallback(t *testing.T) {
	bad := fakeSTT{}
	good := fakeSTT{1: "olá"}

	text, err := Fallback{bad, good}.Transcribe(context.Background(), []float32{1})
	require.NoError(t, err)
	assert.Equal(t, "olá", text)

	_, err = Fallback{bad}.Transcribe(context.Background(), []float32{1})
	assert.Error(t, err)

	_, err = Fallback{}.Transcribe(context.Background(), []float32{1})
	assert.Error(t, err)
}
