package metrics

import (
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marvin/internal/capability"
	"marvin/internal/intent"
)

func TestObserve(t *testing.T) {
	m := New()

	m.Observe(intent.Outcome{Intent: "TIME", Kind: intent.KindHandled})
	m.Observe(intent.Outcome{Intent: "TIME", Kind: intent.KindHandled})
	m.Observe(intent.Outcome{Kind: intent.KindNotUnderstood})
	m.Observe(intent.Outcome{Intent: "PLAY_SPOTIFY", Kind: intent.KindUnavailable, State: capability.Unauthenticated})

	assert.Equal(t, 2.0, testutil.ToFloat64(m.dispatches.WithLabelValues("TIME", "handled")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.dispatches.WithLabelValues("none", "not_understood")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.unavailable.WithLabelValues("PLAY_SPOTIFY", "unauthenticated")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.unavailable))
}

type stubSTT struct{ err error }

func (s stubSTT) Transcribe(context.Context, []float32) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return "olá", nil
}

func TestTranscriber(t *testing.T) {
	m := New()

	ok := m.Transcriber("whisper", stubSTT{})
	text, err := ok.Transcribe(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "olá", text)

	bad := m.Transcriber("openai", stubSTT{err: errors.New("quota")})
	_, err = bad.Transcribe(context.Background(), nil)
	assert.Error(t, err)

	assert.Equal(t, 2, testutil.CollectAndCount(m.transcribe))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.sttErrors.WithLabelValues("whisper")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.sttErrors.WithLabelValues("openai")))
}

func TestHandler(t *testing.T) {
	m := New()
	m.Observe(intent.Outcome{Intent: "ABOUT", Kind: intent.KindHandled})

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `marvin_dispatches_total{intent="ABOUT",kind="handled"} 1`)
}
