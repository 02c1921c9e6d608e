// Package metrics exposes dispatch and transcription counters to
// Prometheus.
package metrics

import (
	"context"
	"errors"
	log "log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"marvin/internal/intent"
)

const namespace = "marvin"

type Metrics struct {
	reg *prometheus.Registry

	dispatches  *prometheus.CounterVec
	unavailable *prometheus.CounterVec
	transcribe  *prometheus.HistogramVec
	sttErrors   *prometheus.CounterVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		reg: reg,
		dispatches: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dispatches_total",
			Help:      "Utterances dispatched, by intent and outcome.",
		}, []string{"intent", "kind"}),
		unavailable: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "capability_unavailable_total",
			Help:      "Matched intents refused because their service was not ready.",
		}, []string{"intent", "state"}),
		transcribe: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "transcription_duration_seconds",
			Help:      "Time spent turning a recording into text.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32},
		}, []string{"backend"}),
		sttErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transcription_errors_total",
			Help:      "Failed transcriptions.",
		}, []string{"backend"}),
	}
}

// Observe is an intent.Observer.
func (m *Metrics) Observe(o intent.Outcome) {
	name := o.Intent
	if name == "" {
		name = "none"
	}
	m.dispatches.WithLabelValues(name, o.Kind.String()).Inc()
	if o.Kind == intent.KindUnavailable {
		m.unavailable.WithLabelValues(name, o.State.String()).Inc()
	}
}

type Transcriber interface {
	Transcribe(ctx context.Context, pcm16k []float32) (string, error)
}

type timed struct {
	backend string
	next    Transcriber
	m       *Metrics
}

// Transcriber wraps t so every call is timed under the backend label.
func (m *Metrics) Transcriber(backend string, t Transcriber) Transcriber {
	return &timed{backend: backend, next: t, m: m}
}

func (t *timed) Transcribe(ctx context.Context, pcm16k []float32) (string, error) {
	start := time.Now()
	text, err := t.next.Transcribe(ctx, pcm16k)
	t.m.transcribe.WithLabelValues(t.backend).Observe(time.Since(start).Seconds())
	if err != nil {
		t.m.sttErrors.WithLabelValues(t.backend).Inc()
	}
	return text, err
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}

// Serve exposes /metrics on addr until ctx is done.
func (m *Metrics) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	stop := context.AfterFunc(ctx, func() {
		shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdown)
	})
	defer stop()

	log.Info("Serving metrics", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
