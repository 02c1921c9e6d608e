// Package app builds Marvin's services from configuration. Both the daemon
// and the bus shard boot through it.
package app

import (
	"context"
	"errors"
	log "log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/lmittmann/tint"
	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"marvin/internal/assistant"
	"marvin/internal/browser"
	"marvin/internal/capability"
	"marvin/internal/config"
	"marvin/internal/metrics"
	"marvin/internal/notify"
	"marvin/internal/proxy"
	"marvin/internal/services/spotify"
	"marvin/internal/services/system"
	"marvin/internal/services/whatsapp"
	"marvin/internal/services/youtube"
	"marvin/internal/tts"
	"marvin/internal/voice"
	"marvin/pkg/stt"
)

var logLevelMap = map[string]log.Level{
	"debug": log.LevelDebug,
	"info":  log.LevelInfo,
	"warn":  log.LevelWarn,
	"error": log.LevelError,
}

// SetupLogger installs the colored default logger.
func SetupLogger(level string) {
	log.SetDefault(log.New(tint.NewHandler(os.Stdout, &tint.Options{
		Level: logLevelMap[strings.ToLower(level)],
	})))
}

type Options struct {
	// Proxy is a SOCKS5 address for cloud APIs. Empty dials directly.
	Proxy string
	// Transcription loads the speech-to-text backends.
	Transcription bool
}

type App struct {
	Config      config.Config
	Services    *assistant.Services
	Assistant   *assistant.Assistant
	Metrics     *metrics.Metrics
	Voice       *tts.Voice
	Transcriber voice.Transcriber // nil when no backend could be loaded

	closers []func() error
}

func Build(ctx context.Context, cfg config.Config, opt Options) (*App, error) {
	httpClient, err := proxy.NewSocksClient(opt.Proxy)
	if err != nil {
		return nil, err
	}
	log.Debug("Loaded proxy", "addr", opt.Proxy)

	a := &App{
		Config:   cfg,
		Services: assistant.NewServices(),
		Metrics:  metrics.New(),
		Voice:    tts.NewVoice(cfg.Voice.Language),
	}

	sys := system.New(cfg)
	a.Services.System.Ready(sys)
	a.closers = append(a.closers, sys.Close)

	a.connectSpotify(ctx, cfg.Spotify, httpClient)
	a.connectBrowser(cfg.Browser)

	a.Assistant = assistant.New(a.Services,
		assistant.WithTimeout(cfg.Timeout),
		assistant.WithObserver(a.Metrics.Observe),
	)

	if opt.Transcription {
		a.loadTranscribers(cfg, httpClient)
	}

	for _, h := range []capability.Availability{a.Services.System, a.Services.Media, a.Services.Messenger, a.Services.Video} {
		log.Info("Service", "name", h.Name(), "state", h.State())
	}
	return a, nil
}

func (a *App) connectSpotify(ctx context.Context, cfg config.Spotify, httpClient *http.Client) {
	h := a.Services.Media
	if !cfg.Configured() {
		log.Warn("Spotify not configured", "hint", "set SPOTIFY_ID and SPOTIFY_SECRET")
		return
	}

	sp, err := spotify.New(ctx, cfg, httpClient, spotify.OnUnauthorized(h.Fail))
	if err != nil {
		if errors.Is(err, spotify.ErrNoRefreshToken) {
			log.Warn("Spotify has no refresh token", "hint", "run with --spotify-login")
		}
		h.Fail(err)
		return
	}
	h.Configure(sp)

	if err := sp.Verify(ctx); err != nil {
		log.Error("Spotify authentication failed", "err", err)
		h.Fail(err)
		return
	}
	h.MarkReady()
}

// connectBrowser registers the browser-driven services. Chrome itself is
// only launched by the first command that needs it.
func (a *App) connectBrowser(opts config.Browser) {
	sess := browser.NewSession(opts)

	a.Services.Video.Ready(youtube.New(sess.Tab("youtube")))

	wa := whatsapp.New(sess.Tab("whatsapp"), whatsapp.WithReport(func(contact string, res capability.Result) {
		if err := notify.Desktop("Marvin", res.Message); err != nil {
			log.Debug("Desktop notification failed", "err", err)
		}
		if err := a.Voice.Speak(res.Message); err != nil {
			log.Error("Failed to voice out", "err", err)
		}
	}))
	a.Services.Messenger.Ready(wa)

	a.closers = append(a.closers, sess.Close, func() error {
		wa.Wait()
		return nil
	})
}

func (a *App) loadTranscribers(cfg config.Config, httpClient *http.Client) {
	var chain voice.Fallback

	if path := cfg.Voice.WhisperModel; path != "" {
		w, err := stt.New(path, stt.Options{
			Language:      cfg.Voice.Language,
			InitialPrompt: cfg.Voice.WakeWord,
		})
		if err != nil {
			log.Warn("Failed to init whisper", "model", path, "err", err)
		} else {
			log.Debug("Loaded whisper", "model", path)
			chain = append(chain, a.Metrics.Transcriber("whisper", w))
			a.closers = append(a.closers, w.Close)
		}
	}

	if cfg.OpenAIKey != "" {
		client := openai.NewClient(
			option.WithAPIKey(cfg.OpenAIKey),
			option.WithHTTPClient(httpClient),
		)
		chain = append(chain, a.Metrics.Transcriber("openai", voice.NewOpenAI(client, cfg.Voice.Language)))
		log.Debug("Loaded OpenAI transcription")
	}

	switch len(chain) {
	case 0:
		log.Warn("No transcription backend", "hint", "set voice.whisper_model or OPENAI_API_KEY")
	case 1:
		a.Transcriber = chain[0]
	default:
		a.Transcriber = chain
	}
}

// Close releases services in reverse order of construction.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			log.Warn("Close failed", "err", err)
		}
	}
}
