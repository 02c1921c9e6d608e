package spotify

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	log "log/slog"
	"net/http"
	"net/url"

	"golang.org/x/oauth2"

	"marvin/internal/config"
)

// Login runs the authorization code flow once. It serves the redirect URI
// locally, hands the consent page to open and waits for the callback.
func Login(ctx context.Context, cfg config.Spotify, open func(string) error) (*oauth2.Token, error) {
	if !cfg.Configured() {
		return nil, ErrNoCredentials
	}
	redirect, err := url.Parse(cfg.RedirectURI)
	if err != nil || redirect.Host == "" {
		return nil, fmt.Errorf("invalid SPOTIFY_REDIRECT_URI %q", cfg.RedirectURI)
	}

	state, err := newState()
	if err != nil {
		return nil, err
	}

	auth := Authenticator(cfg)
	type outcome struct {
		tok *oauth2.Token
		err error
	}
	done := make(chan outcome, 1)

	path := redirect.Path
	if path == "" {
		path = "/"
	}

	mux := http.NewServeMux()
	mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
		tok, err := auth.Token(r.Context(), state, r)
		if err != nil {
			http.Error(w, "Falha na autenticação do Spotify.", http.StatusForbidden)
		} else {
			fmt.Fprintln(w, "Marvin conectado ao Spotify. Pode fechar esta janela.")
		}
		select {
		case done <- outcome{tok, err}:
		default:
		}
	})

	srv := &http.Server{Addr: redirect.Host, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			select {
			case done <- outcome{nil, fmt.Errorf("callback server: %w", err)}:
			default:
			}
		}
	}()
	defer srv.Shutdown(context.Background())

	consent := auth.AuthURL(state)
	log.Info("Open the Spotify consent page", "url", consent)
	if err := open(consent); err != nil {
		log.Warn("Failed to open browser", "err", err)
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case o := <-done:
		if o.err != nil {
			return nil, o.err
		}
		return o.tok, nil
	}
}

func newState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("state: %w", err)
	}
	return hex.EncodeToString(b), nil
}
