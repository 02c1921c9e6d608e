// Package spotify drives playback through the Spotify Web API.
package spotify

import (
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"net/http"
	"strings"

	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"

	"marvin/internal/assistant"
	"marvin/internal/capability"
	"marvin/internal/config"
	"marvin/internal/spoken"
)

var Scopes = []string{
	spotifyauth.ScopeUserReadPlaybackState,
	spotifyauth.ScopeUserModifyPlaybackState,
	spotifyauth.ScopeUserReadCurrentlyPlaying,
	spotifyauth.ScopePlaylistReadPrivate,
	spotifyauth.ScopePlaylistModifyPrivate,
	spotifyauth.ScopePlaylistModifyPublic,
}

var (
	ErrNoCredentials  = errors.New("spotify client id or secret not set")
	ErrNoRefreshToken = errors.New("spotify refresh token not set")
)

// api is the part of *spotify.Client the service uses.
type api interface {
	Search(ctx context.Context, query string, t spotify.SearchType, opts ...spotify.RequestOption) (*spotify.SearchResult, error)
	PlayOpt(ctx context.Context, opt *spotify.PlayOptions) error
	Play(ctx context.Context) error
	Pause(ctx context.Context) error
	Next(ctx context.Context) error
	Previous(ctx context.Context) error
	Shuffle(ctx context.Context, shuffle bool) error
	CurrentUsersPlaylists(ctx context.Context, opts ...spotify.RequestOption) (*spotify.SimplePlaylistPage, error)
	AddTracksToPlaylist(ctx context.Context, playlistID spotify.ID, trackIDs ...spotify.ID) (string, error)
	GetPlaylistItems(ctx context.Context, playlistID spotify.ID, opts ...spotify.RequestOption) (*spotify.PlaylistItemPage, error)
	PlayerDevices(ctx context.Context) ([]spotify.PlayerDevice, error)
	TransferPlayback(ctx context.Context, deviceID spotify.ID, play bool) error
	CurrentUser(ctx context.Context) (*spotify.PrivateUser, error)
}

type Option func(*Service)

// OnUnauthorized is called when the API rejects the stored credentials.
func OnUnauthorized(f func(error)) Option {
	return func(s *Service) { s.unauthorized = f }
}

type Service struct {
	api          api
	unauthorized func(error)
}

var _ assistant.MediaPlayer = (*Service)(nil)

func Authenticator(cfg config.Spotify) *spotifyauth.Authenticator {
	return spotifyauth.New(
		spotifyauth.WithClientID(cfg.ClientID),
		spotifyauth.WithClientSecret(cfg.ClientSecret),
		spotifyauth.WithRedirectURL(cfg.RedirectURI),
		spotifyauth.WithScopes(Scopes...),
	)
}

// New builds a client from the stored refresh token. The token is not
// checked until Verify.
func New(ctx context.Context, cfg config.Spotify, httpClient *http.Client, opts ...Option) (*Service, error) {
	if !cfg.Configured() {
		return nil, ErrNoCredentials
	}
	if cfg.RefreshToken == "" {
		return nil, ErrNoRefreshToken
	}
	if httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, httpClient)
	}

	auth := Authenticator(cfg)
	client := spotify.New(auth.Client(ctx, &oauth2.Token{RefreshToken: cfg.RefreshToken}))
	return newService(client, opts...), nil
}

func newService(c api, opts ...Option) *Service {
	s := &Service{api: c, unauthorized: func(error) {}}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Verify makes one authenticated call so a bad token shows up at startup.
func (s *Service) Verify(ctx context.Context) error {
	u, err := s.api.CurrentUser(ctx)
	if err != nil {
		return fmt.Errorf("spotify current user: %w", err)
	}
	log.Info("Spotify authenticated", "user", u.DisplayName)
	return nil
}

func (s *Service) Play(ctx context.Context, song string) capability.Result {
	track, res := s.findTrack(ctx, song)
	if !res.OK() {
		return res
	}
	if err := s.api.PlayOpt(ctx, &spotify.PlayOptions{URIs: []spotify.URI{track.URI}}); err != nil {
		return s.playerFail(err, "Erro ao tocar a música")
	}
	return capability.Success("Tocando '%s' de %s.", track.Name, artists(track.Artists))
}

func (s *Service) Pause(ctx context.Context) capability.Result {
	if err := s.api.Pause(ctx); err != nil {
		if status(err) == http.StatusForbidden {
			return capability.Warn("Nada está tocando no momento.")
		}
		return s.playerFail(err, "Erro ao pausar a reprodução")
	}
	return capability.Success("Reprodução pausada.")
}

func (s *Service) Resume(ctx context.Context) capability.Result {
	if err := s.api.Play(ctx); err != nil {
		return s.playerFail(err, "Erro ao retomar a reprodução")
	}
	return capability.Success("Reprodução retomada.")
}

func (s *Service) Next(ctx context.Context) capability.Result {
	if err := s.api.Next(ctx); err != nil {
		return s.playerFail(err, "Erro ao pular para a próxima faixa")
	}
	return capability.Success("Pulando para a próxima faixa.")
}

func (s *Service) Previous(ctx context.Context) capability.Result {
	if err := s.api.Previous(ctx); err != nil {
		return s.playerFail(err, "Erro ao voltar para a faixa anterior")
	}
	return capability.Success("Voltando para a faixa anterior.")
}

func (s *Service) Playlists(ctx context.Context) ([]assistant.Playlist, capability.Result) {
	page, err := s.api.CurrentUsersPlaylists(ctx, spotify.Limit(50))
	if err != nil {
		return nil, s.fail(err, "Erro ao listar suas playlists")
	}
	out := make([]assistant.Playlist, len(page.Playlists))
	for i, p := range page.Playlists {
		out[i] = assistant.Playlist{ID: string(p.ID), Name: p.Name}
	}
	return out, capability.Success("%d playlists.", len(out))
}

func (s *Service) PlayPlaylist(ctx context.Context, identifier string, shuffle bool) capability.Result {
	p, res := s.findPlaylist(ctx, identifier)
	if !res.OK() {
		return res
	}

	if err := s.api.Shuffle(ctx, shuffle); err != nil {
		log.Warn("Failed to set shuffle", "err", err)
	}
	uri := spotify.URI("spotify:playlist:" + p.ID)
	if err := s.api.PlayOpt(ctx, &spotify.PlayOptions{PlaybackContext: &uri}); err != nil {
		return s.playerFail(err, "Erro ao tocar a playlist")
	}

	mode := "padrão"
	if shuffle {
		mode = "aleatório"
	}
	return capability.Success("Tocando a playlist '%s' no modo %s.", p.Name, mode)
}

func (s *Service) AddToPlaylist(ctx context.Context, song, identifier string) capability.Result {
	track, res := s.findTrack(ctx, song)
	if !res.OK() {
		return res
	}
	p, res := s.findPlaylist(ctx, identifier)
	if !res.OK() {
		return res
	}
	if _, err := s.api.AddTracksToPlaylist(ctx, spotify.ID(p.ID), track.ID); err != nil {
		return s.fail(err, fmt.Sprintf("Erro ao adicionar a faixa à playlist '%s'", p.Name))
	}
	return capability.Success("Faixa '%s' adicionada à playlist '%s'.", track.Name, p.Name)
}

func (s *Service) PlaylistTracks(ctx context.Context, identifier string) (assistant.TrackListing, capability.Result) {
	p, res := s.findPlaylist(ctx, identifier)
	if !res.OK() {
		return assistant.TrackListing{}, res
	}

	page, err := s.api.GetPlaylistItems(ctx, spotify.ID(p.ID), spotify.Limit(50))
	if err != nil {
		return assistant.TrackListing{}, s.fail(err, "Erro ao listar as faixas da playlist")
	}

	listing := assistant.TrackListing{Playlist: p.Name}
	for _, item := range page.Items {
		t := item.Track.Track
		if t == nil {
			continue
		}
		listing.Tracks = append(listing.Tracks, assistant.Track{
			Name:    t.Name,
			Artists: artists(t.Artists),
			URI:     string(t.URI),
		})
	}
	return listing, capability.Success("%d faixas.", len(listing.Tracks))
}

func (s *Service) Devices(ctx context.Context) ([]assistant.Device, capability.Result) {
	devices, err := s.api.PlayerDevices(ctx)
	if err != nil {
		return nil, s.playerFail(err, "Erro ao listar dispositivos")
	}
	out := make([]assistant.Device, len(devices))
	for i, d := range devices {
		out[i] = assistant.Device{ID: string(d.ID), Name: d.Name, Type: d.Type, Active: d.Active}
	}
	return out, capability.Success("%d dispositivos.", len(out))
}

func (s *Service) TransferPlayback(ctx context.Context, deviceID string) capability.Result {
	if err := s.api.TransferPlayback(ctx, spotify.ID(deviceID), true); err != nil {
		return s.playerFail(err, "Erro ao transferir a reprodução")
	}
	return capability.Success("Reprodução transferida.")
}

// --- helpers ---

func (s *Service) findTrack(ctx context.Context, song string) (spotify.FullTrack, capability.Result) {
	song = strings.TrimSpace(song)
	if song == "" {
		return spotify.FullTrack{}, capability.Errorf("O nome da música é obrigatório.")
	}
	found, err := s.api.Search(ctx, song, spotify.SearchTypeTrack, spotify.Limit(1))
	if err != nil {
		return spotify.FullTrack{}, s.fail(err, fmt.Sprintf("Erro ao buscar a música '%s'", song))
	}
	if found.Tracks == nil || len(found.Tracks.Tracks) == 0 {
		return spotify.FullTrack{}, capability.Errorf("Música '%s' não encontrada.", song)
	}
	return found.Tracks.Tracks[0], capability.Success("ok")
}

func (s *Service) findPlaylist(ctx context.Context, identifier string) (assistant.Playlist, capability.Result) {
	playlists, res := s.Playlists(ctx)
	if !res.OK() {
		return assistant.Playlist{}, res
	}
	if p, ok := ResolvePlaylist(playlists, identifier); ok {
		return p, capability.Success("ok")
	}
	if n, isIndex := spoken.Number(identifier); isIndex {
		return assistant.Playlist{}, capability.Errorf("Playlist na posição %d não encontrada.", n)
	}
	return assistant.Playlist{}, capability.Errorf("Playlist '%s' não encontrada.", identifier)
}

// ResolvePlaylist picks a playlist by 1-based position ("2", "segunda")
// or by name: exact match first, then the first name containing it.
func ResolvePlaylist(playlists []assistant.Playlist, identifier string) (assistant.Playlist, bool) {
	identifier = strings.TrimSpace(identifier)
	if n, ok := spoken.Number(identifier); ok {
		if n >= 1 && n <= len(playlists) {
			return playlists[n-1], true
		}
		return assistant.Playlist{}, false
	}

	want := strings.ToLower(identifier)
	for _, p := range playlists {
		if strings.ToLower(p.Name) == want {
			return p, true
		}
	}
	for _, p := range playlists {
		if strings.Contains(strings.ToLower(p.Name), want) {
			return p, true
		}
	}
	return assistant.Playlist{}, false
}

func (s *Service) fail(err error, msg string) capability.Result {
	if status(err) == http.StatusUnauthorized {
		s.unauthorized(err)
		return capability.Errorf("O Spotify recusou a autenticação. Faça login novamente.")
	}
	log.Error(msg, "err", err)
	return capability.Fail(err, msg)
}

// playerFail is fail for the /me/player endpoints, where 404 means no active device.
func (s *Service) playerFail(err error, msg string) capability.Result {
	if status(err) == http.StatusNotFound {
		return capability.Errorf("Nenhum dispositivo Spotify ativo encontrado. Abra o Spotify em algum dispositivo.")
	}
	return s.fail(err, msg)
}

func status(err error) int {
	var se spotify.Error
	if errors.As(err, &se) {
		return se.Status
	}
	var re *oauth2.RetrieveError
	if errors.As(err, &re) && re.Response != nil {
		return http.StatusUnauthorized
	}
	return 0
}

func artists(list []spotify.SimpleArtist) string {
	names := make([]string, len(list))
	for i, a := range list {
		names[i] = a.Name
	}
	return strings.Join(names, ", ")
}
