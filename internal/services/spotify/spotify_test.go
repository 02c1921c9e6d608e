package spotify

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zmb3/spotify/v2"

	"marvin/internal/assistant"
	"marvin/internal/capability"
	"marvin/internal/config"
)

type fakeAPI struct {
	tracks    []spotify.FullTrack
	playlists []spotify.SimplePlaylist
	items     []spotify.PlaylistItem
	devices   []spotify.PlayerDevice
	err       error
	itemsErr  error

	played    []spotify.PlayOptions
	shuffle   []bool
	added     map[spotify.ID][]spotify.ID
	transfers []spotify.ID
}

func (f *fakeAPI) Search(_ context.Context, _ string, _ spotify.SearchType, _ ...spotify.RequestOption) (*spotify.SearchResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &spotify.SearchResult{Tracks: &spotify.FullTrackPage{Tracks: f.tracks}}, nil
}

func (f *fakeAPI) PlayOpt(_ context.Context, opt *spotify.PlayOptions) error {
	f.played = append(f.played, *opt)
	return f.err
}

func (f *fakeAPI) Play(context.Context) error     { return f.err }
func (f *fakeAPI) Pause(context.Context) error    { return f.err }
func (f *fakeAPI) Next(context.Context) error     { return f.err }
func (f *fakeAPI) Previous(context.Context) error { return f.err }

func (f *fakeAPI) Shuffle(_ context.Context, on bool) error {
	f.shuffle = append(f.shuffle, on)
	return nil
}

func (f *fakeAPI) CurrentUsersPlaylists(context.Context, ...spotify.RequestOption) (*spotify.SimplePlaylistPage, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &spotify.SimplePlaylistPage{Playlists: f.playlists}, nil
}

func (f *fakeAPI) AddTracksToPlaylist(_ context.Context, playlist spotify.ID, ids ...spotify.ID) (string, error) {
	if f.added == nil {
		f.added = make(map[spotify.ID][]spotify.ID)
	}
	f.added[playlist] = append(f.added[playlist], ids...)
	return "snap", nil
}

func (f *fakeAPI) GetPlaylistItems(context.Context, spotify.ID, ...spotify.RequestOption) (*spotify.PlaylistItemPage, error) {
	if f.itemsErr != nil {
		return nil, f.itemsErr
	}
	return &spotify.PlaylistItemPage{Items: f.items}, nil
}

func (f *fakeAPI) PlayerDevices(context.Context) ([]spotify.PlayerDevice, error) {
	return f.devices, f.err
}

func (f *fakeAPI) TransferPlayback(_ context.Context, id spotify.ID, _ bool) error {
	f.transfers = append(f.transfers, id)
	return f.err
}

func (f *fakeAPI) CurrentUser(context.Context) (*spotify.PrivateUser, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &spotify.PrivateUser{User: spotify.User{DisplayName: "ana"}}, nil
}

func track(id, name, artist string) spotify.FullTrack {
	return spotify.FullTrack{SimpleTrack: spotify.SimpleTrack{
		ID:      spotify.ID(id),
		Name:    name,
		URI:     spotify.URI("spotify:track:" + id),
		Artists: []spotify.SimpleArtist{{Name: artist}},
	}}
}

var library = []spotify.SimplePlaylist{
	{ID: "p1", Name: "Rock Nacional"},
	{ID: "p2", Name: "Favoritas"},
	{ID: "p3", Name: "Favoritas Antigas"},
}

func TestResolvePlaylist(t *testing.T) {
	playlists := []assistant.Playlist{
		{ID: "p1", Name: "Rock Nacional"},
		{ID: "p2", Name: "Favoritas"},
		{ID: "p3", Name: "Favoritas Antigas"},
	}

	tests := []struct {
		identifier string
		want       string
		ok         bool
	}{
		{"2", "p2", true},
		{"segunda", "p2", true},
		{"3º", "p3", true},
		{"favoritas", "p2", true},
		{"antigas", "p3", true},
		{"rock", "p1", true},
		{"4", "", false},
		{"0", "", false},
		{"jazz", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.identifier, func(t *testing.T) {
			p, ok := ResolvePlaylist(playlists, tt.identifier)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, p.ID)
		})
	}
}

func TestService_Play(t *testing.T) {
	api := &fakeAPI{tracks: []spotify.FullTrack{track("t1", "Imagine", "John Lennon")}}
	s := newService(api)

	res := s.Play(context.Background(), "Imagine")
	assert.Equal(t, capability.Success("Tocando 'Imagine' de John Lennon."), res)
	require.Len(t, api.played, 1)
	assert.Equal(t, []spotify.URI{"spotify:track:t1"}, api.played[0].URIs)

	api.tracks = nil
	assert.Equal(t, "Música 'Nada' não encontrada.", s.Play(context.Background(), "Nada").Message)
}

func TestService_PlayPlaylist(t *testing.T) {
	api := &fakeAPI{playlists: library}
	s := newService(api)

	res := s.PlayPlaylist(context.Background(), "segunda", true)
	assert.Equal(t, "Tocando a playlist 'Favoritas' no modo aleatório.", res.Message)
	assert.Equal(t, []bool{true}, api.shuffle)
	require.Len(t, api.played, 1)
	assert.Equal(t, spotify.URI("spotify:playlist:p2"), *api.played[0].PlaybackContext)

	assert.Equal(t, "Playlist na posição 9 não encontrada.", s.PlayPlaylist(context.Background(), "9", false).Message)
	assert.Equal(t, "Playlist 'jazz' não encontrada.", s.PlayPlaylist(context.Background(), "jazz", false).Message)
}

func TestService_AddToPlaylist(t *testing.T) {
	api := &fakeAPI{playlists: library, tracks: []spotify.FullTrack{track("t9", "Yesterday", "The Beatles")}}
	s := newService(api)

	res := s.AddToPlaylist(context.Background(), "yesterday", "favoritas")
	assert.Equal(t, "Faixa 'Yesterday' adicionada à playlist 'Favoritas'.", res.Message)
	assert.Equal(t, []spotify.ID{"t9"}, api.added["p2"])
}

func TestService_PlaylistTracks(t *testing.T) {
	full := track("t1", "Imagine", "John Lennon")
	api := &fakeAPI{playlists: library, items: []spotify.PlaylistItem{
		{Track: spotify.PlaylistItemTrack{Track: &full}},
		{Track: spotify.PlaylistItemTrack{}},
	}}
	s := newService(api)

	listing, res := s.PlaylistTracks(context.Background(), "1")
	require.True(t, res.OK())
	assert.Equal(t, "Rock Nacional", listing.Playlist)
	assert.Equal(t, []assistant.Track{{Name: "Imagine", Artists: "John Lennon", URI: "spotify:track:t1"}}, listing.Tracks)
}

func TestService_Devices(t *testing.T) {
	api := &fakeAPI{devices: []spotify.PlayerDevice{{ID: "d1", Name: "Sala", Type: "TV", Active: true}}}
	s := newService(api)

	devices, res := s.Devices(context.Background())
	require.True(t, res.OK())
	assert.Equal(t, []assistant.Device{{ID: "d1", Name: "Sala", Type: "TV", Active: true}}, devices)

	assert.True(t, s.TransferPlayback(context.Background(), "d1").OK())
	assert.Equal(t, []spotify.ID{"d1"}, api.transfers)
}

func TestService_Errors(t *testing.T) {
	t.Run("no active device", func(t *testing.T) {
		s := newService(&fakeAPI{err: spotify.Error{Status: http.StatusNotFound, Message: "No active device found"}})
		res := s.Next(context.Background())
		assert.Equal(t, capability.StatusError, res.Status)
		assert.Contains(t, res.Message, "Nenhum dispositivo Spotify ativo")
	})

	t.Run("missing playlist is not a device problem", func(t *testing.T) {
		s := newService(&fakeAPI{
			playlists: library,
			itemsErr:  spotify.Error{Status: http.StatusNotFound, Message: "Not found."},
		})
		_, res := s.PlaylistTracks(context.Background(), "rock")
		assert.Equal(t, capability.StatusError, res.Status)
		assert.Contains(t, res.Message, "Erro ao listar as faixas da playlist")
		assert.NotContains(t, res.Message, "dispositivo")
	})

	t.Run("pause while stopped", func(t *testing.T) {
		s := newService(&fakeAPI{err: spotify.Error{Status: http.StatusForbidden}})
		assert.Equal(t, capability.StatusWarn, s.Pause(context.Background()).Status)
	})

	t.Run("unauthorized demotes the handle", func(t *testing.T) {
		h := capability.NewHandle[assistant.MediaPlayer]("spotify")
		s := newService(&fakeAPI{err: spotify.Error{Status: http.StatusUnauthorized}}, OnUnauthorized(h.Fail))
		h.Ready(s)

		res := s.Resume(context.Background())
		assert.Contains(t, res.Message, "autenticação")
		assert.Equal(t, capability.Unauthenticated, h.State())
		assert.Error(t, h.Err())
	})

	t.Run("other errors", func(t *testing.T) {
		s := newService(&fakeAPI{err: errors.New("boom")})
		res := s.Previous(context.Background())
		assert.Equal(t, "Erro ao voltar para a faixa anterior: boom", res.Message)
	})
}

func TestService_Verify(t *testing.T) {
	assert.NoError(t, newService(&fakeAPI{}).Verify(context.Background()))
	assert.Error(t, newService(&fakeAPI{err: errors.New("expired")}).Verify(context.Background()))
}

func TestNew_RequiresCredentials(t *testing.T) {
	_, err := New(context.Background(), config.Spotify{}, nil)
	assert.ErrorIs(t, err, ErrNoCredentials)

	_, err = New(context.Background(), config.Spotify{ClientID: "id", ClientSecret: "secret"}, nil)
	assert.ErrorIs(t, err, ErrNoRefreshToken)

	s, err := New(context.Background(), config.Spotify{ClientID: "id", ClientSecret: "secret", RefreshToken: "r"}, http.DefaultClient)
	require.NoError(t, err)
	assert.NotNil(t, s)
}
