package assistant

import (
	"context"
	"fmt"
	"testing"
	"time"

	"marvin/internal/capability"
)

// ==========================
// Collaborator fakes
// ==========================

type fakeSystem struct {
	calls []string
}

func (s *fakeSystem) record(format string, args ...any) {
	s.calls = append(s.calls, fmt.Sprintf(format, args...))
}

func (s *fakeSystem) Now() capability.Result {
	s.record("now")
	return capability.Success("São 12 horas e 34 minutos.")
}

func (s *fakeSystem) About() capability.Result {
	s.record("about")
	return capability.Success("Eu sou Marvin, seu assistente pessoal.")
}

func (s *fakeSystem) OpenApplication(name string) capability.Result {
	s.record("open %s", name)
	return capability.Success("Abrindo '%s'.", name)
}

func (s *fakeSystem) OpenCalculator() capability.Result {
	s.record("calculator")
	return capability.Success("Abrindo 'calculadora'.")
}

func (s *fakeSystem) SearchWeb(query string) capability.Result {
	s.record("search %s", query)
	return capability.Success("Pesquisando por '%s' na web.", query)
}

func (s *fakeSystem) StartTimer(duration string) capability.Result {
	s.record("timer %s", duration)
	return capability.Success("Timer definido para %s.", duration)
}

func (s *fakeSystem) SetVolume(level string) capability.Result {
	s.record("volume %s", level)
	return capability.Success("Volume ajustado para %s.", level)
}

type fakeMedia struct {
	calls     []string
	playlists []Playlist
	listing   TrackListing
	devices   []Device
	failNext  bool
	transfer  capability.Result
}

func (m *fakeMedia) record(format string, args ...any) {
	m.calls = append(m.calls, fmt.Sprintf(format, args...))
}

func (m *fakeMedia) Play(_ context.Context, song string) capability.Result {
	m.record("play %s", song)
	return capability.Success("Tocando '%s'.", song)
}

func (m *fakeMedia) Pause(context.Context) capability.Result {
	m.record("pause")
	return capability.Success("Reprodução pausada.")
}

func (m *fakeMedia) Resume(context.Context) capability.Result {
	m.record("resume")
	return capability.Success("Reprodução retomada.")
}

func (m *fakeMedia) Next(context.Context) capability.Result {
	m.record("next")
	if m.failNext {
		return capability.Errorf("Nenhum dispositivo ativo.")
	}
	return capability.Success("Próxima faixa.")
}

func (m *fakeMedia) Previous(context.Context) capability.Result {
	m.record("previous")
	return capability.Success("Faixa anterior.")
}

func (m *fakeMedia) Playlists(context.Context) ([]Playlist, capability.Result) {
	m.record("playlists")
	return m.playlists, capability.Success("ok")
}

func (m *fakeMedia) PlayPlaylist(_ context.Context, playlist string, shuffle bool) capability.Result {
	m.record("playlist %s shuffle=%t", playlist, shuffle)
	return capability.Success("Tocando a playlist '%s'.", playlist)
}

func (m *fakeMedia) AddToPlaylist(_ context.Context, song, playlist string) capability.Result {
	m.record("add %s -> %s", song, playlist)
	return capability.Success("Faixa '%s' adicionada à playlist '%s'.", song, playlist)
}

func (m *fakeMedia) PlaylistTracks(_ context.Context, playlist string) (TrackListing, capability.Result) {
	m.record("tracks %s", playlist)
	return m.listing, capability.Success("ok")
}

func (m *fakeMedia) Devices(context.Context) ([]Device, capability.Result) {
	m.record("devices")
	return m.devices, capability.Success("ok")
}

func (m *fakeMedia) TransferPlayback(_ context.Context, id string) capability.Result {
	m.record("transfer %s", id)
	if m.transfer.Status != "" {
		return m.transfer
	}
	return capability.Success("ok")
}

type fakeMessenger struct {
	calls []string
}

func (m *fakeMessenger) Send(_ context.Context, contact, message string) capability.Result {
	m.calls = append(m.calls, contact+": "+message)
	return capability.Success("Enviando mensagem para '%s'.", contact)
}

type fakeVideo struct {
	calls   []string
	skipDOM capability.Result
	skipPtr capability.Result
}

func (v *fakeVideo) record(format string, args ...any) {
	v.calls = append(v.calls, fmt.Sprintf(format, args...))
}

func (v *fakeVideo) Search(_ context.Context, q string) capability.Result {
	v.record("search %s", q)
	return capability.Success("Resultados para '%s' carregados.", q)
}

func (v *fakeVideo) ClickResult(_ context.Context, pos int) capability.Result {
	v.record("click %d", pos)
	return capability.Success("Vídeo %d aberto.", pos)
}

func (v *fakeVideo) SelectChannel(context.Context) capability.Result {
	v.record("channel")
	return capability.Success("Canal selecionado.")
}

func (v *fakeVideo) Control(_ context.Context, a VideoAction) capability.Result {
	v.record("control %s", a)
	return capability.Success("ok %s", a)
}

func (v *fakeVideo) SkipAdDOM(context.Context) capability.Result {
	v.record("skip dom")
	return v.skipDOM
}

func (v *fakeVideo) SkipAdPointer(context.Context) capability.Result {
	v.record("skip pointer")
	return v.skipPtr
}

func (v *fakeVideo) Back(context.Context) capability.Result {
	v.record("back")
	return capability.Success("Voltando.")
}

// ==========================
// Fixture
// ==========================

type harness struct {
	sys       *fakeSystem
	media     *fakeMedia
	messenger *fakeMessenger
	video     *fakeVideo
	svc       *Services
	a         *Assistant
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	h := &harness{
		sys:       &fakeSystem{},
		media:     &fakeMedia{},
		messenger: &fakeMessenger{},
		video: &fakeVideo{
			skipDOM: capability.Info("Nenhum botão de pular anúncio encontrado."),
			skipPtr: capability.Errorf("falhou"),
		},
		svc: NewServices(),
	}
	h.svc.System.Ready(h.sys)
	h.svc.Media.Ready(h.media)
	h.svc.Messenger.Ready(h.messenger)
	h.svc.Video.Ready(h.video)

	h.a = New(h.svc, WithTimeout(time.Second))
	h.a.pause = func(time.Duration) {}
	return h
}
