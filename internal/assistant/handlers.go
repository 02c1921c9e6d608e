package assistant

import (
	"fmt"
	"strings"
	"time"

	"marvin/internal/capability"
	"marvin/internal/intent"
	"marvin/internal/spoken"
)

const (
	spokenPlaylists = 5
	spokenTracks    = 3
)

func unavailable(h interface{ Name() string }) string {
	return fmt.Sprintf("Desculpe, o serviço %s não está disponível no momento.", h.Name())
}

// --- system ---

func (a *Assistant) getTime(intent.Entities, string) string {
	sys, ok := a.svc.System.Get()
	if !ok {
		return unavailable(a.svc.System)
	}
	return sys.Now().Message
}

func (a *Assistant) getMarvinInfo(intent.Entities, string) string {
	sys, ok := a.svc.System.Get()
	if !ok {
		return unavailable(a.svc.System)
	}
	return sys.About().Message
}

func (a *Assistant) openCalculator(intent.Entities, string) string {
	sys, ok := a.svc.System.Get()
	if !ok {
		return unavailable(a.svc.System)
	}
	return sys.OpenCalculator().Message
}

func (a *Assistant) openApp(e intent.Entities, text string) string {
	name, found := e.Lookup("app_name")
	if !found {
		return "Qual aplicativo você gostaria de abrir?"
	}
	if strings.Contains(strings.ToLower(name), "calculadora") {
		return a.openCalculator(e, text)
	}

	sys, ok := a.svc.System.Get()
	if !ok {
		return unavailable(a.svc.System)
	}
	return sys.OpenApplication(name).Message
}

func (a *Assistant) searchWeb(e intent.Entities, _ string) string {
	query, found := e.Lookup("query")
	if !found {
		return "O que você gostaria de pesquisar na web?"
	}
	sys, ok := a.svc.System.Get()
	if !ok {
		return unavailable(a.svc.System)
	}
	return sys.SearchWeb(query).Message
}

func (a *Assistant) startTimer(e intent.Entities, _ string) string {
	duration, found := e.Lookup("duration")
	if !found {
		return "Para quanto tempo devo definir o timer?"
	}
	sys, ok := a.svc.System.Get()
	if !ok {
		return unavailable(a.svc.System)
	}
	return sys.StartTimer(duration).Message
}

func (a *Assistant) adjustVolume(e intent.Entities, _ string) string {
	level, found := e.Lookup("level")
	if !found {
		return "Para qual nível devo ajustar o volume?"
	}
	sys, ok := a.svc.System.Get()
	if !ok {
		return unavailable(a.svc.System)
	}
	return sys.SetVolume(level).Message
}

// --- music ---

func (a *Assistant) media(do func(MediaPlayer) string) string {
	m, ok := a.svc.Media.Get()
	if !ok {
		return unavailable(a.svc.Media)
	}
	return do(m)
}

func (a *Assistant) playSpotifySong(e intent.Entities, _ string) string {
	song, found := e.Lookup("song_name")
	if !found {
		return "Qual música você gostaria de tocar?"
	}
	return a.media(func(m MediaPlayer) string {
		ctx, cancel := a.call()
		defer cancel()
		return m.Play(ctx, song).Message
	})
}

func (a *Assistant) pauseSpotify(intent.Entities, string) string {
	return a.media(func(m MediaPlayer) string {
		ctx, cancel := a.call()
		defer cancel()
		return m.Pause(ctx).Message
	})
}

func (a *Assistant) resumeSpotify(intent.Entities, string) string {
	return a.media(func(m MediaPlayer) string {
		ctx, cancel := a.call()
		defer cancel()
		return m.Resume(ctx).Message
	})
}

func (a *Assistant) nextSpotifyTrack(intent.Entities, string) string {
	return a.media(func(m MediaPlayer) string {
		ctx, cancel := a.call()
		defer cancel()
		return m.Next(ctx).Message
	})
}

func (a *Assistant) previousSpotifyTrack(intent.Entities, string) string {
	return a.media(func(m MediaPlayer) string {
		ctx, cancel := a.call()
		defer cancel()
		return m.Previous(ctx).Message
	})
}

func (a *Assistant) listSpotifyPlaylists(intent.Entities, string) string {
	return a.media(func(m MediaPlayer) string {
		ctx, cancel := a.call()
		defer cancel()

		playlists, res := m.Playlists(ctx)
		if !res.OK() {
			return res.Message
		}
		if len(playlists) == 0 {
			return "Não encontrei nenhuma playlist sua ou não pude acessá-las."
		}

		names := make([]string, 0, spokenPlaylists)
		for _, p := range playlists {
			if len(names) == spokenPlaylists {
				break
			}
			names = append(names, p.Name)
		}
		reply := "Suas playlists são: " + strings.Join(names, ", ")
		if len(playlists) > len(names) {
			return reply + ", entre outras."
		}
		return reply + "."
	})
}

func (a *Assistant) playSpotifyPlaylist(e intent.Entities, _ string) string {
	playlist, found := e.Lookup("playlist_identifier")
	if !found {
		return "Qual playlist você gostaria de tocar?"
	}
	mode := strings.ToLower(e.Get("mode"))
	shuffle := strings.HasPrefix(mode, "aleat")

	return a.media(func(m MediaPlayer) string {
		ctx, cancel := a.call()
		defer cancel()
		return m.PlayPlaylist(ctx, playlist, shuffle).Message
	})
}

func (a *Assistant) addSpotifyTrackToPlaylist(e intent.Entities, _ string) string {
	song, hasSong := e.Lookup("song_name")
	playlist, hasPlaylist := e.Lookup("playlist_identifier")
	if !hasSong || !hasPlaylist {
		return "Preciso do nome da música e da playlist para adicionar."
	}
	return a.media(func(m MediaPlayer) string {
		ctx, cancel := a.call()
		defer cancel()
		return m.AddToPlaylist(ctx, song, playlist).Message
	})
}

func (a *Assistant) listSpotifyPlaylistTracks(e intent.Entities, _ string) string {
	playlist, found := e.Lookup("playlist_identifier")
	if !found {
		return "De qual playlist você gostaria de ver as músicas?"
	}
	return a.media(func(m MediaPlayer) string {
		ctx, cancel := a.call()
		defer cancel()

		listing, res := m.PlaylistTracks(ctx, playlist)
		if !res.OK() {
			return res.Message
		}
		name := listing.Playlist
		if name == "" {
			name = playlist
		}
		if len(listing.Tracks) == 0 {
			return fmt.Sprintf("A playlist '%s' está vazia.", name)
		}

		n := min(len(listing.Tracks), spokenTracks)
		titles := make([]string, n)
		for i := range titles {
			titles[i] = listing.Tracks[i].Name
		}
		reply := fmt.Sprintf("Na playlist '%s' encontrei: %s", name, strings.Join(titles, ", "))
		if rest := len(listing.Tracks) - n; rest > 0 {
			reply += fmt.Sprintf(", entre outras %d músicas.", rest)
		}
		return reply
	})
}

func (a *Assistant) connectSpotifyDevice(e intent.Entities, _ string) string {
	wanted := e.Get("device_identifier")

	return a.media(func(m MediaPlayer) string {
		ctx, cancel := a.call()
		defer cancel()

		devices, res := m.Devices(ctx)
		if !res.OK() {
			return res.Message
		}
		if len(devices) == 0 {
			return "Nenhum dispositivo Spotify encontrado ou disponível."
		}

		names := make([]string, len(devices))
		for i, d := range devices {
			names[i] = d.Name
		}

		if wanted == "" {
			return "Dispositivos Spotify disponíveis: " + strings.Join(names, ", ") + ". Qual deles você quer conectar?"
		}

		for _, d := range devices {
			if strings.Contains(strings.ToLower(d.Name), strings.ToLower(wanted)) {
				if r := m.TransferPlayback(ctx, d.ID); !r.OK() {
					return fmt.Sprintf("Falha ao conectar ao dispositivo %s. %s", wanted, r.Message)
				}
				return fmt.Sprintf("Conectado ao dispositivo %s.", wanted)
			}
		}
		return fmt.Sprintf("Dispositivo Spotify '%s' não encontrado. Dispositivos disponíveis: %s",
			wanted, strings.Join(names, ", "))
	})
}

// --- video ---

func (a *Assistant) video(do func(VideoBrowser) string) string {
	v, ok := a.svc.Video.Get()
	if !ok {
		return unavailable(a.svc.Video)
	}
	return do(v)
}

func (a *Assistant) searchPlayYouTube(e intent.Entities, _ string) string {
	query, found := e.Lookup("query")
	if !found {
		return "O que você gostaria de pesquisar ou tocar no YouTube?"
	}
	play := strings.HasPrefix(strings.ToLower(e.Get("command")), "tocar")

	return a.video(func(v VideoBrowser) string {
		ctx, cancel := a.call()
		defer cancel()

		res := v.Search(ctx, query)
		if !res.OK() || !play {
			return res.Message
		}
		a.pause(500 * time.Millisecond)
		return res.Message + " " + v.ClickResult(ctx, 1).Message
	})
}

func (a *Assistant) clickYouTubeVideoByNumber(e intent.Entities, _ string) string {
	raw, found := e.Lookup("position")
	if !found {
		return "Qual o número do vídeo que deseja selecionar?"
	}
	pos, ok := spoken.Number(raw)
	if !ok {
		return fmt.Sprintf("Número do vídeo inválido: '%s'.", raw)
	}
	if pos <= 0 {
		return "O número do vídeo deve ser positivo."
	}
	return a.video(func(v VideoBrowser) string {
		ctx, cancel := a.call()
		defer cancel()
		return v.ClickResult(ctx, pos).Message
	})
}

func (a *Assistant) selectYouTubeChannel(intent.Entities, string) string {
	return a.video(func(v VideoBrowser) string {
		ctx, cancel := a.call()
		defer cancel()
		return v.SelectChannel(ctx).Message
	})
}

func videoAction(e intent.Entities) (VideoAction, bool) {
	if p, ok := e.Lookup("playback"); ok {
		switch p = strings.ToLower(p); {
		case strings.Contains(p, "pausar"), strings.Contains(p, "parar"),
			strings.Contains(p, "retomar"), strings.Contains(p, "continuar"), strings.Contains(p, "play"):
			return VideoTogglePause, true
		}
	}
	if w, ok := e.Lookup("window"); ok {
		switch w = strings.ToLower(w); {
		case strings.Contains(w, "sair"):
			return VideoExitFullscreen, true
		case strings.Contains(w, "tela cheia"):
			return VideoFullscreen, true
		case strings.Contains(w, "maximizar"):
			return VideoMaximize, true
		}
	}
	return "", false
}

func (a *Assistant) controlYouTubeVideo(e intent.Entities, _ string) string {
	action, ok := videoAction(e)
	if !ok {
		return "Não entendi qual controle de vídeo você quer usar."
	}
	return a.video(func(v VideoBrowser) string {
		ctx, cancel := a.call()
		defer cancel()
		return v.Control(ctx, action).Message
	})
}

// skipYouTubeAd tries the page button first and falls back to clicking
// the usual on-screen position.
func (a *Assistant) skipYouTubeAd(intent.Entities, string) string {
	return a.video(func(v VideoBrowser) string {
		ctx, cancel := a.call()
		defer cancel()

		dom := v.SkipAdDOM(ctx)
		if dom.OK() {
			return dom.Message
		}
		a.pause(500 * time.Millisecond)
		if ptr := v.SkipAdPointer(ctx); ptr.Status == capability.StatusSuccess {
			return ptr.Message
		}
		return dom.Message
	})
}

func (a *Assistant) goBackYouTube(intent.Entities, string) string {
	return a.video(func(v VideoBrowser) string {
		ctx, cancel := a.call()
		defer cancel()
		return v.Back(ctx).Message
	})
}

// --- messaging ---

func (a *Assistant) sendWhatsAppMessage(e intent.Entities, _ string) string {
	contact, hasContact := e.Lookup("contact_name")
	message, hasMessage := e.Lookup("message_content")
	if !hasContact || !hasMessage {
		return "Para quem e qual mensagem você gostaria de enviar pelo WhatsApp?"
	}
	m, ok := a.svc.Messenger.Get()
	if !ok {
		return unavailable(a.svc.Messenger)
	}
	ctx, cancel := a.call()
	defer cancel()
	return m.Send(ctx, contact, message).Message
}

func (a *Assistant) shutdown(intent.Entities, string) string {
	return Farewell
}
