package assistant

import (
	"marvin/internal/capability"
	"marvin/internal/intent"
)

// Catalogue lists every intent Marvin understands.
//
// Dispatch is first match, so the order below is part of the behaviour:
// intents that capture free text (a message body, a search query, a song
// title) come before intents keyed on loose words like "horas", "abrir" or
// "calculadora", which would otherwise steal those utterances.
func (a *Assistant) Catalogue() *intent.Catalogue {
	system := func() capability.Availability { return a.svc.System }
	media := func() capability.Availability { return a.svc.Media }
	messenger := func() capability.Availability { return a.svc.Messenger }
	video := func() capability.Availability { return a.svc.Video }

	return intent.MustCatalogue(
		// free text first
		intent.Definition{
			Name: "SEND_WHATSAPP_MESSAGE",
			Pattern: intent.Pattern(
				`(?:enviar|envie|mandar|mande) (?:uma )?mensagem (?:no whatsapp |pelo whatsapp |whatsapp )?para\s+(?P<contact_name>[^,]+?)(?:,|\s+dizendo|\s+com a mensagem|\s+mensagem)\s+(?P<message_content>.+)`),
			Handler:  a.sendWhatsAppMessage,
			Requires: messenger,
		},
		intent.Definition{
			Name: "SEARCH_PLAY_YOUTUBE",
			Pattern: intent.Pattern(
				`(?:tocar|pesquisar|buscar|achar|ver)\s+(?P<query>.+?)\s+no youtube|(?:assistir|youtube)\s+(?P<query>.+)`),
			Entities: map[string][]int{"command": {0}},
			Handler:  a.searchPlayYouTube,
			Requires: video,
		},
		intent.Definition{
			Name: "SEARCH_WEB",
			Pattern: intent.Pattern(
				`pesquisar na web por\s+(?P<query>.+)|pesquisar\s+(?P<query>.+)\s+na web|procure por\s+(?P<query>.+)|pesquisar por\s+(?P<query>.+)`),
			Handler:  a.searchWeb,
			Requires: system,
		},

		// music library
		intent.Definition{
			Name: "ADD_SPOTIFY_TRACK_TO_PLAYLIST",
			Pattern: intent.Pattern(
				`adicionar (?:música|som|faixa)\s+(.+?)\s+(?:à|a) playlist\s+(.+)|adicione (?:a )?(?:música|som|faixa)\s+(.+?)\s+na playlist\s+(.+)`),
			Entities: map[string][]int{
				"song_name":           {1, 3},
				"playlist_identifier": {2, 4},
			},
			Handler:  a.addSpotifyTrackToPlaylist,
			Requires: media,
		},
		intent.Definition{
			Name: "LIST_SPOTIFY_PLAYLIST_TRACKS",
			Pattern: intent.Pattern(
				`listar (?:músicas|sons|faixas) da playlist\s+(?P<playlist_identifier>.+)|o que tem na playlist\s+(?P<playlist_identifier>.+)|músicas da playlist\s+(?P<playlist_identifier>.+)`),
			Handler:  a.listSpotifyPlaylistTracks,
			Requires: media,
		},
		intent.Definition{
			Name: "PLAY_SPOTIFY_PLAYLIST",
			Pattern: intent.Pattern(
				`(?:tocar|toque) (?:a )?playlist(?:\s+(?P<playlist_identifier>.+?))?(?:\s+no modo\s+(?P<mode>aleatório|aleatorio|padrão|padrao))?[.!?]?\s*$`),
			Handler:  a.playSpotifyPlaylist,
			Requires: media,
		},
		intent.Definition{
			Name: "CLICK_YOUTUBE_VIDEO_BY_NUMBER",
			Pattern: intent.Pattern(
				`(?:clicar no|selecionar o|abrir o|tocar o)\s+(?:vídeo número|vídeo na posição|vídeo)(?:\s*(?P<position>[\pL\d]+))?`),
			Handler:  a.clickYouTubeVideoByNumber,
			Requires: video,
		},
		intent.Definition{
			Name: "PLAY_SPOTIFY_SONG",
			Pattern: intent.Pattern(
				`\b(?:tocar|toque)\b(?:\s+(?:a )?(?:música|som|faixa|msc)\b)?(?:\s+(?P<song_name>.+))?`),
			Handler:  a.playSpotifySong,
			Requires: media,
		},

		// timers and volume carry numbers that look like clock talk
		intent.Definition{
			Name: "START_TIMER",
			Pattern: intent.Pattern(
				`defina um timer de\s+(?P<duration>.+)|timer de\s+(?P<duration>.+)|defina timer para\s+(?P<duration>.+)|timer para\s+(?P<duration>.+)`),
			Handler:  a.startTimer,
			Requires: system,
		},
		intent.Definition{
			Name: "ADJUST_VOLUME",
			Pattern: intent.Pattern(
				`ajuste o volume para\s+(?P<level>.+)|aumentar (?:o )?volume para\s+(?P<level>.+)|diminuir (?:o )?volume para\s+(?P<level>.+)|volume para\s+(?P<level>.+)`),
			Handler:  a.adjustVolume,
			Requires: system,
		},

		// playback
		intent.Definition{
			Name:     "PAUSE_SPOTIFY",
			Pattern:  intent.Pattern(`paus(?:ar|e) (?:a )?(?:música|spotify|o som)|pausa spotify`),
			Handler:  a.pauseSpotify,
			Requires: media,
		},
		intent.Definition{
			Name:     "RESUME_SPOTIFY",
			Pattern:  intent.Pattern(`play (?:música|spotify|o som)|retomar (?:a )?(?:música|spotify)|continuar (?:a )?(?:música|spotify)`),
			Handler:  a.resumeSpotify,
			Requires: media,
		},
		intent.Definition{
			Name:     "NEXT_SPOTIFY_TRACK",
			Pattern:  intent.Pattern(`próxima (?:música|faixa)|próximo som|avançar (?:música|spotify)|pular música`),
			Handler:  a.nextSpotifyTrack,
			Requires: media,
		},
		intent.Definition{
			Name:     "PREVIOUS_SPOTIFY_TRACK",
			Pattern:  intent.Pattern(`(?:música|faixa|som) anterior|voltar (?:a )?(?:música|spotify)`),
			Handler:  a.previousSpotifyTrack,
			Requires: media,
		},
		intent.Definition{
			Name:     "LIST_SPOTIFY_PLAYLISTS",
			Pattern:  intent.Pattern(`listar (?:minhas )?playlists|quais são (?:as )?minhas playlists|minhas playlists`),
			Handler:  a.listSpotifyPlaylists,
			Requires: media,
		},
		intent.Definition{
			Name: "CONNECT_SPOTIFY_DEVICE",
			Pattern: intent.Pattern(
				`conectar spotify ao dispositivo\s+(?P<device_identifier>.+)|conectar (?:ao )?dispositivo spotify|listar dispositivos(?: do)? spotify`),
			Handler:  a.connectSpotifyDevice,
			Requires: media,
		},

		// video page controls
		intent.Definition{
			Name:     "SELECT_YOUTUBE_CHANNEL",
			Pattern:  intent.Pattern(`(?:ir para o|selecionar o|abrir o)\s+canal(?: do youtube)?`),
			Handler:  a.selectYouTubeChannel,
			Requires: video,
		},
		intent.Definition{
			Name: "CONTROL_YOUTUBE_VIDEO",
			Pattern: intent.Pattern(
				`(?P<playback>pausar|retomar|continuar|play no|parar o)\s+(?:o )?(?:vídeo|youtube)|(?P<window>sair da tela cheia|tela cheia|maximizar (?:a )?janela)(?:\s+no youtube)?`),
			Handler:  a.controlYouTubeVideo,
			Requires: video,
		},
		intent.Definition{
			Name:     "SKIP_YOUTUBE_AD",
			Pattern:  intent.Pattern(`pular (?:o )?(?:anúncio|comercial|propaganda)|fechar (?:o )?(?:anúncio|propaganda)`),
			Handler:  a.skipYouTubeAd,
			Requires: video,
		},
		intent.Definition{
			Name:     "GO_BACK_YOUTUBE",
			Pattern:  intent.Pattern(`voltar (?:no youtube|página|a página)|página anterior(?: no youtube)?`),
			Handler:  a.goBackYouTube,
			Requires: video,
		},

		// applications: the calculator before the generic launcher
		intent.Definition{
			Name:     "OPEN_CALCULATOR",
			Pattern:  intent.Pattern(`abrir (?:a )?calculadora|abra a calculadora|calculadora`),
			Handler:  a.openCalculator,
			Requires: system,
		},
		intent.Definition{
			Name: "OPEN_APP",
			Pattern: intent.Pattern(
				`abrir aplicativo\s+(.+)|abra o aplicativo\s+(.+)|abrir\s+(.+)`),
			Entities: map[string][]int{"app_name": {1, 2, 3}},
			Handler:  a.openApp,
			Requires: system,
		},

		// loose keywords last
		intent.Definition{
			Name:     "GET_MARVIN_INFO",
			Pattern:  intent.Pattern(`fale sobre você|quem é você|sobre o marvin|me fale mais de você`),
			Handler:  a.getMarvinInfo,
			Requires: system,
		},
		intent.Definition{
			Name:     "GET_TIME",
			Pattern:  intent.Pattern(`que horas são|me diga as horas|ver horas|\bhoras\b`),
			Handler:  a.getTime,
			Requires: system,
		},
		intent.Definition{
			Name:    "SHUTDOWN",
			Pattern: intent.Pattern(`\btchau\b|\badeus\b|desligar marvin|encerrar marvin`),
			Handler: a.shutdown,
		},
	)
}
