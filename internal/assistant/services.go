package assistant

import (
	"context"

	"marvin/internal/capability"
)

type Playlist struct {
	ID   string
	Name string
}

type Track struct {
	Name    string
	Artists string
	URI     string
}

type Device struct {
	ID     string
	Name   string
	Type   string
	Active bool
}

// TrackListing is the content of one playlist.
type TrackListing struct {
	Playlist string
	Tracks   []Track
}

// MediaPlayer controls music playback. Playlist identifiers are free text:
// a playlist name or its 1-based position, in digits or spoken words.
type MediaPlayer interface {
	Play(ctx context.Context, song string) capability.Result
	Pause(ctx context.Context) capability.Result
	Resume(ctx context.Context) capability.Result
	Next(ctx context.Context) capability.Result
	Previous(ctx context.Context) capability.Result
	Playlists(ctx context.Context) ([]Playlist, capability.Result)
	PlayPlaylist(ctx context.Context, playlist string, shuffle bool) capability.Result
	AddToPlaylist(ctx context.Context, song, playlist string) capability.Result
	PlaylistTracks(ctx context.Context, playlist string) (TrackListing, capability.Result)
	Devices(ctx context.Context) ([]Device, capability.Result)
	TransferPlayback(ctx context.Context, deviceID string) capability.Result
}

// System wraps local machine actions.
type System interface {
	Now() capability.Result
	About() capability.Result
	OpenApplication(name string) capability.Result
	OpenCalculator() capability.Result
	SearchWeb(query string) capability.Result
	// StartTimer returns at once; the alarm fires from the background.
	StartTimer(duration string) capability.Result
	SetVolume(level string) capability.Result
}

// Messenger sends a text message to a named contact.
type Messenger interface {
	Send(ctx context.Context, contact, message string) capability.Result
}

type VideoAction string

const (
	VideoTogglePause    VideoAction = "toggle_pause_play"
	VideoFullscreen     VideoAction = "fullscreen"
	VideoExitFullscreen VideoAction = "exit_fullscreen"
	VideoMaximize       VideoAction = "maximize_window"
)

// VideoBrowser drives a video site in a browser session it owns.
type VideoBrowser interface {
	Search(ctx context.Context, query string) capability.Result
	ClickResult(ctx context.Context, position int) capability.Result
	SelectChannel(ctx context.Context) capability.Result
	Control(ctx context.Context, action VideoAction) capability.Result
	// SkipAdDOM clicks the skip button found in the page.
	SkipAdDOM(ctx context.Context) capability.Result
	// SkipAdPointer clicks where the skip button usually sits.
	SkipAdPointer(ctx context.Context) capability.Result
	Back(ctx context.Context) capability.Result
}

// Services is the registry of collaborators the catalogue resolves at
// dispatch time. The composition root fills it and owns the lifecycles.
type Services struct {
	System    *capability.Handle[System]
	Media     *capability.Handle[MediaPlayer]
	Messenger *capability.Handle[Messenger]
	Video     *capability.Handle[VideoBrowser]
}

func NewServices() *Services {
	return &Services{
		System:    capability.NewHandle[System]("system"),
		Media:     capability.NewHandle[MediaPlayer]("spotify"),
		Messenger: capability.NewHandle[Messenger]("whatsapp"),
		Video:     capability.NewHandle[VideoBrowser]("youtube"),
	}
}
