package main

import (
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/browser"
	cli "github.com/spf13/pflag"

	"marvin/internal/app"
	"marvin/internal/assistant"
	"marvin/internal/audio"
	"marvin/internal/config"
	"marvin/internal/ipc"
	"marvin/internal/notify"
	"marvin/internal/services/spotify"
	"marvin/internal/voice"
	"marvin/pkg/audioconv"
)

func main() {
	envFile := cli.StringP("env", "e", ".env", "Env file path")
	configPath := cli.StringP("config", "c", "marvin.yaml", "YAML config path")
	proxyAddr := cli.StringP("proxy", "p", "", "Socks proxy address for cloud APIs")
	logLevel := cli.StringP("log", "l", "info", "Log level")
	textMode := cli.BoolP("text", "t", false, "Read commands from stdin instead of the microphone")
	audioFile := cli.StringP("file", "f", "", "Transcribe and run the command in an audio file")
	listen := cli.Bool("listen", true, "Listen for the wake word continuously; otherwise wait for marvin-ctl trigger")
	socket := cli.StringP("socket", "s", ipc.SocketPath, "Control socket path")
	metricsAddr := cli.StringP("metrics", "m", "", "Serve Prometheus metrics on this address")
	spotifyLogin := cli.Bool("spotify-login", false, "Authorize Spotify in the browser and print a refresh token")
	cli.Parse()

	app.SetupLogger(*logLevel)
	log.Info("Booting up")

	cfg, err := config.Load(*envFile, *configPath)
	if err != nil {
		log.Error("Failed to load config", "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *spotifyLogin {
		if err := loginSpotify(ctx, cfg.Spotify); err != nil {
			log.Error("Spotify login failed", "err", err)
			os.Exit(1)
		}
		return
	}

	a, err := app.Build(ctx, cfg, app.Options{
		Proxy:         *proxyAddr,
		Transcription: !*textMode,
	})
	if err != nil {
		log.Error("Failed to boot", "err", err)
		os.Exit(1)
	}
	defer a.Close()

	if *metricsAddr != "" {
		go func() {
			if err := a.Metrics.Serve(ctx, *metricsAddr); err != nil {
				log.Error("Metrics server failed", "err", err)
			}
		}()
	}

	log.Info("Boot up - successful")

	switch {
	case *textMode:
		err = chat(ctx, a.Assistant, os.Stdin, os.Stdout)
	case *audioFile != "":
		err = runFile(ctx, a, *audioFile)
	default:
		err = runVoice(ctx, stop, a, *socket, *listen)
	}
	if err != nil {
		log.Error("Marvin stopped", "err", err)
		a.Close()
		os.Exit(1)
	}
}

func loginSpotify(ctx context.Context, cfg config.Spotify) error {
	tok, err := spotify.Login(ctx, cfg, browser.OpenURL)
	if err != nil {
		return err
	}
	if tok.RefreshToken == "" {
		return errors.New("no refresh token granted")
	}
	fmt.Printf("SPOTIFY_REFRESH_TOKEN=%s\n", tok.RefreshToken)
	return nil
}

func runFile(ctx context.Context, a *app.App, path string) error {
	if a.Transcriber == nil {
		return errors.New("no transcription backend")
	}
	pcm, err := audioconv.DecodeFile(path, audioconv.Options{})
	if err != nil {
		return err
	}
	text, err := a.Transcriber.Transcribe(ctx, pcm)
	if err != nil {
		return err
	}
	log.Info("Transcribed", "text", text)

	reply := a.Assistant.Handle(text)
	fmt.Println(reply)
	return a.Voice.Speak(reply)
}

func runVoice(ctx context.Context, stop context.CancelFunc, a *app.App, socket string, listen bool) error {
	if a.Transcriber == nil {
		return errors.New("no transcription backend")
	}

	rec := audio.NewRecorder(audio.DefaultRecorderOptions())
	if err := rec.Init(); err != nil {
		return fmt.Errorf("init audio: %w", err)
	}
	defer rec.Close()
	log.Debug("Loaded recorder")

	cfg := a.Config.Voice
	sess := voice.NewSession(voice.Config{
		WakeWord:   cfg.WakeWord,
		DuckFactor: cfg.DuckFactor,
		DuckFade:   cfg.DuckFade,
		Cue: func() {
			if cfg.BeepSound == "" {
				return
			}
			if err := notify.Play(cfg.BeepSound); err != nil {
				log.Debug("Failed to play cue", "err", err)
			}
		},
	}, rec, a.Transcriber, a.Voice, a.Assistant, audio.NewDucker([]string{"marvin", "espeak"}, 5))

	srv, err := ipc.StartServer(ctx, socket, control(stop, a, sess, listen))
	if err != nil {
		return fmt.Errorf("ipc server: %w", err)
	}
	defer srv.Close()

	if listen {
		err := sess.Run(ctx)
		stop()
		return err
	}

	log.Info("Waiting for triggers", "socket", socket)
	<-ctx.Done()
	return nil
}

func control(stop context.CancelFunc, a *app.App, sess *voice.Session, listen bool) ipc.Handler {
	return func(ctx context.Context, msg ipc.ControlMessage) ipc.Reply {
		var reply string
		switch msg.Cmd {
		case ipc.CmdTrigger:
			if listen {
				return ipc.Reply{Error: "already listening for the wake word"}
			}
			_ = notify.Desktop("Marvin", "Ouvindo...")
			turn, err := sess.Trigger(ctx)
			if err != nil {
				return ipc.Reply{Error: err.Error()}
			}
			reply = turn.Reply
		case ipc.CmdSay:
			reply = a.Assistant.Handle(msg.Text)
			if err := a.Voice.Speak(reply); err != nil {
				log.Error("Failed to voice out", "err", err)
			}
		default:
			log.Warn("Unknown command", "cmd", msg.Cmd)
			return ipc.Reply{Error: fmt.Sprintf("unknown command %q", msg.Cmd)}
		}

		if assistant.IsFarewell(reply) {
			stop()
		}
		return ipc.Reply{Text: reply}
	}
}
