// Package youtube drives YouTube in a browser tab: search, open results,
// control the player and skip ads.
package youtube

import (
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"net/url"

	"github.com/chromedp/cdproto"
	"github.com/chromedp/cdproto/browser"
	"github.com/chromedp/chromedp"

	"marvin/internal/assistant"
	"marvin/internal/capability"
)

const (
	resultsSel = `ytd-video-renderer, ytd-playlist-renderer, ytd-channel-renderer`
	videoSel   = `a#video-title`
	channelSel = `ytd-channel-renderer a#main-link`
)

// skipSelectors are tried in order by SkipAdDOM.
var skipSelectors = []string{
	`.ytp-ad-skip-button`,
	`.ytp-ad-skip-button-modern`,
	`.ytp-skip-ad-button`,
	`button[aria-label="Skip Ad"]`,
	`button[aria-label="Pular anúncio"]`,
	`#skip-button button`,
}

// Runner runs browser actions on one tab.
type Runner interface {
	Run(ctx context.Context, actions ...chromedp.Action) error
}

type Point struct{ X, Y float64 }

type Service struct {
	tab Runner
	// SkipPoint is where the skip button usually sits in a maximised
	// window.
	SkipPoint Point
}

var _ assistant.VideoBrowser = (*Service)(nil)

func New(tab Runner) *Service {
	return &Service{tab: tab, SkipPoint: Point{X: 1332, Y: 787}}
}

func (s *Service) Search(ctx context.Context, query string) capability.Result {
	if query == "" {
		return capability.Errorf("A pesquisa não pode estar vazia.")
	}
	u := "https://www.youtube.com/results?search_query=" + url.QueryEscape(query)
	err := s.tab.Run(ctx,
		chromedp.Navigate(u),
		chromedp.WaitVisible(resultsSel, chromedp.ByQuery),
	)
	if err != nil {
		return fail(err, fmt.Sprintf("Erro ao pesquisar '%s' no YouTube", query))
	}
	return capability.Success("Resultados para '%s' carregados.", query)
}

type clicked struct {
	Title string `json:"title"`
	Count int    `json:"count"`
}

const clickScript = `(() => {
	const videos = document.querySelectorAll(%q);
	const v = videos[%d];
	if (!v) return {title: "", count: videos.length};
	v.scrollIntoView({block: "center"});
	v.click();
	return {title: v.title || v.textContent.trim(), count: videos.length};
})()`

func (s *Service) ClickResult(ctx context.Context, position int) capability.Result {
	if position < 1 {
		return capability.Errorf("A posição do vídeo deve ser 1 ou maior.")
	}

	var res clicked
	err := s.tab.Run(ctx,
		chromedp.WaitVisible(videoSel, chromedp.ByQuery),
		chromedp.Evaluate(fmt.Sprintf(clickScript, videoSel, position-1), &res),
	)
	if err != nil {
		return fail(err, "Erro ao clicar no vídeo")
	}
	return clickOutcome(res, position)
}

func clickOutcome(res clicked, position int) capability.Result {
	switch {
	case res.Count == 0:
		return capability.Errorf("Nenhum vídeo encontrado na página.")
	case res.Title == "" && position > res.Count:
		return capability.Errorf("A posição %d está fora do intervalo. Encontrei %d vídeos.", position, res.Count)
	case res.Title == "":
		return capability.Success("Abrindo o vídeo na posição %d.", position)
	default:
		return capability.Success("Abrindo o vídeo '%s' (posição %d).", res.Title, position)
	}
}

func (s *Service) SelectChannel(ctx context.Context) capability.Result {
	var name string
	err := s.tab.Run(ctx,
		chromedp.WaitVisible(channelSel, chromedp.ByQuery),
		chromedp.Evaluate(`(document.querySelector("ytd-channel-renderer #text") || {}).textContent || ""`, &name),
		chromedp.Click(channelSel, chromedp.ByQuery),
		chromedp.WaitVisible(`#tabsContent, #tabs-container`, chromedp.ByQuery),
	)
	if err != nil {
		return fail(err, "Erro ao selecionar o canal")
	}
	if name == "" {
		return capability.Success("Canal selecionado.")
	}
	return capability.Success("Canal '%s' selecionado.", name)
}

const toggleScript = `(() => {
	const v = document.querySelector("video");
	if (!v) return "";
	if (v.paused) { v.play(); return "play"; }
	v.pause();
	return "pause";
})()`

func (s *Service) Control(ctx context.Context, action assistant.VideoAction) capability.Result {
	switch action {
	case assistant.VideoTogglePause:
		var state string
		if err := s.tab.Run(ctx, chromedp.Evaluate(toggleScript, &state)); err != nil {
			return fail(err, "Erro ao controlar o vídeo")
		}
		switch state {
		case "play":
			return capability.Success("Vídeo retomado.")
		case "pause":
			return capability.Success("Vídeo pausado.")
		default:
			return capability.Errorf("Nenhum vídeo encontrado para controlar.")
		}

	case assistant.VideoFullscreen:
		return s.window(ctx, browser.WindowStateFullscreen, "Tela cheia ativada.")
	case assistant.VideoExitFullscreen:
		return s.window(ctx, browser.WindowStateNormal, "Saindo da tela cheia.")
	case assistant.VideoMaximize:
		return s.window(ctx, browser.WindowStateMaximized, "Janela maximizada.")
	}
	return capability.Errorf("Ação de vídeo desconhecida: %s", action)
}

func (s *Service) window(ctx context.Context, state browser.WindowState, done string) capability.Result {
	err := s.tab.Run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		id, _, err := browser.GetWindowForTarget().Do(ctx)
		if err != nil {
			return err
		}
		// a window must be normal before it can change to another state
		if state != browser.WindowStateNormal {
			if err := browser.SetWindowBounds(id, &browser.Bounds{WindowState: browser.WindowStateNormal}).Do(ctx); err != nil {
				return err
			}
		}
		return browser.SetWindowBounds(id, &browser.Bounds{WindowState: state}).Do(ctx)
	}))
	if err != nil {
		return fail(err, "Erro ao ajustar a janela")
	}
	return capability.Success("%s", done)
}

const skipScript = `(() => {
	for (const sel of %s) {
		const b = document.querySelector(sel);
		if (b && b.offsetParent !== null) { b.click(); return sel; }
	}
	return "";
})()`

// SkipAdDOM clicks the first visible skip button on the page.
func (s *Service) SkipAdDOM(ctx context.Context) capability.Result {
	var hit string
	err := s.tab.Run(ctx, chromedp.Evaluate(fmt.Sprintf(skipScript, jsArray(skipSelectors)), &hit))
	if err != nil {
		return fail(err, "Erro ao procurar o botão de pular anúncio")
	}
	if hit == "" {
		return capability.Info("Nenhum botão de pular anúncio encontrado.")
	}
	log.Debug("Skipped ad", "selector", hit)
	return capability.Success("Anúncio pulado.")
}

// SkipAdPointer clicks where the skip button normally is.
func (s *Service) SkipAdPointer(ctx context.Context) capability.Result {
	err := s.tab.Run(ctx, chromedp.MouseClickXY(s.SkipPoint.X, s.SkipPoint.Y))
	if err != nil {
		return fail(err, "Erro ao clicar na posição do anúncio")
	}
	return capability.Success("Tentei clicar no botão de pular anúncio.")
}

func (s *Service) Back(ctx context.Context) capability.Result {
	err := s.tab.Run(ctx,
		chromedp.NavigateBack(),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
	if err != nil {
		return fail(err, "Erro ao voltar a página")
	}
	return capability.Success("Voltei para a página anterior.")
}

func fail(err error, msg string) capability.Result {
	log.Error(msg, "err", err)
	if errors.Is(err, context.DeadlineExceeded) {
		return capability.Errorf("%s: tempo esgotado.", msg)
	}
	var ee *cdproto.Error
	if errors.As(err, &ee) {
		return capability.Errorf("%s: %s", msg, ee.Message)
	}
	return capability.Fail(err, msg)
}

func jsArray(items []string) string {
	out := "["
	for i, it := range items {
		if i > 0 {
			out += ", "
		}
		out += fmt.Sprintf("%q", it)
	}
	return out + "]"
}
