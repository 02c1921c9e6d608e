// Package whatsapp sends messages through WhatsApp Web. The browser profile
// must already be paired with a phone.
package whatsapp

import (
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"

	"marvin/internal/assistant"
	"marvin/internal/capability"
)

const (
	home       = "https://web.whatsapp.com"
	sideSel    = `#side`
	searchSel  = `#side div[contenteditable="true"]`
	composeSel = `footer div[contenteditable="true"]`
)

type Runner interface {
	Run(ctx context.Context, actions ...chromedp.Action) error
}

type Option func(*Service)

// WithTimeout bounds one delivery, page load included.
func WithTimeout(d time.Duration) Option {
	return func(s *Service) { s.timeout = d }
}

// WithReport receives the outcome of every delivery.
func WithReport(f func(contact string, res capability.Result)) Option {
	return func(s *Service) { s.report = f }
}

// Service delivers messages in the background: Send returns as soon as the
// delivery is queued and the outcome goes to the report callback.
type Service struct {
	tab     Runner
	timeout time.Duration
	report  func(contact string, res capability.Result)

	wg sync.WaitGroup
}

var _ assistant.Messenger = (*Service)(nil)

func New(tab Runner, opts ...Option) *Service {
	s := &Service{
		tab:     tab,
		timeout: 2 * time.Minute,
		report:  func(string, capability.Result) {},
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Service) Send(_ context.Context, contact, message string) capability.Result {
	contact, message = strings.TrimSpace(contact), strings.TrimSpace(message)
	if contact == "" || message == "" {
		return capability.Errorf("Contato e mensagem são obrigatórios.")
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()

		res := s.deliver(ctx, contact, message)
		log.Info("WhatsApp delivery finished", "contact", contact, "status", res.Status)
		s.report(contact, res)
	}()
	return capability.Success("Enviando mensagem para '%s'.", contact)
}

// Wait blocks until every queued delivery has finished.
func (s *Service) Wait() {
	s.wg.Wait()
}

func (s *Service) deliver(ctx context.Context, contact, message string) capability.Result {
	err := s.tab.Run(ctx, s.actions(contact, message)...)
	switch {
	case err == nil:
		return capability.Success("Mensagem enviada para '%s'.", contact)
	case errors.Is(err, context.DeadlineExceeded):
		return capability.Errorf("Tempo esgotado ao enviar mensagem para '%s'. Verifique se o WhatsApp Web está conectado.", contact)
	default:
		return capability.Fail(err, fmt.Sprintf("Erro ao enviar mensagem para '%s'", contact))
	}
}

func (s *Service) actions(contact, message string) []chromedp.Action {
	return []chromedp.Action{
		chromedp.Navigate(home),
		chromedp.WaitVisible(sideSel, chromedp.ByQuery),
		chromedp.Click(searchSel, chromedp.ByQuery),
		chromedp.SendKeys(searchSel, contact, chromedp.ByQuery),
		chromedp.Sleep(1500 * time.Millisecond),
		chromedp.SendKeys(searchSel, kb.Enter, chromedp.ByQuery),
		chromedp.WaitVisible(composeSel, chromedp.ByQuery),
		chromedp.SendKeys(composeSel, message+kb.Enter, chromedp.ByQuery),
		chromedp.Sleep(time.Second),
	}
}
