// Package telegram narrates task activity to a Telegram chat and accepts a
// few control commands from that chat.
package telegram

import (
	"context"
	"errors"
	"strings"
	"time"

	"autokittens/internal/control"
	logx "autokittens/pkg/logx"

	tele "gopkg.in/telebot.v4"
)

type Config struct {
	Token    string
	ChatID   int64
	ThreadID int // forum topic; 0 for none
	// Commands enables polling for chat commands. Narration works without it.
	Commands    bool
	PollTimeout time.Duration
}

// Controller is the subset of task operations exposed to the chat.
type Controller interface {
	Tasks(ctx context.Context) ([]control.TaskView, error)
	Start(ctx context.Context, name string) (control.TaskView, error)
	Pause(ctx context.Context, name string) (control.TaskView, error)
	Execute(ctx context.Context, name string) (control.TaskView, error)
	StartAll(ctx context.Context) ([]string, error)
	PauseAll(ctx context.Context) ([]string, error)
}

type Bot struct {
	cfg  Config
	log  logx.Logger
	bot  *tele.Bot
	chat *tele.Chat
}

func New(cfg Config, log logx.Logger) (*Bot, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	if cfg.ChatID == 0 {
		return nil, errors.New("telegram chat_id is required")
	}
	timeout := cfg.PollTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	b, err := tele.NewBot(tele.Settings{
		Token:  cfg.Token,
		Poller: &tele.LongPoller{Timeout: timeout},
	})
	if err != nil {
		return nil, err
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Bot{
		cfg:  cfg,
		log:  log.With(logx.String("comp", "telegram")),
		bot:  b,
		chat: &tele.Chat{ID: cfg.ChatID},
	}, nil
}

// SendText posts text to the configured chat, splitting long messages.
func (b *Bot) SendText(ctx context.Context, text string) error {
	for _, chunk := range splitText(text, textLimit) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := b.bot.Send(b.chat, chunk, &tele.SendOptions{
			DisableWebPagePreview: true,
			ThreadID:              b.cfg.ThreadID,
		}); err != nil {
			return err
		}
	}
	return nil
}

// Run polls for commands until ctx is cancelled. It returns immediately when
// commands are disabled.
func (b *Bot) Run(ctx context.Context, ctrl Controller) error {
	if !b.cfg.Commands || ctrl == nil {
		return nil
	}
	b.register(ctrl)

	done := make(chan struct{})
	go func() {
		defer close(done)
		b.log.Info("polling started")
		b.bot.Start()
		b.log.Info("polling stopped")
	}()
	select {
	case <-ctx.Done():
		b.bot.Stop()
		<-done
		return nil
	case <-done:
		return errors.New("telegram poller exited")
	}
}
