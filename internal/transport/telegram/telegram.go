// Package telegram delivers message bodies to a fixed Telegram chat.
package telegram

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
	tele "gopkg.in/telebot.v4"

	logx "sendrelay/pkg/logx"
)

type Config struct {
	Token      string
	ChatID     int64
	RatePerSec int           // Bot API throttle; default 1
	Timeout    time.Duration // per-call HTTP timeout; default 10s
}

type Transport struct {
	bot    *tele.Bot
	chatID int64
	// limiter keeps us under the Bot API's per-chat message budget. This is
	// a transport-local throttle, separate from the sender's rate budget.
	limiter *rate.Limiter
	log     logx.Logger
}

func New(cfg Config, log logx.Logger) (*Transport, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("telegram token is required")
	}
	if cfg.ChatID == 0 {
		return nil, errors.New("telegram chat_id is required")
	}
	rps := cfg.RatePerSec
	if rps <= 0 {
		rps = 1
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if log.IsZero() {
		log = logx.Nop()
	}

	bot, err := tele.NewBot(tele.Settings{
		Token:  cfg.Token,
		Client: &http.Client{Timeout: timeout},
	})
	if err != nil {
		return nil, err
	}

	return &Transport{
		bot:     bot,
		chatID:  cfg.ChatID,
		limiter: rate.NewLimiter(rate.Limit(rps), rps),
		log:     log,
	}, nil
}

func (t *Transport) Send(ctx context.Context, body string) error {
	if err := t.limiter.Wait(ctx); err != nil {
		return err
	}
	_, err := t.bot.Send(tele.ChatID(t.chatID), body)
	if err != nil {
		t.log.Debug("telegram send failed", logx.Err(err))
	}
	return err
}
