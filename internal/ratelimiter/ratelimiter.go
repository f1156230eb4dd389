package ratelimiter

import (
	"context"
	"fmt"
	"log/slog"

	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	privateChatRate = time.Second
	groupChatRate   = 3 * time.Second
	queueSize       = 1000
)

// Sender is the part of the Telegram API the limiter paces.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

type request struct {
	message  tgbotapi.Chattable
	response chan response
}

type response struct {
	message tgbotapi.Message
	err     error
}

// RateLimiter serializes outgoing messages and paces them per chat: one per
// second in private chats, one per three seconds in groups.
type RateLimiter struct {
	api     Sender
	queue   chan request
	private *Keyed
	group   *Keyed
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
	log     *slog.Logger
}

func New(api Sender, log *slog.Logger) *RateLimiter {
	ctx, cancel := context.WithCancel(context.Background())

	rl := &RateLimiter{
		api:     api,
		queue:   make(chan request, queueSize),
		private: NewKeyed(privateChatRate, 1),
		group:   NewKeyed(groupChatRate, 1),
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
		log:     log,
	}

	go rl.processQueue()

	return rl
}

func (rl *RateLimiter) Send(
	message tgbotapi.Chattable,
) (tgbotapi.Message, error) {
	req := request{
		message:  message,
		response: make(chan response, 1),
	}

	select {
	case rl.queue <- req:
	case <-rl.ctx.Done():
		return tgbotapi.Message{}, rl.ctx.Err()
	}

	select {
	case resp := <-req.response:
		return resp.message, resp.err
	case <-rl.done:
		return tgbotapi.Message{}, rl.ctx.Err()
	}
}

// Request bypasses the queue. Chat actions and callback answers are not paced.
func (rl *RateLimiter) Request(
	c tgbotapi.Chattable,
) (*tgbotapi.APIResponse, error) {
	return rl.api.Request(c)
}

func (rl *RateLimiter) Stop() {
	rl.cancel()
	<-rl.done
}

func (rl *RateLimiter) processQueue() {
	defer close(rl.done)

	for {
		select {
		case req := <-rl.queue:
			rl.handleRequest(req)
		case <-rl.ctx.Done():
			for {
				select {
				case req := <-rl.queue:
					req.response <- response{err: rl.ctx.Err()}
				default:
					return
				}
			}
		}
	}
}

func (rl *RateLimiter) handleRequest(req request) {
	chatID := getChatID(req.message)
	limiter := rl.limiterFor(chatID)

	if delay := limiter.Delay(chatID); delay > 0 {
		rl.log.DebugContext(rl.ctx, "Rate limiting message",
			"chatID", chatID,
			"delay", delay,
			"chattableType", fmt.Sprintf("%T", req.message),
			"queueLen", len(rl.queue))
	}

	if err := limiter.Wait(rl.ctx, chatID); err != nil {
		req.response <- response{err: err}

		return
	}

	message, err := rl.api.Send(req.message)

	req.response <- response{
		message: message,
		err:     err,
	}
}

func (rl *RateLimiter) limiterFor(chatID int64) *Keyed {
	if chatID < 0 {
		return rl.group
	}

	return rl.private
}

func getChatID(message tgbotapi.Chattable) int64 {
	switch m := message.(type) {
	case tgbotapi.MessageConfig:
		return m.ChatID
	case tgbotapi.DocumentConfig:
		return m.ChatID
	case tgbotapi.EditMessageTextConfig:
		return m.ChatID
	case tgbotapi.DeleteMessageConfig:
		return m.ChatID
	case tgbotapi.ChatActionConfig:
		return m.ChatID
	default:
		return 0
	}
}
