package telegram

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/freightdesk/internal/logger"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const defaultHTTPTimeout = 15 * time.Second

// Sender 基于 Bot API 的消息发送器，按 token 复用客户端
type Sender struct {
	endpoint string
	client   *http.Client

	mu   sync.Mutex
	bots map[string]*tgbotapi.BotAPI
}

// NewSender 创建发送器；endpoint 为空时使用官方地址，格式同 tgbotapi.APIEndpoint
func NewSender(endpoint string, timeout time.Duration) *Sender {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	return &Sender{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
		bots:     make(map[string]*tgbotapi.BotAPI),
	}
}

// Send 以 HTML 模式发送消息；chatID 可以是数字 ID 或 @channel
func (s *Sender) Send(ctx context.Context, botToken, chatID, text string) error {
	botToken = strings.TrimSpace(botToken)
	chatID = strings.TrimSpace(chatID)
	if botToken == "" {
		return errors.New("bot token is empty")
	}
	if chatID == "" {
		return errors.New("chat id is empty")
	}

	msg, err := buildMessage(chatID, text)
	if err != nil {
		return err
	}

	done := make(chan error, 1)
	go func() {
		bot, err := s.bot(botToken)
		if err != nil {
			done <- err
			return
		}
		_, err = bot.Send(msg)
		done <- err
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Forget 丢弃缓存的客户端，token 更换后调用
func (s *Sender) Forget(botToken string) {
	s.mu.Lock()
	delete(s.bots, strings.TrimSpace(botToken))
	s.mu.Unlock()
}

func (s *Sender) bot(token string) (*tgbotapi.BotAPI, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if bot, ok := s.bots[token]; ok {
		return bot, nil
	}
	bot, err := tgbotapi.NewBotAPIWithClient(token, s.endpoint, s.client)
	if err != nil {
		return nil, fmt.Errorf("init telegram bot failed: %w", err)
	}
	logger.Debugw("telegram_bot_ready", "bot_username", bot.Self.UserName)
	s.bots[token] = bot
	return bot, nil
}

func buildMessage(chatID, text string) (tgbotapi.MessageConfig, error) {
	var msg tgbotapi.MessageConfig
	if strings.HasPrefix(chatID, "@") {
		msg = tgbotapi.NewMessageToChannel(chatID, text)
	} else {
		id, err := strconv.ParseInt(chatID, 10, 64)
		if err != nil {
			return msg, fmt.Errorf("invalid chat id %q", chatID)
		}
		msg = tgbotapi.NewMessage(id, text)
	}
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	return msg, nil
}
