// Package telegram implements notify.Channel on the Telegram Bot API.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"ton-buy-tracker/internal/notify"
)

// BookButtonText is the label of the inline button attached to channel posts.
const BookButtonText = "🔥 Book Trending"

const defaultTimeout = 15 * time.Second

// sender is the subset of *tgbotapi.BotAPI used here.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Bot delivers messages through a Telegram bot.
type Bot struct {
	api      sender
	username string
	logger   *zap.Logger
}

var _ notify.Channel = (*Bot)(nil)

type options struct {
	endpoint   string
	httpClient *http.Client
	logger     *zap.Logger
}

// Option configures a Bot.
type Option func(*options)

// WithEndpoint overrides the Bot API endpoint format (see tgbotapi.APIEndpoint).
func WithEndpoint(endpoint string) Option {
	return func(o *options) {
		o.endpoint = endpoint
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(o *options) {
		o.httpClient = client
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// New authenticates the bot token and returns a ready Bot.
func New(token string, opts ...Option) (*Bot, error) {
	o := options{
		endpoint:   tgbotapi.APIEndpoint,
		httpClient: &http.Client{Timeout: defaultTimeout},
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	api, err := tgbotapi.NewBotAPIWithClient(token, o.endpoint, o.httpClient)
	if err != nil {
		return nil, fmt.Errorf("connect telegram bot: %w", err)
	}
	o.logger.Info("telegram bot authorized", zap.String("username", api.Self.UserName))
	return &Bot{api: api, username: api.Self.UserName, logger: o.logger}, nil
}

// Username returns the bot's username without the leading @.
func (b *Bot) Username() string {
	return b.username
}

// Send posts an HTML message with link previews disabled and returns its id.
func (b *Bot) Send(ctx context.Context, dest notify.Destination, text string, opts notify.SendOptions) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	var msg tgbotapi.MessageConfig
	if dest.Username != "" {
		msg = tgbotapi.NewMessageToChannel(dest.Username, text)
	} else {
		msg = tgbotapi.NewMessage(dest.ChatID, text)
	}
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	if opts.BookButtonURL != "" {
		msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonURL(BookButtonText, opts.BookButtonURL),
			),
		)
	}

	sent, err := b.api.Send(msg)
	if err != nil {
		return 0, fmt.Errorf("send to %s: %w", dest, classify(err))
	}
	b.logger.Debug("message sent", zap.Stringer("dest", dest), zap.Int("message_id", sent.MessageID))
	return sent.MessageID, nil
}

// Edit replaces the text of a previously sent message.
func (b *Bot) Edit(ctx context.Context, dest notify.Destination, messageID int, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	edit := tgbotapi.EditMessageTextConfig{
		BaseEdit: tgbotapi.BaseEdit{
			ChatID:          dest.ChatID,
			ChannelUsername: dest.Username,
			MessageID:       messageID,
		},
		Text:                  text,
		ParseMode:             tgbotapi.ModeHTML,
		DisableWebPagePreview: true,
	}
	if _, err := b.api.Send(edit); err != nil {
		return fmt.Errorf("edit %d in %s: %w", messageID, dest, classify(err))
	}
	return nil
}

// classify maps Bot API error descriptions onto notify sentinels.
func classify(err error) error {
	var apiErr *tgbotapi.Error
	if !errors.As(err, &apiErr) {
		return err
	}

	desc := apiErr.Message
	lower := strings.ToLower(desc)
	switch {
	case strings.Contains(lower, "message to edit not found"):
		return fmt.Errorf("%w: %s", notify.ErrMessageNotFound, desc)
	case strings.Contains(lower, "message is not modified"):
		return fmt.Errorf("%w: %s", notify.ErrMessageNotModified, desc)
	default:
		return err
	}
}
