// Package bot answers alert queries over the Telegram Bot API.
package bot

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"github.com/pmarren/alertline/internal/aggregate"
	"github.com/pmarren/alertline/internal/lifecycle"
	"github.com/pmarren/alertline/internal/storage"
)

const (
	commandName        = "alerts"
	commandDescription = "Query market alerts by category, e.g. /alerts crypto"
)

// gateway is the subset of *tgbotapi.BotAPI the bot needs, narrowed so
// tests can substitute a fake.
type gateway interface {
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Config holds bot construction parameters. HomeChatID is optional: when
// non-zero the alerts command is also registered in that chat's scope,
// which makes it available immediately during development.
type Config struct {
	API        gateway
	Store      storage.Store
	Errors     lifecycle.ErrorHandler
	HomeChatID int64
	Log        zerolog.Logger
}

// Bot runs the long-poll update loop and serves the alerts command.
type Bot struct {
	api        gateway
	store      storage.Store
	errors     lifecycle.ErrorHandler
	homeChatID int64
	log        zerolog.Logger

	done     chan struct{}
	stopping atomic.Bool
	stopOnce sync.Once
}

// New creates a bot bound to an authenticated gateway client.
func New(cfg Config) *Bot {
	return &Bot{
		api:        cfg.API,
		store:      cfg.Store,
		errors:     cfg.Errors,
		homeChatID: cfg.HomeChatID,
		log:        cfg.Log.With().Str("component", "bot").Logger(),
		done:       make(chan struct{}),
	}
}

// Name implements lifecycle.Service.
func (b *Bot) Name() string { return "command-bot" }

// Run registers the alerts command and then consumes updates until the
// context is cancelled. A registration failure is a setup error: it is
// escalated and returned, because an unregistered command makes the
// service useless.
func (b *Bot) Run(ctx context.Context) error {
	// Commands are handled on their own goroutines so a slow store call
	// cannot stall the update stream; drain them before confirming exit.
	var handlers sync.WaitGroup
	defer close(b.done)
	defer handlers.Wait()

	if err := b.registerCommands(); err != nil {
		b.errors.OnError(lifecycle.SetupError, err)
		return err
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.api.GetUpdatesChan(u)

	b.log.Info().Msg("Listening for commands")
	for {
		select {
		case <-ctx.Done():
			return nil
		case update, ok := <-updates:
			if !ok {
				if ctx.Err() != nil || b.stopping.Load() {
					return nil
				}
				// The gateway died underneath us; fatal, takes the
				// process down with it.
				return fmt.Errorf("gateway update stream closed unexpectedly")
			}
			if update.Message != nil && update.Message.IsCommand() {
				handlers.Add(1)
				go func(msg *tgbotapi.Message) {
					defer handlers.Done()
					b.handleCommand(ctx, msg)
				}(update.Message)
			}
		}
	}
}

// Stop instructs the gateway to stop delivering updates and waits for the
// run loop to confirm exit. The wait is bounded by ctx so a shutdown
// arriving before the session was ever established cannot spin forever.
func (b *Bot) Stop(ctx context.Context) error {
	b.stopOnce.Do(func() {
		b.stopping.Store(true)
		b.api.StopReceivingUpdates()
	})
	select {
	case <-b.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("bot did not confirm shutdown: %w", ctx.Err())
	}
}

// registerCommands registers the alerts command globally and, when a home
// chat is configured, in that chat's scope as well.
func (b *Bot) registerCommands() error {
	command := tgbotapi.BotCommand{Command: commandName, Description: commandDescription}

	if b.homeChatID != 0 {
		scoped := tgbotapi.NewSetMyCommandsWithScope(
			tgbotapi.NewBotCommandScopeChat(b.homeChatID), command,
		)
		if _, err := b.api.Request(scoped); err != nil {
			return fmt.Errorf("failed to register commands in home chat %d: %w", b.homeChatID, err)
		}
	}

	global := tgbotapi.NewSetMyCommands(command)
	if _, err := b.api.Request(global); err != nil {
		return fmt.Errorf("failed to register global commands: %w", err)
	}

	b.log.Info().Int64("home_chat_id", b.homeChatID).Msg("Commands registered")
	return nil
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	b.log.Info().Str("command", msg.Command()).Msg("Received command")

	switch msg.Command() {
	case commandName:
		b.handleAlerts(ctx, msg)
	}
}

func (b *Bot) handleAlerts(ctx context.Context, msg *tgbotapi.Message) {
	category := strings.TrimSpace(msg.CommandArguments())

	// A missing category is a no-result query, not an error. This is
	// distinct from an explicit empty substring, which would match all.
	if category == "" {
		b.reply(msg.Chat.ID, formatAlertsMessage(nil))
		return
	}

	alerts, err := b.store.FindByCategory(ctx, category)
	if err != nil {
		b.errors.OnError(lifecycle.InternalError, fmt.Errorf("failed to query alerts: %w", err))
		b.reply(msg.Chat.ID, escapeMarkdownV2("alerts temporarily unavailable, try again later"))
		return
	}

	fields := aggregate.GroupByInterval(alerts).Fields()
	b.reply(msg.Chat.ID, formatAlertsMessage(fields))
}

// reply sends a MarkdownV2 message; a send failure is an interaction
// error and never fatal.
func (b *Bot) reply(chatID int64, text string) {
	reply := tgbotapi.NewMessage(chatID, text)
	reply.ParseMode = tgbotapi.ModeMarkdownV2
	if _, err := b.api.Send(reply); err != nil {
		b.errors.OnError(lifecycle.InteractionError, fmt.Errorf("failed to send reply: %w", err))
	}
}

// formatAlertsMessage renders the aggregated view: one line per interval,
// tickers comma-joined. Fields arrive already sorted.
func formatAlertsMessage(fields []aggregate.Field) string {
	if len(fields) == 0 {
		return "no matching alerts"
	}

	var sb strings.Builder
	sb.WriteString("*alerts found*\n")
	for _, f := range fields {
		sb.WriteString(fmt.Sprintf("%s: %s\n", escapeMarkdownV2(f.Name), escapeMarkdownV2(f.Value)))
	}
	return sb.String()
}

// escapeMarkdownV2 escapes special characters for Telegram MarkdownV2.
func escapeMarkdownV2(text string) string {
	var b strings.Builder
	b.Grow(len(text) + len(text)/4)
	for _, char := range text {
		switch char {
		case '_', '*', '[', ']', '(', ')', '~', '`', '>', '#', '+', '-', '=', '|', '{', '}', '.', '!':
			b.WriteByte('\\')
		}
		b.WriteRune(char)
	}
	return b.String()
}
