package bot

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/spec-kit/discord-ticket-service/internal/domain"
	"github.com/spec-kit/discord-ticket-service/internal/service"
)

const handleTimeout = 30 * time.Second

// MessageRouter routes one inbound direct message.
type MessageRouter interface {
	HandleDirectMessage(ctx context.Context, msg service.InboundMessage) (*service.RouteResult, error)
}

// Bot listens on the Discord gateway and forwards direct messages to the router.
type Bot struct {
	session *discordgo.Session
	router  MessageRouter
	logger  *zap.Logger
}

// NewSession builds a bot-authenticated session with the intents the router needs.
func NewSession(token string) (*discordgo.Session, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsDirectMessages |
		discordgo.IntentsMessageContent
	return session, nil
}

// New builds the bot.
func New(session *discordgo.Session, router MessageRouter, logger *zap.Logger) *Bot {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bot{session: session, router: router, logger: logger}
}

// Start opens the gateway connection and blocks until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	remove := b.session.AddHandler(func(_ *discordgo.Session, m *discordgo.MessageCreate) {
		b.handleMessage(ctx, m.Message)
	})
	defer remove()

	if err := b.session.Open(); err != nil {
		return fmt.Errorf("open gateway: %w", err)
	}
	if b.session.State != nil && b.session.State.User != nil {
		b.logger.Info("bot connected", zap.String("username", b.session.State.User.Username))
	}

	<-ctx.Done()
	b.logger.Info("context cancelled, stopping bot")
	return b.session.Close()
}

func (b *Bot) handleMessage(ctx context.Context, m *discordgo.Message) {
	msg, ok := inboundFromMessage(m)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, handleTimeout)
	defer cancel()

	result, err := b.router.HandleDirectMessage(ctx, msg)
	if err != nil {
		// the router already replied and logged
		return
	}
	b.logger.Debug("direct message handled",
		zap.String("author", msg.AuthorExternalID),
		zap.String("outcome", string(result.Outcome)))
}

// inboundFromMessage keeps only direct messages from humans.
func inboundFromMessage(m *discordgo.Message) (service.InboundMessage, bool) {
	if m == nil || m.Author == nil || m.Author.Bot || m.GuildID != "" {
		return service.InboundMessage{}, false
	}
	attachments := make([]domain.AttachmentReference, 0, len(m.Attachments))
	for _, a := range m.Attachments {
		if a == nil {
			continue
		}
		attachments = append(attachments, domain.AttachmentReference{Ref: a.URL, FileName: a.Filename})
	}
	return service.InboundMessage{
		AuthorExternalID: m.Author.ID,
		Content:          m.Content,
		Attachments:      attachments,
	}, true
}
