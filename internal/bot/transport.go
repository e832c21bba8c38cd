package bot

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"
)

// Transport sends DMs and reports guild presence through a discordgo session.
type Transport struct {
	session *discordgo.Session
}

// NewTransport wraps an opened or about-to-be-opened session.
func NewTransport(session *discordgo.Session) *Transport {
	return &Transport{session: session}
}

// Reply opens (or reuses) the DM channel with the user and sends text.
func (t *Transport) Reply(ctx context.Context, externalID, text string) error {
	channel, err := t.session.UserChannelCreate(externalID, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("open dm channel: %w", err)
	}
	if _, err := t.session.ChannelMessageSend(channel.ID, text, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("send dm: %w", err)
	}
	return nil
}

// ListCurrentGuildIDs returns the guilds the bot is currently a member of.
func (t *Transport) ListCurrentGuildIDs(_ context.Context) ([]string, error) {
	state := t.session.State
	if state == nil {
		return nil, errors.New("discord state cache disabled")
	}
	state.RLock()
	defer state.RUnlock()
	ids := make([]string, 0, len(state.Guilds))
	for _, g := range state.Guilds {
		ids = append(ids, g.ID)
	}
	return ids, nil
}
