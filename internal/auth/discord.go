package auth

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"golang.org/x/oauth2"

	"github.com/spec-kit/discord-ticket-service/internal/config"
	"github.com/spec-kit/discord-ticket-service/internal/domain"
)

// Discord OAuth2 endpoints.
var discordEndpoint = oauth2.Endpoint{
	AuthURL:   "https://discord.com/oauth2/authorize",
	TokenURL:  "https://discord.com/api/oauth2/token",
	AuthStyle: oauth2.AuthStyleInParams,
}

const maxUserGuilds = 200

// DiscordIdentityProvider resolves dashboard logins through Discord OAuth2.
type DiscordIdentityProvider struct {
	oauth *oauth2.Config
}

// NewDiscordIdentityProvider builds the provider from Discord app credentials.
func NewDiscordIdentityProvider(cfg config.DiscordConfig) *DiscordIdentityProvider {
	return &DiscordIdentityProvider{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Scopes:       []string{"identify", "email", "guilds"},
			Endpoint:     discordEndpoint,
		},
	}
}

// AuthorizeURL returns the consent page URL carrying state.
func (p *DiscordIdentityProvider) AuthorizeURL(state string) string {
	return p.oauth.AuthCodeURL(state)
}

// ResolveLogin exchanges the code and loads the user's profile and guilds.
func (p *DiscordIdentityProvider) ResolveLogin(ctx context.Context, code string) (*domain.LoginProfile, error) {
	token, err := p.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchange code: %w", err)
	}
	session, err := discordgo.New("Bearer " + token.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("discord session: %w", err)
	}
	user, err := session.User("@me", discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("fetch user: %w", err)
	}
	guilds, err := session.UserGuilds(maxUserGuilds, "", "", false, discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("fetch guilds: %w", err)
	}
	return profileFromDiscord(user, guilds), nil
}

func profileFromDiscord(user *discordgo.User, guilds []*discordgo.UserGuild) *domain.LoginProfile {
	profile := &domain.LoginProfile{
		ExternalID:  user.ID,
		DisplayName: user.Username,
	}
	if user.GlobalName != "" {
		profile.DisplayName = user.GlobalName
	}
	if user.Avatar != "" {
		avatar := user.AvatarURL("")
		profile.AvatarRef = &avatar
	}
	if user.Email != "" {
		email := user.Email
		profile.Email = &email
	}
	for _, g := range guilds {
		if g == nil {
			continue
		}
		membership := domain.GuildMembership{
			GuildID: g.ID,
			Name:    g.Name,
			IsAdmin: g.Owner || g.Permissions&discordgo.PermissionAdministrator != 0,
		}
		if g.Icon != "" {
			icon := fmt.Sprintf("https://cdn.discordapp.com/icons/%s/%s.png", g.ID, g.Icon)
			membership.IconRef = &icon
		}
		profile.Guilds = append(profile.Guilds, membership)
	}
	return profile
}
