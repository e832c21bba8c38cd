package domain

// LoginProfile is what the identity provider resolves from an authorization code.
type LoginProfile struct {
	ExternalID  string
	DisplayName string
	AvatarRef   *string
	Email       *string
	Guilds      []GuildMembership
}

// GuildMembership is one guild the logging-in user belongs to.
// IsAdmin is the only signal used to provision a Community for the guild.
type GuildMembership struct {
	GuildID string
	Name    string
	IconRef *string
	IsAdmin bool
}

// AdminGuilds returns the guilds the user administers.
func (p *LoginProfile) AdminGuilds() []GuildMembership {
	var out []GuildMembership
	for _, g := range p.Guilds {
		if g.IsAdmin {
			out = append(out, g)
		}
	}
	return out
}
