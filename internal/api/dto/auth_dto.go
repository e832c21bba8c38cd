package dto

import "time"

// DiscordLoginRequest carries the OAuth2 authorization code and the state echoed back by
// Discord on the redirect.
type DiscordLoginRequest struct {
	Code  string `json:"code"`
	State string `json:"state"`
}

// AuthorizeURLResponse points the dashboard at the Discord consent page.
type AuthorizeURLResponse struct {
	URL   string `json:"url"`
	State string `json:"state"`
}

// AuthResponse standard response for auth endpoints.
type AuthResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// LoginResponse is returned after a successful Discord login.
type LoginResponse struct {
	Actor       ActorResponse      `json:"user"`
	Communities []CommunitySummary `json:"servers"`
	Auth        AuthResponse       `json:"auth"`
}
