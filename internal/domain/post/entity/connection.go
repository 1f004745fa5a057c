package entity

import "time"

// Connection is a user's linked social account. Tokens are obtained elsewhere.
type Connection struct {
	UserID            string     `json:"user_id"`
	Platform          Platform   `json:"platform"`
	ExternalAccountID string     `json:"external_account_id"`
	AccessToken       string     `json:"-"`
	ExpiresAt         *time.Time `json:"expires_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// Expired reports whether the access token is past its expiry
func (c *Connection) Expired(now time.Time) bool {
	return c.ExpiresAt != nil && !c.ExpiresAt.After(now)
}
