package auth

import "time"

// DefaultRevokePrefix is the Redis key prefix for revoked socket token JTIs.
const DefaultRevokePrefix = "channel-bridge:token:revoked:"

// Config controls socket token signing and validation.
// Secret is the shared HS256 key.
type Config struct {
	Secret       string
	Issuer       string
	TTL          time.Duration
	ClockSkew    time.Duration
	RevokePrefix string
}

// Defaults fills zero values.
func (c *Config) Defaults() {
	if c.TTL <= 0 {
		c.TTL = time.Hour
	}
	if c.ClockSkew < 0 {
		c.ClockSkew = 0
	}
	if c.RevokePrefix == "" {
		c.RevokePrefix = DefaultRevokePrefix
	}
}
