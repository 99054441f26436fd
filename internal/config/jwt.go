package config

import (
	"errors"
	"fmt"
)

// DefaultJWTIssuer is expected in the iss claim unless jwt.issuer overrides it
const DefaultJWTIssuer = "interview-coach"

// JWTConfig holds configuration for validating access tokens issued by the account service.
type JWTConfig struct {
	Secret          string `mapstructure:"secret"`
	Issuer          string `mapstructure:"issuer"`
	ExpirationHours int    `mapstructure:"expiration-hours"`
}

// Validate reports whether tokens can be checked with c. Only the serve command
// needs a secret, so Config.Validate does not call it.
func (c *JWTConfig) Validate() error {
	if c.Secret == "" {
		return errors.New("JWT_SECRET is required but not set")
	}
	if c.Issuer == "" {
		return errors.New("jwt.issuer cannot be empty")
	}
	if c.ExpirationHours < 1 {
		return fmt.Errorf("jwt.expiration-hours must be at least 1 hour, got: %d", c.ExpirationHours)
	}
	return nil
}
