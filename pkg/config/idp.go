package config

import (
	"fmt"
	"time"
)

// IdP configures the identity provider used to verify bearer tokens.
// When disabled, the service falls back to the X-User-Id header contract.
type IdP struct {
	Enabled     bool          `koanf:"enabled"`
	JwksURL     string        `koanf:"jwksurl"`
	Issuer      string        `koanf:"issuer"`
	ClientID    string        `koanf:"clientid"`
	MinInterval time.Duration `koanf:"mininterval"`
}

func (c *IdP) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.JwksURL == "" {
		return fmt.Errorf("IdP JWKS URL cannot be empty")
	}
	if c.Issuer == "" {
		return fmt.Errorf("IdP issuer cannot be empty")
	}
	if c.ClientID == "" {
		return fmt.Errorf("IdP client ID cannot be empty")
	}
	if c.MinInterval <= 0 {
		return fmt.Errorf("IdP minimum interval must be greater than zero")
	}
	return nil
}
