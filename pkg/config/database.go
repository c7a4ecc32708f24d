package config

import (
	"fmt"
	"strings"
	"time"
)

// DatabaseConfig configures the PostgreSQL connection.
type DatabaseConfig struct {
	URL     string        `koanf:"url"`
	Timeout time.Duration `koanf:"timeout"`
}

func (c *DatabaseConfig) Validate() error {
	if c.URL == "" {
		return fmt.Errorf("database URL is not configured")
	}
	if !strings.HasPrefix(c.URL, "postgres://") && !strings.HasPrefix(c.URL, "postgresql://") {
		return fmt.Errorf("database URL must be a postgres:// URL")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("database connect timeout is not configured")
	}
	return nil
}

// MaskedURL returns the URL with credentials replaced, for logging.
func (c *DatabaseConfig) MaskedURL() string {
	if c.URL == "" {
		return "<not configured>"
	}
	if i := strings.LastIndex(c.URL, "@"); i >= 0 {
		return "****@" + c.URL[i+1:]
	}
	return "****"
}
