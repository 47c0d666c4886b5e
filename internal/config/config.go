package config

import (
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"

	apperrors "github.com/thriftyclothings/storefront/internal/errors"
)

type Config interface {
	EnvConfig
	APIConfig
	IdentityConfig
	SecurityConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetEnv() string
	GetLogLevel() string
}

type APIConfig interface {
	GetAPIBaseURL() string
	GetAPITimeout() time.Duration
	GetAPIRateLimit() float64
	GetAPIRateBurst() int
	GetTokenFile() string
}

type mainConfig struct {
	EnvVars
	API
	Identity
	Security
}

// New loads the configuration from the environment. A .env file in the
// working directory (or the file named by DOTENV) is applied first; variables
// already set in the environment win.
func New() (Config, error) {
	if err := loadDotEnv(); err != nil {
		return nil, err
	}

	c := mainConfig{}
	if err := env.Parse(&c); err != nil {
		return nil, errors.Wrap(err, "[config New] failed to parse environment")
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func loadDotEnv() error {
	file := os.Getenv("DOTENV")
	if file == "" {
		file = ".env"
	}
	if _, err := os.Stat(file); err != nil {
		return nil
	}
	if err := godotenv.Load(file); err != nil {
		return errors.Wrapf(err, "[config loadDotEnv] failed to load %s", file)
	}
	return nil
}

func (c mainConfig) validate() error {
	if !strings.HasPrefix(c.BaseURL, "http://") && !strings.HasPrefix(c.BaseURL, "https://") {
		return errors.Wrapf(apperrors.ErrInvalidConfig, "API_BASE_URL must be absolute, got %q", c.BaseURL)
	}
	switch c.Mode {
	case IdentityModeMemory:
	case IdentityModeOIDC:
		if c.Issuer == "" || c.ClientID == "" {
			return errors.Wrap(apperrors.ErrInvalidConfig, "OIDC_ISSUER and OIDC_CLIENT_ID are required in oidc mode")
		}
	default:
		return errors.Wrapf(apperrors.ErrInvalidConfig, "unknown IDENTITY_MODE %q", c.Mode)
	}
	return nil
}
