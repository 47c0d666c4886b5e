package config

import (
	"strings"
	"time"
)

type API struct {
	BaseURL   string        `env:"API_BASE_URL" envDefault:"http://localhost:5000/api"`
	Timeout   time.Duration `env:"API_TIMEOUT" envDefault:"10s"`
	RateLimit float64       `env:"API_RATE_LIMIT" envDefault:"0"`
	RateBurst int           `env:"API_RATE_BURST" envDefault:"10"`
	TokenFile string        `env:"TOKEN_FILE" envDefault:""`
}

var _ APIConfig = API{}

func (a API) GetAPIBaseURL() string {
	return strings.TrimRight(a.BaseURL, "/")
}

func (a API) GetAPITimeout() time.Duration {
	if a.Timeout <= 0 {
		return 10 * time.Second
	}
	return a.Timeout
}

// GetAPIRateLimit returns requests per second; zero disables limiting.
func (a API) GetAPIRateLimit() float64 {
	return a.RateLimit
}

func (a API) GetAPIRateBurst() int {
	if a.RateBurst <= 0 {
		return 1
	}
	return a.RateBurst
}

// GetTokenFile returns where the session token is persisted. Empty keeps
// the token in memory only.
func (a API) GetTokenFile() string {
	return a.TokenFile
}
