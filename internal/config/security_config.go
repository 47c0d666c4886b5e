package config

type SecurityConfig interface {
	GetLoadingRefreshSeconds() int
}

type Security struct {
	LoadingRefreshSeconds int `env:"LOADING_REFRESH_SECONDS" envDefault:"1"`
}

var _ SecurityConfig = Security{}

// GetLoadingRefreshSeconds is how often the loading placeholder reloads
// itself while the session bootstraps.
func (s Security) GetLoadingRefreshSeconds() int {
	if s.LoadingRefreshSeconds <= 0 {
		return 1
	}
	return s.LoadingRefreshSeconds
}
