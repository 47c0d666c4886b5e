package config

type IdentityMode string

const (
	IdentityModeMemory IdentityMode = "memory"
	IdentityModeOIDC   IdentityMode = "oidc"
)

type IdentityConfig interface {
	GetIdentityMode() IdentityMode
	GetOIDCIssuer() string
	GetOIDCClientID() string
	GetOIDCClientSecret() string
	GetOIDCCredentialCache() string
}

type Identity struct {
	Mode            IdentityMode `env:"IDENTITY_MODE" envDefault:"memory"`
	Issuer          string       `env:"OIDC_ISSUER"`
	ClientID        string       `env:"OIDC_CLIENT_ID"`
	ClientSecret    string       `env:"OIDC_CLIENT_SECRET"`
	CredentialCache string       `env:"OIDC_CREDENTIAL_CACHE"`
}

var _ IdentityConfig = Identity{}

func (i Identity) GetIdentityMode() IdentityMode {
	return i.Mode
}

func (i Identity) GetOIDCIssuer() string {
	return i.Issuer
}

func (i Identity) GetOIDCClientID() string {
	return i.ClientID
}

func (i Identity) GetOIDCClientSecret() string {
	return i.ClientSecret
}

func (i Identity) GetOIDCCredentialCache() string {
	return i.CredentialCache
}
