package config

type Config interface {
	EnvConfig
	OAuthConfig
	EncryptionConfig
	SecretConfig
	StorageConfig
}

type mainConfig struct {
	EnvVars
	OAuth
	Encryption
	Secrets
	Storage
}

func New() Config {
	return mainConfig{}
}
