package config

const (
	encryptionKeyVar = "FRAMEIO_AUTH_ENCRYPTION_KEY"
	webhookSecretVar = "FRAMEIO_WEBHOOK_SECRET"
	actionSecretVar  = "FRAMEIO_ACTION_SECRET"
)

type EncryptionConfig interface {
	GetEncryptionKey() string
}

type Encryption struct{}

var _ EncryptionConfig = Encryption{}

func (Encryption) GetEncryptionKey() string {
	return GetEnv(encryptionKeyVar, "")
}

// SecretConfig exposes the lowest-precedence signing secret fallbacks,
// shared across all handlers of a kind.
type SecretConfig interface {
	GetDefaultWebhookSecret() string
	GetDefaultActionSecret() string
}

type Secrets struct{}

var _ SecretConfig = Secrets{}

func (Secrets) GetDefaultWebhookSecret() string {
	return GetEnv(webhookSecretVar, "")
}

func (Secrets) GetDefaultActionSecret() string {
	return GetEnv(actionSecretVar, "")
}
