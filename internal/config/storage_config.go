package config

type StorageConfig interface {
	GetStorageBackend() string
	GetRedisAddr() string
	GetRedisPassword() string
	GetDatabaseDSN() string
}

type Storage struct{}

var _ StorageConfig = Storage{}

// GetStorageBackend selects the storage backend: "memory", "file",
// "redis" or "postgres".
func (Storage) GetStorageBackend() string {
	return GetEnv("STORAGE_BACKEND", "memory")
}

func (Storage) GetRedisAddr() string {
	return GetEnv("REDIS_ADDR", "localhost:6379")
}

func (Storage) GetRedisPassword() string {
	return GetEnv("REDIS_PASSWORD", "")
}

func (Storage) GetDatabaseDSN() string {
	return GetEnv("DATABASE_DSN", "")
}
