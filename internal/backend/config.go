package backend

import (
	"fmt"

	"gofinances/internal/config"
)

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	backendType := BackendType(appConfig.DataBackend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.DataBackend)
	}

	return Config{
		Type: backendType,

		DataDirectory: appConfig.DataDirectory,
		SQLiteDBPath:  appConfig.SQLiteDBPath,

		RedisAddr:     appConfig.RedisAddr,
		RedisPassword: appConfig.RedisPassword,
		RedisDB:       appConfig.RedisDB,

		StorageKey:    appConfig.StorageKey,
		EncryptionKey: appConfig.StorageEncryptionKey,
		ReadRetries:   appConfig.StorageReadRetries,
		RetryWindow:   appConfig.LoadTimeout,
	}, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type %q: must be one of %v", c.Type, GetBackendTypeStrings())
	}

	switch c.Type {
	case SQLiteBackend:
		if c.SQLiteDBPath == "" {
			return fmt.Errorf("SQLite database path is required for sqlite backend")
		}
	case JSONFileBackend:
		if c.DataDirectory == "" {
			return fmt.Errorf("data directory is required for jsonfile backend")
		}
	case RedisBackend:
		if c.RedisAddr == "" {
			return fmt.Errorf("Redis address is required for redis backend")
		}
	case MemoryBackend:
		// DataDirectory is optional; without it the store starts empty
	}

	if c.ReadRetries < 0 {
		return fmt.Errorf("read retries must not be negative: %d", c.ReadRetries)
	}
	return nil
}

// GetBackendTypes returns all valid backend types
func GetBackendTypes() []BackendType {
	return []BackendType{MemoryBackend, JSONFileBackend, SQLiteBackend, RedisBackend}
}

// GetBackendTypeStrings returns all valid backend type strings
func GetBackendTypeStrings() []string {
	types := GetBackendTypes()
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = t.String()
	}
	return out
}
