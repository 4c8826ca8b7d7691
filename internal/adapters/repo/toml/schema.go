package toml

import "fmt"

const currentSchemaVersion = 1

type fileSchema struct {
	Version int          `toml:"version"`
	Sites   []siteSchema `toml:"sites"`
}

func (s *fileSchema) applyDefaults() {
	if s.Version == 0 {
		s.Version = currentSchemaVersion
	}
}

func (s fileSchema) validateVersion() error {
	if s.Version > currentSchemaVersion {
		return fmt.Errorf("unsupported sites schema version %d (current %d)", s.Version, currentSchemaVersion)
	}

	return nil
}

type siteSchema struct {
	ID     string       `toml:"id"`
	Domain string       `toml:"domain"`
	Auth   authSchema   `toml:"auth"`
	Retry  *retrySchema `toml:"retry,omitempty"`
}

type authSchema struct {
	SecretRef string `toml:"secret_ref"`
}

type retrySchema struct {
	MaxTries     int     `toml:"max_tries"`
	DelaySeconds int     `toml:"delay_seconds"`
	Backoff      float64 `toml:"backoff"`
}
