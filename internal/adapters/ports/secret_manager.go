package ports

import "context"

// Secret is a retrieved secret value with its backend metadata
type Secret struct {
	Metadata  map[string]string
	Value     string
	Version   string
	CreatedAt string
}

// SecretManager retrieves secrets such as the processor API key and the
// webhook signing secret. Read-only: this service never writes secrets.
type SecretManager interface {
	GetSecret(ctx context.Context, path string) (*Secret, error)
}
