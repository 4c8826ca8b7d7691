package ports

import "context"

// SecretStore holds auth tokens keyed by secret ref, typically
// "egta/<site>/auth-token".
type SecretStore interface {
	Get(ctx context.Context, ref string) (string, error)
	Put(ctx context.Context, ref string, value string) error
	Delete(ctx context.Context, ref string) error
}
