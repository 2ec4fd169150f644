package config

import "context"

// SecretProvider resolves secret references to plaintext values. Keys are
// provider-specific references (file paths for FileSecretProvider). Keys
// that cannot be found are omitted from the result rather than failing the
// whole batch.
type SecretProvider interface {
	GetParametersBatch(ctx context.Context, keys []string) (map[string]string, error)
}
