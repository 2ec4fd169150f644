package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// FileSecretProvider resolves secrets from mounted files, such as Docker or
// Kubernetes secrets. Relative keys are resolved against Dir.
type FileSecretProvider struct {
	Dir string
}

// NewFileSecretProvider creates a FileSecretProvider rooted at dir. An empty
// dir leaves keys relative to the working directory.
func NewFileSecretProvider(dir string) *FileSecretProvider {
	return &FileSecretProvider{Dir: dir}
}

// GetParametersBatch reads each key as a file. Trailing newlines are
// trimmed. Missing files are omitted; other read errors fail the batch.
func (p *FileSecretProvider) GetParametersBatch(ctx context.Context, keys []string) (map[string]string, error) {
	result := make(map[string]string, len(keys))
	for _, key := range keys {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		path := key
		if p.Dir != "" && !filepath.IsAbs(path) {
			path = filepath.Join(p.Dir, path)
		}

		data, err := os.ReadFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read secret %s: %w", key, err)
		}
		result[key] = strings.TrimRight(string(data), "\r\n")
	}
	return result, nil
}
