// Package upload archives committed ledger files to remote storage.
package upload

import (
	"context"
	"io"
)

// Provider defines the interface for file upload providers
type Provider interface {
	// Upload uploads size bytes from reader to the remote path. A negative
	// size means unknown.
	Upload(ctx context.Context, reader io.Reader, size int64, remotePath string) error

	// Configure sets up the provider with the given settings. It must not
	// touch the network.
	Configure(settings map[string]any) error

	// Name returns the provider name
	Name() string
}
