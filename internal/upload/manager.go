package upload

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

// ProviderFactory is a function that creates a new provider instance
type ProviderFactory func() Provider

// Registry holds all available upload providers
var Registry = make(map[string]ProviderFactory)

// RegisterProvider registers a new upload provider
func RegisterProvider(name string, factory ProviderFactory) {
	Registry[name] = factory
}

// NewProvider creates a new provider instance by name
func NewProvider(name string) (Provider, error) {
	factory, ok := Registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown upload provider: %s", name)
	}
	return factory(), nil
}

// Setup creates and configures the named provider.
func Setup(name string, settings map[string]any) (Provider, error) {
	provider, err := NewProvider(name)
	if err != nil {
		return nil, err
	}
	if err := provider.Configure(settings); err != nil {
		return nil, err
	}
	return provider, nil
}

// Archiver copies local files to a provider under a common remote directory.
type Archiver struct {
	provider Provider
	log      logrus.FieldLogger
}

// NewArchiver returns an Archiver for provider.
func NewArchiver(provider Provider, log logrus.FieldLogger) *Archiver {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Archiver{
		provider: provider,
		log:      log.WithField("component", "upload"),
	}
}

// Archive uploads each file to remoteDir/<base name> and returns the remote
// paths in order. It stops at the first failure.
func (a *Archiver) Archive(ctx context.Context, remoteDir string, files ...string) ([]string, error) {
	remotes := make([]string, 0, len(files))
	for _, file := range files {
		remote := path.Join(remoteDir, filepath.Base(file))
		if err := a.uploadFile(ctx, file, remote); err != nil {
			return remotes, err
		}
		a.log.WithFields(logrus.Fields{
			"provider": a.provider.Name(),
			"file":     file,
			"remote":   remote,
		}).Info("Archived file")
		remotes = append(remotes, remote)
	}
	return remotes, nil
}

func (a *Archiver) uploadFile(ctx context.Context, file, remote string) error {
	f, err := os.Open(file)
	if err != nil {
		return fmt.Errorf("failed to open %s for upload: %w", file, err)
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", file, err)
	}

	if err := a.provider.Upload(ctx, f, info.Size(), remote); err != nil {
		return fmt.Errorf("uploading %s: %w", file, err)
	}
	return nil
}

// init registers all built-in providers
func init() {
	RegisterProvider("minio", func() Provider {
		return NewMinioProvider()
	})
}
