package calendar

import (
	"fmt"

	"cabin-manager/core/storage"

	"go.uber.org/zap"
)

// NewPublishers builds the publishers named in cfg. client and bucket are only
// needed when the storage publisher is enabled.
func NewPublishers(cfg Config, client storage.Client, bucket string, logger *zap.Logger) ([]Publisher, error) {
	var out []Publisher
	for _, name := range cfg.PublisherNames() {
		switch name {
		case "none":
		case "storage":
			if client == nil {
				return nil, fmt.Errorf("storage publisher requires a storage client")
			}
			out = append(out, NewStoragePublisher(client, bucket, cfg.ObjectName))
		case "file":
			files := cfg.FileList()
			if len(files) == 0 {
				return nil, fmt.Errorf("file publisher requires at least one file")
			}
			out = append(out, NewFilePublisher(files...))
		case "git":
			if cfg.RepoDir == "" {
				return nil, fmt.Errorf("git publisher requires repo_dir")
			}
			out = append(out, NewGitPublisher(cfg.RepoDir, cfg.RepoFile, cfg.Push, nil, logger))
		default:
			return nil, fmt.Errorf("unknown calendar publisher %q", name)
		}
	}
	return out, nil
}

// UsesStorage reports whether cfg enables the storage publisher.
func (c Config) UsesStorage() bool {
	for _, name := range c.PublisherNames() {
		if name == "storage" {
			return true
		}
	}
	return false
}
