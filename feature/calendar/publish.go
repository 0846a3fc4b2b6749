package calendar

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"cabin-manager/core/storage"

	"github.com/minio/minio-go/v7"
	"go.uber.org/zap"
)

const contentType = "text/calendar; charset=utf-8"

// Publisher delivers a rendered calendar somewhere subscribers can read it.
type Publisher interface {
	Name() string
	Publish(ctx context.Context, body []byte) error
}

// StoragePublisher uploads the calendar to an object storage bucket.
type StoragePublisher struct {
	client storage.Client
	bucket string
	object string
}

// NewStoragePublisher creates a publisher writing object into bucket.
func NewStoragePublisher(client storage.Client, bucket, object string) *StoragePublisher {
	return &StoragePublisher{client: client, bucket: bucket, object: object}
}

func (p *StoragePublisher) Name() string { return "storage" }

// Publish creates the bucket on first use and overwrites the object.
func (p *StoragePublisher) Publish(ctx context.Context, body []byte) error {
	exists, err := p.client.BucketExists(ctx, p.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket %s: %w", p.bucket, err)
	}
	if !exists {
		if err := p.client.MakeBucket(ctx, p.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", p.bucket, err)
		}
	}

	_, err = p.client.PutObject(ctx, p.bucket, p.object, bytes.NewReader(body), int64(len(body)), minio.PutObjectOptions{
		ContentType:  contentType,
		CacheControl: "no-cache",
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", p.object, err)
	}
	return nil
}

// FilePublisher writes the calendar to one or more local paths.
type FilePublisher struct {
	paths []string
}

// NewFilePublisher creates a publisher for paths.
func NewFilePublisher(paths ...string) *FilePublisher {
	return &FilePublisher{paths: paths}
}

func (p *FilePublisher) Name() string { return "file" }

func (p *FilePublisher) Publish(ctx context.Context, body []byte) error {
	for _, path := range p.paths {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := writeFile(path, body); err != nil {
			return err
		}
	}
	return nil
}

// writeFile replaces path atomically so readers never see a partial calendar.
func writeFile(path string, body []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".calendar-*.ics")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(body); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// CommandRunner runs an external command in dir and returns its combined output.
type CommandRunner interface {
	Run(ctx context.Context, dir, name string, args ...string) ([]byte, error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	return cmd.CombinedOutput()
}

// GitPublisher commits the calendar into a git checkout and optionally pushes it,
// for calendars served from a static pages repository.
type GitPublisher struct {
	dir    string
	file   string
	push   bool
	runner CommandRunner
	now    func() time.Time
	logger *zap.Logger
}

// NewGitPublisher creates a git publisher. A nil runner executes git directly.
func NewGitPublisher(dir, file string, push bool, runner CommandRunner, logger *zap.Logger) *GitPublisher {
	if runner == nil {
		runner = execRunner{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GitPublisher{dir: dir, file: file, push: push, runner: runner, now: time.Now, logger: logger}
}

func (p *GitPublisher) Name() string { return "git" }

// Publish writes the file, commits it and pushes. An unchanged calendar is not
// an error; the push still runs so earlier local commits reach the remote.
func (p *GitPublisher) Publish(ctx context.Context, body []byte) error {
	if p.dir == "" {
		return fmt.Errorf("git publisher has no repository directory")
	}
	if err := writeFile(filepath.Join(p.dir, p.file), body); err != nil {
		return err
	}

	if out, err := p.runner.Run(ctx, p.dir, "git", "add", p.file); err != nil {
		return gitError("add", out, err)
	}

	msg := "Auto-update calendar: " + p.now().Format("2006-01-02 15:04:05")
	out, err := p.runner.Run(ctx, p.dir, "git", "commit", "-m", msg)
	if err != nil {
		if !strings.Contains(string(out), "nothing to commit") {
			return gitError("commit", out, err)
		}
		// A commit left behind by an earlier failed push still goes out.
		p.logger.Debug("Calendar unchanged, nothing to commit")
	}

	if !p.push {
		return nil
	}
	if out, err := p.runner.Run(ctx, p.dir, "git", "push"); err != nil {
		return gitError("push", out, err)
	}
	p.logger.Info("Calendar pushed", zap.String("repo", p.dir))
	return nil
}

func gitError(step string, out []byte, err error) error {
	if msg := strings.TrimSpace(string(out)); msg != "" {
		return fmt.Errorf("git %s failed: %w: %s", step, err, msg)
	}
	return fmt.Errorf("git %s failed: %w", step, err)
}
