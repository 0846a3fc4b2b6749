package calendar

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"cabin-manager/core/storage/mocks"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var calBody = []byte("BEGIN:VCALENDAR\r\nEND:VCALENDAR\r\n")

func TestStoragePublisher(t *testing.T) {
	ctx := context.Background()
	withType := mock.MatchedBy(func(o minio.PutObjectOptions) bool { return o.ContentType == contentType })

	t.Run("CreatesMissingBucket", func(t *testing.T) {
		client := new(mocks.Client)
		client.On("BucketExists", ctx, "calendars").Return(false, nil)
		client.On("MakeBucket", ctx, "calendars", minio.MakeBucketOptions{}).Return(nil)
		client.On("PutObject", ctx, "calendars", "calendar/reservations.ics", mock.Anything, int64(len(calBody)), withType).
			Return(minio.UploadInfo{}, nil)

		err := NewStoragePublisher(client, "calendars", "calendar/reservations.ics").Publish(ctx, calBody)
		assert.NoError(t, err)
		client.AssertExpectations(t)
	})

	t.Run("ExistingBucket", func(t *testing.T) {
		client := new(mocks.Client)
		client.On("BucketExists", ctx, "calendars").Return(true, nil)
		client.On("PutObject", ctx, "calendars", "cal.ics", mock.Anything, int64(len(calBody)), withType).
			Return(minio.UploadInfo{}, nil)

		err := NewStoragePublisher(client, "calendars", "cal.ics").Publish(ctx, calBody)
		assert.NoError(t, err)
		client.AssertNotCalled(t, "MakeBucket", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("UploadFails", func(t *testing.T) {
		client := new(mocks.Client)
		client.On("BucketExists", ctx, "calendars").Return(true, nil)
		client.On("PutObject", ctx, "calendars", "cal.ics", mock.Anything, mock.Anything, mock.Anything).
			Return(minio.UploadInfo{}, errors.New("access denied"))

		err := NewStoragePublisher(client, "calendars", "cal.ics").Publish(ctx, calBody)
		assert.ErrorContains(t, err, "access denied")
	})

	t.Run("BucketCheckFails", func(t *testing.T) {
		client := new(mocks.Client)
		client.On("BucketExists", ctx, "calendars").Return(false, errors.New("timeout"))

		err := NewStoragePublisher(client, "calendars", "cal.ics").Publish(ctx, calBody)
		assert.Error(t, err)
		client.AssertNotCalled(t, "PutObject", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestFilePublisher(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "static", "reservations.ics")
	b := filepath.Join(dir, "pages", "nested", "calendar.ics")

	p := NewFilePublisher(a, b)
	require.NoError(t, p.Publish(context.Background(), calBody))

	for _, path := range []string{a, b} {
		got, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, calBody, got)
	}

	// Overwrites in place and leaves no temp files behind.
	require.NoError(t, p.Publish(context.Background(), []byte("second")))
	got, err := os.ReadFile(a)
	require.NoError(t, err)
	assert.Equal(t, "second", string(got))

	entries, err := os.ReadDir(filepath.Dir(a))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

type call struct {
	dir  string
	args []string
}

// fakeRunner records git invocations and fails the step named in fail.
type fakeRunner struct {
	calls []call
	fail  map[string]string
}

func (r *fakeRunner) Run(ctx context.Context, dir, name string, args ...string) ([]byte, error) {
	r.calls = append(r.calls, call{dir: dir, args: args})
	if out, ok := r.fail[args[0]]; ok {
		return []byte(out), errors.New("exit status 1")
	}
	return nil, nil
}

func (r *fakeRunner) steps() []string {
	var out []string
	for _, c := range r.calls {
		out = append(out, c.args[0])
	}
	return out
}

func newGitPublisher(t *testing.T, push bool, runner *fakeRunner) (*GitPublisher, string) {
	dir := t.TempDir()
	p := NewGitPublisher(dir, "calendar.ics", push, runner, nil)
	p.now = func() time.Time { return time.Date(2025, 6, 1, 12, 30, 0, 0, time.UTC) }
	return p, dir
}

func TestGitPublisher(t *testing.T) {
	t.Run("CommitsAndPushes", func(t *testing.T) {
		runner := &fakeRunner{}
		p, dir := newGitPublisher(t, true, runner)

		require.NoError(t, p.Publish(context.Background(), calBody))
		assert.Equal(t, []string{"add", "commit", "push"}, runner.steps())
		assert.Equal(t, []string{"commit", "-m", "Auto-update calendar: 2025-06-01 12:30:00"}, runner.calls[1].args)
		assert.Equal(t, dir, runner.calls[0].dir)

		got, err := os.ReadFile(filepath.Join(dir, "calendar.ics"))
		require.NoError(t, err)
		assert.Equal(t, calBody, got)
	})

	t.Run("NothingToCommit", func(t *testing.T) {
		runner := &fakeRunner{fail: map[string]string{"commit": "On branch main\nnothing to commit, working tree clean"}}
		p, _ := newGitPublisher(t, true, runner)

		assert.NoError(t, p.Publish(context.Background(), calBody))
		assert.Equal(t, []string{"add", "commit", "push"}, runner.steps())
	})

	t.Run("RetriesPushOfEarlierCommit", func(t *testing.T) {
		runner := &fakeRunner{fail: map[string]string{"push": "could not resolve host"}}
		p, _ := newGitPublisher(t, true, runner)
		require.Error(t, p.Publish(context.Background(), calBody))

		runner.calls = nil
		runner.fail = map[string]string{"commit": "nothing to commit, working tree clean"}
		require.NoError(t, p.Publish(context.Background(), calBody))
		assert.Equal(t, []string{"add", "commit", "push"}, runner.steps())
	})

	t.Run("NothingToCommitPushFails", func(t *testing.T) {
		runner := &fakeRunner{fail: map[string]string{
			"commit": "nothing to commit, working tree clean",
			"push":   "rejected",
		}}
		p, _ := newGitPublisher(t, true, runner)

		err := p.Publish(context.Background(), calBody)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "git push failed")
	})

	t.Run("NothingToCommitNoPush", func(t *testing.T) {
		runner := &fakeRunner{fail: map[string]string{"commit": "nothing to commit, working tree clean"}}
		p, _ := newGitPublisher(t, false, runner)

		assert.NoError(t, p.Publish(context.Background(), calBody))
		assert.Equal(t, []string{"add", "commit"}, runner.steps())
	})

	t.Run("NoPush", func(t *testing.T) {
		runner := &fakeRunner{}
		p, _ := newGitPublisher(t, false, runner)

		require.NoError(t, p.Publish(context.Background(), calBody))
		assert.Equal(t, []string{"add", "commit"}, runner.steps())
	})

	t.Run("PushFails", func(t *testing.T) {
		runner := &fakeRunner{fail: map[string]string{"push": "rejected"}}
		p, _ := newGitPublisher(t, true, runner)

		err := p.Publish(context.Background(), calBody)
		require.Error(t, err)
		assert.True(t, strings.Contains(err.Error(), "git push failed"))
		assert.Contains(t, err.Error(), "rejected")
	})

	t.Run("NoRepository", func(t *testing.T) {
		p := NewGitPublisher("", "calendar.ics", true, &fakeRunner{}, nil)
		assert.Error(t, p.Publish(context.Background(), calBody))
	})
}

func TestNewPublishers(t *testing.T) {
	client := new(mocks.Client)

	ps, err := NewPublishers(Config{Publishers: "file, storage,git", Files: "a.ics", RepoDir: "/srv/pages", RepoFile: "c.ics"}, client, "calendars", nil)
	require.NoError(t, err)
	require.Len(t, ps, 3)
	assert.Equal(t, "file", ps[0].Name())
	assert.Equal(t, "storage", ps[1].Name())
	assert.Equal(t, "git", ps[2].Name())

	ps, err = NewPublishers(Config{Publishers: "none"}, nil, "", nil)
	require.NoError(t, err)
	assert.Empty(t, ps)

	errorCases := []Config{
		{Publishers: "storage"},
		{Publishers: "file"},
		{Publishers: "git"},
		{Publishers: "ftp"},
	}
	for _, cfg := range errorCases {
		_, err := NewPublishers(cfg, nil, "", nil)
		assert.Error(t, err, cfg.Publishers)
	}

	assert.True(t, Config{Publishers: "file,Storage"}.UsesStorage())
	assert.False(t, Config{Publishers: "file"}.UsesStorage())
}
