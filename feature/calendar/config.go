package calendar

import "strings"

// Config holds configuration for rendering and publishing the calendar.
type Config struct {
	// Name is the X-WR-CALNAME shown by calendar clients.
	Name string `mapstructure:"name" default:"Reservas Cabañas"`
	// UIDDomain suffixes event UIDs.
	UIDDomain string `mapstructure:"uid_domain" default:"cabana.com"`
	// Publishers lists where the document goes after each commit (storage, file, git).
	Publishers string `mapstructure:"publishers" default:"file"`
	// ObjectName is the key used by the storage publisher.
	ObjectName string `mapstructure:"object_name" default:"calendar/reservations.ics"`
	// Files lists the paths written by the file publisher.
	Files string `mapstructure:"files" default:"static/reservations.ics,github-pages-setup/calendar.ics"`
	// RepoDir is the git checkout the git publisher commits to.
	RepoDir string `mapstructure:"repo_dir" default:""`
	// RepoFile is the calendar path inside RepoDir.
	RepoFile string `mapstructure:"repo_file" default:"calendar.ics"`
	// Push controls whether the git publisher pushes after committing.
	Push bool `mapstructure:"push" default:"true"`
	// PublishOnChange republishes after every committed mutation.
	PublishOnChange bool `mapstructure:"publish_on_change" default:"true"`
	// TimeoutSeconds bounds one publish round.
	TimeoutSeconds int `mapstructure:"timeout_seconds" default:"60"`
}

// PublisherNames returns the configured publisher names, lowercased.
func (c Config) PublisherNames() []string {
	return split(strings.ToLower(c.Publishers))
}

// FileList returns the configured output files.
func (c Config) FileList() []string {
	return split(c.Files)
}

func split(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
