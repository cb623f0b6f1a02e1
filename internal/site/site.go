// Package site discovers web application installations under a root
// directory and extracts their database credentials.
package site

import "errors"

// Site represents one discovered application installation, identified by
// its directory name.
type Site struct {
	// Name is the installation directory name, used as the site identifier
	// in artifact names and prompts.
	Name string
	// Path is the absolute installation path.
	Path string
	// ConfigPath is the path of the configuration file marker that
	// qualified this directory as a site.
	ConfigPath string
}

// Credentials holds the database connection parameters recovered from a
// site's configuration file. Password may be empty; an empty Host implies
// the local default.
type Credentials struct {
	Name     string
	User     string
	Password string
	Host     string
}

// HostOrDefault returns the configured host, or the local default when the
// configuration file does not set one.
func (c Credentials) HostOrDefault() string {
	if c.Host == "" {
		return "localhost"
	}
	return c.Host
}

var (
	// ErrNoSitesFound is returned when the root directory contains no valid
	// installations. This is a fatal condition, distinct from a per-site
	// backup failure.
	ErrNoSitesFound = errors.New("no sites found")

	// ErrConfigMissing is returned when a site's configuration file does
	// not exist at dump time.
	ErrConfigMissing = errors.New("site configuration file not found")

	// ErrCredentialsIncomplete is returned when the mandatory database
	// name or user could not be extracted.
	ErrCredentialsIncomplete = errors.New("database credentials incomplete")
)
