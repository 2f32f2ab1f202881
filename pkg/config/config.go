// Package config assembles runtime configuration.
//
// Sources & precedence
//
//  1. Built-in defaults (models.DefaultSettings).
//
//  2. .contentdesk/settings.yaml, if present.
//
//  3. Environment variables, which override earlier values:
//
//     CONTENTDESK_TOKEN      access token, skips the login flow
//     CONTENTDESK_OWNER      repository owner
//     CONTENTDESK_REPO       repository name, or owner/name
//     CONTENTDESK_BRANCH     branch to read and commit on
//     CONTENTDESK_LOG_LEVEL  debug, info, warn or error
//
// Command-line flags are applied by the caller on the returned Config.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/strategycontent/contentdesk/pkg/files"
	"github.com/strategycontent/contentdesk/pkg/models"
)

const (
	EnvToken    = "CONTENTDESK_TOKEN"
	EnvOwner    = "CONTENTDESK_OWNER"
	EnvRepo     = "CONTENTDESK_REPO"
	EnvBranch   = "CONTENTDESK_BRANCH"
	EnvLogLevel = "CONTENTDESK_LOG_LEVEL"
)

// ErrRepositoryNotConfigured is returned when a GitHub store is requested
// without owner and name.
var ErrRepositoryNotConfigured = errors.New("repository owner and name must be set in settings.yaml or CONTENTDESK_OWNER/CONTENTDESK_REPO")

// Config is the resolved configuration for one run.
type Config struct {
	Settings *models.Settings
	// Token comes from the environment; empty means use the stored one.
	Token string
	// LocalDir, when set, serves content from a directory instead of GitHub.
	LocalDir string
}

// LookupFunc matches os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// Load reads settings and applies the process environment.
func Load() (*Config, error) {
	return LoadWithEnv(os.LookupEnv)
}

// LoadWithEnv reads settings and applies lookup on top.
func LoadWithEnv(lookup LookupFunc) (*Config, error) {
	settings, err := files.ReadSettings()
	if err != nil {
		return nil, err
	}
	cfg := &Config{Settings: settings}
	cfg.ApplyEnv(lookup)
	return cfg, nil
}

// ApplyEnv overlays environment values.
func (c *Config) ApplyEnv(lookup LookupFunc) {
	if lookup == nil {
		return
	}
	if v, ok := lookup(EnvToken); ok {
		c.Token = strings.TrimSpace(v)
	}
	if v, ok := lookup(EnvOwner); ok && v != "" {
		c.Settings.Repository.Owner = v
	}
	if v, ok := lookup(EnvRepo); ok && v != "" {
		if owner, name, found := strings.Cut(v, "/"); found {
			c.Settings.Repository.Owner = owner
			c.Settings.Repository.Name = name
		} else {
			c.Settings.Repository.Name = v
		}
	}
	if v, ok := lookup(EnvBranch); ok && v != "" {
		c.Settings.Repository.Branch = v
	}
	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		c.Settings.Log.Level = v
	}
}

// Remote reports whether content is served by GitHub rather than a local
// directory.
func (c *Config) Remote() bool {
	return c.LocalDir == ""
}

// ValidateRemote checks what a GitHub store needs.
func (c *Config) ValidateRemote() error {
	if !c.Remote() {
		return nil
	}
	r := c.Settings.Repository
	if r.Owner == "" || r.Name == "" {
		return ErrRepositoryNotConfigured
	}
	return nil
}

// RepositoryName returns owner/name, or the local directory.
func (c *Config) RepositoryName() string {
	if !c.Remote() {
		return c.LocalDir
	}
	return fmt.Sprintf("%s/%s", c.Settings.Repository.Owner, c.Settings.Repository.Name)
}
