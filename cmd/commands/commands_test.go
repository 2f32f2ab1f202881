package commands

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strategycontent/contentdesk/pkg/files"
	"github.com/strategycontent/contentdesk/pkg/remote"
)

const commandsSchema = `
collections:
  - name: pages
    fields:
      - {name: layout, widget: hidden, default: ../layouts/Page.astro}
      - {name: title, label: Title, widget: string}
      - name: sections
        label: Sections
        widget: list
        types:
          - name: quote
            label: Quote
            fields:
              - {name: text, label: Text, widget: markdown}
  - name: posts
    fields:
      - {name: title, label: Title, widget: string, default: Untitled}
`

const commandsHome = `---
layout: ../layouts/Page.astro
title: Home
draft: true
sections:
  - type: quote
    text: <p>q</p>
---
Welcome to the **site**.
`

// setupCommandsTest initializes a project in a temp dir and returns the
// content root served with --local.
func setupCommandsTest(t *testing.T) string {
	t.Helper()
	tempDir := t.TempDir()
	oldDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(tempDir))
	t.Cleanup(func() { _ = os.Chdir(oldDir) })

	require.NoError(t, files.InitProjectStructure())
	require.NoError(t, os.MkdirAll("admin", 0755))
	require.NoError(t, os.WriteFile(filepath.Join("admin", "config.yml"), []byte(commandsSchema), 0644))

	site := filepath.Join(tempDir, "site")
	for rel, content := range map[string]string{
		"pages/home.astro": commandsHome,
		"posts/first.md":   "---\ntitle: First\n---\n",
		"drafts/x.md":      "---\ntitle: X\n---\n",
		"README.md":        "readme",
	} {
		p := filepath.Join(site, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0644))
	}
	return site
}

// runCommand executes cmd with the root command's persistent flags
// registered locally.
func runCommand(t *testing.T, cmd *cobra.Command, site string, args ...string) (string, error) {
	t.Helper()
	cmd.Flags().String("local", "", "")
	cmd.Flags().StringP("output", "o", "text", "")
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(append([]string{"--local", site}, args...))
	err := cmd.Execute()
	return buf.String(), err
}

func readSite(t *testing.T, site, rel string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(site, filepath.FromSlash(rel)))
	require.NoError(t, err)
	return string(data)
}

func TestListCommand(t *testing.T) {
	site := setupCommandsTest(t)

	tests := []struct {
		name     string
		args     []string
		contains []string
		excludes []string
	}{
		{
			name:     "root shows configured collections only",
			contains: []string{"TYPE", "pages/", "posts/"},
			excludes: []string{"drafts", "README.md"},
		},
		{
			name:     "collection lists files",
			args:     []string{"pages"},
			contains: []string{"file", "home.astro", "pages/home.astro"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := runCommand(t, NewListCommand(), site, tt.args...)
			require.NoError(t, err)
			for _, s := range tt.contains {
				assert.Contains(t, out, s)
			}
			for _, s := range tt.excludes {
				assert.NotContains(t, out, s)
			}
		})
	}
}

func TestListCommand_JSON(t *testing.T) {
	site := setupCommandsTest(t)

	out, err := runCommand(t, NewListCommand(), site, "-o", "json")
	require.NoError(t, err)

	var result ListResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, "/", result.Path)
	assert.Equal(t, 2, result.Count)
	assert.Equal(t, "pages", result.Items[0].Name)
	assert.Equal(t, "dir", result.Items[0].Type)
}

func TestListCommand_MissingDirectory(t *testing.T) {
	site := setupCommandsTest(t)

	_, err := runCommand(t, NewListCommand(), site, "nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to list nope")
}

func TestShowCommand(t *testing.T) {
	site := setupCommandsTest(t)

	out, err := runCommand(t, NewShowCommand(), site, "pages/home.astro")
	require.NoError(t, err)
	assert.Contains(t, out, "# pages/home.astro")
	assert.Contains(t, out, "title: Home")
	assert.Contains(t, out, "draft: true")
	assert.Contains(t, out, "---\nWelcome to the **site**.")
}

func TestShowCommand_YAML(t *testing.T) {
	site := setupCommandsTest(t)

	out, err := runCommand(t, NewShowCommand(), site, "pages/home.astro", "-o", "yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "collection: pages")
	assert.Contains(t, out, "path: pages/home.astro")
}

func TestSetCommand_UpdatesAndPreservesOtherFields(t *testing.T) {
	site := setupCommandsTest(t)

	_, err := runCommand(t, NewSetCommand(), site,
		"pages/home.astro", "title=Welcome", "sections.0.text=<p>new</p>", "-m", "feat: retitle home")
	require.NoError(t, err)

	text := readSite(t, site, "pages/home.astro")
	assert.True(t, strings.HasPrefix(text, "---\n"))
	assert.Contains(t, text, "title: Welcome")
	assert.Contains(t, text, "layout: ../layouts/Page.astro")
	assert.Contains(t, text, "draft: true")
	assert.Contains(t, text, "<p>new</p>")
	assert.True(t, strings.HasSuffix(text, "Welcome to the **site**.\n"))
}

func TestSetCommand_Errors(t *testing.T) {
	site := setupCommandsTest(t)

	tests := []struct {
		name   string
		args   []string
		errMsg string
	}{
		{
			name:   "malformed assignment",
			args:   []string{"pages/home.astro", "title", "-m", "x"},
			errMsg: "invalid assignment",
		},
		{
			name:   "unknown field",
			args:   []string{"pages/home.astro", "subtitle=x", "-m", "x"},
			errMsg: "cannot set subtitle",
		},
		{
			name:   "path escaping the root",
			args:   []string{"../etc/passwd", "title=x", "-m", "x"},
			errMsg: "invalid path",
		},
		{
			name:   "missing file",
			args:   []string{"pages/missing.astro", "title=x", "-m", "x"},
			errMsg: "failed to open pages/missing.astro",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runCommand(t, NewSetCommand(), site, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
	assert.Equal(t, commandsHome, readSite(t, site, "pages/home.astro"))
}

func TestSetCommand_NoChangesSkipsCommit(t *testing.T) {
	site := setupCommandsTest(t)

	_, err := runCommand(t, NewSetCommand(), site, "pages/home.astro", "title=Home", "-m", "noop")
	require.NoError(t, err)
	assert.Equal(t, commandsHome, readSite(t, site, "pages/home.astro"))
}

func TestNewCommand(t *testing.T) {
	site := setupCommandsTest(t)

	_, err := runCommand(t, NewNewCommand(), site, "pages", "contact", "title=Contact", "-m", "feat: add contact")
	require.NoError(t, err)

	text := readSite(t, site, "pages/contact.astro")
	assert.Contains(t, text, "title: Contact")
	assert.Contains(t, text, "layout: ../layouts/Page.astro")
	assert.Contains(t, text, "Add your page content here")

	// creating it again must not overwrite the first commit
	_, err = runCommand(t, NewNewCommand(), site, "pages", "contact", "title=Other", "-m", "again")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
	assert.Contains(t, readSite(t, site, "pages/contact.astro"), "title: Contact")
}

func TestCommitError(t *testing.T) {
	exists := &remote.RemoteError{Status: 422, Message: `"sha" wasn't supplied.`}
	invalid := &remote.RemoteError{Status: 422, Message: "message is required"}
	stale := &remote.RemoteError{Status: 409, Message: "does not match"}

	err := commitError("pages/a.astro", true, exists)
	assert.Contains(t, err.Error(), "pages/a.astro already exists")
	assert.ErrorIs(t, err, exists)

	err = commitError("pages/a.astro", true, invalid)
	assert.Contains(t, err.Error(), "failed to commit pages/a.astro")
	assert.NotContains(t, err.Error(), "already exists")

	err = commitError("pages/a.astro", false, stale)
	assert.Contains(t, err.Error(), "changed since it was read")

	err = commitError("pages/a.astro", false, remote.ErrUnauthenticated)
	assert.Contains(t, err.Error(), "failed to commit")
	assert.ErrorIs(t, err, remote.ErrUnauthenticated)
}

func TestNewCommand_UnknownCollection(t *testing.T) {
	site := setupCommandsTest(t)

	_, err := runCommand(t, NewNewCommand(), site, "widgets", "a", "-m", "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "configured: pages, posts")
}

func TestPreviewCommand(t *testing.T) {
	site := setupCommandsTest(t)

	out, err := runCommand(t, NewPreviewCommand(), site, "pages/home.astro")
	require.NoError(t, err)
	assert.Contains(t, out, "<title>Home</title>")
	assert.Contains(t, out, "<strong>site</strong>")

	_, err = runCommand(t, NewPreviewCommand(), site, "pages/home.astro", "--open")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--open requires --out")
}

func TestValidateProject_NotInitialized(t *testing.T) {
	tempDir := t.TempDir()
	oldDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(tempDir))
	defer os.Chdir(oldDir)

	_, err := runCommand(t, NewListCommand(), tempDir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "contentdesk init")
}
