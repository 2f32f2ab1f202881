package files

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/strategycontent/contentdesk/pkg/models"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	tempDir := t.TempDir()
	oldWd, _ := os.Getwd()
	t.Cleanup(func() { os.Chdir(oldWd) })
	os.Chdir(tempDir)
	return tempDir
}

func TestInitProjectStructure(t *testing.T) {
	chdirTemp(t)

	if ProjectExists() {
		t.Fatal("ProjectExists should be false before init")
	}

	err := InitProjectStructure()
	if err != nil {
		t.Fatalf("InitProjectStructure failed: %v", err)
	}

	expected := []string{
		ProjectDir,
		filepath.Join(ProjectDir, LogsDir),
		SettingsPath(),
	}

	for _, p := range expected {
		if _, err := os.Stat(p); os.IsNotExist(err) {
			t.Errorf("Expected %s does not exist", p)
		}
	}

	if !ProjectExists() {
		t.Error("ProjectExists should be true after init")
	}
}

func TestInitKeepsExistingSettings(t *testing.T) {
	chdirTemp(t)

	settings := models.DefaultSettings()
	settings.Repository.Owner = "acme"
	if err := WriteSettings(settings); err != nil {
		t.Fatalf("WriteSettings failed: %v", err)
	}

	if err := InitProjectStructure(); err != nil {
		t.Fatalf("InitProjectStructure failed: %v", err)
	}

	got, err := ReadSettings()
	if err != nil {
		t.Fatalf("ReadSettings failed: %v", err)
	}
	if got.Repository.Owner != "acme" {
		t.Errorf("Owner = %q, want acme", got.Repository.Owner)
	}
}

func TestReadSettings_MissingFileGivesDefaults(t *testing.T) {
	chdirTemp(t)

	got, err := ReadSettings()
	if err != nil {
		t.Fatalf("ReadSettings failed: %v", err)
	}
	if got.Editor.NewFileExtension != ".astro" {
		t.Errorf("NewFileExtension = %q, want .astro", got.Editor.NewFileExtension)
	}
}

func TestReadSettings_PartialFile(t *testing.T) {
	chdirTemp(t)

	os.MkdirAll(ProjectDir, 0755)
	content := "repository:\n  owner: acme\n  name: site\neditor:\n  commit_timeout: 5s\n"
	if err := os.WriteFile(SettingsPath(), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	got, err := ReadSettings()
	if err != nil {
		t.Fatalf("ReadSettings failed: %v", err)
	}
	if got.Repository.Owner != "acme" || got.Repository.Name != "site" {
		t.Errorf("Repository = %+v", got.Repository)
	}
	if got.Repository.APIBaseURL != "https://api.github.com" {
		t.Errorf("APIBaseURL default lost: %q", got.Repository.APIBaseURL)
	}
	if got.Editor.CommitTimeout != 5*time.Second {
		t.Errorf("CommitTimeout = %v, want 5s", got.Editor.CommitTimeout)
	}
	if got.Editor.RequestTimeout != 20*time.Second {
		t.Errorf("RequestTimeout default lost: %v", got.Editor.RequestTimeout)
	}
}

func TestReadSettings_Invalid(t *testing.T) {
	chdirTemp(t)

	os.MkdirAll(ProjectDir, 0755)
	os.WriteFile(SettingsPath(), []byte("repository: [unclosed"), 0644)

	if _, err := ReadSettings(); err == nil {
		t.Error("expected parse error")
	}
}

func TestWriteSettingsRoundTrip(t *testing.T) {
	chdirTemp(t)

	settings := models.DefaultSettings()
	settings.Repository.Branch = "draft"
	settings.Auth.ClientID = "abc"
	settings.UI.ShowPreview = false

	if err := WriteSettings(settings); err != nil {
		t.Fatalf("WriteSettings failed: %v", err)
	}
	got, err := ReadSettings()
	if err != nil {
		t.Fatalf("ReadSettings failed: %v", err)
	}
	if got.Repository.Branch != "draft" || got.Auth.ClientID != "abc" || got.UI.ShowPreview {
		t.Errorf("settings not preserved: %+v", got)
	}
	if got.Editor.CommitTimeout != settings.Editor.CommitTimeout {
		t.Errorf("CommitTimeout = %v", got.Editor.CommitTimeout)
	}
}
