package files

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/strategycontent/contentdesk/pkg/models"
)

const (
	ProjectDir   = ".contentdesk"
	LogsDir      = "logs"
	SettingsFile = "settings.yaml"
	StateFile    = "state.db"
)

// ErrNotInitialized is returned when no project directory exists.
var ErrNotInitialized = errors.New("no .contentdesk directory found. Run 'contentdesk init' first")

func InitProjectStructure() error {
	dirs := []string{
		ProjectDir,
		filepath.Join(ProjectDir, LogsDir),
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	if _, err := os.Stat(SettingsPath()); os.IsNotExist(err) {
		if err := WriteSettings(models.DefaultSettings()); err != nil {
			return err
		}
	}

	return nil
}

// ProjectExists reports whether the project directory is present.
func ProjectExists() bool {
	st, err := os.Stat(ProjectDir)
	return err == nil && st.IsDir()
}

func SettingsPath() string {
	return filepath.Join(ProjectDir, SettingsFile)
}

func LogsPath() string {
	return filepath.Join(ProjectDir, LogsDir)
}

func StatePath() string {
	return filepath.Join(ProjectDir, StateFile)
}

// ReadSettings reads settings.yaml on top of the defaults, so keys missing
// from the file keep their default values.
func ReadSettings() (*models.Settings, error) {
	settings := models.DefaultSettings()

	content, err := os.ReadFile(SettingsPath())
	if err != nil {
		if os.IsNotExist(err) {
			return settings, nil
		}
		return nil, fmt.Errorf("failed to read settings: %w", err)
	}

	if err := yaml.Unmarshal(content, settings); err != nil {
		return nil, fmt.Errorf("failed to parse settings YAML: %w", err)
	}

	return settings, nil
}

func WriteSettings(settings *models.Settings) error {
	if err := os.MkdirAll(ProjectDir, 0755); err != nil {
		return fmt.Errorf("failed to create directory for settings: %w", err)
	}

	content, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("failed to marshal settings to YAML: %w", err)
	}

	if err := os.WriteFile(SettingsPath(), content, 0644); err != nil {
		return fmt.Errorf("failed to write settings: %w", err)
	}

	return nil
}

// WriteFile writes content to a file outside the project directory.
func WriteFile(path string, content string) error {
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write file %s: %w", path, err)
	}
	return nil
}
