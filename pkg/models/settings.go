package models

import "time"

// Settings represents the application configuration
type Settings struct {
	Repository RepositorySettings `yaml:"repository"`
	Auth       AuthSettings       `yaml:"auth"`
	Schema     SchemaSettings     `yaml:"schema"`
	Editor     EditorSettings     `yaml:"editor"`
	UI         UISettings         `yaml:"ui"`
	Log        LogSettings        `yaml:"log"`
}

// RepositorySettings identifies the repository holding the content
type RepositorySettings struct {
	Owner      string `yaml:"owner"`
	Name       string `yaml:"name"`
	Branch     string `yaml:"branch,omitempty"`
	APIBaseURL string `yaml:"api_base_url"`
}

// AuthSettings configures the OAuth code exchange
type AuthSettings struct {
	AuthorizeURL string `yaml:"authorize_url"`
	ExchangeURL  string `yaml:"exchange_url"`
	ClientID     string `yaml:"client_id"`
	Scope        string `yaml:"scope"`
	CallbackPort int    `yaml:"callback_port"` // 0 picks a free port
}

// SchemaSettings locates the collection schema document
type SchemaSettings struct {
	Path   string `yaml:"path"`
	Source string `yaml:"source"` // "local" or "remote"
}

// EditorSettings controls editing and committing
type EditorSettings struct {
	NewFileExtension string        `yaml:"new_file_extension"`
	DefaultBody      string        `yaml:"default_body"`
	CommitTimeout    time.Duration `yaml:"commit_timeout"`
	RequestTimeout   time.Duration `yaml:"request_timeout"`
}

// UISettings controls UI preferences
type UISettings struct {
	ShowPreview bool `yaml:"show_preview"`
}

// LogSettings controls the log file
type LogSettings struct {
	Level string `yaml:"level"`
}

const (
	SchemaSourceLocal  = "local"
	SchemaSourceRemote = "remote"
)

// DefaultSettings returns the default configuration
func DefaultSettings() *Settings {
	return &Settings{
		Repository: RepositorySettings{
			APIBaseURL: "https://api.github.com",
		},
		Auth: AuthSettings{
			AuthorizeURL: "https://github.com/login/oauth/authorize",
			Scope:        "repo",
		},
		Schema: SchemaSettings{
			Path:   "admin/config.yml",
			Source: SchemaSourceLocal,
		},
		Editor: EditorSettings{
			NewFileExtension: ".astro",
			DefaultBody:      "\n<!-- Add your page content here if not using sections -->",
			CommitTimeout:    30 * time.Second,
			RequestTimeout:   20 * time.Second,
		},
		UI: UISettings{
			ShowPreview: true,
		},
		Log: LogSettings{
			Level: "info",
		},
	}
}
