package session

import (
	"context"
	"fmt"

	"github.com/strategycontent/contentdesk/pkg/models"
	"github.com/strategycontent/contentdesk/pkg/remote"
	"github.com/strategycontent/contentdesk/pkg/schema"
)

// LoadEditorConfig reads the collection schema from disk or, when the
// source is remote, from the content repository itself.
func LoadEditorConfig(ctx context.Context, settings models.SchemaSettings, store remote.Store) (*models.EditorConfig, error) {
	if settings.Source != models.SchemaSourceRemote {
		return schema.Load(settings.Path)
	}
	fc, err := store.GetFile(ctx, settings.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch schema %s: %w", settings.Path, err)
	}
	raw, err := fc.Decode()
	if err != nil {
		return nil, err
	}
	cfg, err := schema.Parse([]byte(raw))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", settings.Path, err)
	}
	return cfg, nil
}
