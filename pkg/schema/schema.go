// Package schema loads the collection schema document and answers the
// lookups the editor needs: which collection a path belongs to and what a
// freshly added list item or file looks like.
package schema

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/strategycontent/contentdesk/pkg/models"
)

var (
	// ErrUnknownCollection indicates a path whose first segment names no collection.
	ErrUnknownCollection = errors.New("schema: unknown collection")
	// ErrInvalidSchema indicates a schema document that breaks a structural rule.
	ErrInvalidSchema = errors.New("schema: invalid schema")
)

// Load reads and validates the schema document at path.
func Load(path string) (*models.EditorConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes and validates a schema document.
func Parse(data []byte) (*models.EditorConfig, error) {
	var cfg models.EditorConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSchema, err)
	}
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the structural rules of the schema: object widgets carry
// child fields, list widgets carry variants, nothing else carries either,
// and names are unique at each level.
func Validate(cfg *models.EditorConfig) error {
	if cfg == nil || len(cfg.Collections) == 0 {
		return fmt.Errorf("%w: no collections defined", ErrInvalidSchema)
	}
	seen := make(map[string]bool)
	for _, c := range cfg.Collections {
		if c.Name == "" {
			return fmt.Errorf("%w: collection without a name", ErrInvalidSchema)
		}
		if seen[c.Name] {
			return fmt.Errorf("%w: duplicate collection %q", ErrInvalidSchema, c.Name)
		}
		seen[c.Name] = true
		if err := validateFields(c.Name, c.Fields); err != nil {
			return err
		}
	}
	return nil
}

func validateFields(scope string, fields []models.FieldSchema) error {
	names := make(map[string]bool, len(fields))
	for _, f := range fields {
		where := scope + "." + f.Name
		if f.Name == "" {
			return fmt.Errorf("%w: field without a name in %s", ErrInvalidSchema, scope)
		}
		if f.Name == "type" && isVariantScope(scope) {
			return fmt.Errorf("%w: %s shadows the list item type tag", ErrInvalidSchema, where)
		}
		if names[f.Name] {
			return fmt.Errorf("%w: duplicate field %s", ErrInvalidSchema, where)
		}
		names[f.Name] = true

		switch f.Widget {
		case models.WidgetObject:
			if len(f.Fields) == 0 {
				return fmt.Errorf("%w: object field %s has no fields", ErrInvalidSchema, where)
			}
			if len(f.Types) > 0 {
				return fmt.Errorf("%w: object field %s declares list types", ErrInvalidSchema, where)
			}
			if err := validateFields(where, f.Fields); err != nil {
				return err
			}
		case models.WidgetList:
			if len(f.Types) == 0 {
				return fmt.Errorf("%w: list field %s has no types", ErrInvalidSchema, where)
			}
			if len(f.Fields) > 0 {
				return fmt.Errorf("%w: list field %s declares object fields", ErrInvalidSchema, where)
			}
			variants := make(map[string]bool, len(f.Types))
			for _, v := range f.Types {
				if v.Name == "" {
					return fmt.Errorf("%w: unnamed type in %s", ErrInvalidSchema, where)
				}
				if variants[v.Name] {
					return fmt.Errorf("%w: duplicate type %q in %s", ErrInvalidSchema, v.Name, where)
				}
				variants[v.Name] = true
				if err := validateFields(where+"["+v.Name+"]", v.Fields); err != nil {
					return err
				}
			}
		default:
			if len(f.Fields) > 0 || len(f.Types) > 0 {
				return fmt.Errorf("%w: %s field %s cannot have nested fields", ErrInvalidSchema, f.Widget, where)
			}
		}
	}
	return nil
}

func isVariantScope(scope string) bool {
	return len(scope) > 0 && scope[len(scope)-1] == ']'
}

// ResolveCollection returns the collection owning filePath.
func ResolveCollection(cfg *models.EditorConfig, filePath string) (*models.CollectionSchema, error) {
	name := models.CollectionOf(filePath)
	c, ok := cfg.Collection(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCollection, name)
	}
	return c, nil
}

// VariantDefaults builds a new list item of the given variant: the type tag
// plus every variant field set to its default.
func VariantDefaults(v models.ListVariant) map[string]interface{} {
	item := FieldDefaults(v.Fields)
	item["type"] = v.Name
	return item
}

// FieldDefaults maps each field to its default value. Text fields without a
// default get "", objects recurse and lists start empty.
func FieldDefaults(fields []models.FieldSchema) map[string]interface{} {
	out := make(map[string]interface{}, len(fields))
	for _, f := range fields {
		out[f.Name] = FieldDefault(f)
	}
	return out
}

// FieldDefault is the value a field takes when the data does not set it.
func FieldDefault(f models.FieldSchema) interface{} {
	if f.Default != nil {
		return f.Default
	}
	switch f.Widget {
	case models.WidgetObject:
		return FieldDefaults(f.Fields)
	case models.WidgetList:
		return []interface{}{}
	case models.WidgetHidden:
		return nil
	}
	return ""
}

// CollectionDefaults returns the metadata of a newly created file: only the
// fields that declare a default.
func CollectionDefaults(c *models.CollectionSchema) map[string]interface{} {
	meta := map[string]interface{}{}
	if c == nil {
		return meta
	}
	for _, f := range c.Fields {
		if f.Default != nil {
			meta[f.Name] = f.Default
		}
	}
	return meta
}
