package models

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// WidgetKind is the declared editing behavior of a schema field.
type WidgetKind int

const (
	WidgetScalar WidgetKind = iota
	WidgetText
	WidgetCode
	WidgetMarkdown
	WidgetObject
	WidgetList
	WidgetHidden
)

var widgetNames = map[WidgetKind]string{
	WidgetScalar:   "string",
	WidgetText:     "text",
	WidgetCode:     "code",
	WidgetMarkdown: "markdown",
	WidgetObject:   "object",
	WidgetList:     "list",
	WidgetHidden:   "hidden",
}

// ParseWidgetKind maps the config vocabulary onto a WidgetKind.
func ParseWidgetKind(s string) (WidgetKind, error) {
	for kind, name := range widgetNames {
		if name == s {
			return kind, nil
		}
	}
	return 0, fmt.Errorf("unknown widget %q", s)
}

func (k WidgetKind) String() string {
	if name, ok := widgetNames[k]; ok {
		return name
	}
	return fmt.Sprintf("widget(%d)", int(k))
}

// IsTextual reports whether the widget edits a single text value.
func (k WidgetKind) IsTextual() bool {
	switch k {
	case WidgetScalar, WidgetText, WidgetCode, WidgetMarkdown:
		return true
	}
	return false
}

// Multiline reports whether the widget is edited in a textarea.
func (k WidgetKind) Multiline() bool {
	return k == WidgetText || k == WidgetCode || k == WidgetMarkdown
}

// Rows is the suggested textarea height for the widget.
func (k WidgetKind) Rows() int {
	switch k {
	case WidgetCode:
		return 10
	case WidgetMarkdown:
		return 15
	case WidgetText:
		return 3
	}
	return 1
}

func (k WidgetKind) MarshalYAML() (interface{}, error) {
	return k.String(), nil
}

func (k *WidgetKind) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	parsed, err := ParseWidgetKind(s)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*k = parsed
	return nil
}

// FieldSchema describes one editable field. Fields is set only for object
// widgets and Types only for list widgets.
type FieldSchema struct {
	Name    string        `yaml:"name"`
	Label   string        `yaml:"label"`
	Widget  WidgetKind    `yaml:"widget"`
	Default interface{}   `yaml:"default,omitempty"`
	Fields  []FieldSchema `yaml:"fields,omitempty"`
	Types   []ListVariant `yaml:"types,omitempty"`
}

// DisplayLabel falls back to the field name when no label is configured.
func (f FieldSchema) DisplayLabel() string {
	if f.Label != "" {
		return f.Label
	}
	return f.Name
}

// Variant returns the list variant with the given name.
func (f FieldSchema) Variant(name string) (ListVariant, bool) {
	for _, v := range f.Types {
		if v.Name == name {
			return v, true
		}
	}
	return ListVariant{}, false
}

// ListVariant is one named shape an ordered-list item may take.
type ListVariant struct {
	Name   string        `yaml:"name"`
	Label  string        `yaml:"label"`
	Fields []FieldSchema `yaml:"fields"`
}

func (v ListVariant) DisplayLabel() string {
	if v.Label != "" {
		return v.Label
	}
	return v.Name
}

// CollectionSchema is the field schema of one top-level content directory.
type CollectionSchema struct {
	Name   string        `yaml:"name"`
	Label  string        `yaml:"label,omitempty"`
	Fields []FieldSchema `yaml:"fields"`
}

// EditorConfig is the parsed schema document.
type EditorConfig struct {
	Collections []CollectionSchema `yaml:"collections"`
}

// Collection looks up a collection by name.
func (c *EditorConfig) Collection(name string) (*CollectionSchema, bool) {
	if c == nil {
		return nil, false
	}
	for i := range c.Collections {
		if c.Collections[i].Name == name {
			return &c.Collections[i], true
		}
	}
	return nil, false
}

// CollectionNames lists collection names in declaration order.
func (c *EditorConfig) CollectionNames() []string {
	if c == nil {
		return nil
	}
	names := make([]string, 0, len(c.Collections))
	for _, col := range c.Collections {
		names = append(names, col.Name)
	}
	return names
}
