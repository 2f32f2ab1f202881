package cli

import (
	"fmt"
	"strings"
)

// Assignment is one field=value argument of the set command.
type Assignment struct {
	Path  string
	Value string
}

// ParseAssignments splits field=value arguments. Paths use dots for
// nesting and list indexes, e.g. seo.title or sections.0.text.
func ParseAssignments(args []string) ([]Assignment, error) {
	out := make([]Assignment, 0, len(args))
	for _, arg := range args {
		path, value, ok := strings.Cut(arg, "=")
		path = strings.TrimSpace(path)
		if !ok || path == "" {
			return nil, fmt.Errorf("invalid assignment %q (expected field=value)", arg)
		}
		out = append(out, Assignment{Path: path, Value: value})
	}
	return out, nil
}

// ValidateContentPath rejects paths that cannot name a repository file.
func ValidateContentPath(p string) error {
	clean := strings.Trim(strings.TrimSpace(p), "/")
	if clean == "" {
		return fmt.Errorf("path is required")
	}
	for _, seg := range strings.Split(clean, "/") {
		if seg == "" || seg == "." || seg == ".." {
			return fmt.Errorf("invalid path: %s", p)
		}
	}
	return nil
}

// ValidateOutputFormat checks the -o flag.
func ValidateOutputFormat(format string) error {
	switch OutputFormat(format) {
	case FormatText, FormatJSON, FormatYAML:
		return nil
	}
	return fmt.Errorf("unsupported output format: %s (must be: text, json, or yaml)", format)
}
