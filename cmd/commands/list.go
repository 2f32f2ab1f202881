package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/strategycontent/contentdesk/internal/cli"
	"github.com/strategycontent/contentdesk/pkg/models"
)

// ListItem is one entry of ls output.
type ListItem struct {
	Name string `json:"name" yaml:"name"`
	Path string `json:"path" yaml:"path"`
	Type string `json:"type" yaml:"type"`
}

// ListResult is the structured form of ls output.
type ListResult struct {
	Path  string     `json:"path" yaml:"path"`
	Items []ListItem `json:"items" yaml:"items"`
	Count int        `json:"count" yaml:"count"`
}

// NewListCommand creates the ls command
func NewListCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ls [path]",
		Short: "List a repository directory",
		Long: `List the entries of a repository directory, directories first.

At the repository root only the configured collections are shown.

Examples:
  # List the collections
  contentdesk ls

  # List a collection
  contentdesk ls pages

  # Output as JSON
  contentdesk ls pages -o json`,
		Aliases: []string{"list"},
		Args:    cobra.MaximumNArgs(1),
		PreRunE: validateProject,
		RunE:    runList,
	}
	return cmd
}

func runList(cmd *cobra.Command, args []string) error {
	format, err := outputFormat(cmd)
	if err != nil {
		return err
	}
	dir := ""
	if len(args) > 0 {
		dir = args[0]
	}

	cc, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer cc.Close()

	ctrl, err := cc.Controller(commandContext(cmd), nil)
	if err != nil {
		return err
	}
	entries, err := ctrl.FetchListing(commandContext(cmd), dir)
	if err != nil {
		return fmt.Errorf("failed to list %s: %w", displayPath(dir), err)
	}

	result := ListResult{Path: displayPath(dir), Items: make([]ListItem, 0, len(entries))}
	for _, e := range entries {
		result.Items = append(result.Items, ListItem{Name: e.Name, Path: e.Path, Type: string(e.Kind)})
	}
	result.Count = len(result.Items)

	if format != string(cli.FormatText) {
		return cli.OutputResults(cmd.OutOrStdout(), format, result)
	}
	return outputListText(cmd, result)
}

func outputListText(cmd *cobra.Command, result ListResult) error {
	out := cmd.OutOrStdout()
	if result.Count == 0 {
		fmt.Fprintln(out, "No files in this directory.")
		return nil
	}
	table := cli.NewTableFormatter(out)
	table.Header("TYPE", "NAME", "PATH")
	for _, item := range result.Items {
		name := item.Name
		if models.EntryKind(item.Type) == models.EntryDirectory {
			name += "/"
		}
		table.Row(item.Type, cli.TruncateString(name, 48), item.Path)
	}
	table.Flush()
	return nil
}

func displayPath(p string) string {
	if p == "" {
		return "/"
	}
	return p
}
