package commands

import (
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/strategycontent/contentdesk/internal/cli"
	"github.com/strategycontent/contentdesk/pkg/frontmatter"
	"github.com/strategycontent/contentdesk/pkg/models"
)

var (
	showCopy  bool
	showWidth int
)

// ShowResult is the structured form of show output.
type ShowResult struct {
	Path          string                 `json:"path" yaml:"path"`
	RevisionToken string                 `json:"revision" yaml:"revision"`
	Collection    string                 `json:"collection,omitempty" yaml:"collection,omitempty"`
	Metadata      map[string]interface{} `json:"metadata" yaml:"metadata"`
	Body          string                 `json:"body" yaml:"body"`
}

// NewShowCommand creates the show command
func NewShowCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <path>",
		Short: "Display a content file",
		Long: `Display a content file: its front matter read through the collection's
field schema, then the body.

Examples:
  # Show a page
  contentdesk show pages/home.astro

  # Copy the file text to the clipboard
  contentdesk show pages/home.astro --copy

  # Output as JSON
  contentdesk show pages/home.astro -o json`,
		Args: cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if err := cli.ValidateContentPath(args[0]); err != nil {
				return err
			}
			return validateProject(cmd, args)
		},
		RunE: runShow,
	}

	cmd.Flags().BoolVarP(&showCopy, "copy", "c", false, "Copy the file text to the clipboard")
	cmd.Flags().IntVarP(&showWidth, "width", "w", cli.DefaultWrapWidth, "Wrap the body at this width")

	return cmd
}

func runShow(cmd *cobra.Command, args []string) error {
	format, err := outputFormat(cmd)
	if err != nil {
		return err
	}

	cc, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer cc.Close()

	ctx := commandContext(cmd)
	ctrl, err := cc.Controller(ctx, nil)
	if err != nil {
		return err
	}
	if err := ctrl.OpenFile(ctx, args[0]); err != nil {
		return fmt.Errorf("failed to open %s: %w", args[0], err)
	}
	defer ctrl.CloseFile()

	result := ShowResult{
		Path:          ctrl.File.Path,
		RevisionToken: ctrl.File.RevisionToken,
		Metadata:      ctrl.File.Metadata,
		Body:          ctrl.File.BodyText(),
	}
	if ctrl.Form != nil {
		result.Collection = ctrl.Collection.Name
		result.Metadata = ctrl.Form.Read()
	} else {
		cli.PrintWarning("%v", ctrl.FormErr)
	}

	if showCopy {
		raw, err := frontmatter.Join(result.Metadata, result.Body)
		if err != nil {
			return err
		}
		if err := clipboard.WriteAll(raw); err != nil {
			return fmt.Errorf("failed to copy to clipboard: %w", err)
		}
		cli.PrintSuccess("Copied %s to clipboard", result.Path)
		return nil
	}

	if format != string(cli.FormatText) {
		return cli.OutputResults(cmd.OutOrStdout(), format, result)
	}
	return outputShowText(cmd, result)
}

func outputShowText(cmd *cobra.Command, result ShowResult) error {
	out := cmd.OutOrStdout()
	if !cli.Quiet() {
		fmt.Fprintf(out, "# %s (%s)\n", result.Path, shortToken(result.RevisionToken))
	}
	meta := result.Metadata
	if meta == nil {
		meta = map[string]interface{}{}
	}
	block, err := yaml.Marshal(meta)
	if err != nil {
		return fmt.Errorf("failed to encode metadata: %w", err)
	}
	fmt.Fprint(out, string(block))
	fmt.Fprintln(out, "---")
	body := strings.TrimPrefix(result.Body, "\n")
	if body != "" {
		fmt.Fprintln(out, cli.Wrap(body, showWidth))
	}
	return nil
}

func shortToken(token string) string {
	if token == "" {
		return "uncommitted"
	}
	return token[:min(len(token), 10)]
}

// collectionNames is shared by commands that print the configured
// collections in their errors.
func collectionNames(cfg *models.EditorConfig) string {
	if cfg == nil {
		return ""
	}
	return strings.Join(cfg.CollectionNames(), ", ")
}
