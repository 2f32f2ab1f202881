package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/strategycontent/contentdesk/internal/cli"
	"github.com/strategycontent/contentdesk/pkg/files"
	"github.com/strategycontent/contentdesk/pkg/preview"
)

var (
	previewOut  string
	previewOpen bool
)

// NewPreviewCommand creates the preview command
func NewPreviewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "preview <path>",
		Short: "Render a content file's markdown to HTML",
		Long: `Render the markdown fields and the body of a content file to a
standalone HTML page.

Examples:
  # Print the HTML
  contentdesk preview pages/home.astro

  # Write it to a file and open it
  contentdesk preview pages/home.astro --out home.html --open`,
		Args: cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if err := cli.ValidateContentPath(args[0]); err != nil {
				return err
			}
			return validateProject(cmd, args)
		},
		RunE: runPreview,
	}

	cmd.Flags().StringVar(&previewOut, "out", "", "Write the page to this file instead of stdout")
	cmd.Flags().BoolVar(&previewOpen, "open", false, "Open the written page in the browser (requires --out)")

	return cmd
}

func runPreview(cmd *cobra.Command, args []string) error {
	if previewOpen && previewOut == "" {
		return fmt.Errorf("--open requires --out")
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

	renderer := preview.New()
	var sections []preview.Section
	if ctrl.Form != nil {
		if sections, err = renderer.Fields(ctrl.Form); err != nil {
			return err
		}
	}
	title := ctrl.File.Path
	if t, ok := ctrl.File.Metadata["title"].(string); ok && t != "" {
		title = t
	}
	page, err := renderer.Page(title, sections, ctrl.File.BodyText())
	if err != nil {
		return fmt.Errorf("failed to render %s: %w", ctrl.File.Path, err)
	}

	if previewOut == "" {
		fmt.Fprint(cmd.OutOrStdout(), page)
		return nil
	}
	if err := files.WriteFile(previewOut, page); err != nil {
		return err
	}
	cli.PrintSuccess("Wrote %s", previewOut)
	if previewOpen {
		return cli.OpenBrowser(previewOut)
	}
	return nil
}
