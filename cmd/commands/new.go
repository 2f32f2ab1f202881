package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/strategycontent/contentdesk/internal/cli"
	"github.com/strategycontent/contentdesk/pkg/schema"
)

var (
	newMessage string
)

// NewNewCommand creates the new command
func NewNewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "new <collection> <name> [field=value]...",
		Short: "Create a content file in a collection",
		Long: `Create a file in a collection from the collection's field defaults and
commit it.

The configured extension (.astro by default) is appended to the name
when missing. Field assignments work as in 'contentdesk set'. Creating a
file that already exists fails without overwriting it.

Examples:
  # Create a page with default values
  contentdesk new pages contact -m "feat: add contact page"

  # Create a post with a title
  contentdesk new posts hello-world title="Hello, world"`,
		Args: cobra.MinimumNArgs(2),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if _, err := cli.ParseAssignments(args[2:]); err != nil {
				return err
			}
			return validateProject(cmd, args)
		},
		RunE: runNew,
	}

	cmd.Flags().StringVarP(&newMessage, "message", "m", "", "Commit message (prompted when omitted)")

	return cmd
}

func runNew(cmd *cobra.Command, args []string) error {
	assignments, err := cli.ParseAssignments(args[2:])
	if err != nil {
		return err
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
	if err := ctrl.CreateNew(args[0], args[1]); err != nil {
		if errors.Is(err, schema.ErrUnknownCollection) {
			return fmt.Errorf("%w (configured: %s)", err, collectionNames(ctrl.Config))
		}
		return err
	}
	defer ctrl.CloseFile()

	if err := applyAssignments(ctrl, assignments); err != nil {
		return err
	}
	return commitOpenFile(cmd, cc.Workflow(), ctrl, newMessage)
}
