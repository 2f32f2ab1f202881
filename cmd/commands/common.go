package commands

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/strategycontent/contentdesk/internal/cli"
)

// validateProject is the PreRunE shared by commands that need an
// initialized project.
func validateProject(cmd *cobra.Command, args []string) error {
	ctx, err := cli.NewCommandContext("")
	if err != nil {
		return err
	}
	return ctx.ValidateProject()
}

// openContext builds the command context from the global flags.
func openContext(cmd *cobra.Command) (*cli.CommandContext, error) {
	local, _ := cmd.Flags().GetString("local")
	cc, err := cli.NewCommandContext(local)
	if err != nil {
		return nil, err
	}
	cc.Verbose, _ = cmd.Flags().GetBool("verbose")
	if err := cc.Open(commandContext(cmd)); err != nil {
		cc.Close()
		return nil, err
	}
	return cc, nil
}

// openSession is openContext plus a logged-in check.
func openSession(cmd *cobra.Command) (*cli.CommandContext, error) {
	cc, err := openContext(cmd)
	if err != nil {
		return nil, err
	}
	if err := cc.RequireToken(); err != nil {
		cc.Close()
		return nil, err
	}
	return cc, nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func outputFormat(cmd *cobra.Command) (string, error) {
	format, _ := cmd.Flags().GetString("output")
	if format == "" {
		format = string(cli.FormatText)
	}
	return format, cli.ValidateOutputFormat(format)
}
