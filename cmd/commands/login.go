package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/strategycontent/contentdesk/internal/cli"
)

// NewLoginCommand creates the login command
func NewLoginCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Authorize contentdesk with GitHub",
		Long: `Authorize contentdesk to read and commit content in the configured repository.

A browser window opens on GitHub's authorization page. After you approve,
GitHub redirects back to a temporary local listener and the token is
stored in .contentdesk/state.db.

When CONTENTDESK_TOKEN is set, that token is stored instead.

Examples:
  # Log in through the browser
  contentdesk login

  # Store a token from the environment
  CONTENTDESK_TOKEN=ghp_xxx contentdesk login`,
		Args:    cobra.NoArgs,
		PreRunE: validateProject,
		RunE:    runLogin,
	}
	return cmd
}

func runLogin(cmd *cobra.Command, args []string) error {
	cc, err := openContext(cmd)
	if err != nil {
		return err
	}
	defer cc.Close()

	ctx := commandContext(cmd)
	token, err := cc.AuthProvider(cli.PrintAuthURL).Login(ctx)
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}
	ctrl := cc.UnconfiguredController(nil)
	if err := ctrl.Login(ctx, token); err != nil {
		return fmt.Errorf("failed to store token: %w", err)
	}
	cli.PrintSuccess("Logged in to %s", cc.Config.RepositoryName())
	return nil
}

// NewLogoutCommand creates the logout command
func NewLogoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored GitHub token",
		Long: `Remove the token stored by 'contentdesk login'.

A token given through CONTENTDESK_TOKEN is not affected.`,
		Args:    cobra.NoArgs,
		PreRunE: validateProject,
		RunE:    runLogout,
	}
}

func runLogout(cmd *cobra.Command, args []string) error {
	cc, err := openContext(cmd)
	if err != nil {
		return err
	}
	defer cc.Close()

	ok, err := cli.Confirm("Forget the stored token?", true)
	if err != nil {
		return err
	}
	if !ok {
		cli.PrintInfo("Logout cancelled")
		return nil
	}
	if err := cc.UnconfiguredController(nil).Logout(commandContext(cmd)); err != nil {
		return fmt.Errorf("failed to clear token: %w", err)
	}
	cli.PrintSuccess("Logged out")
	return nil
}
