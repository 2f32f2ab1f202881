package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/strategycontent/contentdesk/cmd/commands"
	"github.com/strategycontent/contentdesk/internal/cli"
	"github.com/strategycontent/contentdesk/pkg/files"
	"github.com/strategycontent/contentdesk/pkg/models"
	"github.com/strategycontent/contentdesk/pkg/remote"
	"github.com/strategycontent/contentdesk/pkg/tui"
)

// Version is set during build with -ldflags
var version = "dev"

var (
	flagQuiet   bool
	flagNoColor bool
	flagYes     bool
	flagVerbose bool
	flagLocal   string
	flagOutput  string
)

var rootCmd = &cobra.Command{
	Use:   "contentdesk",
	Short: "Terminal editor for front-matter content in a GitHub repository",
	Long: `contentdesk browses the content collections of a GitHub repository,
edits each file's front matter through a form generated from the
collection's field schema, and commits the result back to GitHub.

Run without arguments to start the interactive TUI.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		cli.SetGlobalFlags(flagQuiet, flagNoColor, flagYes)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		if !files.ProjectExists() {
			fmt.Fprintf(os.Stderr, "Error: No %s directory found in the current directory.\n", files.ProjectDir)
			fmt.Fprintf(os.Stderr, "Please run 'contentdesk init' first to initialize a new project.\n")
			os.Exit(1)
		}
		return runTUI(cmd.Context())
	},
}

func runTUI(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cc, err := cli.NewCommandContext(flagLocal)
	if err != nil {
		return err
	}
	if err := cc.Open(ctx); err != nil {
		return err
	}
	defer cc.Close()

	urls := make(chan string, 1)
	provider := cc.AuthProvider(func(url string) error {
		select {
		case urls <- url:
		default:
		}
		if err := cli.OpenBrowser(url); err != nil {
			cc.Log.Warnw("could not open browser", "error", err)
		}
		return nil
	})

	pool := tui.NewTextareaPool()
	ctrl, schemaErr := cc.Controller(ctx, pool)
	if errors.Is(schemaErr, remote.ErrUnauthenticated) {
		// the schema lives in the repository; read it after login
		cc.Session.AccessToken = ""
		schemaErr = nil
	}
	if ctrl == nil {
		ctrl = cc.UnconfiguredController(pool)
	}

	app := tui.NewApp(tui.Deps{
		Controller: ctrl,
		Workflow:   cc.Workflow(),
		Auth:       provider,
		AuthURLs:   urls,
		Pool:       pool,
		SchemaErr:  schemaErr,
		LoadConfig: func(ctx context.Context) (*models.EditorConfig, error) {
			return cc.EditorConfig(ctx)
		},
		Repo: cc.Config.RepositoryName(),
		Log:  cc.Log,
	})
	cc.Log.Infow("starting tui", "repository", cc.Config.RepositoryName(), "authenticated", ctrl.Authenticated())

	p := tea.NewProgram(app, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to start the terminal user interface: %v\n", err)
		fmt.Fprintf(os.Stderr, "This could be due to terminal compatibility issues. Try running in a different terminal.\n")
		os.Exit(1)
	}
	return nil
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a contentdesk project",
	Long:  `Creates the .contentdesk folder with default settings in the current directory`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cwd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("failed to determine current directory: %w", err)
		}
		cli.PrintInfo("Initializing contentdesk project in %s...", cwd)

		if err := files.InitProjectStructure(); err != nil {
			return fmt.Errorf("failed to initialize project structure: %w", err)
		}

		cli.PrintSuccess("Created %s", files.ProjectDir)
		cli.PrintInfo("Set repository.owner and repository.name in %s, then run 'contentdesk login'.", files.SettingsPath())
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of contentdesk",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "contentdesk version %s\n", version)
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.BoolVarP(&flagQuiet, "quiet", "q", false, "Suppress informational output")
	flags.BoolVar(&flagNoColor, "no-color", false, "Disable symbols and colors in output")
	flags.BoolVarP(&flagYes, "yes", "y", false, "Answer yes to confirmations and accept default prompts")
	flags.BoolVar(&flagVerbose, "verbose", false, "Log to stderr instead of the log file (subcommands only)")
	flags.StringVar(&flagLocal, "local", "", "Serve content from a local directory instead of GitHub")
	flags.StringVarP(&flagOutput, "output", "o", "text", "Output format: text, json or yaml")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(commands.NewLoginCommand())
	rootCmd.AddCommand(commands.NewLogoutCommand())
	rootCmd.AddCommand(commands.NewListCommand())
	rootCmd.AddCommand(commands.NewShowCommand())
	rootCmd.AddCommand(commands.NewSetCommand())
	rootCmd.AddCommand(commands.NewNewCommand())
	rootCmd.AddCommand(commands.NewPreviewCommand())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		cli.PrintError("%v", err)
		os.Exit(1)
	}
}
