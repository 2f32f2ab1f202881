package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/strategycontent/contentdesk/internal/cli"
	"github.com/strategycontent/contentdesk/pkg/commit"
	"github.com/strategycontent/contentdesk/pkg/remote"
	"github.com/strategycontent/contentdesk/pkg/session"
)

var (
	setMessage string
)

// NewSetCommand creates the set command
func NewSetCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set <path> <field=value>...",
		Short: "Edit front matter fields and commit",
		Long: `Set text fields of a content file and commit the result.

Fields are addressed by name; nested objects and list items use dots,
e.g. seo.title or sections.0.text. Only string, text, code and markdown
fields can be set. Every other field is written back as it was read.

The commit is rejected if the file changed since it was read.

Examples:
  # Change a title
  contentdesk set pages/home.astro title="Welcome" -m "feat: retitle home"

  # Edit a list item
  contentdesk set pages/home.astro sections.0.text="<p>Hello</p>"`,
		Args: cobra.MinimumNArgs(2),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if err := cli.ValidateContentPath(args[0]); err != nil {
				return err
			}
			if _, err := cli.ParseAssignments(args[1:]); err != nil {
				return err
			}
			return validateProject(cmd, args)
		},
		RunE: runSet,
	}

	cmd.Flags().StringVarP(&setMessage, "message", "m", "", "Commit message (prompted when omitted)")

	return cmd
}

func runSet(cmd *cobra.Command, args []string) error {
	assignments, err := cli.ParseAssignments(args[1:])
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

	if err := applyAssignments(ctrl, assignments); err != nil {
		return err
	}
	if !ctrl.Form.Dirty() {
		cli.PrintInfo("No changes to %s", ctrl.File.Path)
		return nil
	}
	return commitOpenFile(cmd, cc.Workflow(), ctrl, setMessage)
}

// applyAssignments writes each value into the open form.
func applyAssignments(ctrl *session.Controller, assignments []cli.Assignment) error {
	if ctrl.Form == nil {
		return fmt.Errorf("%s: %w", ctrl.File.Path, ctrl.FormErr)
	}
	for _, a := range assignments {
		control, err := ctrl.Form.Control(a.Path)
		if err != nil {
			return fmt.Errorf("cannot set %s: %w", a.Path, err)
		}
		control.SetText(a.Value)
	}
	return nil
}

// commitError words a failed commit of path.
func commitError(path string, created bool, err error) error {
	switch {
	case created && remote.IsAlreadyExists(err):
		return fmt.Errorf("%s already exists; nothing was written: %w", path, err)
	case !created && remote.IsConflict(err):
		return fmt.Errorf("%s changed since it was read; nothing was written: %w", path, err)
	}
	return fmt.Errorf("failed to commit %s: %w", path, err)
}

// commitOpenFile saves the controller's open file with message, prompting
// for one when it is empty.
func commitOpenFile(cmd *cobra.Command, wf *commit.Workflow, ctrl *session.Controller, message string) error {
	if message == "" {
		m, err := cli.Prompt("Commit message", commit.DefaultMessage(&ctrl.File))
		if err != nil {
			return err
		}
		message = m
	}

	data := ctrl.Form.Read()
	file := ctrl.File
	res, err := wf.Save(commandContext(cmd), commit.Request{File: &file, Data: data, Message: message})
	if errors.Is(err, commit.ErrAborted) {
		cli.PrintInfo("Save cancelled: no commit message")
		return nil
	}
	if err != nil {
		return commitError(file.Path, file.IsNew(), err)
	}
	ctrl.MarkSaved(res.Path, res.RevisionToken, data)

	verb := "Updated"
	if res.Created {
		verb = "Created"
	}
	cli.PrintSuccess("%s %s (%s)", verb, res.Path, shortToken(res.RevisionToken))
	return nil
}
