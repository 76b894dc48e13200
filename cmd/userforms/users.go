package main

import (
	"context"
	"errors"
	"os"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-userforms/internal/console"
	"github.com/goliatone/go-userforms/pkg/form"
	"github.com/goliatone/go-userforms/pkg/renderers/tui"
)

var (
	validateOnBlur bool
	maxAttempts    int
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List users",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newConsole(nil)
		if err != nil {
			return err
		}
		_, err = app.Refresh(commandContext(cmd))
		return err
	},
}

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a user through an interactive form",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newConsole(nil)
		if err != nil {
			return err
		}
		_, err = app.Create(commandContext(cmd))
		return err
	},
}

var editCmd = &cobra.Command{
	Use:   "edit ID",
	Short: "Edit a user through an interactive form",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newConsole(nil)
		if err != nil {
			return err
		}
		_, err = app.Edit(commandContext(cmd), args[0])
		return err
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete ID",
	Short: "Delete a user after confirmation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newConsole(nil)
		if err != nil {
			return err
		}
		_, err = app.Delete(commandContext(cmd), args[0])
		return err
	},
}

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Interactive menu over a single session, so mock data survives between actions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		driver := tui.NewSurveyDriver(os.Stdout)
		app, err := newConsole(driver)
		if err != nil {
			return err
		}
		return runShell(commandContext(cmd), app, driver)
	},
}

func init() {
	for _, cmd := range []*cobra.Command{createCmd, editCmd, shellCmd} {
		cmd.Flags().BoolVar(&validateOnBlur, "validate-on-blur", false, "validate each answer as soon as it is given")
		cmd.Flags().IntVar(&maxAttempts, "max-attempts", 0, "give up after this many invalid submissions (0 means no limit)")
	}
	rootCmd.AddCommand(listCmd, createCmd, editCmd, deleteCmd, shellCmd)
}

// newConsole wires the console with a survey prompter. driver may be nil.
func newConsole(driver tui.PromptDriver) (*console.App, error) {
	s, err := loadSchema()
	if err != nil {
		return nil, err
	}
	st, err := openStore()
	if err != nil {
		return nil, err
	}

	tuiOpts := []tui.Option{tui.WithMaxAttempts(maxAttempts)}
	if driver != nil {
		tuiOpts = append(tuiOpts, tui.WithPromptDriver(driver))
	}
	var formOpts []form.Option
	formOpts = append(formOpts, form.WithLogger(logger))
	if validateOnBlur {
		formOpts = append(formOpts, form.WithValidateOnBlur())
		tuiOpts = append(tuiOpts, tui.WithInlineValidation())
	}

	return console.New(st, s,
		console.WithPrompter(tui.New(tuiOpts...)),
		console.WithOutput(os.Stdout),
		console.WithMode(cfg.Mode()),
		console.WithLogger(logger),
		console.WithFormOptions(formOpts...),
	)
}

const (
	menuList   = "List users"
	menuCreate = "Add new user"
	menuEdit   = "Edit user"
	menuDelete = "Delete user"
	menuQuit   = "Quit"
)

func runShell(ctx context.Context, app *console.App, driver tui.PromptDriver) error {
	menu := []string{menuList, menuCreate, menuEdit, menuDelete, menuQuit}
	if _, err := app.Refresh(ctx); err != nil {
		logger.WithError(err).Warn("initial refresh failed")
	}
	for {
		idx, err := driver.Select(ctx, tui.SelectConfig{Message: "What next?", Options: menu})
		if errors.Is(err, tui.ErrAborted) {
			return nil
		}
		if err != nil {
			return err
		}
		if idx < 0 || idx >= len(menu) {
			continue
		}

		switch menu[idx] {
		case menuList:
			_, err = app.Refresh(ctx)
		case menuCreate:
			_, err = app.Create(ctx)
		case menuEdit, menuDelete:
			var id string
			id, err = driver.Input(ctx, tui.InputConfig{Message: "User ID"})
			if err != nil || id == "" {
				break
			}
			if menu[idx] == menuEdit {
				_, err = app.Edit(ctx, id)
			} else {
				_, err = app.Delete(ctx, id)
			}
		case menuQuit:
			return nil
		}

		if errors.Is(err, tui.ErrAborted) {
			continue
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		// The console already notified the user; keep the loop alive.
		if err != nil {
			logger.WithError(err).Debug("shell action failed")
		}
	}
}
