package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-userforms/internal/console"
	"github.com/goliatone/go-userforms/pkg/renderers/tui"
	"github.com/goliatone/go-userforms/pkg/schema"
	"github.com/goliatone/go-userforms/pkg/store"
)

type menuDriver struct {
	selections []int
	inputs     []string
	confirms   []bool
}

func (d *menuDriver) Input(context.Context, tui.InputConfig) (string, error) {
	if len(d.inputs) == 0 {
		return "", tui.ErrAborted
	}
	v := d.inputs[0]
	d.inputs = d.inputs[1:]
	return v, nil
}

func (d *menuDriver) Confirm(context.Context, tui.ConfirmConfig) (bool, error) {
	if len(d.confirms) == 0 {
		return false, nil
	}
	v := d.confirms[0]
	d.confirms = d.confirms[1:]
	return v, nil
}

func (d *menuDriver) Select(context.Context, tui.SelectConfig) (int, error) {
	if len(d.selections) == 0 {
		return -1, tui.ErrAborted
	}
	v := d.selections[0]
	d.selections = d.selections[1:]
	return v, nil
}

func (d *menuDriver) TextArea(context.Context, tui.TextAreaConfig) (string, error) {
	return "", tui.ErrAborted
}

func (d *menuDriver) Info(context.Context, string) error { return nil }

func TestRunShell_DeleteThenList(t *testing.T) {
	driver := &menuDriver{
		// delete, list, quit
		selections: []int{3, 0, 4},
		inputs:     []string{"2"},
		confirms:   []bool{true},
	}
	mem := store.NewMemoryStore(store.WithRecords(store.SeedUsers()...))
	var out bytes.Buffer
	app, err := console.New(mem, schema.Users(),
		console.WithPrompter(tui.New(tui.WithPromptDriver(driver))),
		console.WithOutput(&out),
	)
	require.NoError(t, err)

	require.NoError(t, runShell(context.Background(), app, driver))

	records, err := mem.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, records, 2)
	assert.Equal(t, 2, strings.Count(out.String(), "Total Users:"))
	assert.Contains(t, out.String(), "Total Users: 2")
	assert.Contains(t, out.String(), "User deleted successfully!")
}

func TestRunShell_AbortEndsLoop(t *testing.T) {
	driver := &menuDriver{}
	app, err := console.New(store.NewMemoryStore(), schema.Users(),
		console.WithPrompter(tui.New(tui.WithPromptDriver(driver))),
		console.WithOutput(&bytes.Buffer{}),
	)
	require.NoError(t, err)
	assert.NoError(t, runShell(context.Background(), app, driver))
}

func TestRootPreRun_FlagOverridesBadEnvLogLevel(t *testing.T) {
	saved, savedLogger := cfg, logger
	t.Cleanup(func() { cfg, logger = saved, savedLogger })

	// As if USERFORMS_LOG_LEVEL=loud had been loaded.
	cfg.LogLevel = "loud"
	require.Error(t, rootCmd.PersistentPreRunE(rootCmd, nil))

	require.NoError(t, rootCmd.PersistentFlags().Set("log-level", "debug"))
	t.Cleanup(func() { rootCmd.PersistentFlags().Lookup("log-level").Changed = false })
	require.NoError(t, rootCmd.PersistentPreRunE(rootCmd, nil))
	assert.Equal(t, "debug", cfg.LogLevel)
}
