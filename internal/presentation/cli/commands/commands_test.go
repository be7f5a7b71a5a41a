package commands

import (
	"bytes"
	"testing"

	"github.com/spf13/cobra"
)

// executeCommand executes a cobra command with the given args.
func executeCommand(root *cobra.Command, args ...string) error {
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	return root.Execute()
}

func TestNewRootCmd(t *testing.T) {
	cmd := NewRootCmd()

	if cmd == nil {
		t.Fatal("NewRootCmd returned nil")
	}

	if cmd.Use != "medsync" {
		t.Errorf("expected Use='medsync', got %q", cmd.Use)
	}

	// Check key subcommands exist
	wantSubcmds := []string{
		"version", "init", "serve", "enqueue", "status", "stats",
		"cancel", "health", "report", "offline", "queue",
	}
	subcmds := make(map[string]bool)
	for _, sub := range cmd.Commands() {
		subcmds[sub.Name()] = true
	}

	for _, want := range wantSubcmds {
		if !subcmds[want] {
			t.Errorf("missing subcommand: %s", want)
		}
	}

	// Check persistent flags
	wantFlags := []string{"config", "output", "verbose"}
	for _, flag := range wantFlags {
		if cmd.PersistentFlags().Lookup(flag) == nil {
			t.Errorf("missing persistent flag: %s", flag)
		}
	}
}

func TestVersionCmd_NoError(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr bool
	}{
		{"basic", []string{"version"}, false},
		{"short", []string{"version", "--short"}, false},
		{"json", []string{"version", "-o", "json"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := NewRootCmd()
			err := executeCommand(cmd, tt.args...)
			if (err != nil) != tt.wantErr {
				t.Errorf("error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestItemCommands_ArgValidation(t *testing.T) {
	// Positional-arg checks run before application initialization, so
	// these exercise the command wiring without touching a database.
	tests := []struct {
		name string
		args []string
	}{
		{"status without id", []string{"status"}},
		{"status extra args", []string{"status", "a", "b"}},
		{"cancel without id", []string{"cancel"}},
		{"cancel extra args", []string{"cancel", "a", "b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := NewRootCmd()
			if err := executeCommand(cmd, tt.args...); err == nil {
				t.Error("expected an argument validation error")
			}
		})
	}
}

func TestOfflineCmd_HasSubcommands(t *testing.T) {
	cmd := NewOfflineCmd()

	subcmds := make(map[string]bool)
	for _, sub := range cmd.Commands() {
		subcmds[sub.Name()] = true
	}
	for _, want := range []string{"start", "end"} {
		if !subcmds[want] {
			t.Errorf("missing offline subcommand: %s", want)
		}
	}
}

func TestQueueCmd_HasSubcommands(t *testing.T) {
	cmd := NewQueueCmd()

	subcmds := make(map[string]bool)
	for _, sub := range cmd.Commands() {
		subcmds[sub.Name()] = true
	}
	for _, want := range []string{"cleanup", "clear"} {
		if !subcmds[want] {
			t.Errorf("missing queue subcommand: %s", want)
		}
	}
}
