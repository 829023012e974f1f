package cmd

import (
	"bytes"
	"strings"
	"testing"
)

func runCommand(args ...string) error {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	return rootCmd.Execute()
}

func TestDoneCommand_BadHabitID(t *testing.T) {
	err := runCommand("done", "notanumber")
	if err == nil || !strings.Contains(err.Error(), "must be a number") {
		t.Errorf("expected bad id error, got %v", err)
	}
}

func TestExcuseCommand_MissingReason(t *testing.T) {
	err := runCommand("excuse", "1")
	if err == nil {
		t.Error("expected error when reason argument is missing")
	}
}

func TestExcuseCommand_BadHabitID(t *testing.T) {
	err := runCommand("excuse", "abc", "Sick Day")
	if err == nil || !strings.Contains(err.Error(), "must be a number") {
		t.Errorf("expected bad id error, got %v", err)
	}
}

func TestHabitAddCommand_MissingName(t *testing.T) {
	err := runCommand("habit", "add")
	if err == nil {
		t.Error("expected error when habit name is missing")
	}
}

func TestNudgeCommand_MissingConfig(t *testing.T) {
	t.Setenv("ROUTINES_CONFIG", "does-not-exist.yaml")
	err := runCommand("nudge")
	if err == nil {
		t.Error("expected error when config file is missing")
	}
}
