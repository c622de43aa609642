package main

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"replay/internal/config"
	"replay/internal/pipeline"
)

func TestConfigInitValidateShow(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"config", "validate"}, env.configPath)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")
	requireContains(t, out, env.configPath)

	target := filepath.Join(t.TempDir(), "config.toml")
	out, _, err = runCLI(t, []string{"config", "init", "--path", target}, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}
	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, ""); err == nil {
		t.Fatal("expected init to refuse overwriting")
	}
	if _, _, err := runCLI(t, []string{"config", "init", "--path", target, "--overwrite"}, ""); err != nil {
		t.Fatalf("config init --overwrite: %v", err)
	}

	out, _, err = runCLI(t, []string{"config", "show"}, env.configPath)
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	requireContains(t, out, "[paths]")
	requireContains(t, out, env.cfg.Paths.InputDir)
}

func TestConfigRejectsBadOverrides(t *testing.T) {
	env := setupCLITestEnv(t)
	if _, _, err := runCLI(t, []string{"--log-format", "xml", "config", "validate"}, env.configPath); err == nil {
		t.Fatal("expected invalid log format to fail")
	}
	if _, _, err := runCLI(t, []string{"--log-level", "loud", "history"}, env.configPath); err == nil {
		t.Fatal("expected invalid log level to fail")
	}
}

func TestCheckCommand(t *testing.T) {
	env := setupCLITestEnv(t)
	env.writeExport(t, "a.json", `[]`)

	out, _, err := runCLI(t, []string{"check"}, env.configPath)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	requireContains(t, out, "Input directory")
	requireContains(t, out, "1 export file(s)")
	requireContains(t, out, "Database")

	if err := os.RemoveAll(env.cfg.Paths.InputDir); err != nil {
		t.Fatal(err)
	}
	_, _, err = runCLI(t, []string{"check"}, env.configPath)
	var pre *preflightError
	if !errors.As(err, &pre) {
		t.Fatalf("expected preflight error, got %v", err)
	}
}

func TestExitCodes(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{errors.New("boom"), exitFailure},
		{&preflightError{}, exitPreflight},
		{config.ErrPathsMissing, exitPreflight},
		{&pipeline.NoValidInputError{Dir: "/x"}, exitNoValidInput},
		{&pipeline.WriteFailureError{Path: "/x", Err: errors.New("disk full")}, exitWriteFailure},
		{pipeline.ErrLocked, exitLocked},
	}
	for _, tc := range cases {
		if got := exitCode(tc.err); got != tc.want {
			t.Fatalf("exitCode(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}
