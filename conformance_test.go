package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/thomasrohde/codeblock/internal/cli"
	"github.com/thomasrohde/codeblock/internal/testutil"
)

func TestConformance(t *testing.T) {
	dirs, err := testutil.ListScenarios(testutil.ScenariosDir)
	if err != nil {
		t.Fatalf("failed to list scenarios: %v", err)
	}
	if len(dirs) == 0 {
		t.Fatal("no scenarios found")
	}

	for _, dir := range dirs {
		dir := dir
		t.Run(filepath.Base(dir), func(t *testing.T) {
			scenario, err := testutil.LoadScenario(dir)
			if err != nil {
				t.Fatalf("failed to load scenario: %v", err)
			}
			runScenario(t, dir, scenario)
		})
	}
}

func runScenario(t *testing.T, dir string, scenario *testutil.Scenario) {
	t.Helper()

	// Keep a user config on the machine out of the results.
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("USERPROFILE", home)

	var stdout, stderr bytes.Buffer
	app := cli.New(strings.NewReader(scenario.Stdin), &stdout, &stderr)
	app.Dir = dir

	code := app.Run(testutil.ResolveArgs(dir, scenario.Cmd))

	expect := scenario.Expect
	if code != expect.ExitCode {
		t.Errorf("exit code: got %d, want %d (stderr: %q)", code, expect.ExitCode, stderr.String())
	}
	if expect.Stdout != nil && stdout.String() != *expect.Stdout {
		t.Errorf("stdout:\n  got:  %q\n  want: %q", stdout.String(), *expect.Stdout)
	}
	if expect.StdoutContains != "" && !strings.Contains(stdout.String(), expect.StdoutContains) {
		t.Errorf("stdout should contain %q, got: %q", expect.StdoutContains, stdout.String())
	}
	if expect.StdoutJSON != nil {
		want := normalizeJSON(t, expect.StdoutJSON)
		var got any
		if err := json.Unmarshal(stdout.Bytes(), &got); err != nil {
			t.Fatalf("stdout is not JSON: %v (raw: %q)", err, stdout.String())
		}
		if actual := normalizeJSON(t, got); actual != want {
			t.Errorf("stdout JSON:\n  got:  %s\n  want: %s", actual, want)
		}
	}
	if expect.Stderr != nil && stderr.String() != *expect.Stderr {
		t.Errorf("stderr:\n  got:  %q\n  want: %q", stderr.String(), *expect.Stderr)
	}
	if expect.StderrContains != "" && !strings.Contains(stderr.String(), expect.StderrContains) {
		t.Errorf("stderr should contain %q, got: %q", expect.StderrContains, stderr.String())
	}
}

func normalizeJSON(t *testing.T, v any) string {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("failed to marshal JSON: %v", err)
	}
	return string(b)
}

// Verify scenarios directory exists
func TestScenariosExist(t *testing.T) {
	info, err := os.Stat(testutil.ScenariosDir)
	if err != nil {
		t.Fatalf("scenarios directory not found: %v", err)
	}
	if !info.IsDir() {
		t.Fatalf("scenarios path is not a directory: %s", testutil.ScenariosDir)
	}
}
