// Package testutil loads the conformance scenarios shared by the cbc tests.
package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// ScenariosDir is the scenario root relative to the module root.
const ScenariosDir = "testdata/scenarios"

// ScenarioFile is the name of the scenario description in each directory.
const ScenarioFile = "scenario.yaml"

// Scenario describes one cbc invocation and its expected outcome.
type Scenario struct {
	Cmd         []string       `yaml:"cmd"`
	Stdin       string         `yaml:"stdin,omitempty"`
	Description string         `yaml:"description,omitempty"`
	Tags        []string       `yaml:"tags,omitempty"`
	Expect      ExpectedResult `yaml:"expect"`
}

// ExpectedResult describes the expected exit code and output streams.
// Unset fields are not checked.
type ExpectedResult struct {
	ExitCode       int     `yaml:"exit_code"`
	Stdout         *string `yaml:"stdout,omitempty"`
	StdoutContains string  `yaml:"stdout_contains,omitempty"`
	StdoutJSON     any     `yaml:"stdout_json,omitempty"`
	Stderr         *string `yaml:"stderr,omitempty"`
	StderrContains string  `yaml:"stderr_contains,omitempty"`
}

// LoadScenario loads the scenario description from dir.
func LoadScenario(dir string) (*Scenario, error) {
	f, err := os.Open(filepath.Join(dir, ScenarioFile))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var s Scenario
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("%s: %w", dir, err)
	}
	if len(s.Cmd) == 0 {
		return nil, fmt.Errorf("%s: scenario has no cmd", dir)
	}
	return &s, nil
}

// ListScenarios returns the scenario directories under root, sorted by name.
func ListScenarios(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}
	var dirs []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, err := os.Stat(filepath.Join(root, e.Name(), ScenarioFile)); err == nil {
			dirs = append(dirs, filepath.Join(root, e.Name()))
		}
	}
	sort.Strings(dirs)
	return dirs, nil
}

// ResolveArgs rewrites arguments naming files inside the scenario directory
// to paths the command can open from any working directory.
func ResolveArgs(scenarioDir string, args []string) []string {
	out := make([]string, len(args))
	for i, arg := range args {
		out[i] = arg
		if strings.HasPrefix(arg, "-") {
			continue
		}
		path := filepath.Join(scenarioDir, arg)
		if _, err := os.Stat(path); err == nil {
			out[i] = path
		}
	}
	return out
}
