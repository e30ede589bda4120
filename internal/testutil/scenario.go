// Package testutil provides shared test helpers for Kestrel Go tests.
package testutil

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// ScenariosDir is the scenario directory relative to the module root.
const ScenariosDir = "testdata/scenarios"

// Scenario is one program plus the outcome expected from a CLI command.
type Scenario struct {
	Name string `yaml:"name"`
	// Cmd is run, check or fmt.
	Cmd string `yaml:"cmd"`
	// File names the source for diagnostics. Named sources honor string
	// escapes; "-" reads the source as stdin would.
	File   string         `yaml:"file"`
	Source string         `yaml:"source"`
	Args   []string       `yaml:"args"`
	Tags   []string       `yaml:"tags"`
	Expect ExpectedResult `yaml:"expect"`
}

// ExpectedResult describes the expected outcome of running a scenario.
// Stdout is compared exactly when set; the other fields are fragments.
type ExpectedResult struct {
	ExitCode       int     `yaml:"exit_code"`
	Stdout         *string `yaml:"stdout"`
	StdoutContains string  `yaml:"stdout_contains"`
	StderrPrefix   string  `yaml:"stderr_prefix"`
	StderrContains string  `yaml:"stderr_contains"`
	Code           string  `yaml:"code"`
}

type scenarioFile struct {
	Scenarios []Scenario `yaml:"scenarios"`
}

// LoadFile decodes every scenario in one YAML file. Names are prefixed with
// the file's base name so that subtests stay unique across files.
func LoadFile(path string) ([]Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f scenarioFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	for i := range f.Scenarios {
		s := &f.Scenarios[i]
		if s.Name == "" {
			return nil, fmt.Errorf("%s: scenario %d has no name", path, i)
		}
		if s.Cmd == "" {
			s.Cmd = "run"
		}
		if s.File == "" {
			s.File = "-"
		}
		s.Name = base + "/" + s.Name
	}
	return f.Scenarios, nil
}

// LoadAll loads every *.yaml file under root in name order.
func LoadAll(root string) ([]Scenario, error) {
	paths, err := filepath.Glob(filepath.Join(root, "*.yaml"))
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)
	var all []Scenario
	for _, p := range paths {
		ss, err := LoadFile(p)
		if err != nil {
			return nil, err
		}
		all = append(all, ss...)
	}
	return all, nil
}

// HasTag reports whether the scenario carries tag.
func (s *Scenario) HasTag(tag string) bool {
	for _, t := range s.Tags {
		if t == tag {
			return true
		}
	}
	return false
}
