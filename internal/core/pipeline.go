package core

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"labelledshell/internal/step"
)

// Pipeline is an ordered list of steps run on one agent.
type Pipeline struct {
	Agent string `yaml:"agent"`
	// Env overrides are applied on top of the agent environment. Keys of the
	// form PATH+NAME prepend to PATH.
	Env   map[string]string `yaml:"env"`
	Steps []StepSpec        `yaml:"steps"`
}

// StepSpec is one step call: a function name and its named arguments.
//
// In YAML it is either a single-key map, `labelledShell: {script: ..., label: ...}`,
// or the shorthand `run: <script>` (optionally with `label:`).
type StepSpec struct {
	Function string
	Args     map[string]any
}

func (s *StepSpec) UnmarshalYAML(node *yaml.Node) error {
	var raw map[string]any
	if err := node.Decode(&raw); err != nil {
		return err
	}

	if script, ok := raw["run"]; ok {
		for k := range raw {
			if k != "run" && k != "label" {
				return fmt.Errorf("line %d: unexpected key %q next to run", node.Line, k)
			}
		}
		args := map[string]any{"script": script}
		if label, ok := raw["label"]; ok {
			args["label"] = label
		}
		s.Function, s.Args = step.FunctionName, args
		return nil
	}

	if len(raw) != 1 {
		return fmt.Errorf("line %d: a step needs exactly one function name, got %d keys", node.Line, len(raw))
	}
	for name, v := range raw {
		s.Function = name
		switch args := v.(type) {
		case map[string]any:
			s.Args = args
		case nil:
			s.Args = map[string]any{}
		case string:
			// `labelledShell: echo hi` passes the script positionally.
			s.Args = map[string]any{"script": args}
		default:
			return fmt.Errorf("line %d: arguments of %s must be a map", node.Line, name)
		}
	}
	return nil
}
