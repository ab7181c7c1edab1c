package step

import (
	"fmt"

	"labelledshell/internal/durable"
	"labelledshell/internal/registry"
)

const (
	FunctionName = "labelledShell"
	DisplayName  = "Shell Script"
)

// Descriptor registers labelledShell with a registry.
type Descriptor struct{}

func (Descriptor) FunctionName() string { return FunctionName }
func (Descriptor) DisplayName() string  { return DisplayName }

// ArgumentsToString returns the label argument when one was given.
func (Descriptor) ArgumentsToString(namedArgs map[string]any) (string, bool) {
	return DisplaySummary(namedArgs)
}

// New builds a ShellStep from the named arguments script and label.
func (Descriptor) New(namedArgs map[string]any) (durable.Step, error) {
	var script *string
	switch v := namedArgs["script"].(type) {
	case nil:
	case string:
		script = &v
	default:
		return nil, fmt.Errorf("%w: script must be a string, got %T", ErrInvalidArgument, v)
	}
	s, err := NewShellStep(script)
	if err != nil {
		return nil, fmt.Errorf("%w: script is required", err)
	}

	switch v := namedArgs["label"].(type) {
	case nil:
	case string:
		s.SetLabel(v)
	default:
		return nil, fmt.Errorf("%w: label must be a string, got %T", ErrInvalidArgument, v)
	}
	return s, nil
}

// DisplaySummary returns the label entry of namedArgs, if any.
func DisplaySummary(namedArgs map[string]any) (string, bool) {
	v, ok := namedArgs["label"]
	if !ok || v == nil {
		return "", false
	}
	if s, ok := v.(string); ok {
		return s, true
	}
	return fmt.Sprint(v), true
}

// Register adds labelledShell to r.
func Register(r *registry.Registry) error {
	return r.Register(Descriptor{})
}
