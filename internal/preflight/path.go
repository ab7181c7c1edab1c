// Package preflight holds advisory checks run before a step is dispatched.
package preflight

import (
	"fmt"
	"io"
	"strings"
)

// Environment is a read-only view of the variables a step will see.
type Environment interface {
	Lookup(key string) (string, bool)
}

// CheckPath warns when PATH contains a literal, unexpanded $PATH.
//
// This happens when an override such as PATH=/opt/bin:$PATH is passed as a
// plain value instead of through the additive PATH+NAME form (JENKINS-41339).
// It writes at most one line to sink and reports whether it did. The check
// never fails and never blocks the step.
func CheckPath(env Environment, sink io.Writer) bool {
	if env == nil {
		return false
	}
	path, ok := env.Lookup("PATH")
	if !ok || !strings.Contains(path, "$PATH") {
		return false
	}
	if sink != nil {
		fmt.Fprintf(sink, "Warning: JENKINS-41339 probably bogus PATH=%s; perhaps you meant to use ‘PATH+EXTRA=/something/bin’?\n", path)
	}
	return true
}
