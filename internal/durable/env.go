package durable

import (
	"os"
	"sort"
	"strings"
)

// EnvVars is the environment a step sees on its agent.
type EnvVars map[string]string

// EnvVarsFromSlice parses KEY=VALUE pairs as returned by os.Environ.
// Entries without '=' are skipped.
func EnvVarsFromSlice(kv []string) EnvVars {
	env := make(EnvVars, len(kv))
	for _, pair := range kv {
		k, v, ok := strings.Cut(pair, "=")
		if !ok || k == "" {
			continue
		}
		env[k] = v
	}
	return env
}

// Get returns the value for key, or "" when unset.
func (e EnvVars) Get(key string) string {
	return e[key]
}

// Lookup returns the value for key and whether it was set.
func (e EnvVars) Lookup(key string) (string, bool) {
	v, ok := e[key]
	return v, ok
}

// Override applies a single override.
//
// A key of the form NAME+SUFFIX prepends value to NAME using the path list
// separator (PATH+EXTRA=/opt/bin puts /opt/bin in front of PATH). An empty
// value on a plain key removes it.
func (e EnvVars) Override(key, value string) {
	if name, _, ok := strings.Cut(key, "+"); ok {
		if value == "" {
			return
		}
		if cur, set := e[name]; set && cur != "" {
			e[name] = value + string(os.PathListSeparator) + cur
		} else {
			e[name] = value
		}
		return
	}
	if value == "" {
		delete(e, key)
		return
	}
	e[key] = value
}

// OverrideAll applies overrides in key order so that results are stable.
func (e EnvVars) OverrideAll(overrides map[string]string) {
	keys := make([]string, 0, len(overrides))
	for k := range overrides {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		e.Override(k, overrides[k])
	}
}

// Clone returns an independent copy.
func (e EnvVars) Clone() EnvVars {
	out := make(EnvVars, len(e))
	for k, v := range e {
		out[k] = v
	}
	return out
}

// Slice renders the environment as sorted KEY=VALUE pairs.
func (e EnvVars) Slice() []string {
	out := make([]string, 0, len(e))
	for k, v := range e {
		out = append(out, k+"="+v)
	}
	sort.Strings(out)
	return out
}
