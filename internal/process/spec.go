// Package process spawns external tools and streams their combined output
// to a sink while it is produced.
package process

import (
	"slices"
	"strings"
)

// Spec describes one invocation of an external tool. A Spec is built fresh
// for every invocation and is not modified afterwards.
type Spec struct {
	Command string
	Args    []string
	Dir     string

	// Env is appended to the current process environment.
	Env []string
}

// NewSpec returns a Spec holding private copies of args and env.
func NewSpec(command string, args []string, dir string, env []string) Spec {
	return Spec{
		Command: command,
		Args:    slices.Clone(args),
		Dir:     dir,
		Env:     slices.Clone(env),
	}
}

// CommandLine returns the command and its arguments joined by spaces, the
// way it is shown to the user.
func (s Spec) CommandLine() string {
	return strings.Join(append([]string{s.Command}, s.Args...), " ")
}
