package artifact

import (
	"fmt"
	"strings"
)

// Scope is the declared visibility of a dependency edge.
//
// The zero value is ScopeCompile, matching the Maven default for an
// undeclared scope.
type Scope int

const (
	ScopeCompile  Scope = iota // available at compile and run time, propagates
	ScopeRuntime               // needed only at run time, propagates
	ScopeTest                  // test classpath only, never propagates
	ScopeProvided              // supplied by the host container, never propagates
	ScopeSystem                // local system path, never propagates
)

var scopeNames = [...]string{
	ScopeCompile:  "compile",
	ScopeRuntime:  "runtime",
	ScopeTest:     "test",
	ScopeProvided: "provided",
	ScopeSystem:   "system",
}

// ParseScope converts a scope name to a Scope. An empty name is compile.
func ParseScope(s string) (Scope, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ScopeCompile, nil
	}
	for i, name := range scopeNames {
		if name == s {
			return Scope(i), nil
		}
	}
	return ScopeCompile, fmt.Errorf("unknown scope %q", s)
}

// String returns the lower-case scope name.
func (s Scope) String() string {
	if s < 0 || int(s) >= len(scopeNames) {
		return fmt.Sprintf("scope(%d)", int(s))
	}
	return scopeNames[s]
}

// Propagates reports whether a consumer inherits dependencies reached
// through an edge of this scope. Only compile and runtime do.
func (s Scope) Propagates() bool {
	return s == ScopeCompile || s == ScopeRuntime
}

// MarshalText implements encoding.TextMarshaler.
func (s Scope) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Scope) UnmarshalText(b []byte) error {
	v, err := ParseScope(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}
