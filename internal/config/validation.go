package config

import (
	"fmt"
	"regexp"
	"strings"
)

// ServerNamePattern is the only shape a game server name may take, both
// in configuration and in request paths.
var ServerNamePattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,50}$`)

// ValidationErrors collects all configuration problems so an operator
// sees everything wrong in one startup failure.
type ValidationErrors struct {
	InvalidServers []string
	General        []string
}

// HasErrors returns true if any validation errors exist.
func (e *ValidationErrors) HasErrors() bool {
	return len(e.InvalidServers) > 0 || len(e.General) > 0
}

// Error formats all validation errors into one message.
func (e *ValidationErrors) Error() string {
	var sb strings.Builder
	sb.WriteString("configuration validation failed:\n")

	if len(e.InvalidServers) > 0 {
		sb.WriteString("\nInvalid server names (must match [A-Za-z0-9_-]{1,50}):\n")
		for _, s := range e.InvalidServers {
			sb.WriteString(fmt.Sprintf("  - %q\n", s))
		}
	}
	for _, msg := range e.General {
		sb.WriteString(fmt.Sprintf("\n%s\n", msg))
	}
	return sb.String()
}
