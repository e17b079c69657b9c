package model

import (
	"fmt"
	"strings"
)

// SourceRole identifies one of the redundant airframe data generators.
type SourceRole string

const (
	RoleCentral SourceRole = "central"
	RoleCopilot SourceRole = "copilot"
)

// DefaultRolePriority is the failover order used when none is configured.
// Central is authoritative unless unavailable.
var DefaultRolePriority = []SourceRole{RoleCentral, RoleCopilot}

func (r SourceRole) String() string { return string(r) }

// ParseRole normalises a configured role name.
func ParseRole(s string) (SourceRole, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return "", fmt.Errorf("source role is empty")
	}
	for _, c := range s {
		if (c < 'a' || c > 'z') && (c < '0' || c > '9') && c != '-' && c != '_' {
			return "", fmt.Errorf("source role %q contains invalid character %q", s, c)
		}
	}
	return SourceRole(s), nil
}

// ParseRolePriority parses an ordered role list, rejecting empty lists and
// duplicates.
func ParseRolePriority(names []string) ([]SourceRole, error) {
	if len(names) == 0 {
		return nil, fmt.Errorf("role priority list is empty")
	}
	roles := make([]SourceRole, 0, len(names))
	seen := make(map[SourceRole]struct{}, len(names))
	for _, n := range names {
		r, err := ParseRole(n)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[r]; dup {
			return nil, fmt.Errorf("source role %q listed twice", r)
		}
		seen[r] = struct{}{}
		roles = append(roles, r)
	}
	return roles, nil
}
