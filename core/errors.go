package core

import (
	"errors"
	"fmt"

	"github.com/signalsfoundry/efis-adapter/model"
)

var (
	// ErrUnknownCategory indicates a category id that does not resolve to a
	// usable profile. It never carries the offending identifier.
	ErrUnknownCategory = errors.New("unknown category")
	// ErrAllSourcesFailed indicates every configured role errored; at least
	// one merely absent role yields "no data" instead.
	ErrAllSourcesFailed = errors.New("all airframe sources failed")
	// ErrNavDataUnavailable indicates no autopilot state could be produced.
	ErrNavDataUnavailable = errors.New("navigation data unavailable")
)

// RoleError records a failed read against one generator role.
type RoleError struct {
	Role model.SourceRole
	Err  error
}

func (e *RoleError) Error() string {
	return fmt.Sprintf("role %s: %v", e.Role, e.Err)
}

func (e *RoleError) Unwrap() error { return e.Err }
