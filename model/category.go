package model

// Category is a named configuration profile selecting which data scope an
// instrument readout request targets.
type Category struct {
	ID          string
	Name        string
	Description string

	// Valid marks the profile as usable. Profiles loaded with Valid=false are
	// known but must not be read against.
	Valid bool
}
