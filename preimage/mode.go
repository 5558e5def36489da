package preimage

import "fmt"

// Mode selects how aggressively the loader checks keys against values.
//
// Strict prefers explicit failure over silent acceptance: every verifiable key
// is checked and unknown key types are rejected. Permissive trusts the store
// as written by its producer.
type Mode int

const (
	Strict Mode = iota
	Permissive
)

func (m Mode) String() string {
	switch m {
	case Strict:
		return "strict"
	case Permissive:
		return "permissive"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// ParseMode parses "strict" or "permissive". The empty string is Strict.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "", "strict":
		return Strict, nil
	case "permissive":
		return Permissive, nil
	default:
		return Strict, fmt.Errorf("preimage: invalid verification mode %q", s)
	}
}
