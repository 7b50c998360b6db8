package opcode

import "fmt"

// Version is an immutable (major, minor) CPython release pair. It gates
// opcode tables, jump arithmetic, and prefix/suffix decoding behavior
// (spec.md §3: "Immutable, set at decode time").
type Version struct {
	Major, Minor int
}

// String renders the version as "3.12".
func (v Version) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// Compare returns -1, 0, or 1 as v is less than, equal to, or greater than
// other — reflexive and transitive, per spec.md §8.
func (v Version) Compare(other Version) int {
	switch {
	case v.Major != other.Major:
		if v.Major < other.Major {
			return -1
		}
		return 1
	case v.Minor != other.Minor:
		if v.Minor < other.Minor {
			return -1
		}
		return 1
	default:
		return 0
	}
}

func (v Version) AtLeast(other Version) bool { return v.Compare(other) >= 0 }
func (v Version) Before(other Version) bool  { return v.Compare(other) < 0 }

var (
	V39  = Version{3, 9}
	V310 = Version{3, 10}
	V311 = Version{3, 11}
	V312 = Version{3, 12}
)

// WordAligned reports whether this version uses the fixed 2-byte
// instruction layout (every opcode byte followed by one arg byte,
// zero-arg opcodes included) introduced in 3.6, as opposed to the
// pre-3.6 "tall" layout where only some opcodes carry a 2-byte argument.
// pydecomp's decoder only implements the word-aligned layout in full; see
// decode.Decode's pre-3.6 handling note.
func (v Version) WordAligned() bool {
	return v.AtLeast(Version{3, 6})
}

// HasInlineCaches reports whether instructions are followed by
// CACHE-entry filler bytes that the decoder must skip (3.11+).
func (v Version) HasInlineCaches() bool {
	return v.AtLeast(V311)
}

// HasExceptionTable reports whether the code object carries a 3.11+
// exception table instead of SETUP_FINALLY/SETUP_EXCEPT block-setup
// opcodes.
func (v Version) HasExceptionTable() bool {
	return v.AtLeast(V311)
}

// JumpsAreWordAddressed reports whether a jump instruction's argument is
// scaled by 2 (an instruction count) rather than being a raw byte offset
// (3.10+).
func (v Version) JumpsAreWordAddressed() bool {
	return v.AtLeast(V310)
}

// TableFor returns the opcode table for v, or an error if v names a
// version pydecomp has no table for.
func TableFor(v Version) (*Table, error) {
	switch v {
	case V39:
		return py39Table, nil
	case V310:
		return py310Table, nil
	case V311:
		return py311Table, nil
	case V312:
		return py312Table, nil
	default:
		return nil, fmt.Errorf("💥 Unsupported: no opcode table for Python %s", v)
	}
}
