package program

import "github.com/google/uuid"

// KeyEntry is one key-table row: the stable 16-bit key ID assigned by
// the compiler, the field's diagnostic name, and its declared type tag.
// Names are not consulted at runtime except for diagnostics (spec.md §3).
type KeyEntry struct {
	ID      uint16
	Name    string
	TypeTag uint8
}

// Transform is one compiled numeric-transform record, referenced by
// index from OpTransformBegin.
type Transform struct {
	Kind   TransformKind
	Coeffs []float64
}

// Program is an immutable compiled IL image, safe to share across any
// number of concurrent vm.Context executions (spec.md §5).
type Program struct {
	Major, Minor uint16
	Flags        uint32

	Keys       []KeyEntry
	Transforms []Transform
	Code       []byte

	// BuildID is a content-derived identifier surfaced for diagnostics
	// and log correlation only; it never affects wire semantics.
	BuildID uuid.UUID
}

// KeyByID looks up a key table entry for diagnostic use; the executor
// never needs field names.
func (p *Program) KeyByID(id uint16) (KeyEntry, bool) {
	for _, k := range p.Keys {
		if k.ID == id {
			return k, true
		}
	}
	return KeyEntry{}, false
}
