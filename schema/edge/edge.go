package edge

// Rel is a relation type of an edge.
type Rel int

// Relation types.
const (
	Unk Rel = iota // Unknown.
	O2O            // One to one / has one.
	O2M            // One to many / has many.
	M2O            // Many to one (inverse perspective for O2M).
	M2M            // Many to many.
)

// String returns the relation name.
func (r Rel) String() string {
	switch r {
	case O2O:
		return "O2O"
	case O2M:
		return "O2M"
	case M2O:
		return "M2O"
	case M2M:
		return "M2M"
	default:
		return "Unknown"
	}
}

// Tag returns the orm struct-tag kind that declares the relation.
func (r Rel) Tag() string {
	switch r {
	case O2O:
		return "one_to_one"
	case O2M:
		return "one_to_many"
	case M2O:
		return "many_to_one"
	case M2M:
		return "many_to_many"
	default:
		return ""
	}
}

// FromTag returns the relation declared by an orm tag kind, or Unk.
func FromTag(kind string) Rel {
	switch kind {
	case "one_to_one":
		return O2O
	case "one_to_many":
		return O2M
	case "many_to_one":
		return M2O
	case "many_to_many":
		return M2M
	default:
		return Unk
	}
}

// Unique reports whether the relation holds at most one entity on the
// declaring side.
func (r Rel) Unique() bool {
	return r == O2O || r == M2O
}

// Plural reports whether the relation holds a list of entities.
func (r Rel) Plural() bool {
	return r == O2M || r == M2M
}
