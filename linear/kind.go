package linear

// M4Kind discriminates the kind of transform an M4 represents. View
// geometry recomputation (SPEC_FULL.md §4.2, §9 "matrix flag bits") uses
// this as a cheap tag: a translate-only matrix lets the bounding-region
// computation take an exact integer-rectangle fast path, while any other
// kind forces the outward-rounded axis-aligned-bounding-box path.
type M4Kind int

const (
	// KindIdentity is the identity transform.
	KindIdentity M4Kind = iota
	// KindTranslate is a pure translation (no scale, rotation or
	// projection component).
	KindTranslate
	// KindComplex is anything else: scale, rotation, skew or
	// projection, in any combination.
	KindComplex
)

// Translate builds a translate-only M4 and reports KindTranslate so
// callers can tag it without re-deriving the kind from the matrix
// contents.
func Translate(x, y, z float32) (M4, M4Kind) {
	m := M4{
		{1, 0, 0, 0},
		{0, 1, 0, 0},
		{0, 0, 1, 0},
		{x, y, z, 1},
	}
	return m, KindTranslate
}

// Identity returns the identity M4 and KindIdentity.
func Identity() (M4, M4Kind) {
	var m M4
	m.I()
	return m, KindIdentity
}

// ComposeKind returns the kind of l⋅r given the kinds of l and r.
// Composing two translations (or a translation with the identity)
// yields a translation; anything else is conservatively complex.
func ComposeKind(l, r M4Kind) M4Kind {
	if l == KindIdentity {
		return r
	}
	if r == KindIdentity {
		return l
	}
	if l == KindTranslate && r == KindTranslate {
		return KindTranslate
	}
	return KindComplex
}

// TranslationOf reads the translation component out of a KindTranslate
// or KindIdentity matrix. Callers must not call this on a KindComplex
// matrix.
func (m *M4) TranslationOf() (x, y, z float32) {
	return m[3][0], m[3][1], m[3][2]
}
