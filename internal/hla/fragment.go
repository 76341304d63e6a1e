package hla

// FragmentScope classifies how a fragment relates to the evaluated candidates.
type FragmentScope int

const (
	ScopeUnset      FragmentScope = iota
	ScopeCandidate                // supports at least one candidate
	ScopeSolution                 // fully supports an allele of the chosen complex
	ScopeHomozygous               // fully supports every allele of the chosen complex
	ScopeWildOnly                 // supports the chosen complex only through wildcards
	ScopeUnmatched                // no support left after filtering
)

var scopeNames = [...]string{"UNSET", "CANDIDATE", "SOLUTION", "HOMOZYGOUS", "WILD_ONLY", "UNMATCHED"}

func (s FragmentScope) String() string {
	if int(s) < len(scopeNames) {
		return scopeNames[s]
	}
	return "UNKNOWN"
}

// Fragment is a sequenced read or read pair.
type Fragment struct {
	ID    string
	Scope FragmentScope
}

// FragmentAlleles is the evidence one fragment provides for candidate alleles.
// Full and Wild never share an allele; Partial records protein-level-only
// matches kept for reporting.
type FragmentAlleles struct {
	Fragment *Fragment
	Full     []Allele
	Wild     []Allele
	Partial  []Allele
}

// ID returns the originating fragment's identifier.
func (f *FragmentAlleles) ID() string {
	if f.Fragment == nil {
		return ""
	}
	return f.Fragment.ID
}

// Empty reports whether the fragment supports no allele.
func (f *FragmentAlleles) Empty() bool {
	return len(f.Full) == 0 && len(f.Wild) == 0
}

// ContainsFull reports whether the allele is fully supported.
func (f *FragmentAlleles) ContainsFull(a Allele) bool {
	for _, x := range f.Full {
		if x == a {
			return true
		}
	}
	return false
}

// ContainsWild reports whether the allele is supported through a wildcard.
func (f *FragmentAlleles) ContainsWild(a Allele) bool {
	for _, x := range f.Wild {
		if x == a {
			return true
		}
	}
	return false
}

// Restrict returns a copy holding only alleles present in keep, or nil when
// nothing remains.
func (f *FragmentAlleles) Restrict(keep AlleleSet) *FragmentAlleles {
	out := &FragmentAlleles{Fragment: f.Fragment}
	out.Full = intersect(f.Full, keep)
	out.Wild = intersect(f.Wild, keep)
	out.Partial = intersect(f.Partial, keep)
	if out.Empty() {
		return nil
	}
	return out
}

// FilterFragments restricts every fragment to the given alleles. Fragments
// left without support are dropped and their fragment is scoped Unmatched.
func FilterFragments(fragments []*FragmentAlleles, alleles []Allele) []*FragmentAlleles {
	keep := NewAlleleSet(alleles...)
	out := make([]*FragmentAlleles, 0, len(fragments))
	for _, f := range fragments {
		r := f.Restrict(keep)
		if r == nil {
			if f.Fragment != nil {
				f.Fragment.Scope = ScopeUnmatched
			}
			continue
		}
		out = append(out, r)
	}
	return out
}

// AssignSolutionScopes classifies each fragment against the alleles of the
// chosen complex.
func AssignSolutionScopes(fragments []*FragmentAlleles, solution []Allele) {
	for _, f := range fragments {
		if f.Fragment == nil {
			continue
		}
		var full, wild int
		for _, a := range solution {
			switch {
			case f.ContainsFull(a):
				full++
			case f.ContainsWild(a):
				wild++
			}
		}
		switch {
		case full > 0 && full == len(solution):
			f.Fragment.Scope = ScopeHomozygous
		case full > 0:
			f.Fragment.Scope = ScopeSolution
		case wild > 0:
			f.Fragment.Scope = ScopeWildOnly
		default:
			f.Fragment.Scope = ScopeUnmatched
		}
	}
}

func intersect(alleles []Allele, keep AlleleSet) []Allele {
	var out []Allele
	for _, a := range alleles {
		if keep.Contains(a) {
			out = append(out, a)
		}
	}
	return out
}
