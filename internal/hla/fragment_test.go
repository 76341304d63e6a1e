package hla

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFragment(id string, full, wild []string) *FragmentAlleles {
	f := &FragmentAlleles{Fragment: &Fragment{ID: id, Scope: ScopeCandidate}}
	for _, n := range full {
		f.Full = append(f.Full, MustParseAllele(n))
	}
	for _, n := range wild {
		f.Wild = append(f.Wild, MustParseAllele(n))
	}
	return f
}

func TestFilterFragments(t *testing.T) {
	frags := []*FragmentAlleles{
		newFragment("f1", []string{"A*01:01", "A*02:01"}, nil),
		newFragment("f2", []string{"A*03:01"}, []string{"A*01:01"}),
		newFragment("f3", []string{"A*03:01"}, nil),
	}

	filtered := FilterFragments(frags, MustParseAlleles("A*01:01"))
	require.Len(t, filtered, 2)

	assert.Equal(t, "f1", filtered[0].ID())
	assert.Equal(t, MustParseAlleles("A*01:01"), filtered[0].Full)
	assert.Empty(t, filtered[1].Full)
	assert.Equal(t, MustParseAlleles("A*01:01"), filtered[1].Wild)

	assert.Equal(t, ScopeUnmatched, frags[2].Fragment.Scope)
	// originals are untouched
	assert.Len(t, frags[0].Full, 2)
}

func TestAssignSolutionScopes(t *testing.T) {
	frags := []*FragmentAlleles{
		newFragment("solution", []string{"A*01:01"}, nil),
		newFragment("homozygous", []string{"A*01:01", "A*02:01"}, nil),
		newFragment("wild", nil, []string{"A*02:01"}),
		newFragment("none", []string{"A*03:01"}, nil),
	}

	AssignSolutionScopes(frags, MustParseAlleles("A*01:01", "A*02:01"))

	assert.Equal(t, ScopeSolution, frags[0].Fragment.Scope)
	assert.Equal(t, ScopeHomozygous, frags[1].Fragment.Scope)
	assert.Equal(t, ScopeWildOnly, frags[2].Fragment.Scope)
	assert.Equal(t, ScopeUnmatched, frags[3].Fragment.Scope)
	assert.Equal(t, "WILD_ONLY", ScopeWildOnly.String())
}
