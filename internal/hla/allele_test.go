package hla

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAllele(t *testing.T) {
	tests := []struct {
		name string
		want Allele
	}{
		{"A*01:02", Allele{Gene: "A", Group: "01", Protein: "02"}},
		{"HLA-B*07:02:01:03", Allele{Gene: "B", Group: "07", Protein: "02"}},
		{"C*04", Allele{Gene: "C", Group: "04"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := ParseAllele(tt.name)
			require.NoError(t, err)
			assert.Equal(t, tt.want, a)
		})
	}
}

func TestParseAllele_Invalid(t *testing.T) {
	for _, name := range []string{"", "A", "A*", "*01:01", "A*:01"} {
		_, err := ParseAllele(name)
		assert.Error(t, err, name)
	}
}

func TestAlleleString(t *testing.T) {
	assert.Equal(t, "A*01:02", MustParseAllele("A*01:02").String())
	assert.Equal(t, "A*01", MustParseAllele("A*01:02").AsGroup().String())
}

func TestAlleleCompare(t *testing.T) {
	a := MustParseAllele("A*01:01")
	b := MustParseAllele("A*01:02")
	c := MustParseAllele("B*01:01")

	assert.True(t, a.Less(b))
	assert.True(t, b.Less(c))
	assert.Equal(t, 0, a.Compare(a))

	w := a
	w.Wildcard = true
	assert.True(t, a.Less(w))
	assert.NotEqual(t, a, w)
}

func TestGroupEqual(t *testing.T) {
	assert.True(t, MustParseAllele("A*01:01").GroupEqual(MustParseAllele("A*01:02")))
	assert.False(t, MustParseAllele("A*01:01").GroupEqual(MustParseAllele("A*02:01")))
	assert.False(t, MustParseAllele("A*01:01").GroupEqual(MustParseAllele("B*01:01")))
}

func TestSortAndDistinctGroups(t *testing.T) {
	alleles := MustParseAlleles("B*07:02", "A*02:01", "A*01:02", "A*01:01")
	SortAlleles(alleles)
	assert.Equal(t, "A*01:01,A*01:02,A*02:01,B*07:02", FormatAlleles(alleles, ","))

	groups := DistinctGroups(alleles)
	assert.Equal(t, "A*01 A*02 B*07", FormatAlleles(groups, " "))
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	w := MustParseAllele("A*01:01")
	w.Wildcard = true
	r.Register(w)

	a, err := r.Intern("HLA-A*01:01:01")
	require.NoError(t, err)
	assert.True(t, a.Wildcard, "interned allele should carry the registered flag")

	b, err := r.Intern("A*02:01")
	require.NoError(t, err)
	assert.False(t, b.Wildcard)
	assert.Equal(t, 2, r.Len())

	_, ok := r.Lookup("A*03:01")
	assert.False(t, ok)
}

func TestGeneSelector(t *testing.T) {
	g := NewGeneSelector()
	assert.Equal(t, []string{"A", "B", "C"}, g.Genes())
	assert.Equal(t, 1, g.Index("B"))
	assert.Equal(t, -1, g.Index("DRB1"))

	filtered := g.Filter(MustParseAlleles("A*01:01", "DRB1*01:01", "C*01:02"))
	assert.Equal(t, "A*01:01 C*01:02", FormatAlleles(filtered, " "))
}
