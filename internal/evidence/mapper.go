package evidence

import (
	"go.uber.org/zap"

	"github.com/inodb/vibe-hla/internal/hla"
)

// Mapping is the mapped evidence of one sample.
type Mapping struct {
	Fragments []*hla.FragmentAlleles // fragments with full or wild support, in input order
	Unmatched []*hla.Fragment        // fragments left without support
	Recovered []hla.Allele           // stop-loss alleles that received override support
}

// Mapper turns match records into per-fragment allele support.
type Mapper struct {
	knownStopLoss hla.AlleleSet
	stopLoss      map[string][]hla.Allele
	stopLossOrder []string
	logger        *zap.Logger
}

// NewMapper creates a mapper without stop-loss overrides.
func NewMapper() *Mapper {
	return &Mapper{
		knownStopLoss: make(hla.AlleleSet),
		stopLoss:      make(map[string][]hla.Allele),
		logger:        zap.NewNop(),
	}
}

// SetLogger sets the logger for mapping summaries.
func (m *Mapper) SetLogger(l *zap.Logger) {
	m.logger = l
}

// SetStopLoss configures the stop-loss override. Only associations whose
// allele is in known take effect.
func (m *Mapper) SetStopLoss(known []hla.Allele, associations []StopLossAssociation) {
	m.knownStopLoss = make(hla.AlleleSet, len(known))
	for _, a := range known {
		m.knownStopLoss.Add(a.AsProtein())
	}
	m.stopLoss = make(map[string][]hla.Allele)
	m.stopLossOrder = nil
	for _, assoc := range associations {
		if !m.knownStopLoss.Contains(assoc.Allele.AsProtein()) {
			continue
		}
		if _, ok := m.stopLoss[assoc.FragmentID]; !ok {
			m.stopLossOrder = append(m.stopLossOrder, assoc.FragmentID)
		}
		m.stopLoss[assoc.FragmentID] = appendDistinct(m.stopLoss[assoc.FragmentID], assoc.Allele)
	}
}

// fragmentSupport collects the best support seen per allele for one fragment.
type fragmentSupport struct {
	fragment *hla.Fragment
	support  map[hla.Allele]Support
}

// Map classifies every record and builds one FragmentAlleles per fragment.
// Per allele the strongest support wins (full, then wild, then partial).
// A fragment with only partial support has it promoted to full, and a
// fragment associated with a known stop-loss allele is fully assigned to
// those alleles. Fragments left without support are scoped Unmatched.
func (m *Mapper) Map(records []Record) *Mapping {
	var order []*fragmentSupport
	byID := make(map[string]*fragmentSupport)
	get := func(id string) *fragmentSupport {
		fs, ok := byID[id]
		if !ok {
			fs = &fragmentSupport{
				fragment: &hla.Fragment{ID: id},
				support:  make(map[hla.Allele]Support),
			}
			byID[id] = fs
			order = append(order, fs)
		}
		return fs
	}

	for _, rec := range records {
		fs := get(rec.FragmentID)
		s := Classify(rec.AminoAcid, rec.Nucleotide)
		if s == Unsupported {
			continue
		}
		if prev, ok := fs.support[rec.Allele]; !ok || stronger(s, prev) {
			fs.support[rec.Allele] = s
		}
	}
	for _, id := range m.stopLossOrder {
		get(id)
	}

	mapping := &Mapping{}
	recovered := make(hla.AlleleSet)
	promoted := 0
	for _, fs := range order {
		fa := &hla.FragmentAlleles{Fragment: fs.fragment}
		for a, s := range fs.support {
			switch s {
			case SupportFull:
				fa.Full = append(fa.Full, a)
			case SupportWild:
				fa.Wild = append(fa.Wild, a)
			case SupportPartial:
				fa.Partial = append(fa.Partial, a)
			}
		}
		hla.SortAlleles(fa.Full)
		hla.SortAlleles(fa.Wild)
		hla.SortAlleles(fa.Partial)

		if stopLoss, ok := m.stopLoss[fs.fragment.ID]; ok {
			fa.Full = stopLoss
			fa.Wild = nil
			for _, a := range stopLoss {
				recovered.Add(a)
			}
		} else if fa.Empty() && len(fa.Partial) > 0 {
			fa.Full = fa.Partial
			promoted++
		}

		if fa.Empty() {
			fs.fragment.Scope = hla.ScopeUnmatched
			mapping.Unmatched = append(mapping.Unmatched, fs.fragment)
			continue
		}
		fs.fragment.Scope = hla.ScopeCandidate
		mapping.Fragments = append(mapping.Fragments, fa)
	}
	mapping.Recovered = recovered.Sorted()

	m.logger.Info("mapped fragment evidence",
		zap.Int("records", len(records)),
		zap.Int("fragments", len(mapping.Fragments)),
		zap.Int("unmatched", len(mapping.Unmatched)),
		zap.Int("promotedPartial", promoted),
		zap.Int("stopLossFragments", len(m.stopLoss)),
		zap.Int("recovered", len(mapping.Recovered)))
	return mapping
}

// Candidates returns every allele with full or wild support, sorted.
func (mp *Mapping) Candidates() []hla.Allele {
	set := make(hla.AlleleSet)
	for _, fa := range mp.Fragments {
		for _, a := range fa.Full {
			set.Add(a)
		}
		for _, a := range fa.Wild {
			set.Add(a)
		}
	}
	return set.Sorted()
}

func stronger(s, than Support) bool {
	return rank(s) > rank(than)
}

func rank(s Support) int {
	switch s {
	case SupportFull:
		return 3
	case SupportWild:
		return 2
	case SupportPartial:
		return 1
	default:
		return 0
	}
}

func appendDistinct(alleles []hla.Allele, a hla.Allele) []hla.Allele {
	for _, x := range alleles {
		if x == a {
			return alleles
		}
	}
	out := append(alleles, a)
	hla.SortAlleles(out)
	return out
}
