package hla

import "sync"

// Registry interns alleles so every component sees the same canonical value
// for a given name, including its wildcard flag.
type Registry struct {
	mu      sync.RWMutex
	alleles map[Allele]Allele // protein-resolution key -> canonical allele
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{alleles: make(map[Allele]Allele)}
}

// Register records the canonical form of an allele. A later registration of
// the same name replaces the earlier one.
func (r *Registry) Register(a Allele) Allele {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.alleles[a.AsProtein()] = a
	return a
}

// Intern returns the canonical allele for a name, registering the parsed
// form when the name has not been seen before.
func (r *Registry) Intern(name string) (Allele, error) {
	a, err := ParseAllele(name)
	if err != nil {
		return Allele{}, err
	}
	return r.Canonical(a), nil
}

// Canonical returns the registered form of a, registering a if unknown.
func (r *Registry) Canonical(a Allele) Allele {
	key := a.AsProtein()

	r.mu.RLock()
	c, ok := r.alleles[key]
	r.mu.RUnlock()
	if ok {
		return c
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.alleles[key]; ok {
		return c
	}
	r.alleles[key] = a
	return a
}

// Lookup returns the registered allele for a name without registering it.
func (r *Registry) Lookup(name string) (Allele, bool) {
	a, err := ParseAllele(name)
	if err != nil {
		return Allele{}, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.alleles[a.AsProtein()]
	return c, ok
}

// Len returns the number of registered alleles.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.alleles)
}
