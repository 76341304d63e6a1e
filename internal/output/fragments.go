package output

import (
	"bufio"
	"io"
	"strings"

	"github.com/inodb/vibe-hla/internal/hla"
)

// FragmentWriter writes the allele assignment of each fragment against a
// chosen complex.
type FragmentWriter struct {
	w        *bufio.Writer
	solution hla.AlleleSet
}

// NewFragmentWriter creates a writer reporting support for the solution alleles.
func NewFragmentWriter(w io.Writer, solution []hla.Allele) *FragmentWriter {
	return &FragmentWriter{w: bufio.NewWriter(w), solution: hla.NewAlleleSet(solution...)}
}

// WriteHeader writes the header line.
func (fw *FragmentWriter) WriteHeader() error {
	_, err := fw.w.WriteString("#FragmentId\tScope\tFullAlleles\tWildAlleles\n")
	return err
}

// Write writes one fragment's full and wild support restricted to the
// solution alleles.
func (fw *FragmentWriter) Write(fa *hla.FragmentAlleles) error {
	values := []string{
		fa.ID(),
		fa.Fragment.Scope.String(),
		fw.alleles(fa.Full),
		fw.alleles(fa.Wild),
	}
	_, err := fw.w.WriteString(strings.Join(values, "\t") + "\n")
	return err
}

// WriteUnmatched writes a fragment without allele support.
func (fw *FragmentWriter) WriteUnmatched(f *hla.Fragment) error {
	_, err := fw.w.WriteString(f.ID + "\t" + f.Scope.String() + "\t-\t-\n")
	return err
}

// Flush flushes any buffered data to the underlying writer.
func (fw *FragmentWriter) Flush() error {
	return fw.w.Flush()
}

func (fw *FragmentWriter) alleles(alleles []hla.Allele) string {
	var kept []hla.Allele
	for _, a := range alleles {
		if fw.solution.Contains(a) {
			kept = append(kept, a)
		}
	}
	if len(kept) == 0 {
		return "-"
	}
	return hla.FormatAlleles(kept, ";")
}
