package guides

import (
	"fmt"
	"strings"

	"github.com/bebop/poly/transform"
)

// degenerate maps each IUPAC symbol to the set of literal bases it stands for,
// as a bitmask: A=1, C=2, G=4, T=8
var degenerate = map[byte]byte{
	'A': 1,
	'C': 2,
	'G': 4,
	'T': 8,
	'M': 1 | 2,
	'R': 1 | 4,
	'W': 1 | 8,
	'Y': 2 | 8,
	'S': 2 | 4,
	'K': 4 | 8,
	'H': 1 | 2 | 8,
	'D': 1 | 4 | 8,
	'V': 1 | 2 | 4,
	'B': 2 | 4 | 8,
	'N': 1 | 2 | 4 | 8,
}

// literal is the bitmask of a sequence base. Anything other than ACGT is 0 and
// never matches a motif position
var literal [256]byte

func init() {
	for _, b := range []byte("ACGT") {
		literal[b] = degenerate[b]
		literal[b+'a'-'A'] = degenerate[b]
	}
}

// motif is a recognition site compiled into one base-set per position
type motif struct {
	pattern string
	masks   []byte
}

// compileMotif turns a degenerate recognition sequence, ex: NNGRRT, into a motif
func compileMotif(pattern string) (motif, error) {
	pattern = strings.ToUpper(strings.TrimSpace(pattern))
	if pattern == "" {
		return motif{}, fmt.Errorf("%w: empty motif", ErrInvalidProfile)
	}

	masks := make([]byte, len(pattern))
	for i := 0; i < len(pattern); i++ {
		m, ok := degenerate[pattern[i]]
		if !ok {
			return motif{}, fmt.Errorf("%w: %q is not a nucleotide code in motif %s", ErrInvalidProfile, pattern[i], pattern)
		}
		masks[i] = m
	}

	return motif{pattern: pattern, masks: masks}, nil
}

// matchAt reports whether the motif matches seq starting at index i
func (m motif) matchAt(seq []byte, i int) bool {
	if i < 0 || i+len(m.masks) > len(seq) {
		return false
	}
	for j, mask := range m.masks {
		if literal[seq[i+j]]&mask == 0 {
			return false
		}
	}
	return true
}

// revComp returns the reverse complement of a (possibly degenerate) sequence
func revComp(seq string) string {
	return transform.ReverseComplement(strings.ToUpper(seq))
}

// isACGT reports whether every base in seq is one of A, C, G, T
func isACGT(seq []byte) bool {
	for _, b := range seq {
		if literal[b] == 0 {
			return false
		}
	}
	return true
}
