package fastq

import "fmt"

// Alphabet is the set of symbols a sample index may be made of, including
// the sequencer's no-call symbol N.
var Alphabet = []byte{'A', 'T', 'G', 'C', 'N'}

var complement [256]byte

func init() {
	complement['A'] = 'T'
	complement['T'] = 'A'
	complement['G'] = 'C'
	complement['C'] = 'G'
	complement['N'] = 'N'
}

// IsValid reports whether every character of seq is one of A, T, G, C or N.
func IsValid(seq string) bool {
	for i := 0; i < len(seq); i++ {
		if complement[seq[i]] == 0 {
			return false
		}
	}
	return true
}

// ReverseComplement reverses seq and swaps A<->T and G<->C. N stays N.
func ReverseComplement(seq string) (string, error) {
	n := len(seq)
	out := make([]byte, n)
	for i := 0; i < n; i++ {
		c := complement[seq[n-1-i]]
		if c == 0 {
			return "", fmt.Errorf("cannot reverse complement %q: invalid base %q", seq, seq[n-1-i])
		}
		out[i] = c
	}
	return string(out), nil
}
