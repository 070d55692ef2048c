package sampleindex

import (
	"fmt"
	"sort"

	"github.com/MikeOF/demany/internal/fastq"
)

// KeySet is a set of fixed length lookup keys.
type KeySet map[string]struct{}

func (ks KeySet) Has(key string) bool {
	_, has := ks[key]
	return has
}

func (ks KeySet) Add(key string) { ks[key] = struct{}{} }

// Copy returns an independent copy of ks. A nil set copies to nil.
func (ks KeySet) Copy() KeySet {
	if ks == nil {
		return nil
	}
	out := make(KeySet, len(ks))
	for k := range ks {
		out[k] = struct{}{}
	}
	return out
}

// Intersect returns the keys present in both sets.
func (ks KeySet) Intersect(other KeySet) KeySet {
	small, large := ks, other
	if len(large) < len(small) {
		small, large = large, small
	}
	out := make(KeySet)
	for k := range small {
		if large.Has(k) {
			out.Add(k)
		}
	}
	return out
}

// Sorted returns the keys in lexical order.
func (ks KeySet) Sorted() []string {
	out := make([]string, 0, len(ks))
	for k := range ks {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// KeyMapping holds the identity keys and the one-substitution keys of a
// sample's barcodes at the configured key lengths.
type KeyMapping struct {
	Spec Spec

	index1Identity KeySet
	index1Keys     KeySet
	index2Identity KeySet
	index2Keys     KeySet
}

// NewKeyMapping expands the barcodes of spec. index1KeyLength must be at
// least 1; an index2KeyLength of 0 disables the second index.
func NewKeyMapping(spec Spec, index1KeyLength, index2KeyLength int) (*KeyMapping, error) {
	if index1KeyLength < 1 {
		return nil, fmt.Errorf("index 1 key length must be greater than 0, got %d", index1KeyLength)
	}
	if index2KeyLength < 0 {
		return nil, fmt.Errorf("index 2 key length must not be negative, got %d", index2KeyLength)
	}
	if !fastq.IsValid(spec.Index1) || !fastq.IsValid(spec.Index2) {
		return nil, fmt.Errorf("sample %s has invalid index characters: %q, %q", spec.ID(), spec.Index1, spec.Index2)
	}

	m := KeyMapping{Spec: spec}
	m.index1Identity, m.index1Keys = keySets(spec.Index1, index1KeyLength)
	if index2KeyLength > 0 && spec.HasIndex2() {
		m.index2Identity, m.index2Keys = keySets(spec.Index2, index2KeyLength)
	}
	return &m, nil
}

// keySets expands index into keys of length keyLength. For each variable
// position p in [-1, min(len(index), keyLength)) every position equal to p,
// or beyond the end of index, takes every alphabet symbol while the others
// keep the index base. p == -1 gives the identity keys.
func keySets(index string, keyLength int) (identity, keys KeySet) {
	identity = make(KeySet)
	keys = make(KeySet)

	last := len(index)
	if keyLength < last {
		last = keyLength
	}
	for variable := -1; variable < last; variable++ {
		choices := make([][]byte, keyLength)
		for pos := 0; pos < keyLength; pos++ {
			if pos == variable || pos >= len(index) {
				choices[pos] = fastq.Alphabet
			} else {
				choices[pos] = []byte{index[pos]}
			}
		}

		built := []string{""}
		for _, options := range choices {
			next := make([]string, 0, len(built)*len(options))
			for _, prefix := range built {
				for _, c := range options {
					next = append(next, prefix+string(c))
				}
			}
			built = next
		}

		for _, key := range built {
			keys.Add(key)
			if variable == -1 {
				identity.Add(key)
			}
		}
	}
	return identity, keys
}

func (m *KeyMapping) HasIndex2() bool { return m.index2Keys != nil }

func (m *KeyMapping) Index1IdentityKeys() KeySet { return m.index1Identity.Copy() }
func (m *KeyMapping) Index1Keys() KeySet         { return m.index1Keys.Copy() }

// Index2IdentityKeys returns nil when the mapping has no second index.
func (m *KeyMapping) Index2IdentityKeys() KeySet { return m.index2Identity.Copy() }

// Index2Keys returns nil when the mapping has no second index.
func (m *KeyMapping) Index2Keys() KeySet { return m.index2Keys.Copy() }
