package sampleindex

import (
	"errors"
	"fmt"
	"strings"

	"github.com/MikeOF/demany/internal/fastq"
)

// ErrIdentityCollision is returned when two samples of a lane share an exact
// barcode.
var ErrIdentityCollision = errors.New("sample index identity key collision")

type entry struct {
	id         string
	index2Keys KeySet // nil: no index 2 requirement
}

// Lookup maps index 1 keys to samples. It is read only once built and safe
// for concurrent use.
type Lookup struct {
	entries map[string]*entry
}

// NewLookup builds the lookup of a collection. Keys shared with any other
// sample are removed from both, index 1 and index 2 independently, so an
// ambiguous read never matches. With index2ReverseComplement the stored
// index 2 keys are reverse complemented.
func NewLookup(c *Collection, index2ReverseComplement bool) (*Lookup, error) {
	if c.HasIdentityKeyCollision() {
		return nil, fmt.Errorf("%w:\n%s", ErrIdentityCollision, strings.Join(c.ReportLines(), "\n"))
	}

	l := Lookup{entries: make(map[string]*entry)}
	for i, m := range c.mappings {
		index1Keys := m.Index1Keys()
		index2Keys := m.Index2Keys()

		for j, other := range c.mappings {
			if i == j {
				continue
			}
			for k := range other.index1Keys {
				delete(index1Keys, k)
			}
			if index2Keys != nil && other.index2Keys != nil {
				for k := range other.index2Keys {
					delete(index2Keys, k)
				}
			}
		}

		if index2Keys != nil && index2ReverseComplement {
			rc := make(KeySet, len(index2Keys))
			for k := range index2Keys {
				key, err := fastq.ReverseComplement(k)
				if err != nil {
					return nil, err
				}
				rc.Add(key)
			}
			index2Keys = rc
		}

		e := &entry{id: m.Spec.ID(), index2Keys: index2Keys}
		for k := range index1Keys {
			l.entries[k] = e
		}
	}
	return &l, nil
}

// Find returns the sample id of a read's index strings. When hasIndex2 is
// false, or the matched sample has no second index, only index1 is used.
func (l *Lookup) Find(index1, index2 string, hasIndex2 bool) (string, bool) {
	e, ok := l.entries[index1]
	if !ok {
		return "", false
	}
	if hasIndex2 && e.index2Keys != nil {
		if e.index2Keys.Has(index2) {
			return e.id, true
		}
		return "", false
	}
	return e.id, true
}

// Len returns the number of index 1 keys in the lookup.
func (l *Lookup) Len() int { return len(l.entries) }
