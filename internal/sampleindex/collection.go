package sampleindex

import (
	"errors"
	"fmt"
	"sort"
)

// Collection holds the key mappings of every sample in a lane together with
// the overlap checks of every pair of them.
type Collection struct {
	mappings []*KeyMapping
	checks   []*OverlapCheck

	identityCollision bool
	keyOverlap        bool
}

// NewCollection expands specs at the given key lengths and checks every
// pair. Equal specs are collapsed into one.
func NewCollection(specs []Spec, index1KeyLength, index2KeyLength int) (*Collection, error) {
	if len(specs) == 0 {
		return nil, errors.New("the sample index spec set cannot be empty")
	}

	unique := make([]Spec, 0, len(specs))
	seen := make(map[Spec]struct{}, len(specs))
	for _, spec := range specs {
		if _, dup := seen[spec]; dup {
			continue
		}
		seen[spec] = struct{}{}
		unique = append(unique, spec)
	}
	sort.Slice(unique, func(i, j int) bool {
		if unique[i].ID() != unique[j].ID() {
			return unique[i].ID() < unique[j].ID()
		}
		if unique[i].Index1 != unique[j].Index1 {
			return unique[i].Index1 < unique[j].Index1
		}
		return unique[i].Index2 < unique[j].Index2
	})

	c := Collection{mappings: make([]*KeyMapping, 0, len(unique))}
	for _, spec := range unique {
		m, err := NewKeyMapping(spec, index1KeyLength, index2KeyLength)
		if err != nil {
			return nil, err
		}
		c.mappings = append(c.mappings, m)
	}

	for i := 0; i < len(c.mappings)-1; i++ {
		for j := i + 1; j < len(c.mappings); j++ {
			oc := NewOverlapCheck(c.mappings[i], c.mappings[j])
			c.checks = append(c.checks, oc)
			c.identityCollision = c.identityCollision || oc.HasIdentityKeyCollision()
			c.keyOverlap = c.keyOverlap || oc.HasKeyOverlap()
		}
	}
	return &c, nil
}

func (c *Collection) HasIdentityKeyCollision() bool { return c.identityCollision }
func (c *Collection) HasKeyOverlap() bool           { return c.keyOverlap }

// Mappings returns the key mappings ordered by sample id.
func (c *Collection) Mappings() []*KeyMapping {
	return append([]*KeyMapping(nil), c.mappings...)
}

// Checks returns every pairwise overlap check.
func (c *Collection) Checks() []*OverlapCheck {
	return append([]*OverlapCheck(nil), c.checks...)
}

// ReportLines concatenates the report lines of every pair.
func (c *Collection) ReportLines() []string {
	var lines []string
	for _, oc := range c.checks {
		lines = append(lines, oc.ReportLines()...)
	}
	return lines
}

func (c *Collection) String() string {
	return fmt.Sprintf("%d samples, %d pairs, identity collision: %v, key overlap: %v",
		len(c.mappings), len(c.checks), c.identityCollision, c.keyOverlap)
}
