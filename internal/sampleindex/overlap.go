package sampleindex

import "fmt"

// OverlapCheck compares the key sets of two mappings. Index 2 sets are only
// compared when both mappings have a second index.
type OverlapCheck struct {
	First, Second *KeyMapping

	index1Keys     KeySet
	index1Identity KeySet
	index2Keys     KeySet
	index2Identity KeySet
}

func NewOverlapCheck(first, second *KeyMapping) *OverlapCheck {
	oc := OverlapCheck{
		First:          first,
		Second:         second,
		index1Keys:     first.index1Keys.Intersect(second.index1Keys),
		index1Identity: first.index1Identity.Intersect(second.index1Identity),
	}
	if first.HasIndex2() && second.HasIndex2() {
		oc.index2Keys = first.index2Keys.Intersect(second.index2Keys)
		oc.index2Identity = first.index2Identity.Intersect(second.index2Identity)
	}
	return &oc
}

func (oc *OverlapCheck) comparesIndex2() bool { return oc.index2Keys != nil }

func (oc *OverlapCheck) index1Collision() bool { return len(oc.index1Identity) > 0 }
func (oc *OverlapCheck) index2Collision() bool {
	return oc.comparesIndex2() && len(oc.index2Identity) > 0
}

// HasIdentityKeyCollision reports whether the two samples share an exact
// barcode on either index.
func (oc *OverlapCheck) HasIdentityKeyCollision() bool {
	return oc.index1Collision() || oc.index2Collision()
}

func (oc *OverlapCheck) index1Overlap() bool { return len(oc.index1Keys) > 0 }
func (oc *OverlapCheck) index2Overlap() bool {
	return oc.comparesIndex2() && len(oc.index2Keys) > 0
}

// HasKeyOverlap reports whether a read one substitution away from either
// sample could belong to both.
func (oc *OverlapCheck) HasKeyOverlap() bool {
	return oc.index1Overlap() || oc.index2Overlap()
}

// Index1Overlap returns the index 1 keys shared by both samples.
func (oc *OverlapCheck) Index1Overlap() KeySet { return oc.index1Keys.Copy() }

// Index2Overlap returns the index 2 keys shared by both samples, or nil when
// index 2 was not compared.
func (oc *OverlapCheck) Index2Overlap() KeySet { return oc.index2Keys.Copy() }

// ReportLines describes each collision and overlap found, one per line.
func (oc *OverlapCheck) ReportLines() []string {
	a, b := oc.First.Spec, oc.Second.Spec
	pair := fmt.Sprintf("%s - %s and %s - %s", a.Project, a.Sample, b.Project, b.Sample)
	index1 := fmt.Sprintf("first: %s, second: %s", a.Index1, b.Index1)
	index2 := fmt.Sprintf("first: %s, second: %s", a.Index2, b.Index2)

	var lines []string
	if oc.index1Collision() {
		lines = append(lines, fmt.Sprintf("%s have a collision on index 1, %s", pair, index1))
	}
	if oc.index2Collision() {
		lines = append(lines, fmt.Sprintf("%s have a collision on index 2, %s", pair, index2))
	}
	if oc.index1Overlap() {
		lines = append(lines, fmt.Sprintf("%s have %d shared keys for index 1, %s", pair, len(oc.index1Keys), index1))
	}
	if oc.index2Overlap() {
		lines = append(lines, fmt.Sprintf("%s have %d shared keys for index 2, %s", pair, len(oc.index2Keys), index2))
	}
	return lines
}
