// Package sampleindex builds error tolerant barcode lookups for the samples
// of a lane.
//
// Every sample barcode is expanded into the set of keys within one
// substitution of it (over A, T, G, C and N). Keys shared between samples
// are pruned from the lookup, so an ambiguous read is left undetermined
// instead of being given to either sample. Samples sharing an exact barcode
// cannot be told apart and are rejected.
package sampleindex

// Spec identifies a sample and its barcodes in one lane. An empty Index2
// means the sample has no second index. Specs are compared with ==.
type Spec struct {
	Project string `yaml:"project" json:"project"`
	Sample  string `yaml:"sample" json:"sample"`
	Index1  string `yaml:"index1" json:"index1"`
	Index2  string `yaml:"index2,omitempty" json:"index2,omitempty"`
	Lane    int    `yaml:"lane" json:"lane"`
}

// ID returns the project-sample identifier used for output and counts.
func (s Spec) ID() string { return s.Project + "-" + s.Sample }

func (s Spec) HasIndex2() bool { return s.Index2 != "" }
