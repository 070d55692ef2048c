package fastq

import (
	"errors"
	"fmt"
	"sort"

	"github.com/shenwei356/bio/seqio/fastx"
)

// Index read type labels.
const (
	Index1ReadType = "I1"
	Index2ReadType = "I2"
)

var (
	ErrCompleted  = errors.New("sequence group already completed")
	ErrIncomplete = errors.New("sequence group not completed")
)

// Group is a batch of records read position by position from the files of
// one lane. Records at the same position in every read type belong to the
// same cluster.
type Group struct {
	readTypes []string
	records   map[string][]*fastx.Record
	completed bool
}

// NewGroup creates an empty group for the given read types, with room for
// size records per read type.
func NewGroup(readTypes []string, size int) *Group {
	g := Group{
		readTypes: append([]string(nil), readTypes...),
		records:   make(map[string][]*fastx.Record, len(readTypes)),
	}
	sort.Strings(g.readTypes)
	for _, rt := range g.readTypes {
		g.records[rt] = make([]*fastx.Record, 0, size)
	}
	return &g
}

// Add appends a record for readType.
func (g *Group) Add(readType string, record *fastx.Record) error {
	if g.completed {
		return ErrCompleted
	}
	list, ok := g.records[readType]
	if !ok {
		return fmt.Errorf("unknown read type %q", readType)
	}
	g.records[readType] = append(list, record)
	return nil
}

// Complete freezes the group. Every read type must hold the same number of
// records.
func (g *Group) Complete() error {
	if g.completed {
		return ErrCompleted
	}
	n := -1
	for _, rt := range g.readTypes {
		if n == -1 {
			n = len(g.records[rt])
			continue
		}
		if len(g.records[rt]) != n {
			return fmt.Errorf("%w: %s has %d records, %s has %d",
				ErrOutOfLockstep, g.readTypes[0], n, rt, len(g.records[rt]))
		}
	}
	g.completed = true
	return nil
}

func (g *Group) Completed() bool { return g.completed }

// Len returns the number of records per read type of a completed group.
func (g *Group) Len() (int, error) {
	if !g.completed {
		return 0, ErrIncomplete
	}
	if len(g.readTypes) == 0 {
		return 0, nil
	}
	return len(g.records[g.readTypes[0]]), nil
}

// ReadTypes returns the sorted read types of the group.
func (g *Group) ReadTypes() []string { return g.readTypes }

// Records returns the records of readType in read order.
func (g *Group) Records(readType string) []*fastx.Record { return g.records[readType] }
