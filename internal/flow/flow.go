// Package flow coordinates the reader, classifier and writer workers of a
// demultiplexing job. Every queue and every set of flags has its own lock.
package flow

import (
	"fmt"
	"sort"
	"sync"

	"github.com/MikeOF/demany/internal/fastq"
)

// Classified holds the compressed records of one input batch by sample id.
type Classified map[string]*fastq.CompressedGroup

// Flow owns the queues between workers: per lane, one queue of read batches
// and one queue of classified batches.
type Flow struct {
	lanes   []string
	inputs  map[string]*Queue[*fastq.Group]
	outputs map[string]*Queue[Classified]

	readersMu       sync.Mutex
	readersFinished map[string]bool

	classifiersMu       sync.Mutex
	classifiersFinished map[int]bool

	countsMu sync.Mutex
	counts   Counts
}

// New creates a flow for lanes with classifiers classifier workers and
// queues of the given depth.
func New(lanes []string, classifiers, depth int) (*Flow, error) {
	if len(lanes) == 0 {
		return nil, fmt.Errorf("a flow needs at least one lane")
	}
	if classifiers < 1 {
		return nil, fmt.Errorf("a flow needs at least one classifier, got %d", classifiers)
	}
	if depth < 1 {
		return nil, fmt.Errorf("queue depth must be positive, got %d", depth)
	}

	f := Flow{
		lanes:               append([]string(nil), lanes...),
		inputs:              make(map[string]*Queue[*fastq.Group], len(lanes)),
		outputs:             make(map[string]*Queue[Classified], len(lanes)),
		readersFinished:     make(map[string]bool, len(lanes)),
		classifiersFinished: make(map[int]bool, classifiers),
		counts:              make(Counts),
	}
	sort.Strings(f.lanes)
	for _, lane := range f.lanes {
		if _, dup := f.inputs[lane]; dup {
			return nil, fmt.Errorf("duplicate lane %s", lane)
		}
		f.inputs[lane] = NewQueue[*fastq.Group](depth)
		f.outputs[lane] = NewQueue[Classified](depth)
		f.readersFinished[lane] = false
	}
	for id := 0; id < classifiers; id++ {
		f.classifiersFinished[id] = false
	}
	return &f, nil
}

func (f *Flow) Lanes() []string { return f.lanes }

func (f *Flow) InputNeeded(lane string) bool { return !f.inputs[lane].Full() }

func (f *Flow) PushInput(lane string, g *fastq.Group) { f.inputs[lane].Push(g) }

func (f *Flow) TakeInput(lane string) (*fastq.Group, bool) { return f.inputs[lane].TryPop() }

// InputAvailable reports whether any lane has a batch waiting.
func (f *Flow) InputAvailable() bool {
	for _, lane := range f.lanes {
		if f.inputs[lane].Len() > 0 {
			return true
		}
	}
	return false
}

// LanePriority returns the lanes ordered by descending input backlog.
func (f *Flow) LanePriority() []string {
	depth := make(map[string]int, len(f.lanes))
	for _, lane := range f.lanes {
		depth[lane] = f.inputs[lane].Len()
	}
	lanes := append([]string(nil), f.lanes...)
	sort.SliceStable(lanes, func(i, j int) bool { return depth[lanes[i]] > depth[lanes[j]] })
	return lanes
}

func (f *Flow) OutputNeeded(lane string) bool { return !f.outputs[lane].Full() }

// ReserveOutput claims room for one classified batch of lane. Every
// successful call is followed by PushOutput or ReleaseOutput.
func (f *Flow) ReserveOutput(lane string) bool { return f.outputs[lane].TryReserve() }

func (f *Flow) ReleaseOutput(lane string) { f.outputs[lane].Release() }

// PushOutput fills the slot claimed by ReserveOutput.
func (f *Flow) PushOutput(lane string, c Classified) { f.outputs[lane].PushReserved(c) }

func (f *Flow) TakeOutput(lane string) (Classified, bool) { return f.outputs[lane].TryPop() }

func (f *Flow) OutputAvailable(lane string) bool { return f.outputs[lane].Len() > 0 }

func (f *Flow) InputDepth(lane string) int  { return f.inputs[lane].Len() }
func (f *Flow) OutputDepth(lane string) int { return f.outputs[lane].Len() }

func (f *Flow) MarkReaderFinished(lane string) {
	f.readersMu.Lock()
	f.readersFinished[lane] = true
	f.readersMu.Unlock()
}

func (f *Flow) AllReadersFinished() bool {
	f.readersMu.Lock()
	defer f.readersMu.Unlock()
	for _, done := range f.readersFinished {
		if !done {
			return false
		}
	}
	return true
}

func (f *Flow) MarkClassifierFinished(id int) {
	f.classifiersMu.Lock()
	f.classifiersFinished[id] = true
	f.classifiersMu.Unlock()
}

func (f *Flow) AllClassifiersFinished() bool {
	f.classifiersMu.Lock()
	defer f.classifiersMu.Unlock()
	for _, done := range f.classifiersFinished {
		if !done {
			return false
		}
	}
	return true
}

// SubmitCounts merges the counts of a classifier into the job total.
func (f *Flow) SubmitCounts(c Counts) {
	f.countsMu.Lock()
	f.counts.Merge(c)
	f.countsMu.Unlock()
}

// Counts returns the merged counts. It is only complete once every
// classifier has finished.
func (f *Flow) Counts() Counts {
	f.countsMu.Lock()
	defer f.countsMu.Unlock()
	out := make(Counts, len(f.counts))
	out.Merge(f.counts)
	return out
}
