package demux

import (
	"context"
	"fmt"

	"github.com/MikeOF/demany/internal/fastq"
	"github.com/MikeOF/demany/internal/flow"
	log "github.com/sirupsen/logrus"
)

// classifier takes read batches from any lane and sorts them by sample.
// Counts are kept locally and submitted once when the classifier stops.
type classifier struct {
	id     int
	job    *Job
	flow   *flow.Flow
	lanes  map[string]*Lane
	counts flow.Counts
}

func newClassifier(id int, j *Job, f *flow.Flow) *classifier {
	c := classifier{
		id:     id,
		job:    j,
		flow:   f,
		lanes:  make(map[string]*Lane, len(j.lanes)),
		counts: make(flow.Counts),
	}
	for _, lane := range j.lanes {
		c.lanes[lane.Label] = lane
		for _, sampleID := range lane.IDs() {
			c.counts.Init(lane.Label, sampleID)
		}
	}
	return &c
}

func (c *classifier) run(ctx context.Context) error {
	logger := log.WithField("classifier", c.id)
	logger.Debug("classifier started")

	b := flow.NewBackoff(flow.DefaultBackoffFloor, flow.DefaultBackoffCeiling)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		worked, err := c.pass()
		if err != nil {
			return err
		}
		if worked {
			b.Busy()
			continue
		}
		// finished flags before queue emptiness
		if c.flow.AllReadersFinished() && !c.flow.InputAvailable() {
			break
		}
		if err := b.Wait(ctx); err != nil {
			return err
		}
	}

	c.flow.SubmitCounts(c.counts)
	c.flow.MarkClassifierFinished(c.id)
	logger.Debug("classifier finished")
	return nil
}

// pass classifies at most one batch, from the lane with the largest
// backlog whose output queue has room. The output slot is reserved before
// the batch is taken.
func (c *classifier) pass() (bool, error) {
	for _, label := range c.flow.LanePriority() {
		if !c.flow.ReserveOutput(label) {
			continue
		}
		g, ok := c.flow.TakeInput(label)
		if !ok {
			c.flow.ReleaseOutput(label)
			continue
		}
		out, n, err := c.classify(c.lanes[label], g)
		if err != nil {
			c.flow.ReleaseOutput(label)
			return false, fmt.Errorf("lane %s: %w", label, err)
		}
		c.flow.PushOutput(label, out)
		if c.job.opts.Progress != nil {
			c.job.opts.Progress(label, n)
		}
		return true, nil
	}
	return false, nil
}

// classify assigns every read of g to a sample, or to undetermined, and
// compresses the reads of each id. Ids without reads are left out.
func (c *classifier) classify(lane *Lane, g *fastq.Group) (flow.Classified, int, error) {
	n, err := g.Len()
	if err != nil {
		return nil, 0, err
	}
	lookup := c.job.lookups[lane.Label]
	opts := c.job.opts
	hasIndex2 := c.job.HasIndex2()

	index1Reads := g.Records(fastq.Index1ReadType)
	index2Reads := g.Records(fastq.Index2ReadType)
	readTypes := g.ReadTypes()

	out := make(flow.Classified)
	for i := 0; i < n; i++ {
		index1, ok := indexString(index1Reads[i].Seq.Seq, opts.Index1Offset, opts.Index1Length)
		index := index1
		var index2 string
		if hasIndex2 {
			var ok2 bool
			index2, ok2 = indexString(index2Reads[i].Seq.Seq, opts.Index2Offset, opts.Index2Length)
			index = index1 + "-" + index2
			ok = ok && ok2
		}

		id := fastq.UndeterminedID
		if ok {
			if found, match := lookup.Find(index1, index2, hasIndex2); match {
				id = found
			}
		}

		cg, exists := out[id]
		if !exists {
			cg = fastq.NewCompressedGroup(readTypes)
			out[id] = cg
		}
		for _, rt := range readTypes {
			if err := cg.Add(rt, g.Records(rt)[i]); err != nil {
				return nil, 0, err
			}
		}
		c.counts.Add(lane.Label, id, index)
	}

	for _, cg := range out {
		if err := cg.Complete(); err != nil {
			return nil, 0, err
		}
	}
	return out, n, nil
}
