package demux

import (
	"context"

	"github.com/MikeOF/demany/internal/flow"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Run demultiplexes every lane of j and returns the index string counts.
// The index 2 orientation is resolved first if it has not been. The first
// worker error stops every other worker and is returned.
func Run(ctx context.Context, j *Job) (flow.Counts, error) {
	if err := j.ResolveOrientation(ctx); err != nil {
		return nil, err
	}

	labels := make([]string, 0, len(j.lanes))
	for _, lane := range j.lanes {
		labels = append(labels, lane.Label)
	}
	f, err := flow.New(labels, j.opts.Classifiers, j.opts.QueueDepth)
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"lanes":       len(labels),
		"classifiers": j.opts.Classifiers,
		"batch_size":  j.opts.BatchSize,
	}).Info("demultiplexing")

	g, ctx := errgroup.WithContext(ctx)
	for _, lane := range j.lanes {
		lane := lane
		g.Go(func() error { return runReader(ctx, j, lane, f) })
		g.Go(func() error { return runWriter(ctx, lane, f) })
	}
	for id := 0; id < j.opts.Classifiers; id++ {
		c := newClassifier(id, j, f)
		g.Go(func() error { return c.run(ctx) })
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return f.Counts(), nil
}
