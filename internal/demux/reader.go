package demux

import (
	"context"
	"fmt"

	"github.com/MikeOF/demany/internal/fastq"
	"github.com/MikeOF/demany/internal/flow"
	log "github.com/sirupsen/logrus"
)

// runReader reads the input files of lane in batches until every file is
// exhausted, waiting while the lane's input queue is full.
func runReader(ctx context.Context, j *Job, lane *Lane, f *flow.Flow) error {
	logger := log.WithField("lane", lane.Label)
	logger.Debug("reader started")

	rg, err := fastq.NewReaderGroup(lane.Inputs, j.opts.BatchSize)
	if err != nil {
		return fmt.Errorf("lane %s: %w", lane.Label, err)
	}
	defer rg.Close()

	b := flow.NewBackoff(flow.DefaultBackoffFloor, flow.DefaultBackoffCeiling)
	batches := 0
	for !rg.Done() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !f.InputNeeded(lane.Label) {
			if err := b.Wait(ctx); err != nil {
				return err
			}
			continue
		}

		g, err := rg.Read()
		if err != nil {
			return fmt.Errorf("lane %s: %w", lane.Label, err)
		}
		if n, _ := g.Len(); n > 0 {
			f.PushInput(lane.Label, g)
			batches++
		}
		b.Busy()
	}

	f.MarkReaderFinished(lane.Label)
	logger.WithField("batches", batches).Debug("reader finished")
	return nil
}
