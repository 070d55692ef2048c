package demux

import (
	"context"
	"fmt"

	"github.com/MikeOF/demany/internal/fastq"
	"github.com/MikeOF/demany/internal/flow"
	log "github.com/sirupsen/logrus"
)

// runWriter appends the classified batches of lane to the output files of
// each id. Every output file of the lane is created up front.
func runWriter(ctx context.Context, lane *Lane, f *flow.Flow) (err error) {
	logger := log.WithField("lane", lane.Label)
	logger.Debug("writer started")

	writers := make(map[string]*fastq.WriterGroup, len(lane.Outputs))
	defer func() {
		for id, w := range writers {
			if cerr := w.Close(); cerr != nil && err == nil {
				err = fmt.Errorf("closing %s output of lane %s: %w", id, lane.Label, cerr)
			}
		}
	}()
	for id, paths := range lane.Outputs {
		w, err := fastq.NewWriterGroup(paths)
		if err != nil {
			return fmt.Errorf("creating %s output of lane %s: %w", id, lane.Label, err)
		}
		writers[id] = w
	}

	b := flow.NewBackoff(flow.DefaultBackoffFloor, flow.DefaultBackoffCeiling)
	batches := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		out, ok := f.TakeOutput(lane.Label)
		if ok {
			for id, cg := range out {
				w, known := writers[id]
				if !known {
					return fmt.Errorf("lane %s has no output for %s", lane.Label, id)
				}
				if err := w.Write(cg); err != nil {
					return fmt.Errorf("lane %s, %s: %w", lane.Label, id, err)
				}
			}
			batches++
			b.Busy()
			continue
		}
		if f.AllClassifiersFinished() && !f.OutputAvailable(lane.Label) {
			break
		}
		if err := b.Wait(ctx); err != nil {
			return err
		}
	}

	logger.WithField("batches", batches).Debug("writer finished")
	return nil
}
