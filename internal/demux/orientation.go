package demux

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/MikeOF/demany/internal/fastq"
	"github.com/MikeOF/demany/internal/sampleindex"
	log "github.com/sirupsen/logrus"
)

// ErrOrientationAmbiguous is returned when sampled reads match neither
// index 2 orientation clearly enough.
var ErrOrientationAmbiguous = errors.New("index 2 orientation is ambiguous")

// MinOrientationRatio is the share of hits the winning orientation needs.
const MinOrientationRatio = 0.8

type indexCounts map[string]int

type countedIndex struct {
	index string
	n     int
}

func (ic indexCounts) total() int {
	total := 0
	for _, n := range ic {
		total += n
	}
	return total
}

// top returns the n most frequent index strings.
func (ic indexCounts) top(n int) []countedIndex {
	all := make([]countedIndex, 0, len(ic))
	for index, count := range ic {
		all = append(all, countedIndex{index, count})
	}
	sort.Slice(all, func(a, b int) bool {
		if all[a].n != all[b].n {
			return all[a].n > all[b].n
		}
		return all[a].index < all[b].index
	})
	if len(all) > n {
		all = all[:n]
	}
	return all
}

// orientationSample holds the index strings of the sampled reads by which
// lookups matched them.
type orientationSample struct {
	undetermined, forward, reverse indexCounts
}

func (s *orientationSample) diagnostic() string {
	var b strings.Builder
	for _, part := range []struct {
		title  string
		counts indexCounts
	}{
		{"Undetermined Index Str Counts", s.undetermined},
		{"Forward Index Str Counts", s.forward},
		{"Reverse Complement Index Str Counts", s.reverse},
	} {
		b.WriteString(part.title + "\n")
		for _, c := range part.counts.top(5) {
			fmt.Fprintf(&b, "%s: %d\n", c.index, c.n)
		}
	}
	return b.String()
}

// usesIndex2 reports whether any sample is told apart by index 2.
func (j *Job) usesIndex2() bool {
	if !j.HasIndex2() {
		return false
	}
	for _, spec := range j.opts.Samples {
		if spec.HasIndex2() {
			return true
		}
	}
	return false
}

// DetectOrientation samples the index reads of every lane through a
// forward and a reverse complement lookup and returns true when index 2
// reads must be reverse complemented. Jobs without index 2 are forward.
func DetectOrientation(ctx context.Context, j *Job) (bool, error) {
	if !j.usesIndex2() {
		log.Info("samples have no index 2, index 2 orientation is forward")
		return false, nil
	}

	s := orientationSample{
		undetermined: make(indexCounts),
		forward:      make(indexCounts),
		reverse:      make(indexCounts),
	}
	for _, lane := range j.lanes {
		if err := j.sampleLane(ctx, lane, &s); err != nil {
			return false, fmt.Errorf("sampling lane %s: %w", lane.Label, err)
		}
	}

	forward, reverse := s.forward.total(), s.reverse.total()
	major := forward
	if reverse > major {
		major = reverse
	}
	if forward+reverse == 0 || float64(major)/float64(forward+reverse) < MinOrientationRatio {
		return false, fmt.Errorf("%w: forward find count %d, reverse complement find count %d\n%s",
			ErrOrientationAmbiguous, forward, reverse, s.diagnostic())
	}

	rc := reverse > forward
	log.WithFields(log.Fields{
		"forward":            forward,
		"reverse_complement": reverse,
	}).Infof("index 2 reverse complement is %v", rc)
	return rc, nil
}

func (j *Job) sampleLane(ctx context.Context, lane *Lane, s *orientationSample) error {
	forward, err := sampleindex.NewLookup(lane.Collection, false)
	if err != nil {
		return err
	}
	reverse, err := sampleindex.NewLookup(lane.Collection, true)
	if err != nil {
		return err
	}

	rg, err := fastq.NewReaderGroup(map[string]string{
		fastq.Index1ReadType: lane.Inputs[fastq.Index1ReadType],
		fastq.Index2ReadType: lane.Inputs[fastq.Index2ReadType],
	}, j.opts.BatchSize)
	if err != nil {
		return err
	}
	defer rg.Close()

	sampled := 0
	for !rg.Done() && sampled < j.opts.OrientationSampleSize {
		if err := ctx.Err(); err != nil {
			return err
		}
		g, err := rg.Read()
		if err != nil {
			return err
		}
		index1Reads := g.Records(fastq.Index1ReadType)
		index2Reads := g.Records(fastq.Index2ReadType)
		for i := range index1Reads {
			if sampled == j.opts.OrientationSampleSize {
				break
			}
			sampled++

			index1, ok1 := indexString(index1Reads[i].Seq.Seq, j.opts.Index1Offset, j.opts.Index1Length)
			index2, ok2 := indexString(index2Reads[i].Seq.Seq, j.opts.Index2Offset, j.opts.Index2Length)
			index := index1 + "-" + index2

			var fwdOK, revOK bool
			if ok1 && ok2 {
				_, fwdOK = forward.Find(index1, index2, true)
				_, revOK = reverse.Find(index1, index2, true)
			}
			if fwdOK {
				s.forward[index]++
			}
			if revOK {
				s.reverse[index]++
			}
			if !fwdOK && !revOK {
				s.undetermined[index]++
			}
		}
	}
	log.WithField("lane", lane.Label).Debugf("sampled %d reads for index 2 orientation", sampled)
	return nil
}
