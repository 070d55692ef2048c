// Package demux splits the FASTQ files of a sequencing run into per sample
// files by the sample index reads.
//
// A job runs one reader and one writer per lane and a shared pool of
// classifiers. The workers only talk through a flow.Flow and stop together
// on the first error.
package demux

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"github.com/MikeOF/demany/internal/fastq"
	"github.com/MikeOF/demany/internal/sampleindex"
)

// ErrConfig marks a job configuration that cannot be run.
var ErrConfig = errors.New("invalid job configuration")

// Orientation tells how index 2 reads compare to the index 2 barcodes.
type Orientation string

const (
	OrientationAuto              Orientation = "auto"
	OrientationForward           Orientation = "forward"
	OrientationReverseComplement Orientation = "reverse-complement"
)

const (
	DefaultBatchSize             = 1000
	DefaultQueueDepth            = 3
	DefaultOrientationSampleSize = 1000000
	DefaultMinIndexCount         = 100
)

// Options configures a job. Zero values of BatchSize, QueueDepth,
// OrientationSampleSize and Classifiers take their defaults.
type Options struct {
	// Lanes maps a lane number to its read type -> FASTQ path map.
	Lanes   map[int]map[string]string
	Samples []sampleindex.Spec

	Index1Length, Index2Length int
	Index1Offset, Index2Offset int
	Index2Orientation          Orientation

	// OutputDir must be an absolute path to an existing directory.
	OutputDir string

	Classifiers           int
	BatchSize             int
	QueueDepth            int
	OrientationSampleSize int

	// Progress, when set, is called by classifiers after every batch.
	Progress func(lane string, reads int)
}

// Lane is the validated setup of one lane.
type Lane struct {
	Number int
	Label  string
	// Inputs maps read type -> input path.
	Inputs     map[string]string
	Samples    []sampleindex.Spec
	Collection *sampleindex.Collection
	// Outputs maps sample id -> read type -> output path.
	Outputs map[string]map[string]string
}

// IDs returns the undetermined id followed by the sorted sample ids.
func (l *Lane) IDs() []string {
	ids := make([]string, 0, len(l.Outputs))
	for id := range l.Outputs {
		if id != fastq.UndeterminedID {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return append([]string{fastq.UndeterminedID}, ids...)
}

// Job is a validated demultiplexing job.
type Job struct {
	opts      Options
	lanes     []*Lane
	readTypes []string

	reverseComplement bool
	lookups           map[string]*sampleindex.Lookup
}

func configError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrConfig, fmt.Sprintf(format, args...))
}

// NewJob validates opts and expands the sample barcodes of every lane.
// Identity collisions are not checked here; see CheckCollisions.
func NewJob(opts Options) (*Job, error) {
	if opts.BatchSize == 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.QueueDepth == 0 {
		opts.QueueDepth = DefaultQueueDepth
	}
	if opts.OrientationSampleSize == 0 {
		opts.OrientationSampleSize = DefaultOrientationSampleSize
	}
	if opts.Classifiers == 0 {
		opts.Classifiers = runtime.NumCPU()
	}
	if opts.Index2Orientation == "" {
		opts.Index2Orientation = OrientationAuto
	}

	switch {
	case len(opts.Lanes) == 0:
		return nil, configError("no lanes to demultiplex")
	case len(opts.Samples) == 0:
		return nil, configError("no samples")
	case opts.Index1Length < 1:
		return nil, configError("index 1 length must be greater than 0, got %d", opts.Index1Length)
	case opts.Index2Length < 0:
		return nil, configError("index 2 length cannot be negative, got %d", opts.Index2Length)
	case opts.Index1Offset < 0 || opts.Index2Offset < 0:
		return nil, configError("index offsets cannot be negative")
	case opts.Classifiers < 0:
		return nil, configError("classifier count cannot be negative, got %d", opts.Classifiers)
	case opts.BatchSize < 0 || opts.QueueDepth < 0 || opts.OrientationSampleSize < 0:
		return nil, configError("batch size, queue depth and orientation sample size cannot be negative")
	}

	switch opts.Index2Orientation {
	case OrientationAuto, OrientationForward:
	case OrientationReverseComplement:
		if opts.Index2Length == 0 {
			return nil, configError("index 2 cannot be reverse complemented with an index 2 length of 0")
		}
	default:
		return nil, configError("unknown index 2 orientation %q", opts.Index2Orientation)
	}

	if !filepath.IsAbs(opts.OutputDir) {
		return nil, configError("output dir must be an absolute path, got %q", opts.OutputDir)
	}
	if info, err := os.Stat(opts.OutputDir); err != nil || !info.IsDir() {
		return nil, configError("output dir %s is not an existing directory", opts.OutputDir)
	}

	j := Job{opts: opts}
	if err := j.setReadTypes(); err != nil {
		return nil, err
	}
	if err := j.setLanes(); err != nil {
		return nil, err
	}
	return &j, nil
}

func (j *Job) setReadTypes() error {
	var first []string
	var firstLane int
	for number, inputs := range j.opts.Lanes {
		if number < 1 {
			return configError("lane numbers start at 1, got %d", number)
		}
		var readTypes []string
		for rt, path := range inputs {
			if path == "" {
				return configError("lane %d has no path for read type %s", number, rt)
			}
			readTypes = append(readTypes, rt)
		}
		sort.Strings(readTypes)
		if first == nil {
			first, firstLane = readTypes, number
			continue
		}
		if strings.Join(first, ",") != strings.Join(readTypes, ",") {
			return configError("lanes %d and %d have different read types: %v, %v",
				firstLane, number, first, readTypes)
		}
	}

	has := make(map[string]bool, len(first))
	for _, rt := range first {
		has[rt] = true
	}
	if !has[fastq.Index1ReadType] {
		return configError("read types %v do not include %s", first, fastq.Index1ReadType)
	}
	if j.opts.Index2Length > 0 && !has[fastq.Index2ReadType] {
		return configError("index 2 length is %d but read types %v do not include %s",
			j.opts.Index2Length, first, fastq.Index2ReadType)
	}
	if j.opts.Index2Length == 0 && has[fastq.Index2ReadType] {
		return configError("read types %v include %s but index 2 length is 0", first, fastq.Index2ReadType)
	}
	j.readTypes = first
	return nil
}

func validName(name string) bool {
	return name != "" && name != "." && name != ".." && !strings.ContainsAny(name, `/\`)
}

func (j *Job) setLanes() error {
	byLane := make(map[int][]sampleindex.Spec)
	for _, spec := range j.opts.Samples {
		if !validName(spec.Project) || !validName(spec.Sample) {
			return configError("sample %q of project %q cannot be used as a path", spec.Sample, spec.Project)
		}
		if _, ok := j.opts.Lanes[spec.Lane]; !ok {
			return configError("sample %s is in lane %d, which has no input files", spec.ID(), spec.Lane)
		}
		byLane[spec.Lane] = append(byLane[spec.Lane], spec)
	}

	for number, inputs := range j.opts.Lanes {
		specs := byLane[number]
		if len(specs) == 0 {
			return configError("lane %d has no samples", number)
		}
		c, err := sampleindex.NewCollection(specs, j.opts.Index1Length, j.opts.Index2Length)
		if err != nil {
			return configError("lane %d: %v", number, err)
		}

		lane := Lane{
			Number:     number,
			Label:      fastq.LaneLabel(number),
			Inputs:     inputs,
			Samples:    specs,
			Collection: c,
			Outputs:    make(map[string]map[string]string),
		}
		undetermined := make(map[string]string, len(j.readTypes))
		for _, rt := range j.readTypes {
			undetermined[rt] = fastq.UndeterminedPath(j.opts.OutputDir, lane.Label, rt)
		}
		lane.Outputs[fastq.UndeterminedID] = undetermined
		owners := make(map[string]sampleindex.Spec, len(specs))
		for _, spec := range specs {
			if owner, ok := owners[spec.ID()]; ok {
				if owner.Project != spec.Project || owner.Sample != spec.Sample {
					return configError("lane %d: samples %s/%s and %s/%s share the id %s", number,
						owner.Project, owner.Sample, spec.Project, spec.Sample, spec.ID())
				}
				continue
			}
			owners[spec.ID()] = spec
			paths := make(map[string]string, len(j.readTypes))
			for _, rt := range j.readTypes {
				paths[rt] = fastq.SamplePath(j.opts.OutputDir, spec.Project, spec.Sample, lane.Label, rt)
			}
			lane.Outputs[spec.ID()] = paths
		}
		j.lanes = append(j.lanes, &lane)
	}
	sort.Slice(j.lanes, func(a, b int) bool { return j.lanes[a].Number < j.lanes[b].Number })
	return nil
}

// Lanes returns the lanes ordered by number.
func (j *Job) Lanes() []*Lane { return j.lanes }

// ReadTypes returns the sorted read types shared by every lane.
func (j *Job) ReadTypes() []string { return j.readTypes }

func (j *Job) Options() Options { return j.opts }

// HasIndex2 reports whether reads are classified by index 2 as well.
func (j *Job) HasIndex2() bool { return j.opts.Index2Length > 0 }

// OverlapReport returns the collision and overlap report lines of every
// lane, prefixed with the lane label.
func (j *Job) OverlapReport() []string {
	var lines []string
	for _, lane := range j.lanes {
		for _, line := range lane.Collection.ReportLines() {
			lines = append(lines, lane.Label+": "+line)
		}
	}
	return lines
}

// CheckCollisions returns a sampleindex.ErrIdentityCollision error when two
// samples of a lane share an exact barcode.
func (j *Job) CheckCollisions() error {
	for _, lane := range j.lanes {
		if lane.Collection.HasIdentityKeyCollision() {
			return fmt.Errorf("lane %s: %w:\n%s", lane.Label, sampleindex.ErrIdentityCollision,
				strings.Join(lane.Collection.ReportLines(), "\n"))
		}
	}
	return nil
}

// ResolveOrientation settles the index 2 orientation, sampling reads when
// it is set to auto, and builds the lookup of every lane.
func (j *Job) ResolveOrientation(ctx context.Context) error {
	if j.lookups != nil {
		return nil
	}
	if err := j.CheckCollisions(); err != nil {
		return err
	}

	switch j.opts.Index2Orientation {
	case OrientationForward:
		j.reverseComplement = false
	case OrientationReverseComplement:
		j.reverseComplement = true
	default:
		rc, err := DetectOrientation(ctx, j)
		if err != nil {
			return err
		}
		j.reverseComplement = rc
	}

	lookups := make(map[string]*sampleindex.Lookup, len(j.lanes))
	for _, lane := range j.lanes {
		l, err := sampleindex.NewLookup(lane.Collection, j.reverseComplement)
		if err != nil {
			return fmt.Errorf("lane %s: %w", lane.Label, err)
		}
		lookups[lane.Label] = l
	}
	j.lookups = lookups
	return nil
}

// Index2ReverseComplement reports the resolved index 2 orientation.
func (j *Job) Index2ReverseComplement() bool { return j.reverseComplement }

// indexString returns length bases of seq at offset, and whether seq was
// long enough.
func indexString(seq []byte, offset, length int) (string, bool) {
	if offset+length > len(seq) {
		if offset > len(seq) {
			return "", false
		}
		return string(seq[offset:]), false
	}
	return string(seq[offset : offset+length]), true
}
