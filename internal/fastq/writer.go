package fastq

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/gzip"
)

// UndeterminedID names the bucket of reads matching no sample.
const UndeterminedID = "undetermined"

// LaneLabel formats a lane number the way bcl2fastq names lanes.
func LaneLabel(lane int) string { return fmt.Sprintf("L%03d", lane) }

// UndeterminedPath returns the output path for undetermined reads.
func UndeterminedPath(dir, lane, readType string) string {
	return filepath.Join(dir, fmt.Sprintf("Undetermined_S0_%s_%s_001.fastq.gz", lane, readType))
}

// SamplePath returns the output path of a sample's reads. Samples live in
// project/sample subdirectories of dir.
func SamplePath(dir, project, sample, lane, readType string) string {
	return filepath.Join(dir, project, sample, fmt.Sprintf("%s_S1_%s_%s_001.fastq.gz", sample, lane, readType))
}

type output struct {
	f       *os.File
	written bool
}

// WriterGroup appends completed compressed groups to one gzip FASTQ file
// per read type.
type WriterGroup struct {
	outputs map[string]*output
}

// NewWriterGroup creates (or truncates) a file for every read type -> path
// entry, making parent directories as needed.
func NewWriterGroup(pathByReadType map[string]string) (*WriterGroup, error) {
	wg := WriterGroup{outputs: make(map[string]*output, len(pathByReadType))}
	for rt, path := range pathByReadType {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			wg.Close()
			return nil, err
		}
		f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			wg.Close()
			return nil, err
		}
		wg.outputs[rt] = &output{f: f}
	}
	return &wg, nil
}

// Write appends the gzip member of every read type in g.
func (wg *WriterGroup) Write(g *CompressedGroup) error {
	if !g.Completed() {
		return fmt.Errorf("cannot write compressed group: %w", ErrIncomplete)
	}
	for _, rt := range g.ReadTypes() {
		out, ok := wg.outputs[rt]
		if !ok {
			return fmt.Errorf("no output file for read type %q", rt)
		}
		data, err := g.Bytes(rt)
		if err != nil {
			return err
		}
		if _, err = out.f.Write(data); err != nil {
			return fmt.Errorf("writing %s: %w", out.f.Name(), err)
		}
		out.written = true
	}
	return nil
}

// Close closes every file. Files that never received data get an empty
// gzip member so they remain valid gzip files.
func (wg *WriterGroup) Close() error {
	var first error
	for rt, out := range wg.outputs {
		if !out.written {
			gz := gzip.NewWriter(out.f)
			if err := gz.Close(); err != nil && first == nil {
				first = err
			}
		}
		if err := out.f.Close(); err != nil && first == nil {
			first = err
		}
		delete(wg.outputs, rt)
	}
	return first
}
