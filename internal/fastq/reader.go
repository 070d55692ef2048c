package fastq

import (
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/shenwei356/bio/seq"
	"github.com/shenwei356/bio/seqio/fastx"
)

// ErrOutOfLockstep is returned when the files of one lane stop holding the
// same number of records.
var ErrOutOfLockstep = errors.New("read type files out of lockstep")

// ReaderGroup reads batches of records from all read type files of a lane
// at once.
type ReaderGroup struct {
	readTypes []string
	readers   map[string]*fastx.Reader
	batchSize int
	done      bool
}

// NewReaderGroup opens a fastx reader for every read type -> path entry.
func NewReaderGroup(pathByReadType map[string]string, batchSize int) (*ReaderGroup, error) {
	if batchSize < 1 {
		return nil, fmt.Errorf("batch size must be positive, got %d", batchSize)
	}
	if len(pathByReadType) == 0 {
		return nil, errors.New("no fastq files to read")
	}
	rg := ReaderGroup{
		readers:   make(map[string]*fastx.Reader, len(pathByReadType)),
		batchSize: batchSize,
	}
	for rt, path := range pathByReadType {
		// index reads may be all N, so no alphabet guessing
		fq, err := fastx.NewReader(seq.Unlimit, path, "")
		if err != nil {
			rg.Close()
			return nil, fmt.Errorf("opening %s fastq %s: %w", rt, path, err)
		}
		rg.readers[rt] = fq
		rg.readTypes = append(rg.readTypes, rt)
	}
	sort.Strings(rg.readTypes)
	return &rg, nil
}

// ReadTypes returns the sorted read types of the group.
func (rg *ReaderGroup) ReadTypes() []string { return rg.readTypes }

// Done reports whether end of file was reached on every file.
func (rg *ReaderGroup) Done() bool { return rg.done }

// Read returns a completed group of up to batch size records per read type.
// The group is empty once every file is exhausted. Files reaching end of
// file at different positions yield ErrOutOfLockstep.
func (rg *ReaderGroup) Read() (*Group, error) {
	if rg.done {
		return nil, errors.New("cannot read sequences after reading is done")
	}
	group := NewGroup(rg.readTypes, rg.batchSize)
	eof := 0
	for _, rt := range rg.readTypes {
		fq := rg.readers[rt]
		for i := 0; i < rg.batchSize; i++ {
			record, err := fq.Read()
			if err == io.EOF {
				eof++
				break
			}
			if err != nil {
				return nil, fmt.Errorf("reading %s: %w", rt, err)
			}
			if err = group.Add(rt, record.Clone()); err != nil {
				return nil, err
			}
		}
	}
	if eof != 0 && eof != len(rg.readTypes) {
		return nil, fmt.Errorf("%w: %d of %d files ended", ErrOutOfLockstep, eof, len(rg.readTypes))
	}
	if err := group.Complete(); err != nil {
		return nil, err
	}
	if eof != 0 {
		rg.done = true
		rg.Close()
	}
	return group, nil
}

// Close closes every underlying reader.
func (rg *ReaderGroup) Close() {
	for rt, fq := range rg.readers {
		fq.Close()
		delete(rg.readers, rt)
	}
}
