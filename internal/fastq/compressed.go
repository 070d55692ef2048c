package fastq

import (
	"bytes"
	"fmt"

	"github.com/klauspost/compress/gzip"
	"github.com/shenwei356/bio/seqio/fastx"
)

type member struct {
	buf bytes.Buffer
	gz  *gzip.Writer
}

// CompressedGroup holds one gzip member per read type. Members are
// append-only until the group is completed, after which the bytes can be
// concatenated onto a gzip FASTQ file as is.
type CompressedGroup struct {
	readTypes []string
	members   map[string]*member
	n         map[string]int
	completed bool
}

// NewCompressedGroup creates an empty compressed group for readTypes.
func NewCompressedGroup(readTypes []string) *CompressedGroup {
	g := CompressedGroup{
		readTypes: readTypes,
		members:   make(map[string]*member, len(readTypes)),
		n:         make(map[string]int, len(readTypes)),
	}
	for _, rt := range readTypes {
		m := &member{}
		m.gz = gzip.NewWriter(&m.buf)
		g.members[rt] = m
	}
	return &g
}

// Add writes record as a four line FASTQ entry into the member of readType.
func (g *CompressedGroup) Add(readType string, record *fastx.Record) error {
	if g.completed {
		return ErrCompleted
	}
	m, ok := g.members[readType]
	if !ok {
		return fmt.Errorf("unknown read type %q", readType)
	}
	if err := writeRecord(m.gz, record); err != nil {
		return err
	}
	g.n[readType]++
	return nil
}

func writeRecord(w *gzip.Writer, record *fastx.Record) error {
	var qual []byte
	var s []byte
	if record.Seq != nil {
		s = record.Seq.Seq
		qual = record.Seq.Qual
	}
	for _, part := range [][]byte{{'@'}, record.Name, {'\n'}, s, {'\n', '+', '\n'}, qual, {'\n'}} {
		if _, err := w.Write(part); err != nil {
			return err
		}
	}
	return nil
}

// Complete closes every gzip member.
func (g *CompressedGroup) Complete() error {
	if g.completed {
		return ErrCompleted
	}
	for _, rt := range g.readTypes {
		if err := g.members[rt].gz.Close(); err != nil {
			return fmt.Errorf("compressing %s: %w", rt, err)
		}
	}
	g.completed = true
	return nil
}

func (g *CompressedGroup) Completed() bool { return g.completed }

// Len returns the number of records added for each read type.
func (g *CompressedGroup) Len() int {
	if len(g.readTypes) == 0 {
		return 0
	}
	return g.n[g.readTypes[0]]
}

func (g *CompressedGroup) Empty() bool { return g.Len() == 0 }

// ReadTypes returns the read types of the group.
func (g *CompressedGroup) ReadTypes() []string { return g.readTypes }

// Bytes returns the completed gzip member for readType.
func (g *CompressedGroup) Bytes(readType string) ([]byte, error) {
	if !g.completed {
		return nil, ErrIncomplete
	}
	m, ok := g.members[readType]
	if !ok {
		return nil, fmt.Errorf("unknown read type %q", readType)
	}
	return m.buf.Bytes(), nil
}
