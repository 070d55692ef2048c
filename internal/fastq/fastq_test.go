package fastq

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	gzip "github.com/klauspost/pgzip"
	"github.com/shenwei356/bio/seq"
	"github.com/shenwei356/bio/seqio/fastx"
)

func writeFastq(t *testing.T, path string, seqs []string) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	gw := gzip.NewWriter(f)
	for i, s := range seqs {
		fmt.Fprintf(gw, "@read%d 1:N:0:1\n%s\n+\n%s\n", i, s, strings.Repeat("I", len(s)))
	}
	if err := gw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	gr, err := gzip.NewReader(f)
	if err != nil {
		t.Fatal(err)
	}
	defer gr.Close()
	var lines []string
	scanner := bufio.NewScanner(gr)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil && err != io.EOF {
		t.Fatal(err)
	}
	return lines
}

func newRecord(name, s string) *fastx.Record {
	return &fastx.Record{
		Name: []byte(name),
		Seq:  &seq.Seq{Seq: []byte(s), Qual: []byte(strings.Repeat("F", len(s)))},
	}
}

func TestReaderGroupBatches(t *testing.T) {
	dir := t.TempDir()
	paths := map[string]string{
		"R1": filepath.Join(dir, "r1.fastq.gz"),
		"I1": filepath.Join(dir, "i1.fastq.gz"),
	}
	writeFastq(t, paths["R1"], []string{"ACGTACGT", "TTTTTTTT", "GGGGGGGG", "CCCCCCCC", "AAAAAAAA"})
	writeFastq(t, paths["I1"], []string{"AGG", "TGG", "CCA", "NNN", "AGC"})

	rg, err := NewReaderGroup(paths, 2)
	if err != nil {
		t.Fatal(err)
	}
	defer rg.Close()

	var sizes []int
	var index1 []string
	for !rg.Done() {
		g, err := rg.Read()
		if err != nil {
			t.Fatal(err)
		}
		n, err := g.Len()
		if err != nil {
			t.Fatal(err)
		}
		sizes = append(sizes, n)
		for _, r := range g.Records("I1") {
			index1 = append(index1, string(r.Seq.Seq))
		}
	}

	if fmt.Sprint(sizes) != "[2 2 1]" {
		t.Errorf("batch sizes: %v", sizes)
	}
	if strings.Join(index1, ",") != "AGG,TGG,CCA,NNN,AGC" {
		t.Errorf("records out of order: %v", index1)
	}
}

func TestReaderGroupExactMultiple(t *testing.T) {
	dir := t.TempDir()
	paths := map[string]string{"I1": filepath.Join(dir, "i1.fastq.gz")}
	writeFastq(t, paths["I1"], []string{"AGG", "TGG"})

	rg, err := NewReaderGroup(paths, 2)
	if err != nil {
		t.Fatal(err)
	}
	g, err := rg.Read()
	if err != nil {
		t.Fatal(err)
	}
	if n, _ := g.Len(); n != 2 || rg.Done() {
		t.Fatalf("first batch: %d records, done %v", n, rg.Done())
	}
	g, err = rg.Read()
	if err != nil {
		t.Fatal(err)
	}
	if n, _ := g.Len(); n != 0 || !rg.Done() {
		t.Fatalf("second batch: %d records, done %v", n, rg.Done())
	}
	if _, err = rg.Read(); err == nil {
		t.Errorf("expected an error reading after done")
	}
}

func TestReaderGroupOutOfLockstep(t *testing.T) {
	type test struct {
		r1, i1    []string
		batchSize int
	}

	tests := []test{
		{[]string{"A", "C", "G"}, []string{"A", "C"}, 10},
		{[]string{"A", "C", "G"}, []string{"A", "C"}, 2},
		{[]string{"A", "C"}, []string{"A", "C", "G", "T"}, 2},
	}

	for _, test := range tests {
		dir := t.TempDir()
		paths := map[string]string{
			"R1": filepath.Join(dir, "r1.fastq.gz"),
			"I1": filepath.Join(dir, "i1.fastq.gz"),
		}
		writeFastq(t, paths["R1"], test.r1)
		writeFastq(t, paths["I1"], test.i1)

		rg, err := NewReaderGroup(paths, test.batchSize)
		if err != nil {
			t.Fatal(err)
		}
		for err == nil && !rg.Done() {
			_, err = rg.Read()
		}
		rg.Close()
		if !errors.Is(err, ErrOutOfLockstep) {
			t.Errorf("Test: %#v, received: %v", test, err)
		}
	}
}

func TestGroupLifecycle(t *testing.T) {
	g := NewGroup([]string{"R1", "I1"}, 4)
	if _, err := g.Len(); !errors.Is(err, ErrIncomplete) {
		t.Errorf("Len before Complete: %v", err)
	}
	if err := g.Add("R2", newRecord("a", "A")); err == nil {
		t.Errorf("expected an error for an unknown read type")
	}
	g.Add("R1", newRecord("a", "ACGT"))
	g.Add("I1", newRecord("a", "AGG"))
	if err := g.Complete(); err != nil {
		t.Fatal(err)
	}
	if n, _ := g.Len(); n != 1 {
		t.Errorf("Len: %d", n)
	}
	if err := g.Add("R1", newRecord("b", "ACGT")); !errors.Is(err, ErrCompleted) {
		t.Errorf("Add after Complete: %v", err)
	}
	if rts := g.ReadTypes(); rts[0] != "I1" || rts[1] != "R1" {
		t.Errorf("read types not sorted: %v", rts)
	}

	uneven := NewGroup([]string{"R1", "I1"}, 4)
	uneven.Add("R1", newRecord("a", "ACGT"))
	if err := uneven.Complete(); !errors.Is(err, ErrOutOfLockstep) {
		t.Errorf("Complete with uneven read types: %v", err)
	}
}

func TestWriterGroupAppendsMembers(t *testing.T) {
	dir := t.TempDir()
	lane := LaneLabel(1)
	paths := map[string]string{
		"R1": SamplePath(dir, "proj", "samp", lane, "R1"),
		"I1": SamplePath(dir, "proj", "samp", lane, "I1"),
	}
	wg, err := NewWriterGroup(paths)
	if err != nil {
		t.Fatal(err)
	}

	for batch := 0; batch < 2; batch++ {
		cg := NewCompressedGroup([]string{"I1", "R1"})
		for i := 0; i < 3; i++ {
			name := fmt.Sprintf("read%d-%d", batch, i)
			if err := cg.Add("R1", newRecord(name, "ACGTACGT")); err != nil {
				t.Fatal(err)
			}
			if err := cg.Add("I1", newRecord(name, "AGG")); err != nil {
				t.Fatal(err)
			}
		}
		if err := wg.Write(cg); err == nil {
			t.Fatalf("expected an error writing an incomplete group")
		}
		if err := cg.Complete(); err != nil {
			t.Fatal(err)
		}
		if cg.Len() != 3 {
			t.Errorf("compressed group length: %d", cg.Len())
		}
		if err := wg.Write(cg); err != nil {
			t.Fatal(err)
		}
	}
	if err := wg.Close(); err != nil {
		t.Fatal(err)
	}

	if !strings.HasSuffix(paths["R1"], filepath.Join("proj", "samp", "samp_S1_L001_R1_001.fastq.gz")) {
		t.Errorf("unexpected sample path %s", paths["R1"])
	}
	lines := readLines(t, paths["R1"])
	if len(lines) != 24 {
		t.Fatalf("expected 24 lines, got %d", len(lines))
	}
	if lines[0] != "@read0-0" || lines[1] != "ACGTACGT" || lines[2] != "+" || lines[20] != "@read1-2" {
		t.Errorf("unexpected content: %v", lines[:4])
	}
}

func TestWriterGroupEmptyOutputIsValidGzip(t *testing.T) {
	dir := t.TempDir()
	path := UndeterminedPath(dir, LaneLabel(2), "R1")
	wg, err := NewWriterGroup(map[string]string{"R1": path})
	if err != nil {
		t.Fatal(err)
	}
	if err := wg.Close(); err != nil {
		t.Fatal(err)
	}
	if filepath.Base(path) != "Undetermined_S0_L002_R1_001.fastq.gz" {
		t.Errorf("unexpected undetermined path %s", path)
	}
	if lines := readLines(t, path); len(lines) != 0 {
		t.Errorf("expected no lines, got %v", lines)
	}
}
