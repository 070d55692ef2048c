package demux

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/MikeOF/demany/internal/fastq"
	"github.com/MikeOF/demany/internal/flow"
	"github.com/shenwei356/xopen"
)

// TotalCountsFile is the name of the per id total counts report.
const TotalCountsFile = "total-counts.tsv"

func writeTSV(path string, rows [][2]string) (err error) {
	w, err := xopen.Wopen(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := w.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	for _, row := range rows {
		if _, err = fmt.Fprintf(w, "%s\t%s\n", row[0], row[1]); err != nil {
			return err
		}
	}
	return nil
}

// WriteIndexCounts writes dir/<lane>/<id>.tsv for every id counted in a
// lane, listing the index strings seen more than minCount times by descending
// count.
func WriteIndexCounts(dir string, counts flow.Counts, minCount int) error {
	for _, lane := range counts.Lanes() {
		laneDir := filepath.Join(dir, lane)
		if err := os.MkdirAll(laneDir, 0755); err != nil {
			return err
		}
		for id, byIndex := range counts[lane] {
			var rows [][2]string
			for _, c := range indexCounts(byIndex).top(len(byIndex)) {
				if c.n <= minCount {
					break
				}
				rows = append(rows, [2]string{c.index, fmt.Sprint(c.n)})
			}
			if err := writeTSV(filepath.Join(laneDir, id+".tsv"), rows); err != nil {
				return fmt.Errorf("writing index counts of %s in lane %s: %w", id, lane, err)
			}
		}
	}
	return nil
}

// WriteTotalCounts writes dir/total-counts.tsv with the undetermined total
// first, then every sample id in order.
func WriteTotalCounts(dir string, counts flow.Counts) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	totals := counts.IDTotals()
	ids := make([]string, 0, len(totals))
	for id := range totals {
		if id != fastq.UndeterminedID {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	rows := [][2]string{{fastq.UndeterminedID, fmt.Sprint(totals[fastq.UndeterminedID])}}
	for _, id := range ids {
		rows = append(rows, [2]string{id, fmt.Sprint(totals[id])})
	}
	if err := writeTSV(filepath.Join(dir, TotalCountsFile), rows); err != nil {
		return fmt.Errorf("writing total counts: %w", err)
	}
	return nil
}
