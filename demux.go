package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/MikeOF/demany/internal/demux"
	"github.com/aquasecurity/table"
	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
	log "github.com/sirupsen/logrus"
)

func newProgressBar() *progressbar.ProgressBar {
	return progressbar.NewOptions(-1,
		progressbar.OptionSetDescription("[cyan]Demultiplexing reads..."),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("reads"),
		progressbar.OptionEnableColorCodes(true))
}

func demuxJob(ctx context.Context, config *Config, showProgress bool) error {
	opts, err := config.options()
	if err != nil {
		return err
	}
	countsDir, err := config.indexCountsDir()
	if err != nil {
		return err
	}
	if showProgress {
		bar := newProgressBar()
		defer func() {
			if err := bar.Finish(); err != nil {
				log.WithError(err).Debug("progress bar")
			}
			fmt.Fprintln(os.Stderr)
		}()
		opts.Progress = func(lane string, reads int) {
			if err := bar.Add(reads); err != nil {
				log.WithError(err).WithField("lane", lane).Debug("progress bar")
			}
		}
	}

	job, err := demux.NewJob(opts)
	if err != nil {
		return err
	}
	for _, line := range job.OverlapReport() {
		log.Warn(line)
	}
	if err := job.CheckCollisions(); err != nil {
		return err
	}

	log.Println("Determining index 2 orientation")
	if err := job.ResolveOrientation(ctx); err != nil {
		return err
	}

	log.Println("Starting demux")
	counts, err := demux.Run(ctx, job)
	if err != nil {
		return err
	}
	for _, lane := range counts.Lanes() {
		log.WithField("lane", lane).Infof("%d reads", counts.LaneTotal(lane))
	}

	log.WithField("dir", countsDir).Println("Writing index counts")
	if err := demux.WriteIndexCounts(countsDir, counts, *config.MinIndexCount); err != nil {
		return err
	}
	return demux.WriteTotalCounts(countsDir, counts)
}

// checkJob writes the collision and overlap findings of every lane as a
// table and reports whether any lane has an identity collision.
func checkJob(config *Config, w io.Writer) (bool, error) {
	opts, err := config.options()
	if err != nil {
		return false, err
	}
	job, err := demux.NewJob(opts)
	if err != nil {
		return false, err
	}

	t := table.New(w)
	t.SetHeaders("Lane", "Samples", "Finding")
	t.SetHeaderStyle(table.StyleBold)
	t.SetDividers(table.UnicodeRoundedDividers)

	red := color.New(color.FgRed, color.Bold)
	yellow := color.New(color.FgYellow)
	green := color.New(color.FgGreen)

	collision := false
	for _, lane := range job.Lanes() {
		lines := lane.Collection.ReportLines()
		if len(lines) == 0 {
			t.AddRow(lane.Label, fmt.Sprint(len(lane.Collection.Mappings())), green.Sprint("ok"))
			continue
		}
		for _, line := range lines {
			finding := yellow.Sprint(line)
			if strings.Contains(line, "have a collision") {
				finding = red.Sprint(line)
				collision = true
			}
			t.AddRow(lane.Label, fmt.Sprint(len(lane.Collection.Mappings())), finding)
		}
	}
	t.Render()
	return collision, nil
}
