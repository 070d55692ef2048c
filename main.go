package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"runtime"
	"runtime/pprof"

	"github.com/fatih/color"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	cpuprofile string
	memprofile string
	verbose    bool
	progress   bool

	threads     int
	outputDir   string
	orientation string

	stopCPUProfile func()
)

func startProfiling(cmd *cobra.Command, args []string) error {
	if verbose {
		log.SetLevel(log.DebugLevel)
	}
	if cpuprofile != "" {
		f, err := os.Create(cpuprofile)
		if err != nil {
			return errors.New("could not create CPU profile: " + err.Error())
		}
		if err := pprof.StartCPUProfile(f); err != nil {
			f.Close()
			return errors.New("could not start CPU profile: " + err.Error())
		}
		stopCPUProfile = func() {
			pprof.StopCPUProfile()
			f.Close()
		}
	}
	return nil
}

func stopProfiling(cmd *cobra.Command, args []string) error {
	if stopCPUProfile != nil {
		stopCPUProfile()
	}
	if memprofile != "" {
		f, err := os.Create(memprofile)
		if err != nil {
			return errors.New("could not create memory profile: " + err.Error())
		}
		defer f.Close()
		runtime.GC() // get up-to-date statistics
		if err := pprof.WriteHeapProfile(f); err != nil {
			return errors.New("could not write memory profile: " + err.Error())
		}
	}
	return nil
}

// loadConfig reads the job file and applies the command line overrides.
func loadConfig(cmd *cobra.Command, filename string) (*Config, error) {
	log.WithField("file", filename).Println("Reading configuration")
	config, err := readConfigFile(filename)
	if err != nil {
		return nil, errors.New("could not read config file: " + err.Error())
	}
	if cmd.Flags().Changed("threads") {
		config.Threads = threads
	}
	if cmd.Flags().Changed("output-dir") {
		config.OutputDir = outputDir
	}
	if cmd.Flags().Changed("index2-orientation") {
		config.Index2Orientation = orientation
	}
	return config, nil
}

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <job-file>",
		Short: "Demultiplex the lanes of a job file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := loadConfig(cmd, args[0])
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			if err := demuxJob(ctx, config, progress); err != nil {
				return err
			}
			log.Println("done")
			return nil
		},
	}
	cmd.Flags().IntVarP(&threads, "threads", "t", 0, "number of classifier workers (default: job file, then CPU count)")
	cmd.Flags().StringVarP(&outputDir, "output-dir", "o", "", "write demultiplexed fastqs to `dir`")
	cmd.Flags().StringVar(&orientation, "index2-orientation", "",
		"index 2 orientation: auto, forward or reverse-complement")
	return cmd
}

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check <job-file>",
		Short: "Report barcode collisions and overlaps without demultiplexing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := loadConfig(cmd, args[0])
			if err != nil {
				return err
			}
			collision, err := checkJob(config, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			if collision {
				return errors.New("samples cannot be told apart by their barcodes")
			}
			return nil
		},
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:                "demany",
		Short:              "Split sequencing lanes into per sample FASTQ files by sample index",
		SilenceUsage:       true,
		SilenceErrors:      true,
		PersistentPreRunE:  startProfiling,
		PersistentPostRunE: stopProfiling,
	}
	root.PersistentFlags().StringVar(&cpuprofile, "cpuprofile", "", "write cpu profile to `file`")
	root.PersistentFlags().StringVar(&memprofile, "memprofile", "", "write memory profile to `file`")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log worker activity")
	root.PersistentFlags().BoolVar(&progress, "progress", false, "show a read counter")
	root.AddCommand(newRunCmd(), newCheckCmd())
	return root
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		color.Red("%v", err)
		os.Exit(1)
	}
}
