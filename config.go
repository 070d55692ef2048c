package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"runtime"
	"strconv"

	"github.com/MikeOF/demany/internal/demux"
	"github.com/MikeOF/demany/internal/sampleindex"
	"github.com/shenwei356/xopen"
	"gopkg.in/yaml.v3"
)

// Config is a job file: the FASTQ files of every lane, the samples to
// split them into and the index read geometry. JSON job files are read as
// YAML.
type Config struct {
	Lanes   map[string]map[string]string `yaml:"lanes"` // lane number -> read type -> fastq path
	Samples []sampleindex.Spec           `yaml:"samples"`

	Index1Length      int    `yaml:"index1_length"`
	Index2Length      int    `yaml:"index2_length"`
	Index1Offset      int    `yaml:"index1_offset"`
	Index2Offset      int    `yaml:"index2_offset"`
	Index2Orientation string `yaml:"index2_orientation"`

	OutputDir      string `yaml:"output_dir"`
	IndexCountsDir string `yaml:"index_counts_dir"`

	Threads               int  `yaml:"threads"`
	BatchSize             int  `yaml:"batch_size"`
	QueueDepth            int  `yaml:"queue_depth"`
	OrientationSampleSize int  `yaml:"orientation_sample_size"`
	MinIndexCount         *int `yaml:"min_index_count"`
}

func readConfigFile(filename string) (*Config, error) {
	r, err := xopen.Ropen(filename)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return configFromYAML(data)
}

func configFromYAML(data []byte) (*Config, error) {
	c := Config{}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("empty job file")
		}
		return nil, err
	}
	c.applyDefaults()
	return &c, nil
}

func (c *Config) applyDefaults() {
	if c.Index2Orientation == "" {
		c.Index2Orientation = string(demux.OrientationAuto)
	}
	if c.Threads == 0 {
		c.Threads = runtime.NumCPU()
	}
	if c.BatchSize == 0 {
		c.BatchSize = demux.DefaultBatchSize
	}
	if c.QueueDepth == 0 {
		c.QueueDepth = demux.DefaultQueueDepth
	}
	if c.OrientationSampleSize == 0 {
		c.OrientationSampleSize = demux.DefaultOrientationSampleSize
	}
	if c.MinIndexCount == nil {
		n := demux.DefaultMinIndexCount
		c.MinIndexCount = &n
	}
}

// indexCountsDir returns the absolute index counts dir, by default
// index-counts under the output dir. It is resolved on use so command line
// overrides of the output dir apply.
func (c *Config) indexCountsDir() (string, error) {
	dir := c.IndexCountsDir
	if dir == "" {
		if c.OutputDir == "" {
			return "", fmt.Errorf("%w: no output dir", demux.ErrConfig)
		}
		dir = filepath.Join(c.OutputDir, "index-counts")
	}
	return filepath.Abs(dir)
}

// options converts the job file into demux options. Relative output paths
// are taken from the working directory.
func (c *Config) options() (demux.Options, error) {
	outputDir := c.OutputDir
	if outputDir != "" {
		abs, err := filepath.Abs(outputDir)
		if err != nil {
			return demux.Options{}, err
		}
		outputDir = abs
	}

	lanes := make(map[int]map[string]string, len(c.Lanes))
	for key, inputs := range c.Lanes {
		lane, err := strconv.Atoi(key)
		if err != nil {
			return demux.Options{}, fmt.Errorf("%w: lane %q is not a number", demux.ErrConfig, key)
		}
		lanes[lane] = inputs
	}

	return demux.Options{
		Lanes:                 lanes,
		Samples:               c.Samples,
		Index1Length:          c.Index1Length,
		Index2Length:          c.Index2Length,
		Index1Offset:          c.Index1Offset,
		Index2Offset:          c.Index2Offset,
		Index2Orientation:     demux.Orientation(c.Index2Orientation),
		OutputDir:             outputDir,
		Classifiers:           c.Threads,
		BatchSize:             c.BatchSize,
		QueueDepth:            c.QueueDepth,
		OrientationSampleSize: c.OrientationSampleSize,
	}, nil
}
