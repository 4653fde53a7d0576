// Package pipeline composes the segmentation stages into a seeded watershed:
// minimum filter, regional minima, component labeling and flooding, followed
// by per-basin statistics.
package pipeline

import (
	"time"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"watershed3d/pkg/filter"
	"watershed3d/pkg/labeling"
	"watershed3d/pkg/minima"
	"watershed3d/pkg/parallel"
	"watershed3d/pkg/progress"
	"watershed3d/pkg/volume"
	"watershed3d/pkg/watershed"
)

// Params holds the segmentation parameters.
type Params struct {
	// Workers is the number of z-slabs processed concurrently; <= 0 uses
	// every CPU
	Workers int

	// Connectivity is used when labeling the regional minima
	Connectivity labeling.Connectivity

	// Strategy and MaxSweeps configure the flooding stage
	Strategy  watershed.Strategy
	MaxSweeps int

	// SkipStats disables the per-basin statistics
	SkipStats bool

	// Progress receives stage status and progress; nil discards it
	Progress progress.Sink

	// Logger receives stage summaries; nil discards them
	Logger *zap.SugaredLogger
}

// Timings records the wall time spent in each stage.
type Timings struct {
	Filter     time.Duration
	Minima     time.Duration
	Labeling   time.Duration
	Flooding   time.Duration
	Statistics time.Duration
}

// Total returns the sum of all stage durations.
func (t Timings) Total() time.Duration {
	return t.Filter + t.Minima + t.Labeling + t.Flooding + t.Statistics
}

// Result is the output of a segmentation run.
type Result struct {
	// Labels holds the basin id of every voxel, 0 where no seed reached
	Labels *volume.LabelGrid

	// Minima is the binary regional-minima grid of the seed source
	Minima *volume.Grid

	// Seeds holds the labeled minima used to start the flooding
	Seeds *volume.LabelGrid

	// NumSeeds is the number of distinct seed labels
	NumSeeds int

	// Regions holds per-basin statistics unless Params.SkipStats is set
	Regions []RegionStats

	Timings Timings
}

// Segmenter runs the segmentation stages with fixed parameters.
type Segmenter struct {
	params *Params
	logger *zap.SugaredLogger
}

// NewSegmenter creates a segmenter. A nil params uses the defaults.
func NewSegmenter(params *Params) *Segmenter {
	if params == nil {
		params = &Params{}
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Segmenter{params: params, logger: logger}
}

// Segment is shorthand for NewSegmenter(params).Process(input, seedSource, mask).
func Segment(input, seedSource *volume.Grid, mask *volume.Mask, params *Params) (*Result, error) {
	return NewSegmenter(params).Process(input, seedSource, mask)
}

// Process segments input. Regional minima are detected on seedSource (input
// when nil) and flooded over input. The first failing stage aborts the run.
func (s *Segmenter) Process(input, seedSource *volume.Grid, mask *volume.Mask) (*Result, error) {
	if seedSource == nil {
		seedSource = input
	}
	if err := volume.CheckSameShape(input.Shape, seedSource.Shape); err != nil {
		return nil, errors.Wrap(err, "seed source")
	}
	if err := volume.CheckMask(input.Shape, mask); err != nil {
		return nil, errors.Wrap(err, "mask")
	}

	popts := parallel.Options{Workers: s.params.Workers, Progress: s.params.Progress}
	sink := popts.Sink()
	res := &Result{}
	s.logger.Infow("segmenting volume",
		"shape", input.Shape.String(),
		"voxels", humanize.Comma(int64(input.Len())),
		"workers", popts.NumWorkers(),
		"strategy", s.params.Strategy.String(),
	)

	// Step 1: minimum filter of the seed source
	sink.ReportStatus("Step 1: minimum filter...")
	start := time.Now()
	filtered, err := filter.MinFilter3D(seedSource, mask, popts)
	if err != nil {
		return nil, errors.Wrap(err, "minimum filter")
	}
	res.Timings.Filter = time.Since(start)

	// Step 2: regional minima
	sink.ReportStatus("Step 2: regional minima...")
	start = time.Now()
	res.Minima, err = minima.DetectWithFiltered(seedSource, filtered, mask, popts)
	if err != nil {
		return nil, errors.Wrap(err, "regional minima")
	}
	res.Timings.Minima = time.Since(start)
	s.logger.Debugw("regional minima",
		"voxels", humanize.Comma(int64(countNonZero(res.Minima))),
		"elapsed", res.Timings.Minima,
	)

	// Step 3: label the minima to get one seed per plateau
	sink.ReportStatus("Step 3: labeling minima...")
	start = time.Now()
	res.Seeds, res.NumSeeds, err = labeling.LabelConnectedComponents(res.Minima, labeling.Options{
		Options:      popts,
		Connectivity: s.params.Connectivity,
	})
	if err != nil {
		return nil, errors.Wrap(err, "labeling")
	}
	res.Timings.Labeling = time.Since(start)
	s.logger.Infow("seeds labeled", "seeds", humanize.Comma(int64(res.NumSeeds)), "elapsed", res.Timings.Labeling)

	// Step 4: flood the input from the seeds
	sink.ReportStatus("Step 4: flooding...")
	start = time.Now()
	res.Labels, err = watershed.Flood(input, res.Seeds, mask, watershed.Options{
		Options:   popts,
		Strategy:  s.params.Strategy,
		MaxSweeps: s.params.MaxSweeps,
	})
	if err != nil {
		return nil, errors.Wrap(err, "watershed")
	}
	res.Timings.Flooding = time.Since(start)
	s.logger.Infow("flooding done",
		"labeled", humanize.Comma(int64(countLabeled(res.Labels))),
		"elapsed", res.Timings.Flooding,
	)

	// Step 5: basin statistics
	if !s.params.SkipStats {
		sink.ReportStatus("Step 5: region statistics...")
		start = time.Now()
		res.Regions, err = ComputeRegionStats(res.Labels, input)
		if err != nil {
			return nil, errors.Wrap(err, "region statistics")
		}
		res.Timings.Statistics = time.Since(start)
	}

	s.logger.Infow("segmentation complete", "regions", res.NumSeeds, "elapsed", res.Timings.Total())
	return res, nil
}

func countNonZero(g *volume.Grid) int {
	n := 0
	for _, v := range g.Data {
		if v != 0 {
			n++
		}
	}
	return n
}

func countLabeled(l *volume.LabelGrid) int {
	n := 0
	for _, v := range l.Data {
		if v != 0 {
			n++
		}
	}
	return n
}
