package Service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/JonnyShabli/imgfetch/internal/Service/downloader"
	"github.com/JonnyShabli/imgfetch/internal/models"
	"github.com/JonnyShabli/imgfetch/internal/repository"
	"github.com/JonnyShabli/imgfetch/pkg/logster"
	"github.com/JonnyShabli/imgfetch/pkg/workerpool"
)

const (
	DefaultEndpoint = "https://picsum.photos/200/200?random=%d"
	SeedRange       = 10000
	// MaxCount caps a single batch; the job list is built up front.
	MaxCount        = 100000
)

var (
	ErrCountTooLarge = fmt.Errorf("image count exceeds %d", MaxCount)
	ErrIndexOverflow = errors.New("image index would overflow")
)

type ServiceInterface interface {
	Plan(ctx context.Context, count int) ([]models.DownloadJob, error)
	Run(ctx context.Context, count int) (models.Report, error)
}

// Rand is the seed source; *rand.Rand satisfies it.
type Rand interface {
	IntN(n int) int
}

type PoolConfig struct {
	NumWorkers int `yaml:"num_workers"`
}

type Option func(*ServiceObj)

// WithEndpoint replaces the image URL template. It must hold one %d verb.
func WithEndpoint(endpoint string) Option {
	return func(s *ServiceObj) { s.endpoint = endpoint }
}

func WithRand(r Rand) Option {
	return func(s *ServiceObj) { s.rnd = r }
}

type ServiceObj struct {
	db         repository.StorageInterface
	downloader downloader.DownloaderInterface
	logger     logster.Logger
	numWorkers int
	endpoint   string
	rnd        Rand
}

func NewServiceObj(cfg PoolConfig, db repository.StorageInterface, d downloader.DownloaderInterface, logger logster.Logger, opts ...Option) *ServiceObj {
	s := &ServiceObj{
		db:         db,
		downloader: d,
		logger:     logger.WithField("Layer", "Service"),
		numWorkers: cfg.NumWorkers,
		endpoint:   DefaultEndpoint,
		rnd:        rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Plan numbers count new images after the highest one on disk.
func (s *ServiceObj) Plan(ctx context.Context, count int) ([]models.DownloadJob, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if count <= 0 {
		return nil, nil
	}
	if count > MaxCount {
		return nil, fmt.Errorf("%w: got %d", ErrCountTooLarge, count)
	}

	highest, err := s.db.HighestIndex()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", downloader.ErrIO, err)
	}
	if highest > math.MaxInt-count {
		return nil, fmt.Errorf("%w: %w: highest existing index %d", downloader.ErrIO, ErrIndexOverflow, highest)
	}

	jobs := make([]models.DownloadJob, 0, count)
	for i := highest + 1; i <= highest+count; i++ {
		seed := s.rnd.IntN(SeedRange)
		jobs = append(jobs, models.DownloadJob{
			Index: i,
			Seed:  seed,
			Url:   fmt.Sprintf(s.endpoint, seed),
		})
	}
	return jobs, nil
}

// Run downloads count images. Every job runs to its own end: a failure does
// not cancel siblings, and completed files stay on disk. The returned error
// combines all failures.
func (s *ServiceObj) Run(ctx context.Context, count int) (models.Report, error) {
	runId := uuid.New()
	logger := s.logger.WithField("run_id", runId.String())
	report := models.Report{
		RunId:     runId,
		Requested: max(count, 0),
		Dir:       s.db.Dir(),
	}

	if count <= 0 {
		logger.Infof("nothing to download (count %d)", count)
		return report, nil
	}
	if count > MaxCount {
		return report, fmt.Errorf("%w: got %d", ErrCountTooLarge, count)
	}

	if err := s.db.EnsureDir(); err != nil {
		return report, fmt.Errorf("%w: %w", downloader.ErrIO, err)
	}

	jobs, err := s.Plan(ctx, count)
	if err != nil {
		return report, err
	}
	report.FirstIndex = jobs[0].Index

	workers := min(max(s.numWorkers, 1), len(jobs))
	logger.Infof("downloading images %d..%d with %d workers", jobs[0].Index, jobs[len(jobs)-1].Index, workers)

	pool := workerpool.NewWorkerPool(workers, logger, "download", s.downloader.Download)
	pool.Start(ctx)

	go func() {
		defer pool.Close()
		for _, job := range jobs {
			if !pool.AddJob(ctx, job) {
				return
			}
		}
	}()

	seen := make(map[int]bool, len(jobs))
	var errs error
	for res := range pool.Results() {
		seen[res.Index] = true
		if res.Err != nil {
			logger.WithError(res.Err).Errorf("image %d failed", res.Index)
			report.Failed = append(report.Failed, res)
			errs = multierr.Append(errs, res.Err)
			continue
		}
		report.Completed = append(report.Completed, res.Path)
	}

	// jobs the pool never picked up because ctx ended first
	for _, job := range jobs {
		if seen[job.Index] {
			continue
		}
		skipped := models.Result{
			Index: job.Index,
			Url:   job.Url,
			Path:  s.db.Path(job.Index),
			Err:   fmt.Errorf("image %d not started: %w", job.Index, context.Cause(ctx)),
		}
		report.Failed = append(report.Failed, skipped)
		errs = multierr.Append(errs, skipped.Err)
	}

	if errs != nil {
		logger.Warnf("%d of %d images failed", len(report.Failed), count)
		return report, errs
	}

	logger.Infof("Successfully downloaded %d images to %s", len(report.Completed), report.Dir)
	return report, nil
}
