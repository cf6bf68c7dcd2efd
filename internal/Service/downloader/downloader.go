package downloader

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/JonnyShabli/imgfetch/internal/models"
	"github.com/JonnyShabli/imgfetch/pkg/logster"
)

const UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"

type DownloaderInterface interface {
	Download(ctx context.Context, job models.DownloadJob) models.Result
}

// FileStore is the part of the image directory the downloader writes through.
type FileStore interface {
	Create(index int) (*os.File, string, error)
	Remove(path string) error
}

type Config struct {
	Timeout      time.Duration `yaml:"timeout"`
	MaxRedirects int           `yaml:"max_redirects"`
}

func DefaultConfig() Config {
	return Config{
		Timeout:      30 * time.Second,
		MaxRedirects: 10,
	}
}

type Downloader struct {
	client       *http.Client
	store        FileStore
	logger       logster.Logger
	timeout      time.Duration
	maxRedirects int
}

// NewDownloader expects a client that does not follow redirects itself.
func NewDownloader(cfg Config, client *http.Client, store FileStore, logger logster.Logger) *Downloader {
	return &Downloader{
		client:       client,
		store:        store,
		logger:       logger.WithField("Layer", "Downloader"),
		timeout:      cfg.Timeout,
		maxRedirects: cfg.MaxRedirects,
	}
}

// Download fetches job.Url into the file for job.Index. On failure the
// destination file is removed and Result.Err is a *DownloadError.
func (d *Downloader) Download(ctx context.Context, job models.DownloadJob) models.Result {
	result := models.Result{
		Index: job.Index,
		Url:   job.Url,
	}
	logger := d.logger.WithField("index", job.Index)

	file, path, err := d.store.Create(job.Index)
	result.Path = path
	if err != nil {
		result.Err = &DownloadError{Kind: ErrIO, Url: job.Url, Path: path, Err: err}
		return result
	}

	logger.Infof("Downloading %d.jpg from %s", job.Index, job.Url)

	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	n, derr := d.fetch(ctx, logger, job.Url, file)
	if derr != nil {
		d.discard(logger, file, path)
		derr.Path = path
		result.Err = derr
		return result
	}

	if cerr := file.Close(); cerr != nil {
		d.cleanup(logger, path)
		result.Err = &DownloadError{Kind: ErrIO, Url: job.Url, Path: path, Err: cerr}
		return result
	}

	logger.Infof("Downloaded %d.jpg (%d bytes)", job.Index, n)
	return result
}

// fetch walks the redirect chain starting at rawURL and streams the final
// 200 body into w.
func (d *Downloader) fetch(ctx context.Context, logger logster.Logger, rawURL string, w io.Writer) (int64, *DownloadError) {
	current, err := url.Parse(rawURL)
	if err != nil {
		return 0, &DownloadError{Kind: ErrProtocol, Url: rawURL, Err: err}
	}

	for hops := 0; ; hops++ {
		resp, err := d.get(ctx, current.String())
		if err != nil {
			return 0, &DownloadError{Kind: ErrNetwork, Url: current.String(), Err: err}
		}

		switch {
		case resp.StatusCode == http.StatusOK:
			n, err := io.Copy(w, resp.Body)
			resp.Body.Close()
			if err != nil {
				return n, &DownloadError{Kind: ErrNetwork, Url: current.String(), StatusCode: resp.StatusCode, Err: err}
			}
			return n, nil

		case resp.StatusCode >= 300 && resp.StatusCode < 400:
			resp.Body.Close()
			loc := resp.Header.Get("Location")
			if loc == "" {
				return 0, &DownloadError{Kind: ErrProtocol, Url: current.String(), StatusCode: resp.StatusCode, Err: ErrMissingLocation}
			}
			if hops >= d.maxRedirects {
				return 0, &DownloadError{
					Kind:       ErrProtocol,
					Url:        current.String(),
					StatusCode: resp.StatusCode,
					Err:        fmt.Errorf("%w: stopped after %d", ErrTooManyRedirects, d.maxRedirects),
				}
			}
			next, err := current.Parse(loc)
			if err != nil {
				return 0, &DownloadError{Kind: ErrProtocol, Url: current.String(), StatusCode: resp.StatusCode, Err: err}
			}
			logger.Infof("Redirecting to: %s", next)
			current = next

		default:
			resp.Body.Close()
			return 0, &DownloadError{Kind: ErrProtocol, Url: current.String(), StatusCode: resp.StatusCode}
		}
	}
}

func (d *Downloader) get(ctx context.Context, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", UserAgent)
	return d.client.Do(req)
}

func (d *Downloader) discard(logger logster.Logger, file *os.File, path string) {
	if err := file.Close(); err != nil {
		logger.WithError(err).Warnf("close partial file %s", path)
	}
	d.cleanup(logger, path)
}

func (d *Downloader) cleanup(logger logster.Logger, path string) {
	if err := d.store.Remove(path); err != nil {
		logger.WithError(err).Errorf("failed to remove partial file %s", path)
	}
}
