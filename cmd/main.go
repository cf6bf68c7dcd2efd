package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"github.com/JonnyShabli/imgfetch/config"
	"github.com/JonnyShabli/imgfetch/internal/Service"
	"github.com/JonnyShabli/imgfetch/internal/Service/downloader"
	"github.com/JonnyShabli/imgfetch/internal/models"
	"github.com/JonnyShabli/imgfetch/internal/repository"
	pkghttp "github.com/JonnyShabli/imgfetch/pkg/http"
	"github.com/JonnyShabli/imgfetch/pkg/logster"
	"github.com/JonnyShabli/imgfetch/pkg/sig"
)

// Exit codes
const (
	ExitSuccess     = 0
	ExitFailure     = 1
	ExitInvalidArgs = 2
)

const (
	localConfig   = "config/config_local.yaml"
	dotenvFile    = ".env"
	imagesDirName = "random-images"
)

// overridden in tests
var (
	endpoint  = Service.DefaultEndpoint
	imagesDir = executableImagesDir
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout zapcore.WriteSyncer, stderr io.Writer) int {
	fs := flag.NewFlagSet("imgfetch", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configFile := fs.String("config", localConfig, "Path to the config file")
	fs.Usage = func() {
		fmt.Fprintln(stderr, `Usage: imgfetch [options] [count]

Download count random 200x200 images into random-images/ next to the
executable, numbered after the highest existing image.

Options:`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return ExitSuccess
		}
		return ExitInvalidArgs
	}

	cfg := config.Default()
	if err := config.LoadConfig(*configFile, &cfg); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return ExitFailure
	}
	if err := config.LoadEnv(&cfg, dotenvFile); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return ExitFailure
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return ExitFailure
	}

	count, err := parseCount(fs.Args(), cfg.DefaultCount)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		fs.Usage()
		return ExitInvalidArgs
	}

	dir, err := imagesDir()
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return ExitFailure
	}

	logger := logster.New(stdout, cfg.Logger)
	defer func() { _ = logger.Sync() }()

	logger.Infof("Downloading %d random 200x200 images from picsum...", count)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return sig.ListenSignal(ctx, logger, cancel)
	})

	store := repository.NewStorage(dir, logger)
	client := pkghttp.NewClient(pkghttp.Options{MaxConnsPerHost: cfg.Pool.NumWorkers})
	d := downloader.NewDownloader(cfg.Fetcher, client, store, logger)
	service := Service.NewServiceObj(cfg.Pool, store, d, logger, Service.WithEndpoint(endpoint))

	var (
		report models.Report
		runErr error
	)
	g.Go(func() error {
		// stops the signal listener once the batch is over
		defer cancel()
		report, runErr = service.Run(ctx, count)
		return logster.LogIfError(logger, runErr, "Batch %s", report.RunId)
	})

	waitErr := g.Wait()
	if runErr != nil {
		fmt.Fprintf(stderr, "Failed to download images: %v\n", runErr)
		return ExitFailure
	}
	if errors.Is(waitErr, sig.ErrSignalReceived) {
		fmt.Fprintln(stderr, "Interrupted")
		return ExitFailure
	}

	if count > 0 {
		logger.Infof("All images downloaded successfully! (%d in %s)", len(report.Completed), report.Dir)
	}
	return ExitSuccess
}

// parseCount reads the optional positional image count.
func parseCount(args []string, def int) (int, error) {
	switch len(args) {
	case 0:
		return def, nil
	case 1:
		n, err := strconv.Atoi(strings.TrimSpace(args[0]))
		if err != nil {
			return 0, fmt.Errorf("invalid image count %q: must be an integer", args[0])
		}
		if n > Service.MaxCount {
			return 0, fmt.Errorf("invalid image count %d: at most %d per run", n, Service.MaxCount)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("expected at most one argument, got %d", len(args))
	}
}

func executableImagesDir() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("locate executable: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return filepath.Join(filepath.Dir(exe), imagesDirName), nil
}
