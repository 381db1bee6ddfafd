// Command varframe reads a varint length-prefixed stream from a URL or stdin
// and prints one line per frame.
package main

import (
	"context"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/oy3o/varframe"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

const envLogLevel = "VARFRAME_LOG_LEVEL"

type options struct {
	configPath string
	url        string
	limit      int64
	preview    int
}

func main() {
	var opts options
	flag.StringVar(&opts.configPath, "config", "", "path to a TOML config file")
	flag.StringVar(&opts.url, "url", "", "stream URL, or - for stdin (overrides the config)")
	flag.Int64Var(&opts.limit, "n", 0, "stop after n frames (0 = no limit)")
	flag.IntVar(&opts.preview, "preview", 16, "payload bytes to print per frame")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opts, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "varframe: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig(opts options) (varframe.Config, error) {
	cfg := varframe.DefaultConfig()
	if opts.configPath != "" {
		var err error
		if cfg, err = varframe.LoadConfig(opts.configPath); err != nil {
			return cfg, err
		}
	}
	if opts.url != "" {
		cfg.URL = opts.url
	}
	if lvl := os.Getenv(envLogLevel); lvl != "" {
		cfg.LogLevel = lvl
	}
	if cfg.URL == "" {
		return cfg, errors.New("no stream URL: set -url or url in the config")
	}
	return cfg, cfg.Validate()
}

func newLogger(cfg varframe.Config) zerolog.Logger {
	lvl, _ := cfg.Level()
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(lvl).
		With().Timestamp().Logger()
}

func run(ctx context.Context, opts options, out io.Writer) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	var metrics *varframe.Metrics
	if cfg.MetricsAddr != "" {
		reg := prometheus.NewRegistry()
		metrics = varframe.NewMetrics(reg)
		srv := &http.Server{Addr: cfg.MetricsAddr, Handler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{})}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error().Err(err).Str("addr", cfg.MetricsAddr).Msg("metrics server failed")
			}
		}()
		defer srv.Close()
		logger.Info().Str("addr", cfg.MetricsAddr).Msg("serving metrics")
	}

	pool := cfg.NewPool(varframe.WithPoolMetrics(metrics))
	src, err := openSource(ctx, cfg, pool)
	if err != nil {
		return err
	}

	pipeline, err := varframe.NewPipeline(src, append(cfg.PipelineOptions(),
		varframe.WithPool(pool),
		varframe.WithLogger(logger),
		varframe.WithMetrics(metrics),
	)...)
	if err != nil {
		src.Close()
		return err
	}
	defer pipeline.Close()

	logger.Info().Str("url", cfg.URL).Int("capacity", cfg.Capacity).Msg("reading stream")
	for f, err := range pipeline.All(ctx) {
		if err != nil {
			return err
		}
		printFrame(out, pipeline.Frames(), f, opts.preview)
		f.Release()
		if opts.limit > 0 && pipeline.Frames() >= opts.limit {
			break
		}
	}
	logger.Info().Int64("frames", pipeline.Frames()).Int("leftover", pipeline.Buffered()).Msg("done")
	return nil
}

func openSource(ctx context.Context, cfg varframe.Config, pool *varframe.Pool) (*varframe.ReaderSource, error) {
	if cfg.URL == "-" {
		return varframe.NewReaderSource(os.Stdin, append(cfg.SourceOptions(), varframe.WithSourcePool(pool))...)
	}
	return varframe.OpenHTTP(ctx, http.DefaultClient, cfg.URL,
		append(cfg.HTTPOptions(), varframe.WithHTTPSourceOptions(varframe.WithSourcePool(pool)))...,
	)
}

func printFrame(out io.Writer, index int64, f *varframe.Frame, preview int) {
	payload := f.Payload()
	if preview >= 0 && len(payload) > preview {
		payload = payload[:preview]
	}
	fmt.Fprintf(out, "%d\t%d\t%s\n", index, f.Len(), hex.EncodeToString(payload))
}
