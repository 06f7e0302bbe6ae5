package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"dqx0.com/go/tinyhttp/httpx"
	"dqx0.com/go/tinyhttp/internal/filestore"
	"dqx0.com/go/tinyhttp/internal/obs"
	"dqx0.com/go/tinyhttp/internal/routes"
)

func main() {
	if err := run(os.Args[1:], os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string, stderr io.Writer) error {
	fs := flag.NewFlagSet("httpx-server", flag.ContinueOnError)
	fs.SetOutput(stderr)
	addr := fs.String("addr", "0.0.0.0:4221", "listen address")
	dir := fs.String("directory", ".", "directory served under /files/")
	level := fs.String("log-level", "info", "debug, info, warn or error")
	format := fs.String("log-format", "console", "console or json")
	readTimeout := fs.Duration("read-timeout", 0, "time allowed to receive a request (0 = no limit)")
	writeTimeout := fs.Duration("write-timeout", 0, "time allowed to send a response (0 = no limit)")
	maxBody := fs.Int64("max-body", 0, "largest accepted request body in bytes (0 = no limit)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	zl, err := newLogger(stderr, *level, *format)
	if err != nil {
		return err
	}
	logger := obs.ZeroLogger{L: zl}

	files, err := filestore.Open(*dir)
	if err != nil {
		return err
	}
	defer files.Close()

	meter := obs.NewMemMeter()
	s := &httpx.Server{
		Addr:         *addr,
		Handler:      &routes.Mux{Files: files, Logger: logger},
		ReadTimeout:  *readTimeout,
		WriteTimeout: *writeTimeout,
		MaxBodyBytes: *maxBody,
		Logger:       logger,
		Meter:        meter,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		_ = s.Close()
	}()

	zl.Info().Str("addr", *addr).Str("directory", files.Dir()).Msg("starting")
	err = s.ListenAndServe()
	logSummary(zl, meter)
	if errors.Is(err, httpx.ErrServerClosed) {
		return nil
	}
	return err
}

func newLogger(w io.Writer, level, format string) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.Logger{}, fmt.Errorf("log-level: %w", err)
	}
	switch format {
	case "json":
	case "console":
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	default:
		return zerolog.Logger{}, fmt.Errorf("log-format: unknown format %q", format)
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger(), nil
}

func logSummary(zl zerolog.Logger, m *obs.MemMeter) {
	snap := m.Snapshot()
	keys := make([]string, 0, len(snap))
	for k := range snap {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	d := zerolog.Dict()
	for _, k := range keys {
		d = d.Float64(k, snap[k])
	}
	zl.Info().Dict("metrics", d).Msg("stopped")
}
