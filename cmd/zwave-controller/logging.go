package main

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/rs/zerolog"

	"github.com/homenode/zwave-go/pkg/config"
	zlog "github.com/homenode/zwave-go/pkg/log"
)

// logging holds the configured loggers.
type logging struct {
	slog     *slog.Logger
	protocol zlog.Logger
	file     *zlog.FileLogger
}

func (l *logging) Close() error {
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}

// setupLogging builds the operational logger and the protocol capture chain.
// Debug level also mirrors protocol events to the console.
func setupLogging(cfg config.LogConfig, out io.Writer) (*logging, error) {
	level, err := config.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	var (
		handler slog.Handler
		console zlog.Logger
	)
	opts := &slog.HandlerOptions{Level: level}

	switch cfg.Format {
	case config.FormatJSON:
		handler = slog.NewJSONHandler(out, opts)
	case config.FormatZerolog:
		zl := zerolog.New(zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}).
			With().Str("app", "zwave-controller").Logger()
		handler = zlog.NewZerologHandler(zl, level)
		if level <= slog.LevelDebug {
			console = zlog.NewZerologAdapter(zl)
		}
	default:
		handler = slog.NewTextHandler(out, opts)
	}

	l := &logging{slog: slog.New(handler)}
	if console == nil && level <= slog.LevelDebug {
		console = zlog.NewSlogAdapter(l.slog)
	}

	if cfg.ProtocolFile != "" {
		fl, err := zlog.NewFileLogger(cfg.ProtocolFile)
		if err != nil {
			return nil, fmt.Errorf("protocol log: %w", err)
		}
		l.file = fl
	}

	l.protocol = zlog.NewMultiLogger(console, fileOrNil(l.file))
	return l, nil
}

// fileOrNil avoids a typed nil inside the Logger interface.
func fileOrNil(f *zlog.FileLogger) zlog.Logger {
	if f == nil {
		return nil
	}
	return f
}
