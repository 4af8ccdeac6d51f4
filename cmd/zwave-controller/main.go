// Command zwave-controller drives inclusion and exclusion on a Z-Wave
// controller attached to a serial port.
//
// Usage:
//
//	zwave-controller [flags]
//
// Flags:
//
//	-config string        Configuration file (.yaml, .yml or .toml)
//	-port string          Serial port of the controller (e.g. /dev/ttyACM0)
//	-baud int             Serial line rate (default 115200)
//	-log-level string     Log level: debug, info, warn, error (default "info")
//	-log-format string    Log format: text, json, zerolog (default "text")
//	-protocol-log string  Write protocol capture events to this .zlog file
//	-state-file string    Node registry file
//	-interactive          Enable interactive command mode
//	-reset                Clear the node registry before starting
//
// Flags override values from the configuration file.
//
// Examples:
//
//	# Interactive shell on a USB stick
//	zwave-controller -port /dev/ttyACM0 -interactive
//
//	# Use a config file and capture protocol traffic
//	zwave-controller -config /etc/zwave/controller.yaml -protocol-log session.zlog
//
// Interactive Commands:
//
//	include [hp] [nw]  - Start inclusion
//	include-stop       - Stop inclusion
//	exclude            - Start exclusion
//	exclude-stop       - Stop exclusion
//	status             - Show handshake status
//	nodes              - List included nodes
//	quit               - Exit the controller
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"go.bug.st/serial"

	"github.com/homenode/zwave-go/cmd/zwave-controller/interactive"
	"github.com/homenode/zwave-go/pkg/config"
	"github.com/homenode/zwave-go/pkg/connection"
	"github.com/homenode/zwave-go/pkg/persistence"
	"github.com/homenode/zwave-go/pkg/session"
)

// flags holds the command-line values.
type flags struct {
	ConfigFile  string
	Port        string
	Baud        int
	LogLevel    string
	LogFormat   string
	ProtocolLog string
	StateFile   string
	Interactive bool
	Reset       bool
}

var opts flags

func init() {
	flag.StringVar(&opts.ConfigFile, "config", "", "Configuration file (.yaml, .yml or .toml)")
	flag.StringVar(&opts.Port, "port", "", "Serial port of the controller")
	flag.IntVar(&opts.Baud, "baud", config.DefaultBaud, "Serial line rate")
	flag.StringVar(&opts.LogLevel, "log-level", "info", "Log level: debug, info, warn, error")
	flag.StringVar(&opts.LogFormat, "log-format", config.FormatText, "Log format: text, json, zerolog")
	flag.StringVar(&opts.ProtocolLog, "protocol-log", "", "Write protocol capture events to this .zlog file")
	flag.StringVar(&opts.StateFile, "state-file", "", "Node registry file")
	flag.BoolVar(&opts.Interactive, "interactive", false, "Enable interactive command mode")
	flag.BoolVar(&opts.Reset, "reset", false, "Clear the node registry before starting")
}

func main() {
	flag.Parse()

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// The shell must exist before logging so log lines go through readline.
	var (
		ic  *interactive.Controller
		out io.Writer = os.Stderr
	)
	if opts.Interactive {
		ic, err = interactive.New(cfg.InclusionStart())
		if err != nil {
			return err
		}
		defer ic.Close()
		out = ic.Stdout()
	}

	logs, err := setupLogging(cfg.Log, out)
	if err != nil {
		return err
	}
	defer logs.Close()
	logger := logs.slog
	slog.SetDefault(logger)

	sessionID := uuid.NewString()
	logger.Info("Z-Wave controller starting",
		"session_id", sessionID, "port", cfg.Serial.Port, "baud", cfg.Serial.Baud)

	lc := cfg.LinkConfig(openSerial(cfg.Serial.Port, cfg.Serial.Baud))
	lc.Logger = logs.protocol
	lc.Transport.Logger = logs.protocol
	lc.Transport.SessionID = sessionID
	lc.Transport.OnError = func(err error) {
		logger.Warn("serial read failed", "error", err)
	}

	link := connection.NewLink(lc)
	link.OnStateChange(func(oldState, newState connection.State) {
		logger.Info("serial port state", "from", oldState.String(), "to", newState.String())
	})
	if err := link.Connect(ctx); err != nil {
		_ = link.Close()
		return fmt.Errorf("open %s: %w", cfg.Serial.Port, err)
	}

	var store *persistence.NetworkStateStore
	if cfg.StateFile != "" {
		store = persistence.NewNetworkStateStore(cfg.StateFile)
		if opts.Reset {
			logger.Info("clearing node registry", "path", store.Path())
			if err := store.Clear(); err != nil {
				logger.Warn("failed to clear node registry", "error", err)
			}
		}
	}

	sess, err := session.New(session.Config{
		SessionID:        sessionID,
		InclusionTimeout: cfg.Inclusion.Timeout,
		ExclusionTimeout: cfg.Exclusion.Timeout,
		StateStore:       store,
		ProtocolLogger:   logs.protocol,
		Logger:           logger,
	}, link)
	if err != nil {
		_ = link.Close()
		return err
	}
	sess.OnEvent(eventLogger(logger))

	if err := sess.Start(ctx); err != nil {
		_ = link.Close()
		return fmt.Errorf("start session: %w", err)
	}
	if ic != nil {
		ic.SetSession(sess)
		go ic.Run(ctx, cancel)
	}

	select {
	case <-ctx.Done():
	case <-sess.Done():
		logger.Warn("session ended")
	}

	logger.Info("shutting down")
	if err := sess.Stop(); err != nil && !errors.Is(err, session.ErrNotStarted) {
		logger.Warn("error stopping session", "error", err)
	}
	return nil
}

// loadConfig reads the config file, if any, and applies explicitly set flags.
func loadConfig() (config.Config, error) {
	cfg := config.Default()
	if opts.ConfigFile != "" {
		var err error
		if cfg, err = config.Load(opts.ConfigFile); err != nil {
			return cfg, err
		}
	}

	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "port":
			cfg.Serial.Port = opts.Port
		case "baud":
			cfg.Serial.Baud = opts.Baud
		case "log-level":
			cfg.Log.Level = opts.LogLevel
		case "log-format":
			cfg.Log.Format = opts.LogFormat
		case "protocol-log":
			cfg.Log.ProtocolFile = opts.ProtocolLog
		case "state-file":
			cfg.StateFile = opts.StateFile
		}
	})

	return cfg, cfg.Validate()
}

// openSerial opens the controller port at 8N1.
func openSerial(port string, baud int) connection.OpenFunc {
	return func(context.Context) (io.ReadWriteCloser, error) {
		p, err := serial.Open(port, &serial.Mode{
			BaudRate: baud,
			DataBits: 8,
			Parity:   serial.NoParity,
			StopBits: serial.OneStopBit,
		})
		if err != nil {
			return nil, err
		}
		return p, nil
	}
}

func eventLogger(logger *slog.Logger) session.EventHandler {
	return func(ev session.Event) {
		switch ev.Type {
		case session.EventDeviceAdded:
			logger.Info("[EVENT] Device added", "node_id", uint8(ev.NodeID), "kind", string(ev.Kind))
		case session.EventDeviceRemoved:
			logger.Info("[EVENT] Device removed", "node_id", uint8(ev.NodeID))
		case session.EventHandshakeFailed:
			logger.Warn("[EVENT] Handshake failed", "operation", ev.Operation.String())
		case session.EventHandshakeTimeout:
			attrs := []any{"operation", ev.Operation.String()}
			if ev.Error != nil {
				attrs = append(attrs, "error", ev.Error)
			}
			logger.Warn("[EVENT] Handshake timed out, stop sent", attrs...)
		case session.EventPhaseChanged:
			logger.Debug("[EVENT] Phase changed",
				"operation", ev.Operation.String(), "from", ev.From.String(), "to", ev.To.String())
		case session.EventTransportClosed:
			logger.Warn("[EVENT] Serial link closed")
		}
	}
}
