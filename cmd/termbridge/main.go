// Command termbridge is a native terminal client for the shell bridge: it
// dials the bridge over WebSocket, runs the session engine, and renders
// the remote shell on the local TTY. Ctrl-] disconnects.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/termbridge/termbridge/internal/config"
	"github.com/termbridge/termbridge/internal/diagnostics"
	"github.com/termbridge/termbridge/internal/logging"
	"github.com/termbridge/termbridge/internal/monitoring"
	"github.com/termbridge/termbridge/internal/protocol"
	"github.com/termbridge/termbridge/internal/session"
	"github.com/termbridge/termbridge/internal/surface"
	"github.com/termbridge/termbridge/internal/transport"
)

// escapeByte ends the session from the keyboard (Ctrl-], the telnet
// escape convention).
const escapeByte = 0x1d

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "termbridge:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.LoadOrDefault()

	url := flag.String("url", cfg.Bridge.URL, "Bridge WebSocket URL")
	profilesPath := flag.String("profiles", "", "Path to TOML connection profiles")
	profileName := flag.String("profile", "", "Named profile to connect with")
	host := flag.String("host", "", "Remote host")
	port := flag.Int("port", 22, "Remote port")
	username := flag.String("user", "", "Remote username")
	diagAddr := flag.String("diag", cfg.Diagnostics.Addr, "Diagnostics listen address (empty disables)")
	dev := flag.Bool("dev", cfg.Logging.Development, "Development logging")
	flag.Parse()

	logger, err := logging.New(logging.Config{
		Level:       cfg.Logging.Level,
		Development: *dev,
		OutputPaths: []string{"stderr"},
	})
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer logger.Sync()

	target, err := resolveTarget(*profilesPath, *profileName, *host, *port, *username)
	if err != nil {
		return err
	}
	if target.Password == "" {
		password, err := promptPassword(target.Username, target.Host)
		if err != nil {
			return err
		}
		target.Password = password
	}

	registry := prometheus.NewRegistry()
	metrics := monitoring.New(registry)

	tty := surface.NewTTY(os.Stdin, os.Stdout)
	prober := &surface.Prober{
		ProbeDelay:    cfg.Surface.ReadyProbeDelay,
		FallbackDelay: cfg.Surface.ReadyFallbackDelay,
	}

	// done fires on the first teardown: one session per invocation,
	// reconnecting means rerunning the client.
	done := make(chan struct{})
	var doneOnce sync.Once
	closeDone := func() {
		doneOnce.Do(func() { close(done) })
	}

	var engine *session.Engine
	engine = session.New(session.Options{
		Surface: tty,
		Prober:  prober,
		Logger:  logger,
		Metrics: metrics,
		OnStatus: func(s session.Status) {
			switch s {
			case session.StatusConnected:
				if cols, rows, err := tty.Size(); err == nil {
					engine.ForwardResize(cols, rows)
				}
			case session.StatusDisconnected, session.StatusClosed:
				closeDone()
			}
		},
	})

	controller := transport.New(transport.Options{
		URL:              *url,
		HandshakeTimeout: cfg.Bridge.HandshakeTimeout,
		WriteTimeout:     cfg.Bridge.WriteTimeout,
	}, engine, logger)
	engine.SetTransport(controller)

	if *diagAddr != "" {
		diagCfg := cfg.Diagnostics
		diagCfg.Addr = *diagAddr
		diag := diagnostics.New(diagCfg, engine, metrics, registry, logger)
		go func() {
			if err := diag.Run(); err != nil {
				logger.Error("diagnostics server failed", zap.Error(err))
			}
		}()
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), cfg.Bridge.WriteTimeout)
			defer cancel()
			_ = diag.Shutdown(ctx)
		}()
	}

	if err := tty.Start(); err != nil {
		return err
	}
	defer tty.Stop()

	engine.Start()
	if err := engine.Connect(context.Background(), target); err != nil {
		return err
	}

	go readKeyboard(tty, engine)

	winch := make(chan os.Signal, 1)
	signal.Notify(winch, syscall.SIGWINCH)
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)

	for {
		select {
		case <-winch:
			if cols, rows, err := tty.Size(); err == nil {
				engine.ForwardResize(cols, rows)
			}
		case <-sigs:
			logger.Info("shutting down")
			engine.Shutdown()
			return nil
		case <-done:
			return nil
		}
	}
}

// readKeyboard pumps raw TTY input into the engine. The escape byte ends
// the session; everything else, including control sequences, goes to the
// remote shell untouched.
func readKeyboard(tty *surface.TTY, engine *session.Engine) {
	buf := make([]byte, 1024)
	for {
		n, err := os.Stdin.Read(buf)
		if err != nil {
			return
		}
		chunk := buf[:n]
		for i, b := range chunk {
			if b == escapeByte {
				if i > 0 {
					engine.ForwardKeystrokes(chunk[:i])
				}
				engine.Disconnect()
				return
			}
		}
		engine.ForwardKeystrokes(chunk)
	}
}

// resolveTarget merges profile and flag inputs into connect parameters.
func resolveTarget(profilesPath, profileName, host string, port int, username string) (protocol.ConnectConfig, error) {
	target := protocol.ConnectConfig{Host: host, Port: port, Username: username}

	if profileName != "" {
		if profilesPath == "" {
			return target, fmt.Errorf("-profile requires -profiles")
		}
		profiles, err := config.LoadProfiles(profilesPath)
		if err != nil {
			return target, err
		}
		profile, err := profiles.Lookup(profileName)
		if err != nil {
			return target, err
		}
		target.Host = profile.Host
		target.Port = profile.Port
		target.Username = profile.Username
	}
	return target, nil
}

// promptPassword reads the password without echo, before the TTY enters
// raw mode.
func promptPassword(username, host string) (string, error) {
	fmt.Fprintf(os.Stderr, "%s@%s password: ", username, host)
	raw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(raw), nil
}
