// Package main is the entry point for okws-demo, a small command-line
// client that exercises the Connection Supervisor against a real
// WebSocket endpoint: it connects, prints every inbound message and state
// transition, and forwards stdin lines as outbound sends.
//
// Startup sequence, mirrored from arkeep-io-arkeep's agent/cmd/agent
// main.go:
//  1. Parse CLI flags / environment variables, merged with an optional
//     YAML config file
//  2. Build logger, wire it into okws's process-wide Log Sink
//  3. Build the Supervisor and optionally a Prometheus registry
//  4. Run the supervisor, the stdin forwarder, and the print loops
//     concurrently; block until SIGINT/SIGTERM, then dispose
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/lwj1994/okws-client"
	"github.com/lwj1994/okws-client/backoff"
	"github.com/lwj1994/okws-client/cmd/okws-demo/authheader"
	"github.com/lwj1994/okws-client/cmd/okws-demo/config"
	"github.com/lwj1994/okws-client/engine"
	"github.com/lwj1994/okws-client/heartbeat"
	"github.com/lwj1994/okws-client/internal/logx"
)

type cliFlags struct {
	url             string
	configPath      string
	logLevel        string
	pingInterval    time.Duration
	heartbeatText   string
	heartbeatEvery  time.Duration
	heartbeatWait   time.Duration
	jwtSecret       string
	jwtSubject      string
	jwtIssuer       string
	jwtTTL          time.Duration
	enableMetrics   bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &cliFlags{}

	root := &cobra.Command{
		Use:   "okws-demo",
		Short: "okws-demo — interactive client for the okws Connection Supervisor",
		Long: `okws-demo connects to a WebSocket endpoint through an okws.Supervisor,
printing every state transition and inbound message, and forwarding each
line typed on stdin as an outbound send.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), flags)
		},
	}

	root.PersistentFlags().StringVar(&flags.url, "url", envOrDefault("OKWS_URL", ""), "WebSocket URL to connect to (required unless set in --config)")
	root.PersistentFlags().StringVar(&flags.configPath, "config", envOrDefault("OKWS_CONFIG", ""), "Optional YAML config file overriding the flags above")
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", envOrDefault("OKWS_LOG_LEVEL", "info"), "Log level (debug, info, warn, error)")
	root.PersistentFlags().DurationVar(&flags.pingInterval, "ping-interval", 0, "Transport-level ping interval passed to the engine (the default engine sends no pings of its own)")
	root.PersistentFlags().StringVar(&flags.heartbeatText, "heartbeat-text", "", "Application-level heartbeat request payload (empty disables the heartbeat)")
	root.PersistentFlags().DurationVar(&flags.heartbeatEvery, "heartbeat-interval", 15*time.Second, "Heartbeat send interval")
	root.PersistentFlags().DurationVar(&flags.heartbeatWait, "heartbeat-timeout", 10*time.Second, "Heartbeat response timeout")
	root.PersistentFlags().StringVar(&flags.jwtSecret, "jwt-secret", envOrDefault("OKWS_JWT_SECRET", ""), "Sign an Authorization bearer header with this HS256 secret (empty disables it)")
	root.PersistentFlags().StringVar(&flags.jwtSubject, "jwt-subject", "okws-demo", "JWT subject claim")
	root.PersistentFlags().StringVar(&flags.jwtIssuer, "jwt-issuer", "okws-demo", "JWT issuer claim")
	root.PersistentFlags().DurationVar(&flags.jwtTTL, "jwt-ttl", 5*time.Minute, "JWT lifetime")
	root.PersistentFlags().BoolVar(&flags.enableMetrics, "metrics", false, "Register Prometheus instruments for this connection")

	return root
}

func run(ctx context.Context, flags *cliFlags) error {
	file, err := config.Load(flags.configPath)
	if err != nil {
		return err
	}
	mergeConfigFile(flags, file)

	if flags.url == "" {
		return fmt.Errorf("okws-demo: --url is required (or set url: in --config)")
	}

	logger, err := buildLogger(flags.logLevel)
	if err != nil {
		return fmt.Errorf("okws-demo: failed to build logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck

	logx.Init(true, func(line string) { logger.Info(line) })

	headers := map[string]string{}
	for k, v := range file.Headers {
		headers[k] = v
	}
	if flags.jwtSecret != "" {
		bearer, err := authheader.Bearer(flags.jwtSecret, flags.jwtSubject, flags.jwtIssuer, flags.jwtTTL)
		if err != nil {
			return err
		}
		headers["Authorization"] = bearer
	}

	var hbCfg *heartbeat.Config
	if flags.heartbeatText != "" {
		cfg := heartbeat.DefaultConfig(engine.Text(flags.heartbeatText))
		cfg.Interval = flags.heartbeatEvery
		cfg.Timeout = flags.heartbeatWait
		hbCfg = &cfg
	}

	var registerer prometheus.Registerer
	if flags.enableMetrics {
		registerer = prometheus.DefaultRegisterer
	}

	sup := okws.New(okws.Config{
		URL:          flags.url,
		Headers:      headers,
		PingInterval: flags.pingInterval,
		Backoff:      backoff.DefaultExponential(),
		Heartbeat:    hbCfg,
		Registerer:   registerer,
	})

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	group, gctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		return logStateChanges(gctx, sup, logger)
	})
	group.Go(func() error {
		return printReceived(gctx, sup)
	})
	group.Go(func() error {
		return forwardStdin(gctx, sup)
	})

	if err := sup.Connect(); err != nil {
		cancel()
		_ = group.Wait()
		sup.Dispose()
		return fmt.Errorf("okws-demo: connect: %w", err)
	}

	<-gctx.Done()
	sup.Dispose()
	_ = group.Wait()

	logger.Info("okws-demo stopped")
	return nil
}

// mergeConfigFile applies the fields the YAML file sets. The URL, ping
// interval, heartbeat text and JWT secret are taken from the file only when
// the flag is zero; every other set field replaces the flag value, whether
// or not that flag was passed explicitly.
func mergeConfigFile(flags *cliFlags, file config.File) {
	if flags.url == "" && file.URL != "" {
		flags.url = file.URL
	}
	if flags.pingInterval == 0 && file.PingInterval != 0 {
		flags.pingInterval = time.Duration(file.PingInterval)
	}
	if file.LogLevel != "" {
		flags.logLevel = file.LogLevel
	}
	if file.Heartbeat != nil {
		if flags.heartbeatText == "" {
			flags.heartbeatText = file.Heartbeat.RequestText
		}
		if file.Heartbeat.Interval != 0 {
			flags.heartbeatEvery = time.Duration(file.Heartbeat.Interval)
		}
		if file.Heartbeat.Timeout != 0 {
			flags.heartbeatWait = time.Duration(file.Heartbeat.Timeout)
		}
	}
	if file.JWT != nil {
		if flags.jwtSecret == "" {
			flags.jwtSecret = file.JWT.Secret
		}
		if file.JWT.Subject != "" {
			flags.jwtSubject = file.JWT.Subject
		}
		if file.JWT.Issuer != "" {
			flags.jwtIssuer = file.JWT.Issuer
		}
		if file.JWT.TTL != 0 {
			flags.jwtTTL = time.Duration(file.JWT.TTL)
		}
	}
}

func logStateChanges(ctx context.Context, sup *okws.Supervisor, logger *zap.Logger) error {
	sub := sup.OnStateChange()
	defer sup.UnsubscribeStateChange(sub)

	for {
		select {
		case st, ok := <-sub.C():
			if !ok {
				return nil
			}
			logger.Info("state changed", zap.Stringer("state", st))
		case <-ctx.Done():
			return nil
		}
	}
}

func printReceived(ctx context.Context, sup *okws.Supervisor) error {
	sub := sup.OnReceive()
	defer sup.UnsubscribeReceive(sub)

	for {
		select {
		case payload, ok := <-sub.C():
			if !ok {
				return nil
			}
			switch p := payload.(type) {
			case engine.Text:
				fmt.Printf("< %s\n", string(p))
			case engine.Bytes:
				fmt.Printf("< (%d bytes)\n", len(p))
			}
		case <-ctx.Done():
			return nil
		}
	}
}

func forwardStdin(ctx context.Context, sup *okws.Supervisor) error {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if !sup.Send(engine.Text(line)) {
				fmt.Fprintln(os.Stderr, "okws-demo: send failed or timed out")
			}
		case <-ctx.Done():
			return nil
		}
	}
}

func buildLogger(level string) (*zap.Logger, error) {
	var cfg zap.Config
	switch level {
	case "debug":
		cfg = zap.NewDevelopmentConfig()
	default:
		cfg = zap.NewProductionConfig()
	}

	lvl, err := zap.ParseAtomicLevel(level)
	if err == nil {
		cfg.Level = lvl
	}

	return cfg.Build()
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}
