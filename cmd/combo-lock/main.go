// Command combo-lock runs a push-button combination lock on GPIO lines
// and publishes lock events to MQTT.
package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/sweeney/combo-lock/internal/config"
	"github.com/sweeney/combo-lock/internal/gpio"
	"github.com/sweeney/combo-lock/internal/lock"
	"github.com/sweeney/combo-lock/internal/mqtt"
	"github.com/sweeney/combo-lock/internal/status"
	"github.com/sweeney/combo-lock/internal/web"
)

var (
	configPath string
	debug      bool

	rootCmd = &cobra.Command{
		Use:           "combo-lock",
		Short:         "Push-button combination lock daemon",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runDaemon,
	}
	runCmd = &cobra.Command{
		Use:   "run",
		Short: "Run the lock (default)",
		RunE:  runDaemon,
	}
	printStateCmd = &cobra.Command{
		Use:   "print-state",
		Short: "Read every input once and exit",
		RunE:  runPrintState,
	}
	printConfigCmd = &cobra.Command{
		Use:   "print-config",
		Short: "Print the effective configuration as TOML",
		RunE:  runPrintConfig,
	}
)

func main() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultPath, "Config path. The path to the TOML configuration file")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
	rootCmd.AddCommand(runCmd, printStateCmd, printConfigCmd)

	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

// loadConfig loads the config file and applies its log level.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	if debug {
		level = log.DebugLevel
	}
	log.SetLevel(level)
	return cfg, nil
}

func runPrintConfig(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	return cfg.Encode(cmd.OutOrStdout())
}

func runPrintState(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	chip, err := gpio.OpenChip(cfg.Chip)
	if err != nil {
		return err
	}
	defer chip.Close()

	return printState(cmd.OutOrStdout(), cfg, chipPins{chip})
}

func runDaemon(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	return run(cfg)
}

func run(cfg *config.Config) error {
	chip, err := gpio.OpenChip(cfg.Chip)
	if err != nil {
		return fmt.Errorf("init gpio: %w", err)
	}
	defer func() {
		if err := chip.Close(); err != nil {
			log.WithError(err).Warn("release gpio lines")
		}
	}()

	startTime := time.Now()
	l, err := buildLock(cfg, chipPins{chip}, startTime)
	if err != nil {
		return err
	}

	var publisher interface {
		mqtt.Publisher
		mqtt.ConnectionStatus
	} = mqtt.NopPublisher{}
	if cfg.MQTT.Broker != "" {
		p, err := mqtt.NewRealPublisher(cfg.MQTT.Broker, cfg.MQTT.ClientID)
		if err != nil {
			return fmt.Errorf("init mqtt: %w", err)
		}
		publisher = p
	} else {
		log.Info("no mqtt broker configured, events will only be logged")
	}
	defer publisher.Close()

	// Tracker exists before STARTUP so the snapshot is available.
	tracker := status.NewTracker(startTime, status.Config{
		PollMs:            cfg.Poll.Milliseconds(),
		PrimingDebounceMs: cfg.Priming.Debounce.Milliseconds(),
		ComboDebounceMs:   cfg.ComboButtons.Debounce.Milliseconds(),
		TimeoutMs:         cfg.Timeout.Milliseconds(),
		HeartbeatMs:       cfg.Heartbeat.Milliseconds(),
		ComboButtons:      len(cfg.Pins.Combo),
		Broker:            cfg.MQTT.Broker,
		HTTPAddr:          cfg.HTTP,
	})
	tracker.Update(l.Snapshot(startTime))
	tracker.SetMQTTConnected(publisher.IsConnected())
	if net := readNetworkInfo(); net != nil {
		tracker.SetNetwork(net)
	}

	snap := tracker.Snapshot()
	if err := publisher.PublishSystem(mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
	}); err != nil {
		log.WithError(err).Warn("failed to publish startup event")
	} else {
		log.Debug("published startup event")
	}

	if cfg.HTTP != "" {
		if ln, err := net.Listen("tcp", cfg.HTTP); err != nil {
			log.WithError(err).WithField("addr", cfg.HTTP).Error("http status server disabled")
		} else {
			srv := web.New(cfg.HTTP, tracker)
			go func() {
				if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.WithError(err).Error("http server")
				}
			}()
			defer srv.Shutdown(context.Background())
			log.WithField("addr", ln.Addr().String()).Info("http status server listening")
		}
	}

	log.WithFields(log.Fields{
		"poll":         cfg.Poll,
		"combo_length": len(cfg.Combo),
		"buttons":      len(cfg.Pins.Combo),
		"timeout":      cfg.Timeout,
		"broker":       cfg.MQTT.Broker,
		"heartbeat":    cfg.Heartbeat,
	}).Info("started")

	ticker := time.NewTicker(cfg.Poll.Duration)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	return runLoop(l, publisher, publisher, tracker, cfg.Heartbeat.Duration, time.Now, ticker.C, sigCh)
}

func runLoop(l *lock.Lock, publisher mqtt.Publisher, mqttStatus mqtt.ConnectionStatus, tracker *status.Tracker, heartbeat time.Duration, now func() time.Time, tick <-chan time.Time, sig <-chan os.Signal) error {
	for {
		select {
		case s := <-sig:
			signalName := "UNKNOWN"
			if s == syscall.SIGINT {
				signalName = "SIGINT"
			} else if s == syscall.SIGTERM {
				signalName = "SIGTERM"
			}
			log.WithField("signal", signalName).Info("shutting down")

			t := now()
			if err := l.Close(); err != nil {
				log.WithError(err).Warn("drive outputs low")
			}

			event := mqtt.SystemEvent{
				Timestamp: t,
				Event:     "SHUTDOWN",
				Reason:    signalName,
				Retained:  true,
			}
			if tracker != nil {
				tracker.Update(l.Snapshot(t))
				if mqttStatus != nil {
					tracker.SetMQTTConnected(mqttStatus.IsConnected())
				}
				snap := tracker.Snapshot()
				event.RawPayload = status.FormatStatusEvent(snap, "SHUTDOWN", signalName)
			}
			if err := publisher.PublishSystem(event); err != nil {
				log.WithError(err).Warn("failed to publish shutdown event")
			} else {
				log.Debug("published shutdown event")
			}
			return nil

		case <-tick:
			t := now()

			events, err := l.Tick(t)
			if err != nil && !errors.Is(err, lock.ErrHalted) {
				// Hardware errors do not stop the lock; the tick has already advanced.
				log.WithError(err).WithField("state", l.State()).Warn("tick")
			}

			for _, event := range events {
				fields := log.Fields{"event": event.Type, "state": event.State}
				if event.Type == lock.EventFault {
					log.WithFields(fields).Error("lock halted in undefined state, restart required")
				} else {
					log.WithFields(fields).Info("lock event")
				}
				if err := publisher.Publish(event); err != nil {
					// Don't crash on publish failure
					log.WithError(err).WithField("event", event.Type).Warn("publish")
				}
			}

			if hbData := l.CheckHeartbeat(t, heartbeat); hbData != nil {
				log.WithFields(log.Fields{
					"uptime":    hbData.Uptime,
					"primes":    hbData.Counts.Primes,
					"correct":   hbData.Counts.Correct,
					"incorrect": hbData.Counts.Incorrect,
					"timeouts":  hbData.Counts.Timeouts,
				}).Info("heartbeat")

				hbEvent := mqtt.SystemEvent{
					Timestamp: hbData.Timestamp,
					Event:     "HEARTBEAT",
				}
				if tracker != nil {
					if mqttStatus != nil {
						tracker.SetMQTTConnected(mqttStatus.IsConnected())
					}
					// Refresh network info for heartbeat
					if net := readNetworkInfo(); net != nil {
						tracker.SetNetwork(net)
					}
					tracker.Update(l.Snapshot(t))
					hbEvent.RawPayload = status.FormatStatusEvent(tracker.Snapshot(), "HEARTBEAT", "")
				}
				if err := publisher.PublishSystem(hbEvent); err != nil {
					log.WithError(err).Warn("heartbeat publish")
				}
			}

			// Update status tracker for HTTP consumers
			if tracker != nil {
				tracker.Update(l.Snapshot(t))
				if mqttStatus != nil {
					tracker.SetMQTTConnected(mqttStatus.IsConnected())
				}
			}
		}
	}
}

// pi-helper env var names (written to /run/pi-helper.env).
const (
	envNetworkType       = "NETWORK_TYPE"
	envNetworkIP         = "NETWORK_IP"
	envNetworkStatus     = "NETWORK_STATUS"
	envNetworkGateway    = "NETWORK_GATEWAY"
	envNetworkWifiStatus = "NETWORK_WIFI_STATUS"
	envNetworkWifiSSID   = "NETWORK_WIFI_SSID"
)

func readNetworkInfo() *status.NetworkInfo {
	s := os.Getenv(envNetworkStatus)
	if s == "" {
		return nil
	}
	return &status.NetworkInfo{
		Type:       os.Getenv(envNetworkType),
		IP:         os.Getenv(envNetworkIP),
		Status:     s,
		Gateway:    os.Getenv(envNetworkGateway),
		WifiStatus: os.Getenv(envNetworkWifiStatus),
		SSID:       os.Getenv(envNetworkWifiSSID),
	}
}
