// Package daemon runs the responder as a long-lived process with signal
// handling, a PID file, the metrics endpoint and rule reload.
package daemon

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"firestige.xyz/framesmith/internal/config"
	"firestige.xyz/framesmith/internal/log"
	"firestige.xyz/framesmith/internal/metrics"
	"firestige.xyz/framesmith/internal/responder"
	"firestige.xyz/framesmith/internal/ruleset"
	"firestige.xyz/framesmith/internal/transport"
)

// Daemon manages the responder process lifecycle.
type Daemon struct {
	// Configuration
	config     *config.GlobalConfig
	configPath string
	pidFile    string

	// Core components
	env           ruleset.Env
	channel       transport.Channel
	responder     *responder.Responder
	metricsServer *metrics.Server // nil if metrics disabled

	// Hooks replaced in tests
	resolve func(name string) (transport.Interface, error)
	open    func(cfg config.InterfaceConfig) (transport.Channel, error)

	// Lifecycle management
	ctx      context.Context
	cancel   context.CancelFunc
	sigChan  chan os.Signal
	runDone  chan struct{}
	runErr   error
	stopOnce sync.Once
}

// New creates a Daemon from a loaded configuration. configPath is re-read on
// Reload; it may be empty when the configuration came from defaults.
func New(cfg *config.GlobalConfig, configPath, pidFile string) *Daemon {
	d := &Daemon{
		config:     cfg,
		configPath: configPath,
		pidFile:    pidFile,
		resolve:    transport.Resolve,
		open:       transport.Open,
	}
	d.ctx, d.cancel = context.WithCancel(context.Background())
	return d
}

// Start initializes all components and starts the responder loop.
func (d *Daemon) Start() error {
	logger := log.GetLogger()
	logger.WithFields(map[string]interface{}{
		"config":    d.configPath,
		"interface": d.config.Interface.Name,
		"rules":     len(d.config.Responder.Rules),
	}).Info("starting framesmith daemon")

	// 1. Write PID file
	if err := d.writePIDFile(); err != nil {
		return fmt.Errorf("failed to write PID file: %w", err)
	}

	// 2. Start metrics server
	if err := d.startMetrics(); err != nil {
		return fmt.Errorf("failed to start metrics server: %w", err)
	}

	// 3. Resolve the interface and compile rules against its addresses
	ifaceCfg, err := d.resolveInterface()
	if err != nil {
		return err
	}
	rules, err := ruleset.Compile(d.config.Responder, d.env)
	if err != nil {
		return fmt.Errorf("failed to compile rules: %w", err)
	}

	// 4. Open the channel
	d.channel, err = d.open(ifaceCfg)
	if err != nil {
		return fmt.Errorf("failed to open channel: %w", err)
	}

	// 5. Run the responder in the background
	d.responder = responder.New(d.channel, rules,
		responder.WithName(d.channel.Name()),
		responder.WithLimit(d.config.Responder.Limit),
		responder.WithCooldown(d.config.Responder.Cooldown),
	)
	d.runDone = make(chan struct{})
	go func() {
		defer close(d.runDone)
		d.runErr = d.responder.Run(d.ctx)
	}()

	logger.Info("daemon started successfully")
	return nil
}

// resolveInterface fills d.env from the configured link. A replay without an
// interface name runs with an empty Env; actions then need action.mac.
func (d *Daemon) resolveInterface() (config.InterfaceConfig, error) {
	cfg := d.config.Interface
	if cfg.Replay != "" && cfg.Name == "" {
		return cfg, nil
	}
	iface, err := d.resolve(cfg.Name)
	if err != nil {
		return cfg, fmt.Errorf("failed to resolve interface: %w", err)
	}
	cfg.Name = iface.Name
	d.env = ruleset.Env{MAC: iface.MAC, IP: iface.PrimaryIPv4()}
	log.GetLogger().WithField("interface", iface.String()).Info("interface resolved")
	return cfg, nil
}

// Stop performs graceful shutdown of all daemon components. It is safe to
// call more than once.
func (d *Daemon) Stop() {
	d.stopOnce.Do(d.stop)
}

func (d *Daemon) stop() {
	logger := log.GetLogger()
	logger.Info("initiating graceful shutdown")

	// 1. Cancel context and wait for the responder to leave its loop
	d.cancel()
	if d.runDone != nil {
		<-d.runDone
	}

	// 2. Close the channel
	if d.channel != nil {
		if err := d.channel.Close(); err != nil {
			logger.WithError(err).Error("error closing channel")
		}
	}

	// 3. Stop metrics server
	if d.metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := d.metricsServer.Stop(shutdownCtx); err != nil {
			logger.WithError(err).Error("error stopping metrics server")
		}
	}

	// 4. Unregister signal handler
	if d.sigChan != nil {
		signal.Stop(d.sigChan)
	}

	// 5. Remove PID file
	if err := d.removePIDFile(); err != nil {
		logger.WithError(err).Error("error removing PID file")
	}

	if d.responder != nil {
		logger.WithField("sent", d.responder.Sent()).Info("daemon stopped gracefully")
	}
}

// Run blocks until shutdown. Shutdown is triggered by:
//  1. OS signals (SIGTERM, SIGINT)
//  2. the responder ending (limit reached, replay exhausted or channel error)
//  3. Shutdown
//
// SIGHUP reloads the rules.
func (d *Daemon) Run() error {
	d.sigChan = make(chan os.Signal, 1)
	signal.Notify(d.sigChan, syscall.SIGTERM, syscall.SIGINT, syscall.SIGHUP)

	logger := log.GetLogger()
	logger.Info("daemon running, waiting for frames or signals")

	for {
		select {
		case sig := <-d.sigChan:
			switch sig {
			case syscall.SIGTERM, syscall.SIGINT:
				logger.WithField("signal", sig.String()).Info("received shutdown signal")
				d.Stop()
				return nil

			case syscall.SIGHUP:
				logger.Info("received reload signal")
				if err := d.Reload(); err != nil {
					logger.WithError(err).Error("failed to reload config")
				}
			}

		case <-d.runDone:
			err := d.runErr
			d.Stop()
			if err != nil && d.ctx.Err() == nil {
				return fmt.Errorf("responder stopped: %w", err)
			}
			return nil

		case <-d.ctx.Done():
			d.Stop()
			return nil
		}
	}
}

// Shutdown ends Run from another goroutine.
func (d *Daemon) Shutdown() {
	d.cancel()
}

// Reload re-reads the configuration file.
// Hot-reloadable: log settings, responder rules.
// Cold (requires restart): interface, metrics listen address, limit, cooldown.
func (d *Daemon) Reload() error {
	logger := log.GetLogger().WithField("path", d.configPath)
	if d.configPath == "" {
		return fmt.Errorf("no config file to reload")
	}
	logger.Info("reloading configuration")

	newConfig, err := config.Load(d.configPath)
	if err != nil {
		return fmt.Errorf("failed to load new config: %w", err)
	}
	rules, err := ruleset.Compile(newConfig.Responder, d.env)
	if err != nil {
		return fmt.Errorf("failed to compile rules: %w", err)
	}

	hotReloaded := []string{"rules"}
	if newConfig.Log != d.config.Log {
		if err := log.Init(newConfig.Log); err != nil {
			logger.WithError(err).Error("failed to reinitialize logging")
		} else {
			hotReloaded = append(hotReloaded, "log")
		}
	}

	requiresRestart := []string{}
	if !sameInterface(newConfig.Interface, d.config.Interface) {
		requiresRestart = append(requiresRestart, "interface")
	}
	if newConfig.Metrics != d.config.Metrics {
		requiresRestart = append(requiresRestart, "metrics")
	}
	if newConfig.Responder.Limit != d.config.Responder.Limit || newConfig.Responder.Cooldown != d.config.Responder.Cooldown {
		requiresRestart = append(requiresRestart, "responder.limit/cooldown")
	}

	if d.responder != nil {
		d.responder.SetRules(rules)
	}
	d.config = newConfig

	log.GetLogger().WithFields(map[string]interface{}{
		"hot_reloaded":     hotReloaded,
		"requires_restart": requiresRestart,
	}).Info("configuration reloaded")
	return nil
}

func sameInterface(a, b config.InterfaceConfig) bool {
	if a.Name != b.Name || a.SnapLen != b.SnapLen || a.BufferSizeMB != b.BufferSizeMB ||
		a.Timeout != b.Timeout || a.Replay != b.Replay || a.ReplayOutput != b.ReplayOutput {
		return false
	}
	if len(a.Filter) != len(b.Filter) {
		return false
	}
	for i := range a.Filter {
		if a.Filter[i] != b.Filter[i] {
			return false
		}
	}
	return true
}

// Responder returns the running responder, or nil before Start.
func (d *Daemon) Responder() *responder.Responder { return d.responder }

// startMetrics starts the metrics HTTP server if enabled.
func (d *Daemon) startMetrics() error {
	if !d.config.Metrics.Enabled {
		log.GetLogger().Info("metrics server disabled")
		return nil
	}

	d.metricsServer = metrics.NewServer(d.config.Metrics.Listen, d.config.Metrics.Path)
	return d.metricsServer.Start(d.ctx)
}

// writePIDFile writes the current process ID to the PID file.
func (d *Daemon) writePIDFile() error {
	if d.pidFile == "" {
		return nil
	}

	pid := os.Getpid()
	data := []byte(strconv.Itoa(pid) + "\n")

	if err := os.WriteFile(d.pidFile, data, 0644); err != nil {
		return fmt.Errorf("failed to write PID file %s: %w", d.pidFile, err)
	}

	log.GetLogger().WithField("path", d.pidFile).Debug("PID file written")
	return nil
}

// removePIDFile removes the PID file.
func (d *Daemon) removePIDFile() error {
	if d.pidFile == "" {
		return nil
	}

	if err := os.Remove(d.pidFile); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove PID file %s: %w", d.pidFile, err)
	}
	return nil
}
