// cmd/regbridge/commands.go
package main

import (
	"context"
	"fmt"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tamzrod/regbridge/internal/bridge"
	"github.com/tamzrod/regbridge/internal/config"
	"github.com/tamzrod/regbridge/internal/device"
	"github.com/tamzrod/regbridge/internal/scan"
)

var runCmd = &cobra.Command{
	Use:   "run <config.yaml>",
	Short: "Poll configured devices and publish state changes",
	Args:  cobra.ExactArgs(1),
	RunE:  runBridge,
}

var scanCmd = &cobra.Command{
	Use:   "scan <host>",
	Short: "Identify a device by its scan probe",
	Args:  cobra.ExactArgs(1),
	RunE:  runScan,
}

func runBridge(cmd *cobra.Command, args []string) error {
	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer logger.Sync()

	// --------------------
	// Load + validate config
	// --------------------

	cfg, err := config.Load(args[0])
	if err != nil {
		return err
	}
	if err := config.Validate(cfg); err != nil {
		return err
	}
	config.Normalize(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --------------------
	// Build per-device units (setup errors are fatal)
	// --------------------

	events := make(chan device.Event, 64)
	var wg sync.WaitGroup

	for _, dc := range cfg.Bridge.Devices {
		d, err := device.Build(dc, logger)
		if err != nil {
			return fmt.Errorf("setup failed (device=%s): %w", dc.Name, err)
		}
		defer d.Close()

		_, sub := d.Subscribe()

		wg.Add(1)
		go func() {
			defer wg.Done()
			d.Run(ctx)
		}()

		// fan-in: per-device events onto the shared stream
		wg.Add(1)
		go func(sub <-chan device.Event) {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case ev, ok := <-sub:
					if !ok {
						return
					}
					select {
					case events <- ev:
					case <-ctx.Done():
						return
					}
				}
			}
		}(sub)

		logger.Info("device started",
			zap.String("name", dc.Name), zap.String("type", dc.Type), zap.String("mac", dc.MAC))
	}

	// --------------------
	// Consume events: MQTT when configured, log otherwise
	// --------------------

	if cfg.Bridge.MQTT != nil {
		b, err := bridge.New(cfg.Bridge.MQTT, logger)
		if err != nil {
			return err
		}
		defer b.Close()
		b.Run(ctx, events)
	} else {
		logEvents(ctx, logger, events)
	}

	stop()
	wg.Wait()
	return nil
}

func logEvents(ctx context.Context, logger *zap.Logger, events <-chan device.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-events:
			if ev.Channel == "" {
				logger.Info("availability changed",
					zap.String("mac", ev.Device), zap.Bool("available", ev.Available))
				continue
			}
			logger.Info("state changed",
				zap.String("mac", ev.Device), zap.String("channel", ev.Channel),
				zap.Stringer("value", ev.Value))
		}
	}
}

func runScan(cmd *cobra.Command, args []string) error {
	a, err := scan.Probe(cmd.Context(), args[0], scan.DefaultTimeout)
	if err != nil {
		return err
	}

	fmt.Printf("type:        %s\n", a.Type)
	fmt.Printf("version:     %s\n", a.Version)
	fmt.Printf("mac:         %s\n", a.MAC)
	fmt.Printf("ip:          %s\n", a.IP)
	fmt.Printf("config code: %d\n", a.ConfigCode)
	return nil
}
