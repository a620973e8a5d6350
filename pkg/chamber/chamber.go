// Package chamber wires the sensor inputs, the control loop and the output
// surfaces together and runs them until a shutdown signal arrives.
package chamber

import (
	"context"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/skohler/chamber-pi/pkg/bounds"
	"github.com/skohler/chamber-pi/pkg/control"
	"github.com/skohler/chamber-pi/pkg/filter"
	"github.com/skohler/chamber-pi/pkg/history"
	"github.com/skohler/chamber-pi/pkg/lcd"
	"github.com/skohler/chamber-pi/pkg/ledpwm"
	"github.com/skohler/chamber-pi/pkg/luxstream"
	"github.com/skohler/chamber-pi/pkg/mcp3008"
	"github.com/skohler/chamber-pi/pkg/mqtt"
	"github.com/skohler/chamber-pi/pkg/override"
	"github.com/skohler/chamber-pi/pkg/router"
	"github.com/skohler/chamber-pi/pkg/switches"
	"github.com/skohler/chamber-pi/pkg/watchdog"
	"github.com/skohler/chamber-pi/pkg/web"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"
	"periph.io/x/host/v3"
)

const cleanupInterval = time.Hour

func Root() func(cmd *cobra.Command, args []string) {
	return func(cmd *cobra.Command, args []string) {
		slogOpts := slog.HandlerOptions{
			Level: slog.LevelInfo,
		}
		if viper.GetBool("debug") {
			slogOpts.Level = slog.LevelDebug
		}
		log := slog.New(slog.NewTextHandler(os.Stderr, &slogOpts))
		slog.SetDefault(log)

		hostState, err := host.Init()
		errChk(err)
		for i := range hostState.Loaded {
			slog.Debug("loaded", "module", hostState.Loaded[i])
		}
		for i := range hostState.Failed {
			slog.Error("failed", "module", hostState.Failed[i])
		}
		for i := range hostState.Skipped {
			slog.Debug("skipped", "module", hostState.Skipped[i])
		}

		ctx, cancelFunc := context.WithCancel(context.Background())
		g, ctx := errgroup.WithContext(ctx)
		g.SetLimit(-1)

		// Control loop
		maxPWM := viper.GetInt("max-pwm")
		loop, err := control.NewLoop(control.Config{
			WindowSize: viper.GetInt("window-size"),
			Filter: filter.Config{
				Kind:   filter.Kind(viper.GetString("filter")),
				Window: viper.GetInt("filter-window"),
				Alpha:  viper.GetFloat64("filter-alpha"),
				Order:  viper.GetInt("sg-order"),
			},
			Strategy:        bounds.Strategy(viper.GetString("bounds-strategy")),
			BoundsAlpha:     viper.GetFloat64("bounds-alpha"),
			SigmaMultiplier: viper.GetFloat64("outlier-sigma"),
			DefaultSpan:     viper.GetFloat64("default-span"),
			MaxCode:         maxPWM,
		})
		errChk(err)

		// History store
		store, err := history.Open(viper.GetString("db-path"))
		errChk(err)

		// Remote override, restored from the last run
		reg := override.NewRegister()
		saved, err := store.LoadOverride()
		errChk(err)
		reg.Set(saved.Enabled, saved.Code)
		if saved.Enabled {
			slog.Info("restored manual override", "pwm", saved.Code)
		}

		// LED output
		led, err := ledpwm.New(viper.GetString("led-pin"), maxPWM)
		errChk(err)

		// Physical switches
		sw, err := switches.New(viper.GetString("mode-switch-pin"), viper.GetString("enable-switch-pin"))
		errChk(err)

		// Potentiometer ADC
		pot, err := mcp3008.New(viper.GetString("spibus"), viper.GetInt("pot-channel"))
		errChk(err)

		// Status LCD
		panel, err := lcd.New(viper.GetString("i2cbus"), uint16(viper.GetInt("lcd-address")))
		errChk(err)

		// Lux stream
		port, err := luxstream.OpenPort(viper.GetString("serial-port"), viper.GetInt("baud"))
		errChk(err)

		luxCh, luxFn := luxstream.Channel(ctx, port)
		slog.Debug("starting lux reader")
		g.Go(luxFn)
		luxFan := router.NewFan[[]float64]("lux", luxCh)
		g.Go(luxFan.Run)

		// Tick loop: lux in, actuator command and snapshot out
		tickInterval := viper.GetDuration("tick-interval")
		snapCh, tickFn := tickLoop(ctx, tickInterval, loop, luxFan.Subscribe("control"), sw, pot, reg, led)
		slog.Debug("starting control loop", "interval", tickInterval)
		g.Go(tickFn)
		snapFan := router.NewFan[control.Snapshot]("snapshot", snapCh)
		g.Go(snapFan.Run)

		// History logger and retention
		g.Go(historyLogger(store, snapFan.Subscribe("history")))
		g.Go(historyCleanup(ctx, store, viper.GetDuration("history-max-age")))

		// Web API
		srv := web.NewServer(viper.GetString("http-addr"), store, reg, maxPWM)
		for _, fn := range srv.Run(ctx, snapFan.Subscribe("web")) {
			g.Go(fn)
		}

		// LCD refresh
		g.Go(lcd.Runner(ctx, panel, viper.GetDuration("lcd-interval"), snapFan.Subscribe("lcd")))

		// MQTT
		if broker := viper.GetString("mqtt-broker"); broker != "" {
			mqttURL, err := url.Parse(broker)
			errChk(err)
			mc := mqtt.NewClient(mqttURL, viper.GetInt("mqtt-sample-interval"))
			errChk(mc.Connect())
			g.Go(mc.GetPublisher(snapFan.Subscribe("mqtt")))
			errChk(mc.HomeAssistant())
			g.Go(mc.SwitchFn("override",
				func() { setOverride(reg, store, true) },
				func() { setOverride(reg, store, false) },
				func() bool { return reg.Get().Enabled },
			))
		}

		// Watchdog
		g.Go(watchdog.New(ctx, viper.GetDuration("watchdog-timeout"), led.SafeOff, luxFan.Subscribe("watchdog")))

		// Signal handling
		chanSignal := make(chan os.Signal, 1)
		signal.Notify(chanSignal, syscall.SIGTERM, syscall.SIGQUIT, syscall.SIGINT)

		g.Go(func() error {
			defer cancelFunc()
			select {
			case <-ctx.Done():
			case <-chanSignal:
			}
			slog.Info("shutting down...")
			if err := led.SafeOff(); err != nil {
				slog.Error("failed to force led off", "error", err)
			}
			panel.Close()
			pot.Close()
			port.Close()
			store.Close()
			os.Exit(0)
			return nil
		})

		slog.Debug("waiting for goroutines to finish")
		err = g.Wait()
		errChk(err)
	}
}

// tickLoop drives the control loop at a fixed cadence. Each tick consumes at
// most one lux packet; a tick without one reuses the previous reading. The
// resulting command goes straight to the LED and the snapshot to the fan.
func tickLoop(ctx context.Context, interval time.Duration, loop *control.Loop, luxCh <-chan []float64, sw *switches.Switches, pot *mcp3008.ADC, reg *override.Register, led *ledpwm.LED) (<-chan control.Snapshot, func() error) {
	c := make(chan control.Snapshot, 1)
	return c, func() error {
		defer close(c)
		t := time.NewTicker(interval)
		defer t.Stop()
		var potRaw int
		var potFraction float64
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-t.C:
			}

			var samples []float64
			select {
			case pair, ok := <-luxCh:
				if !ok {
					return nil
				}
				samples = pair
			default:
			}

			state := sw.Read()

			raw, fraction, err := pot.Read()
			if err != nil {
				slog.Warn("pot read failed, reusing previous value", "error", err, "module", "chamber")
			} else {
				potRaw, potFraction = raw, fraction
			}

			ov := reg.Get()
			snap := loop.Tick(control.TickInput{
				Samples:         samples,
				OverrideEnabled: ov.Enabled,
				OverrideCode:    ov.Code,
				LEDEnabled:      state.LEDEnabled,
				PotMode:         state.PotMode,
				PotRaw:          potRaw,
				PotFraction:     potFraction,
			})

			if err := led.Set(snap.Command.Code); err != nil {
				slog.Error("led update failed", "error", err, "module", "chamber")
			}

			select {
			case c <- snap:
			default:
				select {
				case <-c:
				default:
				}
				select {
				case c <- snap:
				default:
				}
			}
		}
	}
}

func historyLogger(store *history.Store, input <-chan control.Snapshot) func() error {
	return func() error {
		for snap := range input {
			if snap.Stale {
				continue
			}
			if err := store.Append(snap); err != nil {
				slog.Error("history append failed", "error", err, "module", "chamber")
			}
		}
		return nil
	}
}

func historyCleanup(ctx context.Context, store *history.Store, maxAge time.Duration) func() error {
	return func() error {
		t := time.NewTicker(cleanupInterval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-t.C:
				removed, err := store.Cleanup(maxAge)
				if err != nil {
					slog.Error("history cleanup failed", "error", err, "module", "chamber")
					continue
				}
				if removed > 0 {
					slog.Info("pruned history", "removed", removed, "maxAge", maxAge, "module", "chamber")
				}
			}
		}
	}
}

func setOverride(reg *override.Register, store *history.Store, enabled bool) {
	cur := reg.Get()
	reg.Set(enabled, cur.Code)
	if err := store.SaveOverride(override.State{Enabled: enabled, Code: cur.Code}); err != nil {
		slog.Error("failed to persist override state", "error", err, "module", "chamber")
	}
}

func errChk(err error) {
	if err != nil {
		slog.Error(err.Error())
		os.Exit(1)
	}
}
