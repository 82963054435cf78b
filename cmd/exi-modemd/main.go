package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/i4energy/exi-modem/modem"
)

// cyclesPerTick is an arbitrary host-clock rate: every tick of the pump
// loop below advances the scheduler by this many "cycles", the same unit
// ConnectEvent/RecvEvent delays are expressed in.
const cyclesPerTick = 1_000_000

func main() {
	flag.String("bind-address", "0.0.0.0:8080", "Bind address for the debug HTTP server")
	flag.String("transport", "tcp", "How to place a call: tcp or serial")
	flag.String("serial-port", "/dev/ttyUSB0", "Serial port to bridge to when transport=serial")
	flag.Int("baud-rate", 115200, "Baud rate for the serial bridge")
	flag.String("dial-address", "10.0.1.1:2468", "Fixed TCP address every dialed number resolves to when transport=tcp")
	flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	flag.Parse()

	config, err := LoadConfig(WithDefaults(), WithEnv(), WithFlags(flag.CommandLine))
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: parseLogLevel(config.LogLevel)}))

	var dialer modem.Dialer
	switch config.Transport {
	case "serial":
		dialer = modem.NewSerialBridgeDialer(config.SerialPort, config.BaudRate)
	default:
		dialer = modem.TCPDialer{DialTimeout: 10 * time.Second}
	}

	scheduler := modem.NewCycleScheduler()
	interruptLine := &loggingInterruptLine{logger: logger.With("component", "interrupt-line")}

	modemConfig, err := modem.NewConfigBuilder().
		WithDialer(dialer).
		WithResolver(modem.FixedResolver{Address: config.DialAddress}).
		WithScheduler(scheduler).
		WithInterruptLine(interruptLine).
		WithLogger(logger).
		Build()
	if err != nil {
		logger.Error("failed to build modem config", "error", err)
		os.Exit(1)
	}

	device, err := modem.New(modemConfig)
	if err != nil {
		logger.Error("failed to create device", "error", err)
		os.Exit(1)
	}

	logger.Info("starting exi-modemd", "transport", config.Transport)

	httpServer := &http.Server{
		Addr: config.BindAddress,
		Handler: &Server{
			Logger: logger.With("component", "server"),
			Device: device,
		},
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	pumpDone := make(chan struct{})
	pumpStop := make(chan struct{})
	go runPumpLoop(scheduler, pumpStop, pumpDone)

	go func() {
		logger.Info("starting HTTP server", "address", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server failed", "error", err)
			os.Exit(1)
		}
	}()

	sig := <-sigChan
	logger.Info("received shutdown signal", "signal", sig)

	close(pumpStop)
	<-pumpDone

	logger.Info("closing device")
	if err := device.Close(); err != nil {
		logger.Error("failed to close device", "error", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	logger.Info("closing HTTP server")
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("failed to gracefully shut down server", "error", err)
		os.Exit(1)
	}
}

// runPumpLoop is the single "host emulator thread" §5 requires: the only
// goroutine that ever calls Pump, driving the scheduler's clock forward
// at a fixed wall-clock rate until stop is closed.
func runPumpLoop(scheduler *modem.CycleScheduler, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			scheduler.Pump(cyclesPerTick)
		}
	}
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// loggingInterruptLine is the process's bus.InterruptLine: there is no
// real guest interrupt controller to poke outside of an emulator, so it
// just logs each re-evaluation request at debug level.
type loggingInterruptLine struct {
	logger *slog.Logger
}

func (l *loggingInterruptLine) ScheduleInterruptUpdate() {
	l.logger.Debug("interrupt line re-evaluation requested")
}
