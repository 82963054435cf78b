package modem

import (
	"log/slog"

	"github.com/i4energy/exi-modem/bus"
)

// Default scheduling constants from §4.4: a dial waits ~500,000 cycles
// before the connect attempt starts, and a live call polls for incoming
// data every ~50,000,000 cycles.
const (
	DefaultConnectDelayCycles int64 = 500_000
	DefaultRecvPollCycles     int64 = 50_000_000
)

// Config holds everything New needs to construct a Device.
type Config struct {
	Dialer        Dialer
	Resolver      Resolver
	Scheduler     bus.Scheduler
	InterruptLine bus.InterruptLine
	Logger        *slog.Logger

	ConnectDelayCycles int64
	RecvPollCycles     int64
}

func (c *Config) validate() error {
	if c.Dialer == nil {
		return ErrNoDialer
	}
	return nil
}

func (c *Config) setDefaults() {
	if c.Resolver == nil {
		c.Resolver = DefaultResolver
	}
	if c.Scheduler == nil {
		c.Scheduler = NewCycleScheduler()
	}
	if c.InterruptLine == nil {
		c.InterruptLine = noopInterruptLine{}
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.ConnectDelayCycles == 0 {
		c.ConnectDelayCycles = DefaultConnectDelayCycles
	}
	if c.RecvPollCycles == 0 {
		c.RecvPollCycles = DefaultRecvPollCycles
	}
}

type noopInterruptLine struct{}

func (noopInterruptLine) ScheduleInterruptUpdate() {}

// ConfigBuilder assembles a Config fluently, the construction-time
// counterpart to the root command's functional-options config loader.
type ConfigBuilder struct {
	cfg Config
}

// NewConfigBuilder returns an empty builder.
func NewConfigBuilder() *ConfigBuilder {
	return &ConfigBuilder{}
}

func (b *ConfigBuilder) WithDialer(d Dialer) *ConfigBuilder {
	b.cfg.Dialer = d
	return b
}

// WithSerialBridge configures the device to dial out over a real serial
// port instead of a TCP socket, for hardware-in-the-loop testing against
// a genuine Hayes modem (or another emulator instance) attached to the
// host. It is a convenience for WithDialer(NewSerialBridgeDialer(...)).
func (b *ConfigBuilder) WithSerialBridge(portName string, baudRate int) *ConfigBuilder {
	b.cfg.Dialer = NewSerialBridgeDialer(portName, baudRate)
	return b
}

func (b *ConfigBuilder) WithResolver(r Resolver) *ConfigBuilder {
	b.cfg.Resolver = r
	return b
}

func (b *ConfigBuilder) WithScheduler(s bus.Scheduler) *ConfigBuilder {
	b.cfg.Scheduler = s
	return b
}

func (b *ConfigBuilder) WithInterruptLine(l bus.InterruptLine) *ConfigBuilder {
	b.cfg.InterruptLine = l
	return b
}

func (b *ConfigBuilder) WithLogger(logger *slog.Logger) *ConfigBuilder {
	b.cfg.Logger = logger
	return b
}

func (b *ConfigBuilder) WithConnectDelayCycles(cycles int64) *ConfigBuilder {
	b.cfg.ConnectDelayCycles = cycles
	return b
}

func (b *ConfigBuilder) WithRecvPollCycles(cycles int64) *ConfigBuilder {
	b.cfg.RecvPollCycles = cycles
	return b
}

// Build validates the accumulated options and fills in defaults for
// everything left unset.
func (b *ConfigBuilder) Build() (Config, error) {
	cfg := b.cfg
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	cfg.setDefaults()
	return cfg, nil
}
