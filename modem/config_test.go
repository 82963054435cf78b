package modem_test

import (
	"testing"

	"github.com/i4energy/exi-modem/modem"
)

func TestConfigBuilderRequiresADialer(t *testing.T) {
	_, err := modem.NewConfigBuilder().Build()
	if err != modem.ErrNoDialer {
		t.Fatalf("Build() error = %v, want ErrNoDialer", err)
	}
}

func TestConfigBuilderFillsInDefaults(t *testing.T) {
	cfg, err := modem.NewConfigBuilder().WithDialer(&fakeDialer{}).Build()
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if cfg.Resolver == nil {
		t.Fatal("Resolver default not filled in")
	}
	if cfg.Scheduler == nil {
		t.Fatal("Scheduler default not filled in")
	}
	if cfg.InterruptLine == nil {
		t.Fatal("InterruptLine default not filled in")
	}
	if cfg.Logger == nil {
		t.Fatal("Logger default not filled in")
	}
	if cfg.ConnectDelayCycles != modem.DefaultConnectDelayCycles {
		t.Fatalf("ConnectDelayCycles = %d, want %d", cfg.ConnectDelayCycles, modem.DefaultConnectDelayCycles)
	}
	if cfg.RecvPollCycles != modem.DefaultRecvPollCycles {
		t.Fatalf("RecvPollCycles = %d, want %d", cfg.RecvPollCycles, modem.DefaultRecvPollCycles)
	}
}

func TestConfigBuilderHonorsExplicitOverrides(t *testing.T) {
	cfg, err := modem.NewConfigBuilder().
		WithDialer(&fakeDialer{}).
		WithConnectDelayCycles(7).
		WithRecvPollCycles(9).
		Build()
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if cfg.ConnectDelayCycles != 7 || cfg.RecvPollCycles != 9 {
		t.Fatalf("overrides not honored: got %d/%d", cfg.ConnectDelayCycles, cfg.RecvPollCycles)
	}
}

func TestFixedResolverResolvesEveryNumberToTheSameAddress(t *testing.T) {
	r := modem.FixedResolver{Address: "192.0.2.1:9"}
	got, err := r.Resolve("5551212")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if got != "192.0.2.1:9" {
		t.Fatalf("Resolve() = %q, want %q", got, "192.0.2.1:9")
	}
}

func TestFixedResolverRejectsEmptyAddress(t *testing.T) {
	r := modem.FixedResolver{}
	if _, err := r.Resolve("anything"); err == nil {
		t.Fatal("Resolve() with no configured address should fail")
	}
}
