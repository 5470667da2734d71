package leader

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/kubernetes/fake"

	"github.com/jensholdgaard/player-auction/internal/config"
)

func TestIdentity_FromPodName(t *testing.T) {
	t.Setenv("POD_NAME", "auctioneer-abc123")
	if got := identity(); got != "auctioneer-abc123" {
		t.Errorf("identity() = %q, want %q", got, "auctioneer-abc123")
	}
}

func TestIdentity_Hostname(t *testing.T) {
	t.Setenv("POD_NAME", "")
	host, err := os.Hostname()
	if err != nil {
		t.Skip("cannot get hostname")
	}
	if got := identity(); got != host {
		t.Errorf("identity() = %q, want %q", got, host)
	}
}

func TestLead_DisabledRunsDirectly(t *testing.T) {
	ran := false
	err := Lead(context.Background(), config.LeaderElectionConfig{Enabled: false}, slog.Default(),
		func(context.Context) { ran = true },
		func() { t.Error("stopped callback must not run without election") },
	)
	if err != nil {
		t.Fatalf("Lead() error = %v", err)
	}
	if !ran {
		t.Error("lead callback did not run")
	}
}

func TestRun_RejectsInconsistentTimings(t *testing.T) {
	orig := ClientFactory
	ClientFactory = func() (kubernetes.Interface, error) { return fake.NewClientset(), nil }
	t.Cleanup(func() { ClientFactory = orig })

	cfg := config.Defaults().LeaderElection
	cfg.Enabled = true
	cfg.RenewDeadline = cfg.LeaseDuration + time.Second

	err := Run(context.Background(), cfg, slog.Default(), func(context.Context) {}, func() {})
	if err == nil {
		t.Fatal("expected an error when renew deadline exceeds lease duration")
	}
}

func TestLead_EnabledTakesLease(t *testing.T) {
	client := fake.NewClientset()
	orig := ClientFactory
	ClientFactory = func() (kubernetes.Interface, error) { return client, nil }
	t.Cleanup(func() { ClientFactory = orig })
	t.Setenv("POD_NAME", "auctioneer-0")

	cfg := config.LeaderElectionConfig{
		Enabled:        true,
		LeaseName:      "auctioneer-leader",
		LeaseNamespace: "default",
		LeaseDuration:  2 * time.Second,
		RenewDeadline:  time.Second,
		RetryPeriod:    100 * time.Millisecond,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	leading := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- Lead(ctx, cfg, slog.Default(),
			func(ctx context.Context) {
				close(leading)
				<-ctx.Done()
			},
			func() {},
		)
	}()

	select {
	case <-leading:
	case <-time.After(5 * time.Second):
		t.Fatal("never acquired the lease")
	}

	lease, err := client.CoordinationV1().Leases("default").Get(ctx, "auctioneer-leader", metav1.GetOptions{})
	if err != nil {
		t.Fatalf("reading lease: %v", err)
	}
	if got := lease.Spec.HolderIdentity; got == nil || *got != "auctioneer-0" {
		t.Errorf("lease holder = %v, want auctioneer-0", got)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Lead() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Lead did not return after cancel")
	}
}
