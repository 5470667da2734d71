package leader_test

import (
	"context"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/k3s"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/tools/clientcmd"

	"github.com/jensholdgaard/player-auction/internal/config"
	"github.com/jensholdgaard/player-auction/internal/leader"
)

// contender runs leader.Lead under a fixed identity and records whether it
// currently owns the auction state.
type contender struct {
	owning atomic.Bool
	cancel context.CancelFunc
	done   chan error
}

func startContender(t *testing.T, ctx context.Context, name string, cfg config.LeaderElectionConfig) *contender {
	t.Helper()
	// identity is read when the election starts.
	t.Setenv("POD_NAME", name)

	c := &contender{done: make(chan error, 1)}
	ctx, c.cancel = context.WithCancel(ctx)
	started := make(chan struct{})
	go func() {
		close(started)
		c.done <- leader.Lead(ctx, cfg, slog.Default(),
			func(ctx context.Context) {
				c.owning.Store(true)
				<-ctx.Done()
				c.owning.Store(false)
			},
			func() {},
		)
	}()
	<-started
	// Give Run time to read POD_NAME before the next contender overrides it.
	time.Sleep(100 * time.Millisecond)
	return c
}

func (c *contender) stop(t *testing.T) {
	t.Helper()
	c.cancel()
	select {
	case err := <-c.done:
		if err != nil {
			t.Fatalf("leader.Lead() error = %v", err)
		}
	case <-time.After(15 * time.Second):
		t.Fatal("timed out waiting for leader.Lead to return")
	}
}

func waitUntil(t *testing.T, timeout time.Duration, what string, cond func() bool) {
	t.Helper()
	deadline := time.After(timeout)
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()
	for !cond() {
		select {
		case <-deadline:
			t.Fatalf("timed out waiting for %s", what)
		case <-ticker.C:
		}
	}
}

// TestFailover_K3s runs two replicas against a real Lease: only one owns the
// auction state at a time, and the standby takes over once the owner steps
// down. Skipped in short mode.
func TestFailover_K3s(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping k3s integration test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	ctr, err := k3s.Run(ctx, "rancher/k3s:v1.31.6-k3s1")
	testcontainers.CleanupContainer(t, ctr)
	if err != nil {
		t.Fatalf("starting k3s container: %v", err)
	}

	kubeConfigYaml, err := ctr.GetKubeConfig(ctx)
	if err != nil {
		t.Fatalf("getting kubeconfig: %v", err)
	}
	restCfg, err := clientcmd.RESTConfigFromKubeConfig(kubeConfigYaml)
	if err != nil {
		t.Fatalf("building rest config: %v", err)
	}
	clientset, err := kubernetes.NewForConfig(restCfg)
	if err != nil {
		t.Fatalf("creating kubernetes client: %v", err)
	}

	origFactory := leader.ClientFactory
	leader.ClientFactory = func() (kubernetes.Interface, error) { return clientset, nil }
	t.Cleanup(func() { leader.ClientFactory = origFactory })

	cfg := config.LeaderElectionConfig{
		Enabled:        true,
		LeaseName:      "auctioneer-failover",
		LeaseNamespace: "default",
		LeaseDuration:  5 * time.Second,
		RenewDeadline:  3 * time.Second,
		RetryPeriod:    time.Second,
	}

	primary := startContender(t, ctx, "auctioneer-0", cfg)
	waitUntil(t, 30*time.Second, "primary to own state", primary.owning.Load)

	standby := startContender(t, ctx, "auctioneer-1", cfg)
	// Several retry periods pass without the standby taking over.
	time.Sleep(3 * cfg.RetryPeriod)
	if standby.owning.Load() {
		t.Fatal("standby owns state while primary holds the lease")
	}

	lease, err := clientset.CoordinationV1().Leases(cfg.LeaseNamespace).Get(ctx, cfg.LeaseName, metav1.GetOptions{})
	if err != nil {
		t.Fatalf("reading lease: %v", err)
	}
	if lease.Spec.HolderIdentity == nil || *lease.Spec.HolderIdentity != "auctioneer-0" {
		t.Fatalf("lease holder = %v, want auctioneer-0", lease.Spec.HolderIdentity)
	}

	primary.stop(t)
	waitUntil(t, 5*time.Second, "primary to step down", func() bool { return !primary.owning.Load() })
	waitUntil(t, 30*time.Second, "standby to take over", standby.owning.Load)
	standby.stop(t)
}
