//go:build integration

package containers

import (
	"context"
	"testing"

	tcredpanda "github.com/testcontainers/testcontainers-go/modules/redpanda"
)

// RedpandaContainer wraps a testcontainers Redpanda broker, a
// Kafka-compatible single binary that starts fast enough for tests.
type RedpandaContainer struct {
	Container *tcredpanda.Container
	Broker    string
}

// NewRedpandaContainer starts a Redpanda container.
func NewRedpandaContainer(t *testing.T) *RedpandaContainer {
	t.Helper()
	ctx := context.Background()

	container, err := tcredpanda.Run(ctx, "docker.redpanda.com/redpandadata/redpanda:v24.1.7")
	if err != nil {
		t.Fatalf("failed to start redpanda container: %v", err)
	}

	broker, err := container.KafkaSeedBroker(ctx)
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to get redpanda broker address: %v", err)
	}

	t.Cleanup(func() {
		_ = container.Terminate(ctx)
	})

	return &RedpandaContainer{Container: container, Broker: broker}
}
