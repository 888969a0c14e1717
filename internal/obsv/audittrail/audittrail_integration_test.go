//go:build integration

package audittrail_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	"ims/internal/domain"
	"ims/internal/obsv/audittrail"
	"ims/internal/store"
	"ims/pkg/testutil/containers"
)

func TestTrailPublishesStoreWrites(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	ctx := context.Background()
	broker := containers.NewRedpandaContainer(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	trail, err := audittrail.New(ctx, []string{broker.Broker}, "", logger)
	require.NoError(t, err)
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = trail.Close(closeCtx)
	}()

	number := domain.IncidentNumber(7)
	trail.Publish(store.WriteEvent{
		Class:          store.WriteClassIncident,
		Event:          "2024",
		IncidentNumber: &number,
	})

	flushCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	require.NoError(t, trail.Flush(flushCtx))

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(broker.Broker),
		kgo.ConsumeTopics(audittrail.DefaultTopic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	require.NoError(t, err)
	defer consumer.Close()

	pollCtx, cancelPoll := context.WithTimeout(ctx, 15*time.Second)
	defer cancelPoll()
	fetches := consumer.PollFetches(pollCtx)
	require.Empty(t, fetches.Errors())

	records := fetches.Records()
	require.NotEmpty(t, records)

	var rec audittrail.Record
	require.NoError(t, json.Unmarshal(records[0].Value, &rec))
	assert.Equal(t, "Incident", rec.Class)
	assert.Equal(t, "2024", rec.Event)
	require.NotNil(t, rec.IncidentNumber)
	assert.Equal(t, 7, *rec.IncidentNumber)
}
