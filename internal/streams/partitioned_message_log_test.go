package streams

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPartitionedMessageLog_KeyRouting(t *testing.T) {
	t.Parallel()

	messageLog := NewPartitionedMessageLog(4, 16)

	first, _ := messageLog.Publish("device-42", nil, []byte("a"))
	for i := 0; i < 10; i++ {
		partition, _ := messageLog.Publish("device-42", nil, []byte("b"))
		assert.Equal(t, first, partition, "same key must always land on the same partition")
	}

	// Distinct keys spread across partitions.
	seen := map[int]struct{}{}
	for i := 0; i < 64; i++ {
		partition, _ := messageLog.Publish(fmt.Sprintf("device-%d", i), nil, []byte("c"))
		seen[partition] = struct{}{}
	}
	assert.Greater(t, len(seen), 1)
}

func TestPartitionedMessageLog_OffsetsAreMonotonicPerPartition(t *testing.T) {
	t.Parallel()

	messageLog := NewPartitionedMessageLog(1, 16)

	for want := int64(0); want < 5; want++ {
		_, offset := messageLog.Publish("k", nil, []byte("x"))
		assert.Equal(t, want, offset)
	}

	ctx := context.Background()
	for want := int64(0); want < 5; want++ {
		msg, err := messageLog.Poll(ctx, 0)
		require.NoError(t, err)
		assert.Equal(t, want, msg.Offset, "delivery order matches publish order")
		assert.Equal(t, 0, msg.Partition)
	}
}

func TestPartitionedMessageLog_ConcurrentPublishersKeepOffsetOrder(t *testing.T) {
	t.Parallel()

	const (
		publishers   = 8
		perPublisher = 50
	)
	messageLog := NewPartitionedMessageLog(1, publishers*perPublisher)

	var wg sync.WaitGroup
	for i := 0; i < publishers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perPublisher; j++ {
				messageLog.Publish("k", nil, []byte("x"))
			}
		}()
	}
	wg.Wait()

	ctx := context.Background()
	for want := int64(0); want < publishers*perPublisher; want++ {
		msg, err := messageLog.Poll(ctx, 0)
		require.NoError(t, err)
		assert.Equal(t, want, msg.Offset, "racing publishers must not enqueue with swapped offsets")
	}
}

func TestPartitionedMessageLog_CommitCursor(t *testing.T) {
	t.Parallel()

	messageLog := NewPartitionedMessageLog(2, 16)

	assert.Equal(t, int64(-1), messageLog.CommittedOffset(0), "nothing committed yet")

	messageLog.CommitOffset(0, 3)
	assert.Equal(t, int64(3), messageLog.CommittedOffset(0))
	assert.Equal(t, int64(-1), messageLog.CommittedOffset(1), "cursors are per-partition")

	// Stale commits never move the cursor backwards.
	messageLog.CommitOffset(0, 1)
	assert.Equal(t, int64(3), messageLog.CommittedOffset(0))

	messageLog.CommitOffset(0, 4)
	assert.Equal(t, int64(4), messageLog.CommittedOffset(0))

	// Out-of-range partitions are a no-op.
	messageLog.CommitOffset(9, 1)
	assert.Equal(t, int64(-1), messageLog.CommittedOffset(9))
}

func TestPartitionedMessageLog_PollHonorsContext(t *testing.T) {
	t.Parallel()

	messageLog := NewPartitionedMessageLog(1, 16)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		_, err := messageLog.Poll(ctx, 0)
		done <- err
	}()

	cancel()
	select {
	case err := <-done:
		assert.True(t, errors.Is(err, context.Canceled))
	case <-time.After(2 * time.Second):
		t.Fatal("Poll did not unblock on context cancellation")
	}
}

func TestPartitionedMessageLog_CloseDrainsThenFails(t *testing.T) {
	t.Parallel()

	messageLog := NewPartitionedMessageLog(1, 16)
	messageLog.Publish("k", nil, []byte("pending"))
	messageLog.Close()

	msg, err := messageLog.Poll(context.Background(), 0)
	require.NoError(t, err, "buffered messages drain after close")
	assert.Equal(t, []byte("pending"), msg.Payload)

	_, err = messageLog.Poll(context.Background(), 0)
	assert.True(t, errors.Is(err, ErrLogClosed))
}

func TestPartitionedMessageLog_HeadersAndPayloadPassThrough(t *testing.T) {
	t.Parallel()

	messageLog := NewPartitionedMessageLog(1, 16)
	headers := map[string]string{"tenant-id": "t-1"}
	payload := []byte(`{"deviceId":"d"}`)

	messageLog.Publish("k", headers, payload)

	msg, err := messageLog.Poll(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, "k", msg.Key)
	assert.Equal(t, headers, msg.Headers)
	assert.Equal(t, payload, msg.Payload)
	assert.Equal(t, "t-1", msg.Header("tenant-id"))
}

func TestPartitionedMessageLog_Defaults(t *testing.T) {
	t.Parallel()

	messageLog := NewPartitionedMessageLog(0, 0)
	assert.Equal(t, 8, messageLog.PartitionCount())

	_, err := messageLog.Poll(context.Background(), -1)
	assert.Error(t, err)
	_, err = messageLog.Poll(context.Background(), 8)
	assert.Error(t, err)
}
