package streams

import (
	"context"
	"encoding/binary"
	"errors"
	"hash/fnv"
	"sync"

	"telemetry-engine/internal/events"
)

// ErrLogClosed is returned by Poll once the log is closed and drained.
var ErrLogClosed = errors.New("message log closed")

// PartitionedMessageLog is an in-process stand-in for a partitioned,
// log-based broker topic. Messages are routed to a partition by key hash;
// each partition is an ordered lane with a monotonically increasing offset
// sequence and a committed-offset cursor advanced by the consumer.
//
// A single consumer worker owns each partition, so commit order within a
// partition matches delivery order. The committed cursor is the only
// delivery-guarantee mechanism; there is no separate acknowledgment.
type PartitionedMessageLog struct {
	partitions []*logPartition
}

type logPartition struct {
	ch chan events.RawTelemetryMessage

	// pubMu is held across offset assignment and the enqueue, so concurrent
	// publishers to one partition cannot interleave offsets out of delivery
	// order. The committed cursor has its own lock; commits never wait on a
	// full lane.
	pubMu      sync.Mutex
	nextOffset int64

	mu        sync.Mutex
	committed int64
}

const (
	defaultNumPartitions = 8
	defaultBuffer        = 1024
)

// NewPartitionedMessageLog creates a log with the given partition count and
// per-partition buffer. Non-positive arguments select the defaults.
func NewPartitionedMessageLog(numPartitions, buffer int) *PartitionedMessageLog {
	if numPartitions <= 0 {
		numPartitions = defaultNumPartitions
	}
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	partitions := make([]*logPartition, numPartitions)
	for i := range partitions {
		partitions[i] = &logPartition{
			ch:        make(chan events.RawTelemetryMessage, buffer),
			committed: -1,
		}
	}
	return &PartitionedMessageLog{partitions: partitions}
}

func (log *PartitionedMessageLog) PartitionCount() int { return len(log.partitions) }

// Publish routes the message to a partition by key hash and assigns it the
// partition's next offset. Messages with the same key land on the same
// partition and are delivered in publish order.
func (log *PartitionedMessageLog) Publish(partitionKey string, headers map[string]string, payload []byte) (int, int64) {
	idx := partitionIndex(partitionKey, len(log.partitions))
	p := log.partitions[idx]

	p.pubMu.Lock()
	offset := p.nextOffset
	p.nextOffset++
	p.ch <- events.RawTelemetryMessage{
		Partition: idx,
		Offset:    offset,
		Key:       partitionKey,
		Headers:   headers,
		Payload:   payload,
	}
	p.pubMu.Unlock()

	metricMessagesPublishedTotal.WithLabelValues(topicTelemetry).Inc()
	return idx, offset
}

// Poll blocks until a message is available on the partition, the log is
// closed, or ctx is cancelled.
func (log *PartitionedMessageLog) Poll(ctx context.Context, partition int) (events.RawTelemetryMessage, error) {
	if partition < 0 || partition >= len(log.partitions) {
		return events.RawTelemetryMessage{}, errors.New("partition out of range")
	}
	select {
	case <-ctx.Done():
		return events.RawTelemetryMessage{}, ctx.Err()
	case msg, ok := <-log.partitions[partition].ch:
		if !ok {
			return events.RawTelemetryMessage{}, ErrLogClosed
		}
		return msg, nil
	}
}

// CommitOffset advances the committed cursor for a partition. Cursors only
// move forward; a stale commit is ignored.
func (log *PartitionedMessageLog) CommitOffset(partition int, offset int64) {
	if partition < 0 || partition >= len(log.partitions) {
		return
	}
	p := log.partitions[partition]
	p.mu.Lock()
	if offset > p.committed {
		p.committed = offset
	}
	p.mu.Unlock()
	metricOffsetsCommittedTotal.WithLabelValues(topicTelemetry).Inc()
}

// CommittedOffset returns the committed cursor for a partition, or -1 when
// nothing has been committed yet.
func (log *PartitionedMessageLog) CommittedOffset(partition int) int64 {
	if partition < 0 || partition >= len(log.partitions) {
		return -1
	}
	p := log.partitions[partition]
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.committed
}

// Close closes every partition lane. Publishing after Close panics; Poll
// drains remaining messages and then returns ErrLogClosed.
func (log *PartitionedMessageLog) Close() {
	for _, p := range log.partitions {
		close(p.ch)
	}
}

func partitionIndex(key string, n int) int {
	hash := fnv.New32a()
	_, _ = hash.Write([]byte(key))
	sum := hash.Sum(nil)
	v := binary.LittleEndian.Uint32(sum)
	return int(v % uint32(n))
}
