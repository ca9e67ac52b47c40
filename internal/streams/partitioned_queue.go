package streams

import (
	"context"
	"encoding/binary"
	"hash/fnv"
	"sync"
)

// PartitionedQueue is a set of buffered channels. Messages sharing a partition key
// always land on the same channel, so one reader per partition sees them in publish order.
type PartitionedQueue[T any] struct {
	partitions []chan T
	closeOnce  sync.Once
}

func NewPartitionedQueue[T any](numPartitions, buffer int) *PartitionedQueue[T] {
	if numPartitions < 1 {
		numPartitions = 1
	}
	if buffer < 0 {
		buffer = 0
	}
	channels := make([]chan T, numPartitions)
	for i := range channels {
		channels[i] = make(chan T, buffer)
	}
	return &PartitionedQueue[T]{partitions: channels}
}

func (queue *PartitionedQueue[T]) PartitionCount() int { return len(queue.partitions) }

// Partition returns the receive side of partition idx.
func (queue *PartitionedQueue[T]) Partition(idx int) <-chan T { return queue.partitions[idx] }

// PartitionFor returns the partition a key is routed to.
func (queue *PartitionedQueue[T]) PartitionFor(partitionKey string) int {
	return partitionIndex(partitionKey, len(queue.partitions))
}

// Publish blocks until msg is buffered or ctx is done.
func (queue *PartitionedQueue[T]) Publish(ctx context.Context, partitionKey string, msg T) error {
	ch := queue.partitions[queue.PartitionFor(partitionKey)]
	select {
	case <-ctx.Done():
		return ctx.Err()
	case ch <- msg:
		return nil
	}
}

// Close closes every partition. Safe to call more than once; Publish after Close panics.
func (queue *PartitionedQueue[T]) Close() {
	queue.closeOnce.Do(func() {
		for _, ch := range queue.partitions {
			close(ch)
		}
	})
}

func partitionIndex(key string, n int) int {
	hash := fnv.New32a()
	_, _ = hash.Write([]byte(key))
	sum := hash.Sum(nil)
	v := binary.LittleEndian.Uint32(sum)
	return int(v % uint32(n))
}
