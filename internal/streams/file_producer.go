package streams

import (
	"context"
)

// FileTask is one discovered input file routed to a shard.
type FileTask struct {
	Path string
	// Seq is the position of Path in discovery order.
	Seq int
}

// FileProducer publishes discovered input files to a partitioned queue, keyed by path.
//
// Every file is read by exactly one partition worker, which owns a private aggregation
// engine. Engines never share state while ingesting; they are merged once all partitions
// have drained.
//
//go:generate mockgen -source=file_producer.go -destination=./mocks/file_producer_mock.go -package=mocks
type FileProducer interface {
	// Produce publishes paths in order and closes the queue when it returns, on success or error.
	Produce(ctx context.Context, paths []string) error
}

type fileProducer struct {
	queue *PartitionedQueue[FileTask]
}

func NewFileProducer(queue *PartitionedQueue[FileTask]) FileProducer {
	return &fileProducer{
		queue: queue,
	}
}

func (producer *fileProducer) Produce(ctx context.Context, paths []string) error {
	defer producer.queue.Close()

	for seq, path := range paths {
		task := FileTask{Path: path, Seq: seq}
		if err := producer.queue.Publish(ctx, path, task); err != nil {
			return err
		}
		metricFilePublishedTotal.WithLabelValues(streamFile).Inc()
	}
	return nil
}
