package streams

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"testing"

	"edge-log-analytics/internal/shared/loggers"
	"edge-log-analytics/internal/shared/svcerrors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func testLogger(t *testing.T) loggers.Logger {
	t.Helper()

	logger, err := loggers.NewWithWriter("debug", io.Discard)
	require.NoError(t, err)
	return logger
}

func runPipeline(t *testing.T, partitions int, paths []string, handler FileHandler) error {
	t.Helper()

	queue := NewPartitionedQueue[FileTask](partitions, 2)
	producer := NewFileProducer(queue)
	consumer := NewFileConsumer(queue, handler, testLogger(t))

	g, gctx := errgroup.WithContext(context.Background())
	g.Go(func() error { return producer.Produce(gctx, paths) })
	g.Go(func() error { return consumer.Run(gctx) })
	return g.Wait()
}

func TestFileConsumer_EveryFileHandledOnceByItsPartition(t *testing.T) {
	t.Parallel()

	paths := make([]string, 0, 40)
	for i := 0; i < 40; i++ {
		paths = append(paths, fmt.Sprintf("/logs/%02d.log", i))
	}

	var mu sync.Mutex
	seen := map[string]int{}
	partitionOf := map[string]int{}
	seqOf := map[string]int{}

	err := runPipeline(t, 3, paths, func(ctx context.Context, partition int, task FileTask) error {
		mu.Lock()
		defer mu.Unlock()
		seen[task.Path]++
		partitionOf[task.Path] = partition
		seqOf[task.Path] = task.Seq
		return nil
	})
	require.NoError(t, err)

	require.Len(t, seen, len(paths))
	for seq, path := range paths {
		assert.Equal(t, 1, seen[path], path)
		assert.Equal(t, partitionIndex(path, 3), partitionOf[path], path)
		assert.Equal(t, seq, seqOf[path], path)
	}
}

func TestFileConsumer_PartitionPreservesPublishOrder(t *testing.T) {
	t.Parallel()

	paths := []string{"a", "b", "c", "d", "e", "f", "g", "h"}

	var mu sync.Mutex
	order := map[int][]int{}
	err := runPipeline(t, 2, paths, func(ctx context.Context, partition int, task FileTask) error {
		mu.Lock()
		defer mu.Unlock()
		order[partition] = append(order[partition], task.Seq)
		return nil
	})
	require.NoError(t, err)

	for partition, seqs := range order {
		assert.True(t, sort.IntsAreSorted(seqs), "partition %d: %v", partition, seqs)
	}
}

func TestFileConsumer_HandlerErrorStopsRun(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	paths := []string{"ok.log", "bad.log", "later.log"}

	err := runPipeline(t, 1, paths, func(ctx context.Context, partition int, task FileTask) error {
		if task.Path == "bad.log" {
			return boom
		}
		return nil
	})
	assert.ErrorIs(t, err, boom)
}

func TestFileConsumer_PanicBecomesInternalError(t *testing.T) {
	t.Parallel()

	err := runPipeline(t, 2, []string{"panic.log"}, func(ctx context.Context, partition int, task FileTask) error {
		panic("handler exploded")
	})
	require.Error(t, err)

	svcErr, ok := svcerrors.AsServiceError(err)
	require.True(t, ok)
	assert.Equal(t, "SYS_9000", svcErr.Code)
	assert.True(t, svcErr.IsInternalError())
}

func TestFileConsumer_StopsOnCancelledContext(t *testing.T) {
	t.Parallel()

	queue := NewPartitionedQueue[FileTask](2, 0)
	consumer := NewFileConsumer(queue, func(ctx context.Context, partition int, task FileTask) error {
		return nil
	}, testLogger(t))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := consumer.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFileProducer_ClosesQueueOnCancel(t *testing.T) {
	t.Parallel()

	queue := NewPartitionedQueue[FileTask](1, 0)
	producer := NewFileProducer(queue)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := producer.Produce(ctx, []string{"never.log"})
	assert.ErrorIs(t, err, context.Canceled)

	_, ok := <-queue.Partition(0)
	assert.False(t, ok)
}
