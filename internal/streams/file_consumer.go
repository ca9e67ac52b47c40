package streams

import (
	"context"
	"fmt"
	"runtime/debug"

	"edge-log-analytics/internal/shared/loggers"
	"edge-log-analytics/internal/shared/metrics"
	"edge-log-analytics/internal/shared/svcerrors"

	"golang.org/x/sync/errgroup"
)

// FileHandler processes one task on behalf of partition. A non-nil error stops every worker.
type FileHandler func(ctx context.Context, partition int, task FileTask) error

//go:generate mockgen -source=file_consumer.go -destination=./mocks/file_consumer_mock.go -package=mocks
type FileConsumer interface {
	// Run drains every partition until the queue is closed, ctx is done or a handler fails.
	Run(ctx context.Context) error
}

type fileConsumer struct {
	queue   *PartitionedQueue[FileTask]
	handler FileHandler
	logger  loggers.Logger
}

func NewFileConsumer(queue *PartitionedQueue[FileTask], handler FileHandler, logger loggers.Logger) FileConsumer {
	return &fileConsumer{
		queue:   queue,
		handler: handler,
		logger:  logger,
	}
}

// Run spawns 1 worker goroutine per partition.
func (consumer *fileConsumer) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	for partition := 0; partition < consumer.queue.PartitionCount(); partition++ {
		ch := consumer.queue.Partition(partition)
		g.Go(func() error {
			return consumer.runPartitionWorker(gctx, partition, ch)
		})
	}
	return g.Wait()
}

func (consumer *fileConsumer) runPartitionWorker(ctx context.Context, partition int, ch <-chan FileTask) error {
	workerLogger := consumer.logger.With().Int(loggers.FieldShard, partition).Logger()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case task, ok := <-ch:
			if !ok {
				workerLogger.Debug().Msg("partition drained")
				return nil
			}
			taskCtx := workerLogger.With().
				Str(loggers.FieldFile, task.Path).
				Logger().WithContext(ctx)
			if err := consumer.consume(taskCtx, partition, task); err != nil {
				return err
			}
		}
	}
}

func (consumer *fileConsumer) consume(ctx context.Context, partition int, task FileTask) (err error) {
	defer func() {
		if r := recover(); r != nil {
			loggers.Ctx(ctx).Error().
				Bytes(loggers.FieldErrorStack, debug.Stack()).
				Msgf("consumer panic recovered: %v", r)

			var panicErr error
			if e, ok := r.(error); ok {
				panicErr = e
			} else {
				panicErr = fmt.Errorf("%v", r)
			}
			err = svcerrors.NewInternalErrorPanic(panicErr)
		}

		errorCode := metrics.ValueNoError
		if err != nil {
			svcErr, ok := svcerrors.AsServiceError(err)
			if !ok {
				svcErr = svcerrors.NewInternalErrorUndefined(err)
			}
			errorCode = svcErr.Code
		}
		metricFileConsumedTotal.WithLabelValues(streamFile, errorCode).Inc()
	}()

	return consumer.handler(ctx, partition, task)
}
