// Package consumer drains the call queue into the analysis pipeline with a
// fixed ceiling on in-flight work.
package consumer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/lthibault/jitterbug/v2"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"

	"github.com/JaimeStill/vigil/internal/agents"
	"github.com/JaimeStill/vigil/internal/calls"
	"github.com/JaimeStill/vigil/internal/pipeline"
	"github.com/JaimeStill/vigil/internal/queue"
	"github.com/JaimeStill/vigil/internal/webhook"
	"github.com/JaimeStill/vigil/internal/workitem"
	"github.com/JaimeStill/vigil/pkg/metrics"
)

// ProcessFunc analyses one job and returns the stored call.
type ProcessFunc func(ctx context.Context, job pipeline.Job) (*calls.Call, error)

// Options controls polling and acknowledgement.
type Options struct {
	Concurrency   int
	BatchSize     int
	Visibility    time.Duration
	PollInterval  time.Duration
	PollJitter    time.Duration
	RetryDelay    time.Duration
	MaxDeliveries int
	RestartDelay  time.Duration
	// CallTimeout bounds one analysis; zero leaves it unbounded.
	CallTimeout time.Duration
}

// Consumer is the supervised polling loop.
type Consumer struct {
	queue   queue.Queue
	agents  agents.System
	calls   calls.System
	webhook webhook.Sender
	process ProcessFunc
	opts    Options
	sem     *semaphore.Weighted
	wg      sync.WaitGroup
	logger  *logrus.Entry
}

// New creates a Consumer. Zero options take their defaults.
func New(
	q queue.Queue,
	agentSys agents.System,
	callSys calls.System,
	hooks webhook.Sender,
	process ProcessFunc,
	opts Options,
	logger *logrus.Entry,
) *Consumer {
	opts = opts.withDefaults()
	return &Consumer{
		queue:   q,
		agents:  agentSys,
		calls:   callSys,
		webhook: hooks,
		process: process,
		opts:    opts,
		sem:     semaphore.NewWeighted(int64(opts.Concurrency)),
		logger:  logger.WithField("system", "consumer"),
	}
}

func (o Options) withDefaults() Options {
	if o.Concurrency <= 0 {
		o.Concurrency = 5
	}
	if o.BatchSize <= 0 {
		o.BatchSize = o.Concurrency
	}
	if o.Visibility <= 0 {
		o.Visibility = 15 * time.Minute
	}
	if o.PollInterval <= 0 {
		o.PollInterval = 2 * time.Second
	}
	if o.RetryDelay <= 0 {
		o.RetryDelay = 30 * time.Second
	}
	if o.MaxDeliveries <= 0 {
		o.MaxDeliveries = 5
	}
	if o.RestartDelay <= 0 {
		o.RestartDelay = 5 * time.Second
	}
	return o
}

// Run polls until ctx is cancelled, then waits for in-flight work. A
// failed polling cycle is logged and restarted after RestartDelay.
func (c *Consumer) Run(ctx context.Context) {
	c.logger.WithField("concurrency", c.opts.Concurrency).Info("consumer started")

	for {
		err := c.poll(ctx)
		if ctx.Err() != nil {
			break
		}

		c.logger.WithError(err).Errorf("polling failed, restarting in %s", c.opts.RestartDelay)

		if !sleep(ctx, c.opts.RestartDelay) {
			break
		}
	}

	c.wg.Wait()
	c.logger.Info("consumer stopped")
}

func (c *Consumer) poll(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("poll panic: %v", r)
		}
	}()

	ticker := jitterbug.New(c.opts.PollInterval, &jitterbug.Norm{Stdev: c.opts.PollJitter, Mean: 0})
	defer ticker.Stop()

	for {
		slots, err := c.acquire(ctx)
		if err != nil {
			return err
		}

		msgs, err := c.queue.Receive(ctx, slots, c.opts.Visibility)
		if err != nil {
			c.sem.Release(int64(slots))
			return fmt.Errorf("receive: %w", err)
		}

		if unused := slots - len(msgs); unused > 0 {
			c.sem.Release(int64(unused))
		}

		for _, m := range msgs {
			c.dispatch(ctx, m)
		}

		if len(msgs) > 0 {
			continue
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// acquire blocks for one slot, then takes any further free slots up to
// the batch size without blocking.
func (c *Consumer) acquire(ctx context.Context) (int, error) {
	if err := c.sem.Acquire(ctx, 1); err != nil {
		return 0, err
	}
	slots := 1
	for slots < c.opts.BatchSize && c.sem.TryAcquire(1) {
		slots++
	}
	return slots, nil
}

// dispatch runs m on its own goroutine. The caller already holds one
// semaphore slot for it; the goroutine always returns that slot.
func (c *Consumer) dispatch(ctx context.Context, m queue.Message) {
	c.wg.Add(1)
	metrics.IncreaseInflight()

	go func() {
		defer c.wg.Done()
		defer c.sem.Release(1)
		defer metrics.DecreaseInflight()
		defer func() {
			if r := recover(); r != nil {
				c.fail(context.WithoutCancel(ctx), m, nil, fmt.Errorf("panic: %v", r))
			}
		}()

		c.Handle(ctx, m)
	}()
}

// Handle processes a single received message and settles it on the queue.
func (c *Consumer) Handle(ctx context.Context, m queue.Message) {
	logger := c.logger.WithFields(logrus.Fields{
		"message_id": m.ID,
		"deliveries": m.Deliveries,
	})

	item, err := workitem.Decode(m.Body)
	if err != nil {
		logger.WithError(err).Error("malformed work item")
		metrics.IncreaseMessagesTotal(metrics.OutcomeMalformed)
		if err := c.queue.DeadLetter(context.WithoutCancel(ctx), m.Receipt, err.Error()); err != nil {
			logger.WithError(err).Error("dead-letter malformed message")
		}
		return
	}

	logger = logger.WithFields(logrus.Fields{
		"call_id":  item.CallID,
		"owner_id": item.OwnerID,
	})

	pctx, cancel := c.callContext(ctx)
	defer cancel()

	start := time.Now()
	call, err := c.run(pctx, item)
	metrics.ObserveStage("pipeline", start, err)

	if err != nil {
		if ctx.Err() != nil {
			// Shutdown: leave the message to reappear after its visibility timeout.
			logger.WithError(err).Warn("analysis interrupted by shutdown")
			return
		}
		logger.WithError(err).Error("analysis failed")
		c.fail(ctx, m, item, err)
		return
	}

	sctx := context.WithoutCancel(ctx)

	if item.WebhookURL != "" {
		if err := c.webhook.Success(sctx, item.WebhookURL, call); err != nil {
			logger.WithError(err).Error("success webhook")
		}
	}

	if err := c.queue.Delete(sctx, m.Receipt); err != nil {
		logger.WithError(err).Error("acknowledge message")
	}

	metrics.IncreaseMessagesTotal(metrics.OutcomeCompleted)
	logger.WithField("duration", time.Since(start).String()).Info("call analysed")
}

func (c *Consumer) run(ctx context.Context, item *workitem.CallWorkItem) (*calls.Call, error) {
	job := pipeline.Job{Item: item}

	if item.AgentID != "" {
		agent, err := c.agents.Upsert(ctx, item.OwnerID, item.AgentID)
		if err != nil {
			return nil, fmt.Errorf("upsert agent: %w", err)
		}
		job.AgentID = agent.ID
	}

	return c.process(ctx, job)
}

// fail releases m for another attempt, or dead-letters it once its
// deliveries are exhausted. A dead-lettered call is marked failed and the
// failure webhook is sent.
func (c *Consumer) fail(ctx context.Context, m queue.Message, item *workitem.CallWorkItem, cause error) {
	ctx = context.WithoutCancel(ctx)
	logger := c.logger.WithField("message_id", m.ID)

	if item == nil {
		if decoded, err := workitem.Decode(m.Body); err == nil {
			item = decoded
		}
	}

	if m.Deliveries < c.opts.MaxDeliveries && !permanent(cause) {
		if err := c.queue.Release(ctx, m.Receipt, c.opts.RetryDelay, cause); err != nil {
			logger.WithError(err).Error("release message")
		}
		metrics.IncreaseMessagesTotal(metrics.OutcomeFailed)
		return
	}

	if err := c.queue.DeadLetter(ctx, m.Receipt, cause.Error()); err != nil {
		logger.WithError(err).Error("dead-letter message")
	}
	metrics.IncreaseMessagesTotal(metrics.OutcomeDeadLettered)

	if item == nil {
		return
	}

	if err := c.calls.MarkFailed(ctx, item.CallID); err != nil && !errors.Is(err, calls.ErrNotFound) {
		logger.WithError(err).Error("mark call failed")
	}

	if item.WebhookURL != "" {
		if err := c.webhook.Failure(ctx, item.WebhookURL, item.CallID, cause); err != nil {
			logger.WithError(err).Error("failure webhook")
		}
	}
}

func (c *Consumer) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.opts.CallTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.opts.CallTimeout)
}

// permanent reports failures that no redelivery can fix.
func permanent(err error) bool {
	return workitem.IsMalformed(err) || errors.Is(err, pipeline.ErrInvalidJob)
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
