package invoicejob

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net"
	"sync"
	"time"

	"github.com/goliatone/go-command/dispatcher"
	errorslib "github.com/goliatone/go-errors"
	"github.com/goliatone/go-invoices/command"
	"github.com/goliatone/go-invoices/invoice"
	job "github.com/goliatone/go-job"
)

const (
	DefaultPruneTaskID   = "invoice:prune-exports"
	DefaultPruneTaskPath = "invoice:prune-exports"
)

var (
	backoffRand   = rand.New(rand.NewSource(time.Now().UnixNano()))
	backoffRandMu sync.Mutex
)

// PruneDispatch dispatches a prune command.
type PruneDispatch func(ctx context.Context, msg command.PruneExports) error

// TaskConfig configures the export history prune task.
type TaskConfig struct {
	ID             string
	Path           string
	Config         job.Config
	HandlerOptions job.HandlerOptions
	RetryPolicy    RetryPolicy
	Logger         invoice.Logger
	Dispatch       PruneDispatch
}

// PruneTask removes old export history on a schedule. It is a go-job task
// so queue-driven deployments can run it too.
type PruneTask struct {
	id             string
	path           string
	config         job.Config
	handlerOptions job.HandlerOptions
	retryPolicy    RetryPolicy
	logger         invoice.Logger
	dispatch       PruneDispatch
}

// NewPruneTask creates a prune task. Without Dispatch the command goes
// through the go-command dispatcher.
func NewPruneTask(cfg TaskConfig) *PruneTask {
	logger := cfg.Logger
	if logger == nil {
		logger = invoice.NopLogger{}
	}
	id := cfg.ID
	if id == "" {
		id = DefaultPruneTaskID
	}
	path := cfg.Path
	if path == "" {
		path = DefaultPruneTaskPath
	}
	dispatch := cfg.Dispatch
	if dispatch == nil {
		dispatch = func(ctx context.Context, msg command.PruneExports) error {
			return dispatcher.Dispatch(ctx, msg)
		}
	}

	return &PruneTask{
		id:             id,
		path:           path,
		config:         cfg.Config,
		handlerOptions: cfg.HandlerOptions,
		retryPolicy:    cfg.RetryPolicy,
		logger:         logger,
		dispatch:       dispatch,
	}
}

func (t *PruneTask) GetID() string { return t.id }

// GetHandler runs the task outside a queue with default parameters.
func (t *PruneTask) GetHandler() func() error {
	return func() error {
		if t == nil {
			return invoice.NewError(invoice.KindInternal, "task is nil", nil)
		}
		return t.Execute(context.Background(), t.Message(0))
	}
}

func (t *PruneTask) GetHandlerConfig() job.HandlerOptions { return t.handlerOptions }

func (t *PruneTask) GetConfig() job.Config { return t.config }

func (t *PruneTask) GetPath() string { return t.path }

// GetEngine returns nil because this task is code-driven.
func (t *PruneTask) GetEngine() job.Engine { return nil }

// Message builds an execution message. A zero maxAge defers to the
// handler's retention.
func (t *PruneTask) Message(maxAge time.Duration) *job.ExecutionMessage {
	params := map[string]any{}
	if maxAge > 0 {
		params["max_age"] = maxAge.String()
	}
	return &job.ExecutionMessage{
		JobID:      t.id,
		ScriptPath: t.path,
		Config:     t.config,
		Parameters: params,
	}
}

// Execute prunes history, retrying transient failures per the policy.
func (t *PruneTask) Execute(ctx context.Context, msg *job.ExecutionMessage) error {
	if t == nil {
		return invoice.NewError(invoice.KindInternal, "task is nil", nil)
	}
	if ctx == nil {
		ctx = context.Background()
	}

	maxAge, err := decodeMaxAge(msg)
	if err != nil {
		return err
	}

	var removed int64
	policy := t.retryPolicy
	attempt := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := t.dispatch(ctx, command.PruneExports{MaxAge: maxAge, Result: &removed})
		if err == nil {
			t.logger.Infof("export history pruned: removed=%d", removed)
			return nil
		}

		if !policy.shouldRetry(err) || attempt >= policy.MaxRetries {
			t.logger.Errorf("export history prune failed: %v", err)
			return err
		}

		attempt++
		delay := policy.backoffDelay(attempt)
		t.logger.Debugf("export history prune retry %d in %s: %v", attempt, delay, err)
		if delay > 0 {
			if serr := sleepWithContext(ctx, delay); serr != nil {
				return serr
			}
		}
	}
}

func decodeMaxAge(msg *job.ExecutionMessage) (time.Duration, error) {
	if msg == nil || msg.Parameters == nil {
		return 0, nil
	}
	raw, ok := msg.Parameters["max_age"]
	if !ok || raw == nil {
		return 0, nil
	}
	switch value := raw.(type) {
	case time.Duration:
		return value, nil
	case string:
		d, err := time.ParseDuration(value)
		if err != nil {
			return 0, invoice.NewError(invoice.KindValidation, "max_age is invalid", err)
		}
		return d, nil
	case float64:
		// JSON payloads carry nanoseconds as numbers
		return time.Duration(value), nil
	default:
		return 0, invoice.NewError(invoice.KindValidation, fmt.Sprintf("max_age has unsupported type %T", raw), nil)
	}
}

// Every runs the task's handler on a fixed interval until ctx is done.
// Failures are logged by Execute and do not stop the loop.
func (t *PruneTask) Every(ctx context.Context, interval time.Duration) {
	if t == nil || interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = t.Execute(ctx, t.Message(0))
		}
	}
}

// RetryPolicy determines retry behavior for retryable errors.
type RetryPolicy struct {
	MaxRetries int
	Backoff    job.BackoffConfig
	Retryable  func(error) bool
}

func (p RetryPolicy) shouldRetry(err error) bool {
	if err == nil || p.MaxRetries <= 0 {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if p.Retryable != nil {
		return p.Retryable(err)
	}
	return defaultRetryable(err)
}

func (p RetryPolicy) backoffDelay(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}
	return computeBackoffDelay(attempt, p.Backoff)
}

func defaultRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if errorslib.IsRetryableError(err) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	var invErr *invoice.Error
	if errors.As(err, &invErr) {
		switch invErr.Kind {
		case invoice.KindTimeout, invoice.KindInternal:
			return true
		}
	}
	return false
}

func computeBackoffDelay(attempt int, cfg job.BackoffConfig) time.Duration {
	if attempt <= 0 {
		return 0
	}

	interval := cfg.Interval
	if interval <= 0 {
		interval = 250 * time.Millisecond
	}

	maxInterval := cfg.MaxInterval
	if maxInterval <= 0 {
		maxInterval = 5 * time.Second
	}

	switch cfg.Strategy {
	case job.BackoffFixed:
		return applyJitter(interval, cfg.Jitter)
	case job.BackoffExponential:
		delay := interval
		for i := 1; i < attempt; i++ {
			delay *= 2
			if delay > maxInterval {
				delay = maxInterval
				break
			}
		}
		return applyJitter(delay, cfg.Jitter)
	default:
		return 0
	}
}

func applyJitter(delay time.Duration, jitter bool) time.Duration {
	if !jitter || delay <= 0 {
		return delay
	}
	// +/-50% jitter
	half := float64(delay) * 0.5
	backoffRandMu.Lock()
	offset := (backoffRand.Float64()*2 - 1) * half
	backoffRandMu.Unlock()
	jittered := float64(delay) + offset
	if jittered < 0 {
		return 0
	}
	return time.Duration(jittered)
}

func sleepWithContext(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
