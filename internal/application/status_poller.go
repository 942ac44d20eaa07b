package application

import (
	"context"
	"errors"
	"sync"
	"time"

	"shopify-video-layer/internal/domain"
	"shopify-video-layer/internal/ports"

	"github.com/rs/zerolog"
)

const DefaultPollInterval = 5 * time.Second

var ErrPollerClosed = errors.New("status poller closed")

// StatusUpdate is delivered for every poll result. Err is set when the
// lookup failed; polling stops after an error.
type StatusUpdate struct {
	TaskID string
	Status *domain.TaskStatus
	Err    error
}

// Final reports whether no further updates will follow for the task.
func (u StatusUpdate) Final() bool {
	return u.Err != nil || (u.Status != nil && u.Status.Terminal())
}

type timer interface {
	Stop() bool
}

type pollEntry struct {
	timer timer
}

// StatusPoller re-requests task status on a fixed interval until a terminal
// state is seen. Each tracked task has at most one pending timer. There is no
// backoff and a failed lookup is reported once, not retried.
type StatusPoller struct {
	client   ports.VideoClient
	interval time.Duration
	onUpdate func(StatusUpdate)
	metrics  ports.MetricsRecorder
	logger   zerolog.Logger

	afterFunc func(d time.Duration, f func()) timer

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	tracked map[string]*pollEntry
	closed  bool
}

// NewStatusPoller creates a poller. onUpdate is called from the polling
// goroutine and must not block for long.
func NewStatusPoller(client ports.VideoClient, interval time.Duration, onUpdate func(StatusUpdate), metrics ports.MetricsRecorder, logger zerolog.Logger) *StatusPoller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if onUpdate == nil {
		onUpdate = func(StatusUpdate) {}
	}
	if metrics == nil {
		metrics = noopMetrics{}
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &StatusPoller{
		client:   client,
		interval: interval,
		onUpdate: onUpdate,
		metrics:  metrics,
		logger:   logger,
		afterFunc: func(d time.Duration, f func()) timer {
			return time.AfterFunc(d, f)
		},
		ctx:     ctx,
		cancel:  cancel,
		tracked: make(map[string]*pollEntry),
	}
}

// Track polls taskID now and keeps polling until it finishes. Tracking a
// task that is already tracked is a no-op.
func (p *StatusPoller) Track(ctx context.Context, taskID string) error {
	if taskID == "" {
		return domain.MissingParameterError("taskId")
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrPollerClosed
	}
	if _, ok := p.tracked[taskID]; ok {
		p.mu.Unlock()
		return nil
	}
	p.tracked[taskID] = &pollEntry{}
	p.mu.Unlock()

	p.poll(ctx, taskID)
	return nil
}

// Stop cancels the pending poll for taskID, if any.
func (p *StatusPoller) Stop(taskID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.untrackLocked(taskID)
}

// Pending returns the number of tasks with a scheduled poll.
func (p *StatusPoller) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, e := range p.tracked {
		if e.timer != nil {
			n++
		}
	}
	return n
}

// Close cancels every timer and waits for in-flight polls to return.
func (p *StatusPoller) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	for id := range p.tracked {
		p.untrackLocked(id)
	}
	p.mu.Unlock()

	p.cancel()
	p.wg.Wait()
}

func (p *StatusPoller) untrackLocked(taskID string) {
	e, ok := p.tracked[taskID]
	if !ok {
		return
	}
	delete(p.tracked, taskID)
	if e.timer != nil && e.timer.Stop() {
		p.wg.Done()
	}
}

func (p *StatusPoller) poll(ctx context.Context, taskID string) {
	status, err := p.client.GetTaskStatus(ctx, taskID)
	p.metrics.UpstreamCall(videoService, "record_info", err)
	update := StatusUpdate{TaskID: taskID, Status: status, Err: err}

	p.mu.Lock()
	e, ok := p.tracked[taskID]
	if !ok || p.closed {
		p.mu.Unlock()
		return
	}

	if update.Final() {
		delete(p.tracked, taskID)
	} else if e.timer == nil {
		p.wg.Add(1)
		e.timer = p.afterFunc(p.interval, func() { p.fire(taskID, e) })
	}
	p.mu.Unlock()

	switch {
	case err != nil:
		p.logger.Warn().Err(err).Str("task_id", taskID).Msg("Video status poll failed")
	case status.Terminal():
		p.metrics.VideoTaskFinished(status.State)
		p.logger.Info().Str("task_id", taskID).Str("state", status.State).Msg("Video task finished")
	default:
		p.logger.Debug().Str("task_id", taskID).Str("state", status.State).Dur("next_poll", p.interval).Msg("Video task pending")
	}

	p.onUpdate(update)
}

// fire runs a scheduled poll. scheduled is the entry the timer was created
// for; a task stopped and tracked again gets a new entry, so a timer that
// expired before Stop must not touch it.
func (p *StatusPoller) fire(taskID string, scheduled *pollEntry) {
	defer p.wg.Done()

	p.mu.Lock()
	e, ok := p.tracked[taskID]
	if !ok || e != scheduled || p.closed {
		p.mu.Unlock()
		return
	}
	e.timer = nil
	p.mu.Unlock()

	p.poll(p.ctx, taskID)
}
