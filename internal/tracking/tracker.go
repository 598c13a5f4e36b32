// Package tracking keeps externally-sent messages in sync with current
// queue state. Each tracked message gets one periodic refresh task;
// starting a new task for the same message supersedes the old one, and a
// permanent edit failure deregisters the task so a deleted message is
// never retried forever.
package tracking

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/teralabs/queuewatch/internal/messaging"
)

// BuildFunc produces the current payload for a tracked message.
type BuildFunc func(ctx context.Context) (messaging.Payload, error)

type task struct {
	cancel context.CancelFunc
}

// Tracker is a concurrent-safe registry of refresh tasks keyed by
// message id.
type Tracker struct {
	mu      sync.Mutex
	surface messaging.Surface
	build   BuildFunc
	tasks   map[string]*task
	logger  *zap.Logger
}

// NewTracker creates a Tracker that edits messages on surface with
// payloads from build.
func NewTracker(surface messaging.Surface, build BuildFunc, logger *zap.Logger) *Tracker {
	return &Tracker{
		surface: surface,
		build:   build,
		tasks:   make(map[string]*task),
		logger:  logger,
	}
}

// Bootstrap posts a fresh status message to channelID and begins
// tracking it. On any failure nothing is registered; the caller decides
// whether to retry.
func (t *Tracker) Bootstrap(ctx context.Context, channelID string, interval time.Duration) (*messaging.Message, error) {
	payload, err := t.build(ctx)
	if err != nil {
		return nil, err
	}
	msg, err := t.surface.Send(ctx, channelID, payload)
	if err != nil {
		return nil, err
	}
	t.Start(ctx, msg, interval)
	return msg, nil
}

// Start begins refreshing msg every interval. A prior task for the same
// message id is cancelled before the new one registers, so two tasks can
// never edit the same message concurrently. The task stops when ctx is
// cancelled, when stopped by id, or when an edit fails permanently.
func (t *Tracker) Start(ctx context.Context, msg *messaging.Message, interval time.Duration) {
	taskCtx, cancel := context.WithCancel(ctx)
	tk := &task{cancel: cancel}

	t.mu.Lock()
	if old, ok := t.tasks[msg.ID]; ok {
		old.cancel()
	}
	t.tasks[msg.ID] = tk
	t.mu.Unlock()

	t.logger.Info("tracking started",
		zap.String("message", msg.ID),
		zap.Duration("interval", interval),
	)
	go t.run(taskCtx, tk, msg, interval)
}

func (t *Tracker) run(ctx context.Context, tk *task, msg *messaging.Message, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	defer t.deregister(msg.ID, tk)

	for {
		select {
		case <-ctx.Done():
			t.logger.Debug("tracking stopped", zap.String("message", msg.ID))
			return

		case <-ticker.C:
			payload, err := t.build(ctx)
			if err != nil {
				t.logger.Warn("tracking refresh failed",
					zap.String("message", msg.ID),
					zap.Error(err),
				)
				continue
			}

			if err := t.surface.Edit(ctx, msg, payload); err != nil {
				if messaging.IsPermanent(err) {
					t.logger.Info("tracked message uneditable, deregistering",
						zap.String("message", msg.ID),
						zap.Error(err),
					)
					return
				}
				t.logger.Warn("tracking edit failed",
					zap.String("message", msg.ID),
					zap.Error(err),
				)
			}
		}
	}
}

// deregister removes tk from the registry unless a newer task has
// already superseded it.
func (t *Tracker) deregister(id string, tk *task) {
	tk.cancel()
	t.mu.Lock()
	if current, ok := t.tasks[id]; ok && current == tk {
		delete(t.tasks, id)
	}
	t.mu.Unlock()
}

// StopByMessageID cancels the task tracking the given message, if any.
// No further edits are attempted once it returns.
func (t *Tracker) StopByMessageID(id string) {
	t.mu.Lock()
	tk, ok := t.tasks[id]
	if ok {
		delete(t.tasks, id)
	}
	t.mu.Unlock()

	if ok {
		tk.cancel()
	}
}

// StopAll cancels every task. Called at shutdown.
func (t *Tracker) StopAll() {
	t.mu.Lock()
	tasks := t.tasks
	t.tasks = make(map[string]*task)
	t.mu.Unlock()

	for _, tk := range tasks {
		tk.cancel()
	}
}

// Active returns the number of live tracking tasks.
func (t *Tracker) Active() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.tasks)
}
