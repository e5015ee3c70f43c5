package schedule

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/wilhg/xmcp/pkg/errmodel"
	"github.com/wilhg/xmcp/pkg/store"
)

const (
	// TaskPublish is the asynq task type of a scheduled post.
	TaskPublish = "xmcp:post:publish"
	// QueueDefault is the asynq queue scheduled posts are enqueued on.
	QueueDefault = "xmcp"
)

// PublishPayload is the body of a TaskPublish task.
type PublishPayload struct {
	ScheduleID string `json:"schedule_id"`
}

// NewPublishTask builds the task for a scheduled post.
func NewPublishTask(id string) (*asynq.Task, error) {
	b, err := json.Marshal(PublishPayload{ScheduleID: id})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskPublish, b), nil
}

// Enqueuer is satisfied by *asynq.Client.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// TaskDeleter is satisfied by *asynq.Inspector.
type TaskDeleter interface {
	DeleteTask(queue, id string) error
}

// Queue schedules posts as asynq tasks processed at the scheduled time.
// The store stays the source of truth for status.
type Queue struct {
	svc       *Service
	client    Enqueuer
	inspector TaskDeleter
	logger    *slog.Logger
}

var _ Scheduler = (*Queue)(nil)

// NewQueue returns a Queue storing posts through svc.
func NewQueue(svc *Service, client Enqueuer, inspector TaskDeleter) *Queue {
	return &Queue{svc: svc, client: client, inspector: inspector, logger: svc.logger}
}

func (q *Queue) Schedule(ctx context.Context, req Request) (*Scheduled, error) {
	s, err := q.svc.Schedule(ctx, req)
	if err != nil {
		return nil, err
	}
	task, err := NewPublishTask(s.ID)
	if err != nil {
		return nil, errmodel.Internal("failed to build publish task", err)
	}
	_, err = q.client.EnqueueContext(ctx, task,
		asynq.Queue(QueueDefault),
		asynq.TaskID(s.ID),
		asynq.ProcessAt(s.ScheduledAt),
		asynq.MaxRetry(3),
	)
	if err != nil {
		if _, cerr := q.svc.Cancel(ctx, s.ID); cerr != nil {
			q.logger.Error("cancel unqueued post", slog.String("schedule_id", s.ID), slog.Any("error", cerr))
		}
		return nil, errmodel.Internal("failed to enqueue scheduled post", err)
	}
	return s, nil
}

func (q *Queue) List(ctx context.Context, status store.PostStatus) ([]store.ScheduledPost, error) {
	return q.svc.List(ctx, status)
}

func (q *Queue) Cancel(ctx context.Context, id string) (store.ScheduledPost, error) {
	p, err := q.svc.Cancel(ctx, id)
	if err != nil {
		return p, err
	}
	if err := q.inspector.DeleteTask(QueueDefault, id); err != nil &&
		!errors.Is(err, asynq.ErrTaskNotFound) && !errors.Is(err, asynq.ErrQueueNotFound) {
		// the handler skips cancelled posts, so a stale task is harmless
		q.logger.Warn("delete publish task", slog.String("schedule_id", id), slog.Any("error", err))
	}
	return p, nil
}

// Handle fulfils the asynq.HandlerFunc contract.
func (q *Queue) Handle(ctx context.Context, task *asynq.Task) error {
	var payload PublishPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.ScheduleID == "" {
		return asynq.SkipRetry
	}
	err := q.svc.PublishOne(ctx, payload.ScheduleID)
	if errmodel.IsType(err, errmodel.TypeNotFound) {
		return asynq.SkipRetry
	}
	if err != nil {
		// the post is already marked failed; retrying would post twice
		return errors.Join(err, asynq.SkipRetry)
	}
	return nil
}

// Worker runs the asynq server that processes publish tasks.
type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	logger *slog.Logger
}

// NewWorker constructs a Worker for q.
func NewWorker(redisOpts asynq.RedisConnOpt, q *Queue, logger *slog.Logger) *Worker {
	srv := asynq.NewServer(redisOpts, asynq.Config{
		Concurrency: 2,
		Queues:      map[string]int{QueueDefault: 1},
	})
	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskPublish, q.Handle)
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{server: srv, mux: mux, logger: logger}
}

// Run processes tasks until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	if err := w.server.Start(w.mux); err != nil {
		return fmt.Errorf("start scheduled post worker: %w", err)
	}
	w.logger.Info("scheduled post worker started", slog.String("queue", QueueDefault))
	<-ctx.Done()
	w.server.Shutdown()
	return ctx.Err()
}
