package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/pitchwire/pitchwire/pkg/kvstore"
)

const (
	taskListKey      = "vector_tasks"
	taskPopTimeout   = time.Second
	taskMaxRetries   = 3
	taskRetryBackoff = 60 * time.Second
)

type task struct {
	ArticleID int64 `json:"article_id"`
	Attempts  int   `json:"attempts"`
}

// TaskQueue is the shared-store list articles are pushed to right after
// save, so embeddings land without waiting for the next backlog sweep.
type TaskQueue struct {
	store  kvstore.Store
	logger *slog.Logger
}

func NewTaskQueue(store kvstore.Store, logger *slog.Logger) *TaskQueue {
	return &TaskQueue{store: store, logger: logger.With("component", "vector_tasks")}
}

// Enqueue schedules an article for immediate processing.
func (q *TaskQueue) Enqueue(ctx context.Context, articleID int64) error {
	return q.push(ctx, task{ArticleID: articleID})
}

func (q *TaskQueue) push(ctx context.Context, t task) error {
	raw, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("encode task: %w", err)
	}
	if err := q.store.LPush(ctx, taskListKey, string(raw)); err != nil {
		return fmt.Errorf("enqueue article %d: %w", t.ArticleID, err)
	}
	return nil
}

func (q *TaskQueue) pop(ctx context.Context) (task, bool) {
	raw, err := q.store.BRPop(ctx, taskPopTimeout, taskListKey)
	if err != nil {
		if !kvstore.IsNotFound(err) {
			q.logger.Warn("Task pop failed", "error", err)
		}
		return task{}, false
	}

	var t task
	if err := json.Unmarshal([]byte(raw), &t); err != nil {
		q.logger.Error("Dropping malformed task", "raw", raw, "error", err)
		return task{}, false
	}
	return t, true
}

// taskLoop consumes queued tasks. Failed tasks are requeued with a delay,
// up to taskMaxRetries attempts.
func (w *Worker) taskLoop(ctx context.Context) {
	defer w.wg.Done()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ctx.Done():
			return
		default:
		}

		t, ok := w.queue.pop(ctx)
		if !ok {
			select {
			case <-time.After(w.pause):
			case <-w.stopCh:
				return
			case <-ctx.Done():
				return
			}
			continue
		}

		if err := w.ProcessArticle(ctx, t.ArticleID); err != nil {
			w.logger.Error("Task processing failed",
				"article_id", t.ArticleID, "attempt", t.Attempts+1, "error", err)
			w.retryTask(ctx, t)
		}
	}
}

func (w *Worker) retryTask(ctx context.Context, t task) {
	t.Attempts++
	if t.Attempts >= taskMaxRetries {
		w.logger.Error("Task exhausted retries", "article_id", t.ArticleID)
		return
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		select {
		case <-time.After(taskRetryBackoff):
		case <-w.stopCh:
			return
		case <-ctx.Done():
			return
		}
		if err := w.queue.push(ctx, t); err != nil {
			w.logger.Error("Task requeue failed", "article_id", t.ArticleID, "error", err)
		}
	}()
}
