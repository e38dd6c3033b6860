package services

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/hibiken/asynq"
	"github.com/mteuf/chatbot-testing/internal/config"
	"github.com/mteuf/chatbot-testing/pkg/logger"
)

const (
	TaskTypeFeedback = "feedback:store"
)

// FeedbackTask carries one feedback record to the persistence worker.
type FeedbackTask struct {
	Question  string `json:"question"`
	Answer    string `json:"answer"`
	Score     string `json:"score"`
	Comment   string `json:"comment"`
	Category  string `json:"category"`
	Timestamp string `json:"timestamp"`
	User      string `json:"user"`
}

// TaskQueue defines the interface for feedback persistence dispatch.
// Both implementations are best-effort: enqueue failures are logged by the
// caller and never surfaced to the interactive flow.
type TaskQueue interface {
	// Enqueue adds a task to the queue
	Enqueue(task *FeedbackTask) error
	// IsAsync returns true if queue processes tasks asynchronously
	IsAsync() bool
	// Close gracefully shuts down the queue
	Close() error
}

// Global task queue instance
var (
	globalTaskQueue TaskQueue
	taskQueueOnce   sync.Once
)

// InitTaskQueue initializes the global task queue based on config
func InitTaskQueue(cfg *config.Config) TaskQueue {
	taskQueueOnce.Do(func() {
		if cfg.Redis.Enabled {
			queue, err := NewAsyncQueue(&cfg.Redis)
			if err != nil {
				logger.Infof("[TaskQueue] Redis unavailable, falling back to in-process mode: %v", err)
				globalTaskQueue = NewSyncQueue()
			} else {
				logger.Infof("[TaskQueue] Async queue initialized with Redis at %s", cfg.Redis.Addr)
				globalTaskQueue = queue
			}
		} else {
			logger.Infof("[TaskQueue] In-process queue initialized (Redis disabled)")
			globalTaskQueue = NewSyncQueue()
		}
	})
	return globalTaskQueue
}

// GetTaskQueue returns the global task queue instance
func GetTaskQueue() TaskQueue {
	return globalTaskQueue
}

// AsyncQueue implements TaskQueue using asynq (Redis-based)
type AsyncQueue struct {
	client *asynq.Client
}

// NewAsyncQueue creates a new Redis-based async queue
func NewAsyncQueue(cfg *config.RedisConfig) (*AsyncQueue, error) {
	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}

	client := asynq.NewClient(redisOpt)

	// Verify the connection before committing to async mode
	inspector := asynq.NewInspector(redisOpt)
	defer inspector.Close()

	if _, err := inspector.Queues(); err != nil {
		client.Close()
		return nil, err
	}

	return &AsyncQueue{client: client}, nil
}

// Enqueue adds a feedback task to the async queue. Writes are at-most-once:
// no retries are configured.
func (q *AsyncQueue) Enqueue(task *FeedbackTask) error {
	payload, err := json.Marshal(task)
	if err != nil {
		return err
	}

	t := asynq.NewTask(TaskTypeFeedback, payload)
	info, err := q.client.Enqueue(t,
		asynq.Queue("default"),
		asynq.MaxRetry(0),
	)
	if err != nil {
		return err
	}

	logger.Infof("[AsyncQueue] Task enqueued: id=%s, queue=%s", info.ID, info.Queue)
	return nil
}

// IsAsync returns true for async queue
func (q *AsyncQueue) IsAsync() bool {
	return true
}

// Close closes the async queue client
func (q *AsyncQueue) Close() error {
	return q.client.Close()
}

// SyncQueue implements TaskQueue with in-process fire-and-forget dispatch
// (no Redis). No handle is retained and no completion is awaited.
type SyncQueue struct {
	processor func(context.Context, *FeedbackTask) error
}

// NewSyncQueue creates a new in-process queue
func NewSyncQueue() *SyncQueue {
	return &SyncQueue{}
}

// SetProcessor sets the function that stores feedback records
func (q *SyncQueue) SetProcessor(processor func(context.Context, *FeedbackTask) error) {
	q.processor = processor
}

// Enqueue launches the store operation in a goroutine so the interactive
// flow is never blocked by the warehouse write.
func (q *SyncQueue) Enqueue(task *FeedbackTask) error {
	if q.processor == nil {
		logger.Infof("[SyncQueue] Warning: no processor set, task will be dropped")
		return nil
	}

	go func() {
		ctx := context.Background()
		if err := q.processor(ctx, task); err != nil {
			logger.Infof("[SyncQueue] Task processing failed: %v", err)
		}
	}()

	return nil
}

// IsAsync returns false for in-process queue
func (q *SyncQueue) IsAsync() bool {
	return false
}

// Close is a no-op for in-process queue
func (q *SyncQueue) Close() error {
	return nil
}
