package server

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	ChangeEventName      = "change"
	changeEventHeartbeat = "heartbeat"
	changeEventSource    = "notebook-api"
	defaultFeedBuffer    = 16
	defaultHeartbeat     = 25 * time.Second
)

// Entity and action labels carried by change events.
const (
	EntityFolder = "folder"
	EntityNote   = "note"
	EntityTag    = "tag"

	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
)

// ChangeEvent describes one successful mutation. IDs lists every entity whose
// state changed, starting with the primary one.
type ChangeEvent struct {
	Entity    string    `json:"entity"`
	Action    string    `json:"action"`
	IDs       []string  `json:"ids"`
	Timestamp time.Time `json:"timestamp"`
}

// ChangeFeed fans change events out to every live subscriber. Slow
// subscribers drop events instead of blocking publishers.
type ChangeFeed struct {
	mu          sync.RWMutex
	subscribers map[int64]*feedSubscriber
	nextID      int64
	bufferSize  int
	clock       func() time.Time
	watchers    sync.WaitGroup
}

type feedSubscriber struct {
	id     int64
	stream chan ChangeEvent
}

// NewChangeFeed constructs an empty ChangeFeed.
func NewChangeFeed() *ChangeFeed {
	return &ChangeFeed{
		subscribers: make(map[int64]*feedSubscriber),
		bufferSize:  defaultFeedBuffer,
		clock:       time.Now,
	}
}

// Subscribe registers a subscriber that stays active until ctx is done or the
// returned cleanup is called.
func (f *ChangeFeed) Subscribe(ctx context.Context) (<-chan ChangeEvent, func()) {
	subscriber := &feedSubscriber{stream: make(chan ChangeEvent, f.bufferSize)}
	f.registerSubscriber(subscriber)

	done := make(chan struct{})
	var once sync.Once
	cleanup := func() {
		once.Do(func() {
			f.unregisterSubscriber(subscriber.id)
			close(done)
		})
	}
	f.watchers.Add(1)
	go func() {
		defer f.watchers.Done()
		select {
		case <-ctx.Done():
			cleanup()
		case <-done:
		}
	}()
	return subscriber.stream, cleanup
}

// Publish delivers event to every subscriber. Events without an entity or
// action are ignored.
func (f *ChangeFeed) Publish(event ChangeEvent) {
	if event.Entity == "" || event.Action == "" {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = f.clock().UTC()
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, subscriber := range f.subscribers {
		select {
		case subscriber.stream <- event:
		default:
		}
	}
}

// SubscriberCount reports how many subscribers are registered.
func (f *ChangeFeed) SubscriberCount() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.subscribers)
}

func (f *ChangeFeed) registerSubscriber(subscriber *feedSubscriber) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	subscriber.id = f.nextID
	f.subscribers[subscriber.id] = subscriber
}

func (f *ChangeFeed) unregisterSubscriber(subscriberID int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if subscriber, ok := f.subscribers[subscriberID]; ok {
		delete(f.subscribers, subscriberID)
		close(subscriber.stream)
	}
}

// streamEvents serves the change feed as server-sent events until the client
// disconnects.
func (h *httpHandler) streamEvents(c *gin.Context) {
	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	stream, cleanup := h.feed.Subscribe(ctx)
	defer cleanup()

	heartbeat := time.NewTicker(h.heartbeat)
	defer heartbeat.Stop()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)
	c.SSEvent(changeEventHeartbeat, gin.H{"source": changeEventSource})
	c.Writer.Flush()

	h.logger.Info("change feed subscriber connected", zap.String("remote", c.ClientIP()))
	defer h.logger.Info("change feed subscriber disconnected", zap.String("remote", c.ClientIP()))

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-stream:
			if !ok {
				return
			}
			c.SSEvent(ChangeEventName, event)
			c.Writer.Flush()
		case <-heartbeat.C:
			c.SSEvent(changeEventHeartbeat, gin.H{"source": changeEventSource})
			c.Writer.Flush()
		}
	}
}

func (h *httpHandler) publish(entity, action string, ids ...string) {
	if h.feed == nil {
		return
	}
	h.feed.Publish(ChangeEvent{Entity: entity, Action: action, IDs: ids})
}
