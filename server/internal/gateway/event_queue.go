package gateway

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"
)

var (
	ErrQueueClosed = errors.New("event queue closed")
	ErrQueueFull   = errors.New("event queue full")
)

// EventHandler 处理一条客户端事件，返回 error 只记录，不断开连接。
type EventHandler func(ctx context.Context, msg *ClientMessage) error

// EventQueue 为单个连接提供串行事件处理（Actor Model）
// 同一会话的回合按到达顺序依次执行，不会交错读改写会话状态。
type EventQueue struct {
	sessionID    string
	eventHandler EventHandler
	eventChan    chan *queuedEvent
	ctx          context.Context
	cancel       context.CancelFunc
	wg           sync.WaitGroup
	timeout      time.Duration
	logger       *log.Logger

	// 统计信息
	mu              sync.Mutex
	totalEvents     int64
	processedEvents int64
	droppedEvents   int64
}

type queuedEvent struct {
	msg       *ClientMessage
	timestamp time.Time
	resultCh  chan error // 用于同步等待结果（可选）
}

// QueueStats 队列统计。
type QueueStats struct {
	SessionID       string `json:"session_id"`
	TotalEvents     int64  `json:"total_events"`
	ProcessedEvents int64  `json:"processed_events"`
	DroppedEvents   int64  `json:"dropped_events"`
	PendingEvents   int    `json:"pending_events"`
	QueueCapacity   int    `json:"queue_capacity"`
}

const (
	// 队列容量：超过此值的事件将被丢弃（背压控制）
	defaultQueueCapacity = 100
	// 单个事件的处理超时（覆盖 LLM 与 TTS）
	defaultEventTimeout = 30 * time.Second
	slowEventThreshold  = 5 * time.Second
)

// NewEventQueue 创建事件队列，capacity/timeout 为 0 时使用默认值。
func NewEventQueue(sessionID string, handler EventHandler, capacity int, timeout time.Duration, logger *log.Logger) *EventQueue {
	if logger == nil {
		logger = log.Default()
	}
	if capacity <= 0 {
		capacity = defaultQueueCapacity
	}
	if timeout <= 0 {
		timeout = defaultEventTimeout
	}

	ctx, cancel := context.WithCancel(context.Background())
	eq := &EventQueue{
		sessionID:    sessionID,
		eventHandler: handler,
		eventChan:    make(chan *queuedEvent, capacity),
		ctx:          ctx,
		cancel:       cancel,
		timeout:      timeout,
		logger:       logger,
	}

	eq.wg.Add(1)
	go eq.processLoop()
	return eq
}

// Enqueue 将事件加入队列（异步，非阻塞）
func (eq *EventQueue) Enqueue(msg *ClientMessage) error {
	select {
	case <-eq.ctx.Done():
		return ErrQueueClosed
	default:
	}

	event := &queuedEvent{msg: msg, timestamp: time.Now()}

	select {
	case eq.eventChan <- event:
		eq.mu.Lock()
		eq.totalEvents++
		eq.mu.Unlock()
		return nil
	default:
		eq.mu.Lock()
		eq.droppedEvents++
		eq.mu.Unlock()
		eq.logger.Printf("[EventQueue] session=%s queue full, dropping event type=%s", eq.sessionID, msg.Type)
		return ErrQueueFull
	}
}

// EnqueueSync 将事件加入队列并等待处理完成（同步）
func (eq *EventQueue) EnqueueSync(msg *ClientMessage, timeout time.Duration) error {
	select {
	case <-eq.ctx.Done():
		return ErrQueueClosed
	default:
	}
	if timeout == 0 {
		timeout = eq.timeout
	}

	event := &queuedEvent{
		msg:       msg,
		timestamp: time.Now(),
		resultCh:  make(chan error, 1),
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case eq.eventChan <- event:
		eq.mu.Lock()
		eq.totalEvents++
		eq.mu.Unlock()
	case <-timer.C:
		return errors.New("timeout enqueuing event")
	case <-eq.ctx.Done():
		return ErrQueueClosed
	}

	select {
	case err := <-event.resultCh:
		return err
	case <-timer.C:
		return errors.New("timeout waiting for event processing")
	case <-eq.ctx.Done():
		return ErrQueueClosed
	}
}

// processLoop 串行处理事件（单线程）
func (eq *EventQueue) processLoop() {
	defer eq.wg.Done()
	for {
		select {
		case <-eq.ctx.Done():
			return
		case event := <-eq.eventChan:
			eq.processEvent(event)
		}
	}
}

func (eq *EventQueue) processEvent(event *queuedEvent) {
	start := time.Now()
	queueLatency := start.Sub(event.timestamp)

	ctx, cancel := context.WithTimeout(eq.ctx, eq.timeout)
	defer cancel()

	err := eq.eventHandler(ctx, event.msg)
	elapsed := time.Since(start)

	if err != nil {
		eq.logger.Printf("[EventQueue] session=%s event failed type=%s latency=%v elapsed=%v: %v",
			eq.sessionID, event.msg.Type, queueLatency, elapsed, err)
	}

	eq.mu.Lock()
	eq.processedEvents++
	eq.mu.Unlock()

	if event.resultCh != nil {
		select {
		case event.resultCh <- err:
		default:
		}
	}

	if elapsed > slowEventThreshold {
		eq.logger.Printf("[EventQueue] session=%s slow event type=%s elapsed=%v", eq.sessionID, event.msg.Type, elapsed)
	}
}

// Close 停止处理并等待当前事件结束。通道不关闭，迟到的 Enqueue 会看到 ErrQueueClosed。
func (eq *EventQueue) Close() error {
	eq.cancel()
	eq.wg.Wait()

	stats := eq.Stats()
	eq.logger.Printf("[EventQueue] closed session=%s total=%d processed=%d dropped=%d pending=%d",
		eq.sessionID, stats.TotalEvents, stats.ProcessedEvents, stats.DroppedEvents, stats.PendingEvents)
	return nil
}

// Stats 获取队列统计信息
func (eq *EventQueue) Stats() QueueStats {
	eq.mu.Lock()
	defer eq.mu.Unlock()
	return QueueStats{
		SessionID:       eq.sessionID,
		TotalEvents:     eq.totalEvents,
		ProcessedEvents: eq.processedEvents,
		DroppedEvents:   eq.droppedEvents,
		PendingEvents:   len(eq.eventChan),
		QueueCapacity:   cap(eq.eventChan),
	}
}
