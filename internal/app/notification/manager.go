// Package notification provides the notification manager for broadcasting
// player state changes.
package notification

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	zlog "github.com/rs/zerolog/log"

	playerv1 "github.com/osa030/moodbox/internal/api/playerv1"
)

const (
	sendTimeout = 500 * time.Millisecond
	queueSize   = 64
)

// Stream represents a notification stream for a subscriber.
type Stream interface {
	Send(*playerv1.StateNotification) error
}

// subscription represents a subscriber's subscription.
type subscription struct {
	id     string
	stream Stream
	sendMu sync.Mutex // streams are not safe for concurrent sends
}

// Manager manages notification subscriptions and broadcasting.
type Manager struct {
	mu            sync.RWMutex
	subscriptions map[string]*subscription
	sequenceNo    uint64
	sequenceNoMu  sync.Mutex

	queue chan *playerv1.StateNotification
}

// NewManager creates a new notification manager.
func NewManager() *Manager {
	return &Manager{
		subscriptions: make(map[string]*subscription),
		queue:         make(chan *playerv1.StateNotification, queueSize),
	}
}

// Subscribe adds a new subscription and returns the subscription ID.
func (m *Manager) Subscribe(stream Stream) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := uuid.New().String()
	m.subscriptions[id] = &subscription{
		id:     id,
		stream: stream,
	}
	return id
}

// Unsubscribe removes a subscription.
func (m *Manager) Unsubscribe(subscriptionID string) {
	m.mu.Lock()
	sub, ok := m.subscriptions[subscriptionID]
	delete(m.subscriptions, subscriptionID)
	m.mu.Unlock()

	if ok {
		// Wait for an in-flight send so the stream is not used after return.
		sub.sendMu.Lock()
		sub.sendMu.Unlock()
	}
}

// NextSequenceNo returns the next sequence number and increments the counter.
func (m *Manager) NextSequenceNo() uint64 {
	m.sequenceNoMu.Lock()
	defer m.sequenceNoMu.Unlock()
	m.sequenceNo++
	return m.sequenceNo
}

// Publish queues a notification for broadcasting without blocking. When the
// queue is full the notification is dropped; clients resync with GetState.
func (m *Manager) Publish(notification *playerv1.StateNotification) {
	select {
	case m.queue <- notification:
	default:
		zlog.Warn().Msg("notification queue full, dropping state notification")
	}
}

// Run broadcasts queued notifications in order until ctx is done.
func (m *Manager) Run(ctx context.Context) {
	for {
		select {
		case n := <-m.queue:
			m.Broadcast(n)
		case <-ctx.Done():
			return
		}
	}
}

// Broadcast stamps the notification with a sequence number and sends it to
// all subscribers. Each send is bounded by a timeout so a slow subscriber
// cannot hold up the others.
func (m *Manager) Broadcast(notification *playerv1.StateNotification) {
	notification.SequenceNo = m.NextSequenceNo()

	m.mu.RLock()
	// Copy subscriptions to avoid holding lock during sends
	subs := make([]*subscription, 0, len(m.subscriptions))
	for _, sub := range m.subscriptions {
		subs = append(subs, sub)
	}
	m.mu.RUnlock()

	var wg sync.WaitGroup
	for _, sub := range subs {
		wg.Add(1)
		go func(s *subscription) {
			defer wg.Done()

			done := make(chan error, 1)
			go func() {
				s.sendMu.Lock()
				defer s.sendMu.Unlock()
				done <- s.stream.Send(notification)
			}()

			select {
			case err := <-done:
				if err != nil {
					zlog.Debug().Msgf("failed to send notification: subscription=%s error=%v", s.id, err)
				}
			case <-time.After(sendTimeout):
				zlog.Debug().Msgf("notification send timed out: subscription=%s", s.id)
			}
		}(sub)
	}

	wg.Wait()
}

// Send sends a notification to a specific subscriber.
func (m *Manager) Send(subscriptionID string, notification *playerv1.StateNotification) error {
	m.mu.RLock()
	sub, ok := m.subscriptions[subscriptionID]
	m.mu.RUnlock()
	if !ok {
		return nil
	}

	sub.sendMu.Lock()
	defer sub.sendMu.Unlock()
	return sub.stream.Send(notification)
}

// SubscriberCount returns the number of active subscribers.
func (m *Manager) SubscriberCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.subscriptions)
}

// Close removes all subscriptions.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subscriptions = make(map[string]*subscription)
}
