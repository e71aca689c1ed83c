// Package events fans committed payment request snapshots out to in-process listeners.
package events

import (
	"context"
	"sync"

	"subscriber-payments/internal/domain/model"
	"subscriber-payments/internal/domain/ports/adapter"
	"subscriber-payments/internal/infra/metrics"
)

var _ adapter.ChangeFeed = (*Hub)(nil)

type listener struct {
	id uint64
	fn func(*model.PaymentRequest)
}

// Hub is an in-memory ChangeFeed. Publish calls the listeners of one request
// synchronously and one publish at a time, so each listener sees snapshots in
// publish order.
type Hub struct {
	mu        sync.RWMutex
	deliverMu sync.Mutex
	next      uint64
	listeners map[string][]listener
}

func NewHub() *Hub {
	return &Hub{listeners: make(map[string][]listener)}
}

func (h *Hub) Publish(ctx context.Context, r *model.PaymentRequest) error {
	if r == nil {
		return nil
	}
	h.mu.RLock()
	ls := append([]listener(nil), h.listeners[r.ID]...)
	h.mu.RUnlock()
	if len(ls) == 0 {
		return nil
	}

	h.deliverMu.Lock()
	defer h.deliverMu.Unlock()
	for _, l := range ls {
		l.fn(r.Clone())
	}
	return nil
}

func (h *Hub) Subscribe(requestID string, fn func(*model.PaymentRequest)) func() {
	h.mu.Lock()
	h.next++
	id := h.next
	h.listeners[requestID] = append(h.listeners[requestID], listener{id: id, fn: fn})
	h.mu.Unlock()
	metrics.AddListeners(1)

	var once sync.Once
	return func() {
		once.Do(func() {
			h.remove(requestID, id)
			metrics.AddListeners(-1)
		})
	}
}

func (h *Hub) remove(requestID string, id uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	ls := h.listeners[requestID]
	for i, l := range ls {
		if l.id == id {
			ls = append(ls[:i:i], ls[i+1:]...)
			break
		}
	}
	if len(ls) == 0 {
		delete(h.listeners, requestID)
		return
	}
	h.listeners[requestID] = ls
}

// Len reports how many listeners watch requestID.
func (h *Hub) Len(requestID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.listeners[requestID])
}
