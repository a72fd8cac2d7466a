package service

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/makstark/studio-web/internal/portfolio/domain"
	"github.com/makstark/studio-web/internal/portfolio/repository"
)

const subscriberBuffer = 16

// Hub relays card events from Redis to in-process subscribers such as SSE
// streams. A subscriber that falls behind misses events instead of
// stalling the others.
type Hub struct {
	repo *repository.CardRepository
	log  logrus.FieldLogger

	mu   sync.Mutex
	subs map[chan domain.Event]struct{}
}

func NewHub(repo *repository.CardRepository, log logrus.FieldLogger) *Hub {
	return &Hub{
		repo: repo,
		log:  log,
		subs: make(map[chan domain.Event]struct{}),
	}
}

// Run consumes the Redis channel until ctx is done. ready, if non-nil, is
// closed once the subscription is confirmed.
func (h *Hub) Run(ctx context.Context, ready chan<- struct{}) error {
	pubsub := h.repo.Subscribe(ctx)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return err
	}
	if ready != nil {
		close(ready)
	}
	h.log.Info("portfolio hub subscribed")

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return nil
		case msg, ok := <-ch:
			if !ok {
				h.closeAll()
				return nil
			}
			var ev domain.Event
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				h.log.WithError(err).Warn("dropping malformed portfolio event")
				continue
			}
			h.broadcast(ev)
		}
	}
}

// Subscribe registers a listener. The returned func unregisters it.
func (h *Hub) Subscribe() (<-chan domain.Event, func()) {
	ch := make(chan domain.Event, subscriberBuffer)

	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	return ch, func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if _, ok := h.subs[ch]; ok {
			delete(h.subs, ch)
			close(ch)
		}
	}
}

func (h *Hub) broadcast(ev domain.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- ev:
		default:
			h.log.WithField("action", ev.Action).Warn("portfolio subscriber is slow, event dropped")
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		delete(h.subs, ch)
		close(ch)
	}
}
