package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/makstark/studio-web/internal/portfolio/domain"
	"github.com/redis/go-redis/v9"
)

const (
	cardsKey       = "portfolio:cards"  // JSON list of published cards
	eventChannel   = "portfolio:events" // Pub/Sub channel for domain.Event
	draftKeyPrefix = "portfolio:draft:" // portfolio:draft:{session_id} -> JSON Draft
	maxTxRetries   = 5
)

// ErrConflict is returned when the card list kept changing underneath a
// mutation.
var ErrConflict = errors.New("card list changed concurrently")

// MutateFunc receives the current cards and returns the new list and the
// event announcing the change.
type MutateFunc func(cards []domain.Card) ([]domain.Card, domain.Event, error)

// CardRepository handles Redis operations for portfolio cards and upload drafts
type CardRepository struct {
	client   *redis.Client
	draftTTL time.Duration
}

// NewCardRepository creates a new CardRepository
func NewCardRepository(client *redis.Client, draftTTL time.Duration) *CardRepository {
	return &CardRepository{client: client, draftTTL: draftTTL}
}

// List returns the published cards in stored order.
func (r *CardRepository) List(ctx context.Context) ([]domain.Card, error) {
	return r.list(ctx, r.client)
}

func (r *CardRepository) list(ctx context.Context, c redis.Cmdable) ([]domain.Card, error) {
	data, err := c.Get(ctx, cardsKey).Bytes()
	if err == redis.Nil {
		return []domain.Card{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cards: %w", err)
	}

	var cards []domain.Card
	if err := json.Unmarshal(data, &cards); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cards: %w", err)
	}
	return cards, nil
}

// Mutate applies fn to the card list and stores the result together with
// the event in one transaction. Errors from fn abort without writing.
func (r *CardRepository) Mutate(ctx context.Context, fn MutateFunc) (domain.Event, error) {
	var event domain.Event

	txf := func(tx *redis.Tx) error {
		cards, err := r.list(ctx, tx)
		if err != nil {
			return err
		}
		next, ev, err := fn(cards)
		if err != nil {
			return err
		}

		data, err := json.Marshal(next)
		if err != nil {
			return fmt.Errorf("failed to marshal cards: %w", err)
		}
		payload, err := json.Marshal(ev)
		if err != nil {
			return fmt.Errorf("failed to marshal event: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, cardsKey, data, 0)
			pipe.Publish(ctx, eventChannel, payload)
			return nil
		})
		if err == nil {
			event = ev
		}
		return err
	}

	for i := 0; i < maxTxRetries; i++ {
		err := r.client.Watch(ctx, txf, cardsKey)
		if err == nil {
			return event, nil
		}
		if err != redis.TxFailedErr {
			return domain.Event{}, err
		}
	}
	return domain.Event{}, ErrConflict
}

// Subscribe listens for card events. The caller closes the subscription.
func (r *CardRepository) Subscribe(ctx context.Context) *redis.PubSub {
	return r.client.Subscribe(ctx, eventChannel)
}

// GetDraft returns the session's upload draft, or a fresh one.
func (r *CardRepository) GetDraft(ctx context.Context, sessionID string) (*domain.Draft, error) {
	data, err := r.client.Get(ctx, draftKeyPrefix+sessionID).Bytes()
	if err == redis.Nil {
		return domain.NewDraft(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get draft: %w", err)
	}

	var d domain.Draft
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("failed to unmarshal draft: %w", err)
	}
	if d.Mode == "" {
		d.Mode = domain.ModeUpload
	}
	if d.Additional == nil {
		d.Additional = []string{}
	}
	return &d, nil
}

func (r *CardRepository) SaveDraft(ctx context.Context, sessionID string, d *domain.Draft) error {
	data, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("failed to marshal draft: %w", err)
	}
	if err := r.client.Set(ctx, draftKeyPrefix+sessionID, data, r.draftTTL).Err(); err != nil {
		return fmt.Errorf("failed to save draft: %w", err)
	}
	return nil
}

// DeleteDraft drops the session's draft. It matches session.TeardownFunc.
func (r *CardRepository) DeleteDraft(ctx context.Context, sessionID string) error {
	if err := r.client.Del(ctx, draftKeyPrefix+sessionID).Err(); err != nil {
		return fmt.Errorf("failed to delete draft: %w", err)
	}
	return nil
}
