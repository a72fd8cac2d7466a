package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/makstark/studio-web/internal/offer/domain"
	"github.com/redis/go-redis/v9"
)

const wizardKeyPrefix = "wizard:offer:" // wizard:offer:{session_id} -> JSON Wizard

// WizardRepository stores offer-letter state per session in Redis.
type WizardRepository struct {
	client *redis.Client
	ttl    time.Duration
}

func NewWizardRepository(client *redis.Client, ttl time.Duration) *WizardRepository {
	return &WizardRepository{client: client, ttl: ttl}
}

func (r *WizardRepository) Get(ctx context.Context, sessionID string) (*domain.Wizard, error) {
	data, err := r.client.Get(ctx, wizardKeyPrefix+sessionID).Bytes()
	if err == redis.Nil {
		return domain.NewWizard(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get offer wizard: %w", err)
	}

	var w domain.Wizard
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("failed to unmarshal offer wizard: %w", err)
	}
	if w.Step == "" {
		w.Step = domain.StepForm
	}
	return &w, nil
}

func (r *WizardRepository) Save(ctx context.Context, sessionID string, w *domain.Wizard) error {
	data, err := json.Marshal(w)
	if err != nil {
		return fmt.Errorf("failed to marshal offer wizard: %w", err)
	}
	return r.client.Set(ctx, wizardKeyPrefix+sessionID, data, r.ttl).Err()
}

func (r *WizardRepository) Delete(ctx context.Context, sessionID string) error {
	return r.client.Del(ctx, wizardKeyPrefix+sessionID).Err()
}
