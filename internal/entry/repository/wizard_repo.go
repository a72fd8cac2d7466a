package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/makstark/studio-web/internal/entry/domain"
	"github.com/redis/go-redis/v9"
)

const wizardKeyPrefix = "wizard:entry:" // wizard:entry:{session_id} -> JSON Wizard

// WizardRepository stores New-Entry wizard state per session in Redis.
type WizardRepository struct {
	client *redis.Client
	ttl    time.Duration
}

// NewWizardRepository creates a repository whose entries expire after ttl.
func NewWizardRepository(client *redis.Client, ttl time.Duration) *WizardRepository {
	return &WizardRepository{client: client, ttl: ttl}
}

// Get returns the session's wizard, or a fresh one if none is stored.
func (r *WizardRepository) Get(ctx context.Context, sessionID string) (*domain.Wizard, error) {
	data, err := r.client.Get(ctx, wizardKeyPrefix+sessionID).Bytes()
	if err == redis.Nil {
		return domain.NewWizard(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get wizard: %w", err)
	}

	var w domain.Wizard
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("failed to unmarshal wizard: %w", err)
	}
	if w.Step == "" {
		w.Step = domain.StepForm
	}
	return &w, nil
}

func (r *WizardRepository) Save(ctx context.Context, sessionID string, w *domain.Wizard) error {
	data, err := json.Marshal(w)
	if err != nil {
		return fmt.Errorf("failed to marshal wizard: %w", err)
	}
	if err := r.client.Set(ctx, wizardKeyPrefix+sessionID, data, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save wizard: %w", err)
	}
	return nil
}

// Delete drops the session's wizard. It matches session.TeardownFunc.
func (r *WizardRepository) Delete(ctx context.Context, sessionID string) error {
	if err := r.client.Del(ctx, wizardKeyPrefix+sessionID).Err(); err != nil {
		return fmt.Errorf("failed to delete wizard: %w", err)
	}
	return nil
}
