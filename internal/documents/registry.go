// Package documents keeps rendered PDFs for a session until they are viewed,
// downloaded or replaced. A session holds at most one live document per Kind.
package documents

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	docKeyPrefix   = "doc:"  // doc:{id} -> hash{meta, data}
	indexKeyPrefix = "docs:" // docs:{session_id} -> hash{kind: doc_id}
	maxTxRetries   = 3
)

var ErrNotFound = errors.New("document not found")

type Kind string

const (
	EntryPreview  Kind = "entry-preview"
	EntryDownload Kind = "entry-download"
	OfferPreview  Kind = "offer-preview"
	OfferDownload Kind = "offer-download"
)

func ParseKind(s string) (Kind, bool) {
	switch k := Kind(s); k {
	case EntryPreview, EntryDownload, OfferPreview, OfferDownload:
		return k, true
	}
	return "", false
}

// Downloadable kinds are released after they are served once.
func (k Kind) OneShot() bool {
	return k == EntryDownload || k == OfferDownload
}

type Document struct {
	ID          string    `json:"id"`
	Kind        Kind      `json:"kind"`
	Filename    string    `json:"filename"`
	ContentType string    `json:"content_type"`
	CreatedAt   time.Time `json:"created_at"`
	Data        []byte    `json:"-"`
}

type Registry struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRegistry creates a registry whose documents expire after ttl even if
// never released.
func NewRegistry(client *redis.Client, ttl time.Duration) *Registry {
	return &Registry{client: client, ttl: ttl}
}

// Put stores data as the session's document of kind, releasing the previous
// one of that kind in the same transaction.
func (r *Registry) Put(ctx context.Context, sessionID string, kind Kind, filename, contentType string, data []byte) (*Document, error) {
	doc := &Document{
		ID:          uuid.New().String(),
		Kind:        kind,
		Filename:    filename,
		ContentType: contentType,
		CreatedAt:   time.Now().UTC(),
		Data:        data,
	}
	meta, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal document: %w", err)
	}

	idx := indexKey(sessionID)
	txf := func(tx *redis.Tx) error {
		old, err := tx.HGet(ctx, idx, string(kind)).Result()
		if err != nil && err != redis.Nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if old != "" {
				pipe.Del(ctx, docKey(old))
			}
			pipe.HSet(ctx, docKey(doc.ID), "meta", meta, "data", data)
			pipe.Expire(ctx, docKey(doc.ID), r.ttl)
			pipe.HSet(ctx, idx, string(kind), doc.ID)
			pipe.Expire(ctx, idx, r.ttl)
			return nil
		})
		return err
	}

	if err := r.watch(ctx, txf, idx); err != nil {
		return nil, fmt.Errorf("failed to put document: %w", err)
	}
	return doc, nil
}

// Get returns the live document of kind for the session.
func (r *Registry) Get(ctx context.Context, sessionID string, kind Kind) (*Document, error) {
	id, err := r.client.HGet(ctx, indexKey(sessionID), string(kind)).Result()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document id: %w", err)
	}

	fields, err := r.client.HGetAll(ctx, docKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	if len(fields) == 0 {
		// expired underneath the index
		r.client.HDel(ctx, indexKey(sessionID), string(kind))
		return nil, ErrNotFound
	}

	var doc Document
	if err := json.Unmarshal([]byte(fields["meta"]), &doc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal document: %w", err)
	}
	doc.Data = []byte(fields["data"])
	return &doc, nil
}

// Release frees the session's document of kind. Releasing a kind with no
// live document is a no-op.
func (r *Registry) Release(ctx context.Context, sessionID string, kind Kind) error {
	idx := indexKey(sessionID)
	txf := func(tx *redis.Tx) error {
		id, err := tx.HGet(ctx, idx, string(kind)).Result()
		if err == redis.Nil {
			return nil
		}
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, docKey(id))
			pipe.HDel(ctx, idx, string(kind))
			return nil
		})
		return err
	}

	if err := r.watch(ctx, txf, idx); err != nil {
		return fmt.Errorf("failed to release document: %w", err)
	}
	return nil
}

// watch runs txf under WATCH on keys, retrying when another writer wins.
func (r *Registry) watch(ctx context.Context, txf func(*redis.Tx) error, keys ...string) error {
	var err error
	for i := 0; i < maxTxRetries; i++ {
		err = r.client.Watch(ctx, txf, keys...)
		if err != redis.TxFailedErr {
			break
		}
	}
	return err
}

// ReleaseAll frees every document the session holds. It matches
// session.TeardownFunc.
func (r *Registry) ReleaseAll(ctx context.Context, sessionID string) error {
	idx := indexKey(sessionID)
	live, err := r.client.HGetAll(ctx, idx).Result()
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}

	pipe := r.client.TxPipeline()
	for _, id := range live {
		pipe.Del(ctx, docKey(id))
	}
	pipe.Del(ctx, idx)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to release documents: %w", err)
	}
	return nil
}

// Live returns the live document id per kind for the session.
func (r *Registry) Live(ctx context.Context, sessionID string) (map[Kind]string, error) {
	live, err := r.client.HGetAll(ctx, indexKey(sessionID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	out := make(map[Kind]string, len(live))
	for k, id := range live {
		out[Kind(k)] = id
	}
	return out, nil
}

func docKey(id string) string {
	return fmt.Sprintf("%s%s", docKeyPrefix, id)
}

func indexKey(sessionID string) string {
	return fmt.Sprintf("%s%s", indexKeyPrefix, sessionID)
}
