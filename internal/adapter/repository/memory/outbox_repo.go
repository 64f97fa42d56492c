package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/iho/adledger/internal/domain"
	"github.com/iho/adledger/internal/usecase"
)

// OutboxRepository implements usecase.OutboxRepository in memory.
type OutboxRepository struct {
	store *Store
}

// NewOutboxRepository creates a new OutboxRepository.
func NewOutboxRepository(store *Store) *OutboxRepository {
	return &OutboxRepository{store: store}
}

// Create enqueues an event within tx.
func (r *OutboxRepository) Create(_ context.Context, tx usecase.Transaction, event *domain.OutboxEvent) error {
	return r.store.write(tx, func(st *state) error {
		st.outbox = append(st.outbox, *event)
		return nil
	})
}

// GetUnpublished returns up to limit unpublished events, oldest first.
func (r *OutboxRepository) GetUnpublished(_ context.Context, limit int) ([]*domain.OutboxEvent, error) {
	var events []*domain.OutboxEvent

	err := r.store.read(nil, func(st *state) error {
		for _, ev := range st.outbox {
			if ev.Published {
				continue
			}
			events = append(events, &ev)
			if len(events) == limit {
				break
			}
		}
		return nil
	})

	return events, err
}

// MarkPublished flags an event as published.
func (r *OutboxRepository) MarkPublished(ctx context.Context, id string, publishedAt time.Time) error {
	return r.store.update(ctx, func(st *state) error {
		for i := range st.outbox {
			if st.outbox[i].ID == id {
				st.outbox[i].Published = true
				st.outbox[i].PublishedAt = &publishedAt
				return nil
			}
		}
		return fmt.Errorf("%w: outbox event %s", domain.ErrNotFound, id)
	})
}

// DeletePublished removes events published before the given time.
func (r *OutboxRepository) DeletePublished(ctx context.Context, before time.Time) error {
	return r.store.update(ctx, func(st *state) error {
		kept := st.outbox[:0:0]
		for _, ev := range st.outbox {
			if ev.Published && ev.PublishedAt != nil && ev.PublishedAt.Before(before) {
				continue
			}
			kept = append(kept, ev)
		}
		st.outbox = kept
		return nil
	})
}

// AuditRepository implements usecase.AuditRepository in memory.
type AuditRepository struct {
	store *Store
}

// NewAuditRepository creates a new AuditRepository.
func NewAuditRepository(store *Store) *AuditRepository {
	return &AuditRepository{store: store}
}

// CreateTx appends an audit row within tx.
func (r *AuditRepository) CreateTx(_ context.Context, tx usecase.Transaction, log *domain.AuditLog) error {
	return r.store.write(tx, func(st *state) error {
		st.audit = append(st.audit, *log)
		return nil
	})
}

// List returns audit rows matching filter, newest first.
func (r *AuditRepository) List(_ context.Context, filter domain.AuditFilter) ([]*domain.AuditLog, error) {
	var logs []*domain.AuditLog

	err := r.store.read(nil, func(st *state) error {
		for i := len(st.audit) - 1; i >= 0; i-- {
			log := st.audit[i]
			if matchesAudit(&log, filter) {
				logs = append(logs, &log)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	limit, offset := domain.ValidatePagination(filter.Limit, filter.Offset)

	return page(logs, limit, offset), nil
}

func matchesAudit(log *domain.AuditLog, filter domain.AuditFilter) bool {
	switch {
	case filter.ActorID != "" && log.ActorID != filter.ActorID:
		return false
	case filter.Action != "" && log.Action != filter.Action:
		return false
	case filter.ResourceType != "" && log.ResourceType != filter.ResourceType:
		return false
	case filter.ResourceID != "" && log.ResourceID != filter.ResourceID:
		return false
	case filter.StartDate != nil && log.CreatedAt.Before(*filter.StartDate):
		return false
	case filter.EndDate != nil && log.CreatedAt.After(*filter.EndDate):
		return false
	}
	return true
}
