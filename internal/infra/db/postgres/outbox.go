package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	appoutbox "rentspace/internal/app/outbox"
	infraoutbox "rentspace/internal/infra/outbox"
)

type outboxWriter struct {
	db *gorm.DB
}

func (w outboxWriter) Add(ctx context.Context, record appoutbox.EventRecord) error {
	headers, err := json.Marshal(record.Headers)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	return w.db.WithContext(ctx).Create(&OutboxModel{
		ID:          record.ID,
		Name:        record.Name,
		Payload:     record.Payload,
		OccurredAt:  record.OccurredAt,
		Aggregate:   record.Aggregate,
		Headers:     headers,
		State:       infraoutbox.StateNew,
		NextAttempt: now,
		CreatedAt:   now,
	}).Error
}

// OutboxSource lets the relay worker claim rows with SKIP LOCKED, so several
// workers never pick the same record.
type OutboxSource struct {
	DB *gorm.DB
}

func (s OutboxSource) Claim(ctx context.Context, workerID string) (*infraoutbox.Pending, error) {
	var claimed *infraoutbox.Pending
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var m OutboxModel
		err := tx.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Where("state IN ? AND next_attempt <= ?", []string{infraoutbox.StateNew, infraoutbox.StateFailed}, time.Now().UTC()).
			Order("next_attempt").
			First(&m).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := tx.Model(&OutboxModel{}).Where("id = ?", m.ID).
			Updates(map[string]any{"state": infraoutbox.StateClaimed, "claimed_by": workerID}).Error; err != nil {
			return err
		}
		var headers map[string]string
		if len(m.Headers) > 0 {
			if err := json.Unmarshal(m.Headers, &headers); err != nil {
				return err
			}
		}
		claimed = &infraoutbox.Pending{
			Record: appoutbox.EventRecord{
				ID:         m.ID,
				Name:       m.Name,
				Payload:    m.Payload,
				OccurredAt: m.OccurredAt.UTC(),
				Aggregate:  m.Aggregate,
				Headers:    headers,
			},
			Attempts: m.Attempts,
		}
		return nil
	})
	return claimed, err
}

func (s OutboxSource) MarkSent(ctx context.Context, id string) error {
	now := time.Now().UTC()
	return s.DB.WithContext(ctx).Model(&OutboxModel{}).Where("id = ?", id).
		Updates(map[string]any{"state": infraoutbox.StateSent, "sent_at": &now}).Error
}

func (s OutboxSource) MarkFailed(ctx context.Context, id string, next time.Time, errMsg string) error {
	return s.DB.WithContext(ctx).Model(&OutboxModel{}).Where("id = ?", id).
		Updates(map[string]any{
			"state":        infraoutbox.StateFailed,
			"next_attempt": next,
			"last_error":   errMsg,
			"attempts":     gorm.Expr("attempts + 1"),
		}).Error
}

var (
	_ appoutbox.Outbox   = outboxWriter{}
	_ infraoutbox.Source = OutboxSource{}
)
