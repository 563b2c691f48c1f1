package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/perfpulse/meetsched/internal/domain"
)

// CreateMeeting inserts a new meeting record.
func (s *Store) CreateMeeting(ctx context.Context, m *domain.MeetingRecord) error {
	if !m.Status.IsValid() {
		return fmt.Errorf("invalid meeting status %q", m.Status)
	}
	if err := s.db.WithContext(ctx).Create(m).Error; err != nil {
		return fmt.Errorf("failed to create meeting: %w", err)
	}
	return nil
}

// GetMeeting returns one meeting by ID.
func (s *Store) GetMeeting(ctx context.Context, id string) (*domain.MeetingRecord, error) {
	var m domain.MeetingRecord
	err := s.db.WithContext(ctx).First(&m, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &domain.NotFoundError{Resource: "meeting", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load meeting: %w", err)
	}
	return &m, nil
}

// ListMeetings returns the meetings visible under the filter, newest first.
func (s *Store) ListMeetings(ctx context.Context, filter domain.MeetingFilter) ([]domain.MeetingRecord, error) {
	query := s.db.WithContext(ctx).Order("scheduled_time desc")
	if !filter.All {
		if len(filter.ManagerUserIDs) == 0 && len(filter.EmployeeIDs) == 0 {
			return nil, nil
		}
		query = query.Where(
			"manager_id IN ? OR employee_id IN ?",
			emptyToNone(filter.ManagerUserIDs),
			emptyToNone(filter.EmployeeIDs),
		)
	}
	var meetings []domain.MeetingRecord
	if err := query.Find(&meetings).Error; err != nil {
		return nil, fmt.Errorf("failed to list meetings: %w", err)
	}
	return meetings, nil
}

// UpdateStatus moves a meeting to the given status, refusing transitions the
// state machine forbids. botID is applied when non-nil.
func (s *Store) UpdateStatus(ctx context.Context, id string, status domain.MeetingStatus, botID *string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var m domain.MeetingRecord
		err := tx.First(&m, "id = ?", id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &domain.NotFoundError{Resource: "meeting", ID: id}
		}
		if err != nil {
			return fmt.Errorf("failed to load meeting: %w", err)
		}
		if !m.Status.CanTransitionTo(status) {
			return fmt.Errorf("meeting %s: invalid status transition %s -> %s", id, m.Status, status)
		}
		updates := map[string]any{"status": status}
		if botID != nil {
			updates["bot_id"] = *botID
		}
		if err := tx.Model(&m).Updates(updates).Error; err != nil {
			return fmt.Errorf("failed to update meeting status: %w", err)
		}
		return nil
	})
}

// emptyToNone substitutes an impossible value for an empty ID list so the IN
// clause stays well-formed.
func emptyToNone(ids []string) []string {
	if len(ids) == 0 {
		return []string{""}
	}
	return ids
}
