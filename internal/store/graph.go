package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/perfpulse/meetsched/internal/domain"
)

// EmployeeByID returns one employee node.
func (s *Store) EmployeeByID(ctx context.Context, id string) (*domain.Employee, error) {
	var e domain.Employee
	err := s.db.WithContext(ctx).First(&e, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &domain.NotFoundError{Resource: "employee", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load employee: %w", err)
	}
	return &e, nil
}

// EmployeeByUserID returns the employee node linked to a user account.
func (s *Store) EmployeeByUserID(ctx context.Context, userID string) (*domain.Employee, error) {
	var e domain.Employee
	err := s.db.WithContext(ctx).First(&e, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &domain.NotFoundError{Resource: "employee", ID: userID}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load employee: %w", err)
	}
	return &e, nil
}

// DirectReports returns the employees whose manager edge points at the given
// employee.
func (s *Store) DirectReports(ctx context.Context, employeeID string) ([]domain.Employee, error) {
	var reports []domain.Employee
	if err := s.db.WithContext(ctx).Find(&reports, "manager_id = ?", employeeID).Error; err != nil {
		return nil, fmt.Errorf("failed to load direct reports: %w", err)
	}
	return reports, nil
}

// UserByID returns one user account.
func (s *Store) UserByID(ctx context.Context, id string) (*domain.User, error) {
	var u domain.User
	err := s.db.WithContext(ctx).First(&u, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &domain.NotFoundError{Resource: "user", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return &u, nil
}

// TeamsOwnedBy returns the teams owned by any of the given users.
func (s *Store) TeamsOwnedBy(ctx context.Context, ownerUserIDs []string) ([]domain.Team, error) {
	if len(ownerUserIDs) == 0 {
		return nil, nil
	}
	var teams []domain.Team
	if err := s.db.WithContext(ctx).Find(&teams, "owner_user_id IN ?", ownerUserIDs).Error; err != nil {
		return nil, fmt.Errorf("failed to load teams: %w", err)
	}
	return teams, nil
}

// EmployeesInTeams returns the employees belonging to any of the given teams.
func (s *Store) EmployeesInTeams(ctx context.Context, teamIDs []string) ([]domain.Employee, error) {
	if len(teamIDs) == 0 {
		return nil, nil
	}
	var employees []domain.Employee
	if err := s.db.WithContext(ctx).Find(&employees, "team_id IN ?", teamIDs).Error; err != nil {
		return nil, fmt.Errorf("failed to load team employees: %w", err)
	}
	return employees, nil
}
