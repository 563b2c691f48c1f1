package hierarchy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/perfpulse/meetsched/internal/domain"
	"github.com/perfpulse/meetsched/internal/logging"
)

// Resolver computes visibility scopes from the employee management graph.
type Resolver struct {
	graph  domain.EmployeeGraphStore
	logger *slog.Logger
}

// New creates a resolver. logger may be nil.
func New(graph domain.EmployeeGraphStore, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{graph: graph, logger: logger}
}

// ManagerClosure returns the transitive set of manager-role user IDs reachable
// from the given manager by following direct-report edges, including the
// manager themselves. The traversal is breadth-first with a visited set, so a
// cyclic reporting chain still terminates and yields each user once.
func (r *Resolver) ManagerClosure(ctx context.Context, managerUserID string) ([]string, error) {
	closure := []string{managerUserID}
	seen := map[string]bool{managerUserID: true}

	self, err := r.graph.EmployeeByUserID(ctx, managerUserID)
	if err != nil {
		var notFound *domain.NotFoundError
		if errors.As(err, &notFound) {
			// A manager without an employee node has no reports to walk.
			return closure, nil
		}
		return nil, fmt.Errorf("failed to load employee for closure: %w", err)
	}

	queue := []string{self.ID}
	visited := map[string]bool{self.ID: true}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		reports, err := r.graph.DirectReports(ctx, current)
		if err != nil {
			return nil, fmt.Errorf("failed to load direct reports of %s: %w", current, err)
		}
		for _, report := range reports {
			if visited[report.ID] {
				continue
			}
			visited[report.ID] = true
			if report.UserID == "" {
				continue
			}
			user, err := r.graph.UserByID(ctx, report.UserID)
			if err != nil {
				var notFound *domain.NotFoundError
				if errors.As(err, &notFound) {
					continue
				}
				return nil, fmt.Errorf("failed to load user %s: %w", report.UserID, err)
			}
			if user.Role != domain.RoleManager {
				continue
			}
			if !seen[user.ID] {
				seen[user.ID] = true
				closure = append(closure, user.ID)
			}
			queue = append(queue, report.ID)
		}
	}

	return closure, nil
}

// Scope computes the visibility scope for a principal.
//
// Admins see everything. Managers see the teams owned by any user in their
// manager closure plus the employees of those teams; a meeting is visible when
// either its manager is in the closure or its employee is in those teams.
// Plain users see only their own employee record and meetings where they are a
// participant or the direct manager.
func (r *Resolver) Scope(ctx context.Context, principal domain.Principal) (domain.Scope, error) {
	switch principal.Role {
	case domain.RoleAdmin:
		return domain.Scope{All: true}, nil

	case domain.RoleManager:
		closure, err := r.ManagerClosure(ctx, principal.ID)
		if err != nil {
			return domain.Scope{}, err
		}
		teams, err := r.graph.TeamsOwnedBy(ctx, closure)
		if err != nil {
			return domain.Scope{}, fmt.Errorf("failed to load owned teams: %w", err)
		}
		teamIDs := make([]string, 0, len(teams))
		for _, team := range teams {
			teamIDs = append(teamIDs, team.ID)
		}
		var employeeIDs []string
		if len(teamIDs) > 0 {
			employees, err := r.graph.EmployeesInTeams(ctx, teamIDs)
			if err != nil {
				return domain.Scope{}, fmt.Errorf("failed to load team employees: %w", err)
			}
			employeeIDs = make([]string, 0, len(employees))
			for _, employee := range employees {
				employeeIDs = append(employeeIDs, employee.ID)
			}
		}
		r.logger.Debug("resolved manager scope",
			logging.UserHash(principal.ID),
			slog.Int("managers", len(closure)),
			slog.Int("teams", len(teamIDs)),
			slog.Int("employees", len(employeeIDs)),
		)
		return domain.Scope{
			ManagerUserIDs: closure,
			TeamIDs:        teamIDs,
			EmployeeIDs:    employeeIDs,
		}, nil

	case domain.RoleUser:
		scope := domain.Scope{ManagerUserIDs: []string{principal.ID}}
		employee, err := r.graph.EmployeeByUserID(ctx, principal.ID)
		if err != nil {
			var notFound *domain.NotFoundError
			if errors.As(err, &notFound) {
				return scope, nil
			}
			return domain.Scope{}, fmt.Errorf("failed to load employee for user scope: %w", err)
		}
		scope.EmployeeIDs = []string{employee.ID}
		if employee.TeamID != "" {
			scope.TeamIDs = []string{employee.TeamID}
		}
		return scope, nil
	}

	return domain.Scope{}, &domain.AccessDeniedError{Resource: "scope", ID: string(principal.Role)}
}
