// Package services – ProjectService
//
// This file implements ProjectService, which owns projects and their board
// configuration (status columns and labels). New projects are seeded with the
// default Backlog / In Progress / Done columns. Archiving makes a project
// read-only for issue mutations; the archived check itself lives in
// IssueService and CommentService, which consult the project row.
//
// Role rules: any team member can read and create projects and manage labels;
// renaming, archiving, deleting, and column changes require ADMIN or above.
package services

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-issue-board/internal/domain"
	"github.com/tbourn/go-issue-board/internal/repo"
)

// defaultStatuses are seeded into every new project, in column order.
var defaultStatuses = []string{"Backlog", "In Progress", "Done"}

// defaultLabelColor is applied when a label is created without a color.
const defaultLabelColor = "#808080"

// ProjectService provides project, status, and label operations scoped by
// team membership.
type ProjectService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB

	// NameMaxLen caps stored project names by rune length.
	NameMaxLen int
}

// NewProjectService constructs a ProjectService with sane defaults.
func NewProjectService(db *gorm.DB) *ProjectService {
	return &ProjectService{DB: db, NameMaxLen: 100}
}

// access loads the project and the caller's role in its team. Non-members
// cannot observe whether a project exists.
func (s *ProjectService) access(ctx context.Context, projectID, userID string) (*domain.Project, string, error) {
	p, err := repo.GetProject(ctx, s.DB, projectID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", ErrProjectNotFound
		}
		return nil, "", err
	}
	m, err := repo.GetMembership(ctx, s.DB, p.TeamID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", ErrProjectNotFound
		}
		return nil, "", err
	}
	return p, m.Role, nil
}

// Create inserts a project under teamID and seeds the default status columns
// in the same transaction. Any team member may create projects.
func (s *ProjectService) Create(ctx context.Context, userID, teamID, name, description string) (*domain.Project, error) {
	tr := otel.Tracer("services/ProjectService")
	ctx, span := tr.Start(ctx, "Create",
		trace.WithAttributes(
			attribute.String("team.id", teamID),
			attribute.String("user.id", userID),
		),
	)
	defer span.End()

	name = normalizeName(name)
	if name == "" {
		return nil, ErrEmptyName
	}
	if _, err := repo.GetMembership(ctx, s.DB, teamID, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTeamNotFound
		}
		return nil, err
	}

	var project *domain.Project
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		p, err := repo.CreateProject(ctx, tx, teamID, clipRunes(name, s.NameMaxLen), description)
		if err != nil {
			return err
		}
		for i, name := range defaultStatuses {
			if _, err := repo.CreateStatus(ctx, tx, p.ID, name, i, nil); err != nil {
				return err
			}
		}
		project = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return project, nil
}

// ProjectDetail is a project plus its board configuration.
type ProjectDetail struct {
	Project  domain.Project  `json:"project"`
	Statuses []domain.Status `json:"statuses"`
	Labels   []domain.Label  `json:"labels"`
}

// Get returns the project with its status columns and labels.
func (s *ProjectService) Get(ctx context.Context, userID, projectID string) (*ProjectDetail, error) {
	tr := otel.Tracer("services/ProjectService")
	ctx, span := tr.Start(ctx, "Get",
		trace.WithAttributes(attribute.String("project.id", projectID)),
	)
	defer span.End()

	p, _, err := s.access(ctx, projectID, userID)
	if err != nil {
		return nil, err
	}
	statuses, err := repo.ListStatuses(ctx, s.DB, projectID)
	if err != nil {
		return nil, err
	}
	labels, err := repo.ListLabels(ctx, s.DB, projectID)
	if err != nil {
		return nil, err
	}
	return &ProjectDetail{Project: *p, Statuses: statuses, Labels: labels}, nil
}

// List returns the team's projects, newest first. Any member may list.
func (s *ProjectService) List(ctx context.Context, userID, teamID string) ([]domain.Project, error) {
	tr := otel.Tracer("services/ProjectService")
	ctx, span := tr.Start(ctx, "List",
		trace.WithAttributes(attribute.String("team.id", teamID)),
	)
	defer span.End()

	if _, err := repo.GetMembership(ctx, s.DB, teamID, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTeamNotFound
		}
		return nil, err
	}
	return repo.ListProjects(ctx, s.DB, teamID)
}

// Update changes a project's name and/or description. Requires ADMIN or above.
// Nil pointers leave the corresponding field untouched.
func (s *ProjectService) Update(ctx context.Context, userID, projectID string, name, description *string) error {
	tr := otel.Tracer("services/ProjectService")
	ctx, span := tr.Start(ctx, "Update",
		trace.WithAttributes(attribute.String("project.id", projectID)),
	)
	defer span.End()

	_, role, err := s.access(ctx, projectID, userID)
	if err != nil {
		return err
	}
	if !roleAtLeast(role, domain.RoleAdmin) {
		return ErrForbidden
	}

	fields := map[string]any{}
	if name != nil {
		n := normalizeName(*name)
		if n == "" {
			return ErrEmptyName
		}
		fields["name"] = clipRunes(n, s.NameMaxLen)
	}
	if description != nil {
		fields["description"] = *description
	}
	if len(fields) == 0 {
		return nil
	}
	return repo.UpdateProject(ctx, s.DB, projectID, fields)
}

// SetArchived archives or unarchives a project. Requires ADMIN or above.
func (s *ProjectService) SetArchived(ctx context.Context, userID, projectID string, archived bool) error {
	tr := otel.Tracer("services/ProjectService")
	ctx, span := tr.Start(ctx, "SetArchived",
		trace.WithAttributes(
			attribute.String("project.id", projectID),
			attribute.Bool("archived", archived),
		),
	)
	defer span.End()

	_, role, err := s.access(ctx, projectID, userID)
	if err != nil {
		return err
	}
	if !roleAtLeast(role, domain.RoleAdmin) {
		return ErrForbidden
	}
	return repo.SetProjectArchived(ctx, s.DB, projectID, archived)
}

// Delete soft-deletes a project. Requires ADMIN or above.
func (s *ProjectService) Delete(ctx context.Context, userID, projectID string) error {
	tr := otel.Tracer("services/ProjectService")
	ctx, span := tr.Start(ctx, "Delete",
		trace.WithAttributes(attribute.String("project.id", projectID)),
	)
	defer span.End()

	_, role, err := s.access(ctx, projectID, userID)
	if err != nil {
		return err
	}
	if !roleAtLeast(role, domain.RoleAdmin) {
		return ErrForbidden
	}
	return repo.DeleteProject(ctx, s.DB, projectID)
}

//
// Status columns
//

// ListStatuses returns the project's columns in board order.
func (s *ProjectService) ListStatuses(ctx context.Context, userID, projectID string) ([]domain.Status, error) {
	tr := otel.Tracer("services/ProjectService")
	ctx, span := tr.Start(ctx, "ListStatuses",
		trace.WithAttributes(attribute.String("project.id", projectID)),
	)
	defer span.End()

	if _, _, err := s.access(ctx, projectID, userID); err != nil {
		return nil, err
	}
	return repo.ListStatuses(ctx, s.DB, projectID)
}

// CreateStatus appends a new column after the existing ones. Requires ADMIN
// or above. wipLimit is advisory; nil means no limit.
func (s *ProjectService) CreateStatus(ctx context.Context, userID, projectID, name string, wipLimit *int) (*domain.Status, error) {
	tr := otel.Tracer("services/ProjectService")
	ctx, span := tr.Start(ctx, "CreateStatus",
		trace.WithAttributes(attribute.String("project.id", projectID)),
	)
	defer span.End()

	name = normalizeName(name)
	if name == "" {
		return nil, ErrEmptyName
	}
	_, role, err := s.access(ctx, projectID, userID)
	if err != nil {
		return nil, err
	}
	if !roleAtLeast(role, domain.RoleAdmin) {
		return nil, ErrForbidden
	}

	existing, err := repo.ListStatuses(ctx, s.DB, projectID)
	if err != nil {
		return nil, err
	}
	position := 0
	if n := len(existing); n > 0 {
		position = existing[n-1].Position + 1
	}
	return repo.CreateStatus(ctx, s.DB, projectID, name, position, wipLimit)
}

// UpdateStatus changes a column's name, position, or WIP limit. Requires
// ADMIN or above. Nil pointers leave fields untouched; a negative wipLimit
// clears the limit.
func (s *ProjectService) UpdateStatus(ctx context.Context, userID, statusID string, name *string, position, wipLimit *int) error {
	tr := otel.Tracer("services/ProjectService")
	ctx, span := tr.Start(ctx, "UpdateStatus",
		trace.WithAttributes(attribute.String("status.id", statusID)),
	)
	defer span.End()

	st, err := repo.GetStatus(ctx, s.DB, statusID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrStatusNotFound
		}
		return err
	}
	_, role, err := s.access(ctx, st.ProjectID, userID)
	if err != nil {
		return err
	}
	if !roleAtLeast(role, domain.RoleAdmin) {
		return ErrForbidden
	}

	fields := map[string]any{}
	if name != nil {
		n := normalizeName(*name)
		if n == "" {
			return ErrEmptyName
		}
		fields["name"] = n
	}
	if position != nil {
		fields["position"] = *position
	}
	if wipLimit != nil {
		if *wipLimit < 0 {
			fields["wip_limit"] = nil
		} else {
			fields["wip_limit"] = *wipLimit
		}
	}
	if len(fields) == 0 {
		return nil
	}
	err = repo.UpdateStatus(ctx, s.DB, statusID, fields)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrStatusNotFound
	}
	return err
}

// DeleteStatus removes an empty column. Requires ADMIN or above; columns
// still holding live issues are refused.
func (s *ProjectService) DeleteStatus(ctx context.Context, userID, statusID string) error {
	tr := otel.Tracer("services/ProjectService")
	ctx, span := tr.Start(ctx, "DeleteStatus",
		trace.WithAttributes(attribute.String("status.id", statusID)),
	)
	defer span.End()

	st, err := repo.GetStatus(ctx, s.DB, statusID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrStatusNotFound
		}
		return err
	}
	_, role, err := s.access(ctx, st.ProjectID, userID)
	if err != nil {
		return err
	}
	if !roleAtLeast(role, domain.RoleAdmin) {
		return ErrForbidden
	}

	issues, err := repo.ListIssuesByStatus(ctx, s.DB, statusID)
	if err != nil {
		return err
	}
	if len(issues) > 0 {
		return ErrStatusNotEmpty
	}
	err = repo.DeleteStatus(ctx, s.DB, statusID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrStatusNotFound
	}
	return err
}

//
// Labels
//

// ListLabels returns the project's labels, name ascending.
func (s *ProjectService) ListLabels(ctx context.Context, userID, projectID string) ([]domain.Label, error) {
	tr := otel.Tracer("services/ProjectService")
	ctx, span := tr.Start(ctx, "ListLabels",
		trace.WithAttributes(attribute.String("project.id", projectID)),
	)
	defer span.End()

	if _, _, err := s.access(ctx, projectID, userID); err != nil {
		return nil, err
	}
	return repo.ListLabels(ctx, s.DB, projectID)
}

// CreateLabel adds a label to the project. Any member may manage labels.
func (s *ProjectService) CreateLabel(ctx context.Context, userID, projectID, name, color string) (*domain.Label, error) {
	tr := otel.Tracer("services/ProjectService")
	ctx, span := tr.Start(ctx, "CreateLabel",
		trace.WithAttributes(attribute.String("project.id", projectID)),
	)
	defer span.End()

	name = normalizeName(name)
	if name == "" {
		return nil, ErrEmptyName
	}
	if color == "" {
		color = defaultLabelColor
	}
	if _, _, err := s.access(ctx, projectID, userID); err != nil {
		return nil, err
	}
	return repo.CreateLabel(ctx, s.DB, projectID, name, color)
}

// UpdateLabel changes a label's name and/or color.
func (s *ProjectService) UpdateLabel(ctx context.Context, userID, labelID string, name, color *string) error {
	tr := otel.Tracer("services/ProjectService")
	ctx, span := tr.Start(ctx, "UpdateLabel",
		trace.WithAttributes(attribute.String("label.id", labelID)),
	)
	defer span.End()

	l, err := repo.GetLabel(ctx, s.DB, labelID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrLabelNotFound
		}
		return err
	}
	if _, _, err := s.access(ctx, l.ProjectID, userID); err != nil {
		return err
	}

	fields := map[string]any{}
	if name != nil {
		n := normalizeName(*name)
		if n == "" {
			return ErrEmptyName
		}
		fields["name"] = n
	}
	if color != nil && *color != "" {
		fields["color"] = *color
	}
	if len(fields) == 0 {
		return nil
	}
	err = repo.UpdateLabel(ctx, s.DB, labelID, fields)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrLabelNotFound
	}
	return err
}

// DeleteLabel removes a label. Join rows referencing it are left to cascade.
func (s *ProjectService) DeleteLabel(ctx context.Context, userID, labelID string) error {
	tr := otel.Tracer("services/ProjectService")
	ctx, span := tr.Start(ctx, "DeleteLabel",
		trace.WithAttributes(attribute.String("label.id", labelID)),
	)
	defer span.End()

	l, err := repo.GetLabel(ctx, s.DB, labelID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrLabelNotFound
		}
		return err
	}
	if _, _, err := s.access(ctx, l.ProjectID, userID); err != nil {
		return err
	}
	err = repo.DeleteLabel(ctx, s.DB, labelID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrLabelNotFound
	}
	return err
}
