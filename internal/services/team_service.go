// Package services – TeamService
//
// This file implements TeamService, which manages the lifecycle of teams and
// team memberships. It normalizes and validates names, enforces the role
// matrix (OWNER > ADMIN > MEMBER), and coordinates repository operations for
// creating teams, managing members, changing roles, and ownership transfer.
//
// Service-level errors (e.g., ErrTeamNotFound, ErrForbidden) are returned for
// predictable cases so handlers can map them to HTTP results consistently.
//
// Observability: public methods are OpenTelemetry-instrumented; spans include
// team/user identifiers.
package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-issue-board/internal/domain"
	"github.com/tbourn/go-issue-board/internal/repo"
)

// roleRank orders team roles by privilege. Higher outranks lower.
var roleRank = map[string]int{
	domain.RoleOwner:  3,
	domain.RoleAdmin:  2,
	domain.RoleMember: 1,
}

// roleAtLeast reports whether role carries at least min's privilege.
func roleAtLeast(role, min string) bool {
	return roleRank[role] >= roleRank[min]
}

// TeamService provides team-level operations such as creating teams,
// managing members, and changing roles. It enforces the role matrix and
// ownership constraints.
type TeamService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Notify delivers in-app notifications for membership events. Optional.
	Notify *NotificationService

	// NameMaxLen caps stored team names by rune length.
	NameMaxLen int
}

// NewTeamService constructs a TeamService with sane defaults.
func NewTeamService(db *gorm.DB, notify *NotificationService) *TeamService {
	return &TeamService{DB: db, Notify: notify, NameMaxLen: 100}
}

// membership fetches the caller's live membership or reports the team as not
// found. Non-members cannot observe whether a team exists.
func (s *TeamService) membership(ctx context.Context, teamID, userID string) (*domain.TeamMember, error) {
	m, err := repo.GetMembership(ctx, s.DB, teamID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTeamNotFound
		}
		return nil, err
	}
	return m, nil
}

// Create inserts a new team owned by userID. The creator becomes the OWNER
// member in the same transaction.
func (s *TeamService) Create(ctx context.Context, userID, name string) (*domain.Team, error) {
	tr := otel.Tracer("services/TeamService")
	ctx, span := tr.Start(ctx, "Create",
		trace.WithAttributes(attribute.String("user.id", userID)),
	)
	defer span.End()

	name = normalizeName(name)
	if name == "" {
		return nil, ErrEmptyName
	}
	name = clipRunes(name, s.NameMaxLen)

	var team *domain.Team
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		t, err := repo.CreateTeam(ctx, tx, userID, name)
		if err != nil {
			return err
		}
		if _, err := repo.AddMember(ctx, tx, t.ID, userID, domain.RoleOwner); err != nil {
			return err
		}
		team = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return team, nil
}

// Get returns a team the caller belongs to.
func (s *TeamService) Get(ctx context.Context, userID, teamID string) (*domain.Team, error) {
	tr := otel.Tracer("services/TeamService")
	ctx, span := tr.Start(ctx, "Get",
		trace.WithAttributes(
			attribute.String("team.id", teamID),
			attribute.String("user.id", userID),
		),
	)
	defer span.End()

	if _, err := s.membership(ctx, teamID, userID); err != nil {
		return nil, err
	}
	t, err := repo.GetTeam(ctx, s.DB, teamID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTeamNotFound
		}
		return nil, err
	}
	return t, nil
}

// List returns the teams the caller is a member of, newest first.
func (s *TeamService) List(ctx context.Context, userID string) ([]domain.Team, error) {
	tr := otel.Tracer("services/TeamService")
	ctx, span := tr.Start(ctx, "List",
		trace.WithAttributes(attribute.String("user.id", userID)),
	)
	defer span.End()

	return repo.ListTeamsForUser(ctx, s.DB, userID)
}

// Members returns the team's live memberships, oldest first.
func (s *TeamService) Members(ctx context.Context, userID, teamID string) ([]domain.TeamMember, error) {
	tr := otel.Tracer("services/TeamService")
	ctx, span := tr.Start(ctx, "Members",
		trace.WithAttributes(attribute.String("team.id", teamID)),
	)
	defer span.End()

	if _, err := s.membership(ctx, teamID, userID); err != nil {
		return nil, err
	}
	return repo.ListMembers(ctx, s.DB, teamID)
}

// UpdateName renames a team. Requires ADMIN or above.
func (s *TeamService) UpdateName(ctx context.Context, userID, teamID, name string) error {
	tr := otel.Tracer("services/TeamService")
	ctx, span := tr.Start(ctx, "UpdateName",
		trace.WithAttributes(attribute.String("team.id", teamID)),
	)
	defer span.End()

	name = normalizeName(name)
	if name == "" {
		return ErrEmptyName
	}
	m, err := s.membership(ctx, teamID, userID)
	if err != nil {
		return err
	}
	if !roleAtLeast(m.Role, domain.RoleAdmin) {
		return ErrForbidden
	}
	return repo.UpdateTeamName(ctx, s.DB, teamID, clipRunes(name, s.NameMaxLen))
}

// AddMember adds a user to the team. Requires ADMIN or above. Role defaults
// to MEMBER; OWNER cannot be granted this way (use ChangeRole for transfer).
// A soft-deleted membership is restored instead of duplicated.
func (s *TeamService) AddMember(ctx context.Context, actorID, teamID, userID, role string) (*domain.TeamMember, error) {
	tr := otel.Tracer("services/TeamService")
	ctx, span := tr.Start(ctx, "AddMember",
		trace.WithAttributes(
			attribute.String("team.id", teamID),
			attribute.String("member.user.id", userID),
		),
	)
	defer span.End()

	if role == "" {
		role = domain.RoleMember
	}
	if role != domain.RoleMember && role != domain.RoleAdmin {
		return nil, ErrInvalidRole
	}

	actor, err := s.membership(ctx, teamID, actorID)
	if err != nil {
		return nil, err
	}
	if !roleAtLeast(actor.Role, domain.RoleAdmin) {
		return nil, ErrForbidden
	}
	if _, err := repo.GetMembership(ctx, s.DB, teamID, userID); err == nil {
		return nil, ErrMemberExists
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	m, err := repo.AddMember(ctx, s.DB, teamID, userID, role)
	if err != nil {
		return nil, err
	}

	if s.Notify != nil {
		team, terr := repo.GetTeam(ctx, s.DB, teamID)
		teamName := teamID
		if terr == nil {
			teamName = team.Name
		}
		s.Notify.Push(ctx, userID, domain.NotifyMemberAdded,
			"added to team",
			fmt.Sprintf("You were added to %s as %s.", teamName, role),
			"/teams/"+teamID)
	}
	return m, nil
}

// RemoveMember removes a user from the team. ADMIN may remove MEMBERs only;
// OWNER may remove anyone except themselves.
func (s *TeamService) RemoveMember(ctx context.Context, actorID, teamID, userID string) error {
	tr := otel.Tracer("services/TeamService")
	ctx, span := tr.Start(ctx, "RemoveMember",
		trace.WithAttributes(
			attribute.String("team.id", teamID),
			attribute.String("member.user.id", userID),
		),
	)
	defer span.End()

	actor, err := s.membership(ctx, teamID, actorID)
	if err != nil {
		return err
	}
	target, err := repo.GetMembership(ctx, s.DB, teamID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrMemberNotFound
		}
		return err
	}

	switch {
	case actorID == userID:
		// Nobody removes themselves; ownership must be transferred first.
		return ErrForbidden
	case actor.Role == domain.RoleOwner:
		// OWNER may remove anyone else.
	case actor.Role == domain.RoleAdmin && target.Role == domain.RoleMember:
		// ADMIN may remove plain members.
	default:
		return ErrForbidden
	}
	return repo.RemoveMember(ctx, s.DB, teamID, userID)
}

// ChangeRole changes a member's role. OWNER only. Assigning OWNER transfers
// ownership: the target becomes OWNER and the caller is demoted to ADMIN in
// the same transaction.
func (s *TeamService) ChangeRole(ctx context.Context, actorID, teamID, userID, role string) error {
	tr := otel.Tracer("services/TeamService")
	ctx, span := tr.Start(ctx, "ChangeRole",
		trace.WithAttributes(
			attribute.String("team.id", teamID),
			attribute.String("member.user.id", userID),
			attribute.String("role", role),
		),
	)
	defer span.End()

	if _, ok := roleRank[role]; !ok {
		return ErrInvalidRole
	}
	actor, err := s.membership(ctx, teamID, actorID)
	if err != nil {
		return err
	}
	if actor.Role != domain.RoleOwner {
		return ErrForbidden
	}
	if actorID == userID {
		return ErrForbidden
	}
	if _, err := repo.GetMembership(ctx, s.DB, teamID, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrMemberNotFound
		}
		return err
	}

	if role == domain.RoleOwner {
		err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := repo.UpdateMemberRole(ctx, tx, teamID, userID, domain.RoleOwner); err != nil {
				return err
			}
			if err := repo.UpdateMemberRole(ctx, tx, teamID, actorID, domain.RoleAdmin); err != nil {
				return err
			}
			return tx.Model(&domain.Team{}).Where("id = ?", teamID).
				Update("owner_id", userID).Error
		})
	} else {
		err = repo.UpdateMemberRole(ctx, s.DB, teamID, userID, role)
	}
	if err != nil {
		return err
	}

	if s.Notify != nil {
		s.Notify.Push(ctx, userID, domain.NotifyRoleChanged,
			"role changed",
			fmt.Sprintf("Your team role is now %s.", role),
			"/teams/"+teamID)
	}
	return nil
}

// Delete soft-deletes a team. OWNER only.
func (s *TeamService) Delete(ctx context.Context, actorID, teamID string) error {
	tr := otel.Tracer("services/TeamService")
	ctx, span := tr.Start(ctx, "Delete",
		trace.WithAttributes(attribute.String("team.id", teamID)),
	)
	defer span.End()

	actor, err := s.membership(ctx, teamID, actorID)
	if err != nil {
		return err
	}
	if actor.Role != domain.RoleOwner {
		return ErrForbidden
	}
	return repo.DeleteTeam(ctx, s.DB, teamID)
}

// clipRunes truncates s to at most max runes. Non-positive max disables the cap.
func clipRunes(s string, max int) string {
	if max > 0 && utf8.RuneCountInString(s) > max {
		return string([]rune(s)[:max])
	}
	return s
}

// normalizeName trims whitespace and collapses multiple spaces to one.
func normalizeName(s string) string {
	return whitespaceRE.ReplaceAllString(strings.TrimSpace(s), " ")
}

// whitespaceRE collapses consecutive whitespace to a single space.
var whitespaceRE = regexp.MustCompile(`\s+`)
