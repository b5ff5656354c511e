package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/yigit/campuskizuna/internal/app/models"
	"github.com/yigit/campuskizuna/internal/app/repositories"
	"github.com/yigit/campuskizuna/internal/pkg/apperrors"
)

// Capability is a privileged operation gated by role
type Capability string

const (
	ManageClassrooms Capability = "ManageClassrooms"
	ManageSubjects   Capability = "ManageSubjects"
	ManageUsers      Capability = "ManageUsers"
	RecordAttendance Capability = "RecordAttendance"
	CreateAssignment Capability = "CreateAssignment"
	PublishNotice    Capability = "PublishNotice"
	ExportReports    Capability = "ExportReports"
)

// roleCapabilities is the fixed capability table. Students hold none.
var roleCapabilities = map[models.Role]map[Capability]bool{
	models.RoleFaculty: {
		RecordAttendance: true,
		CreateAssignment: true,
		PublishNotice:    true,
		ExportReports:    true,
	},
	models.RoleAdmin: {
		ManageClassrooms: true,
		ManageSubjects:   true,
		ManageUsers:      true,
		RecordAttendance: true,
		CreateAssignment: true,
		PublishNotice:    true,
		ExportReports:    true,
	},
}

// Can reports whether role holds capability
func Can(role models.Role, capability Capability) bool {
	return roleCapabilities[role][capability]
}

// ErrPermissionDenied is returned when the caller's role lacks a capability
var ErrPermissionDenied = apperrors.ErrPermissionDenied

// AuthorizationService answers capability and ownership questions for a user id
type AuthorizationService struct {
	users  repositories.Collection[models.User]
	logger zerolog.Logger
}

// NewAuthorizationService creates a new authorization service
func NewAuthorizationService(users repositories.Collection[models.User], logger zerolog.Logger) *AuthorizationService {
	return &AuthorizationService{
		users:  users,
		logger: logger.With().Str("service", "authorization").Logger(),
	}
}

// RoleOf loads the stored role of userID
func (s *AuthorizationService) RoleOf(ctx context.Context, userID string) (models.Role, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrResourceNotFound) {
			return "", apperrors.ErrUserNotFound
		}
		s.logger.Error().Err(err).Str("userID", userID).Msg("Error loading user role")
		return "", fmt.Errorf("failed to load user role: %w", err)
	}
	return user.Role, nil
}

// ValidateCapability returns a forbidden error unless userID's role holds capability
func (s *AuthorizationService) ValidateCapability(ctx context.Context, userID string, capability Capability) error {
	role, err := s.RoleOf(ctx, userID)
	if err != nil {
		return err
	}
	if !Can(role, capability) {
		return apperrors.NewForbiddenError(fmt.Sprintf("role %s lacks capability %s", role, capability))
	}
	return nil
}

// ValidateProfileOwnership allows a user to act on their own profile, and admins on any
func (s *AuthorizationService) ValidateProfileOwnership(ctx context.Context, actorID, targetID string) error {
	if actorID == targetID {
		return nil
	}
	return s.ValidateCapability(ctx, actorID, ManageUsers)
}
