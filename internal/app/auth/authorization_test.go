package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/yigit/campuskizuna/internal/app/models"
	"github.com/yigit/campuskizuna/internal/app/repositories"
	"github.com/yigit/campuskizuna/internal/pkg/apperrors"
)

func TestCan(t *testing.T) {
	tests := []struct {
		role       models.Role
		capability Capability
		want       bool
	}{
		{models.RoleStudent, PublishNotice, false},
		{models.RoleStudent, ManageClassrooms, false},
		{models.RoleFaculty, RecordAttendance, true},
		{models.RoleFaculty, CreateAssignment, true},
		{models.RoleFaculty, PublishNotice, true},
		{models.RoleFaculty, ExportReports, true},
		{models.RoleFaculty, ManageClassrooms, false},
		{models.RoleFaculty, ManageUsers, false},
		{models.RoleAdmin, ManageClassrooms, true},
		{models.RoleAdmin, ManageSubjects, true},
		{models.RoleAdmin, RecordAttendance, true},
		{models.Role("Guest"), PublishNotice, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.role)+"/"+string(tt.capability), func(t *testing.T) {
			if got := Can(tt.role, tt.capability); got != tt.want {
				t.Errorf("Can(%s, %s) = %v, want %v", tt.role, tt.capability, got, tt.want)
			}
		})
	}
}

func TestAuthorizationService(t *testing.T) {
	ctx := context.Background()
	repos := repositories.NewMemoryRepositories()
	for _, u := range []*models.User{
		{ID: "s1", Name: "Student", Role: models.RoleStudent},
		{ID: "f1", Name: "Faculty", Role: models.RoleFaculty},
		{ID: "a1", Name: "Admin", Role: models.RoleAdmin},
	} {
		if err := repos.Users.Insert(ctx, u); err != nil {
			t.Fatalf("insert %s: %v", u.ID, err)
		}
	}
	svc := NewAuthorizationService(repos.Users, zerolog.Nop())

	t.Run("self edit allowed", func(t *testing.T) {
		if err := svc.ValidateProfileOwnership(ctx, "s1", "s1"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})
	t.Run("admin may edit others", func(t *testing.T) {
		if err := svc.ValidateProfileOwnership(ctx, "a1", "s1"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})
	t.Run("faculty may not edit others", func(t *testing.T) {
		err := svc.ValidateProfileOwnership(ctx, "f1", "s1")
		if !errors.Is(err, apperrors.ErrPermissionDenied) {
			t.Fatalf("err = %v, want permission denied", err)
		}
	})
	t.Run("unknown actor", func(t *testing.T) {
		err := svc.ValidateCapability(ctx, "ghost", ManageUsers)
		if !errors.Is(err, apperrors.ErrUserNotFound) {
			t.Fatalf("err = %v, want ErrUserNotFound", err)
		}
	})
}
