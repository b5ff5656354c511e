package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/yigit/campuskizuna/internal/app/models"
	"github.com/yigit/campuskizuna/internal/app/models/dto"
	"github.com/yigit/campuskizuna/internal/pkg/apperrors"
	"github.com/yigit/campuskizuna/internal/pkg/auth"
	"github.com/yigit/campuskizuna/internal/pkg/keylock"
	"golang.org/x/crypto/bcrypt"
)

func startSession(t *testing.T, env *testEnv, role models.Role) string {
	t.Helper()
	s, err := env.sessions.Start(env.ctx)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if role != "" {
		if _, err := env.sessions.SelectRole(env.ctx, s.ID, role); err != nil {
			t.Fatalf("SelectRole: %v", err)
		}
	}
	return s.ID
}

func TestStudentOnboarding(t *testing.T) {
	env := newTestEnv(t)
	id := startSession(t, env, models.RoleStudent)

	s, err := env.sessions.Register(env.ctx, id, &dto.RegisterRequest{
		Identifier:     "uucms004",
		Password:       "secret42",
		PersonalNumber: "+919876543213",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if s.State != models.StateOtpPending {
		t.Fatalf("state = %s", s.State)
	}

	if s, err = env.sessions.VerifyOTP(env.ctx, id, "482913"); err != nil || s.State != models.StateProfileSetup {
		t.Fatalf("VerifyOTP: %v, state %v", err, s)
	}

	s, err = env.sessions.CompleteProfile(env.ctx, id, &dto.ProfileSetupRequest{
		Name:   "Nina Patel",
		Bio:    "BCA first year.",
		Skills: []string{"Java"},
	})
	if err != nil {
		t.Fatalf("CompleteProfile: %v", err)
	}
	if s.State != models.StateActive || s.Auth == nil || s.Auth.AccessToken == "" {
		t.Fatalf("session = %+v", s)
	}

	u := env.user(t, s.UserID)
	if u.UUCMS != "UUCMS004" || u.PersonalNumber != "+919876543213" || u.Coins != models.DefaultCoins {
		t.Errorf("user = %+v", u)
	}
	if u.Avatar != "https://picsum.photos/seed/Nina%20Patel/200" {
		t.Errorf("avatar = %q", u.Avatar)
	}
	if err := env.sessions.Authorize(env.ctx, id, u.ID); err != nil {
		t.Errorf("Authorize: %v", err)
	}

	if s, err = env.sessions.Logout(env.ctx, id); err != nil || s.State != models.StateRoleSelection {
		t.Fatalf("Logout: %v, %+v", err, s)
	}
	if err := env.sessions.Authorize(env.ctx, id, u.ID); !errors.Is(err, apperrors.ErrSessionExpired) {
		t.Errorf("Authorize after logout = %v", err)
	}

	// the new account can log in
	id = startSession(t, env, models.RoleStudent)
	s, err = env.sessions.Login(env.ctx, id, "UUCMS004", "secret42")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if s.UserID != u.ID {
		t.Errorf("logged in as %s, want %s", s.UserID, u.ID)
	}
}

func TestFacultyOnboardingOmitsStudentFields(t *testing.T) {
	env := newTestEnv(t)
	id := startSession(t, env, models.RoleFaculty)

	if _, err := env.sessions.Register(env.ctx, id, &dto.RegisterRequest{Identifier: "Dr.Sattler", Password: "botany99", PersonalNumber: "9999999999"}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, err := env.sessions.VerifyOTP(env.ctx, id, "000000"); err != nil {
		t.Fatalf("VerifyOTP: %v", err)
	}
	s, err := env.sessions.CompleteProfile(env.ctx, id, &dto.ProfileSetupRequest{Name: "Dr. Ellie Sattler", Bio: "Botany.", Avatar: "https://example.com/ellie.png"})
	if err != nil {
		t.Fatalf("CompleteProfile: %v", err)
	}

	u := env.user(t, s.UserID)
	if u.Role != models.RoleFaculty || u.UUCMS != "" || u.PersonalNumber != "" || u.Avatar != "https://example.com/ellie.png" {
		t.Errorf("user = %+v", u)
	}
	cred, err := env.repos.Credentials.FindByID(env.ctx, u.ID)
	if err != nil {
		t.Fatal(err)
	}
	if cred.Identifier != "dr.sattler" || strings.Contains(cred.PasswordHash, "botany99") {
		t.Errorf("credential = %+v", cred)
	}
}

func TestSessionRejectsSkippedStates(t *testing.T) {
	env := newTestEnv(t)
	id := startSession(t, env, "")

	steps := map[string]func() error{
		"register": func() error {
			_, err := env.sessions.Register(env.ctx, id, &dto.RegisterRequest{Identifier: "UUCMS050", Password: "secret42", PersonalNumber: "9876500000"})
			return err
		},
		"login": func() error {
			_, err := env.sessions.Login(env.ctx, id, "UUCMS001", testPassword)
			return err
		},
		"otp": func() error {
			_, err := env.sessions.VerifyOTP(env.ctx, id, "123456")
			return err
		},
		"profile": func() error {
			_, err := env.sessions.CompleteProfile(env.ctx, id, &dto.ProfileSetupRequest{Name: "Skip Per", Bio: "x"})
			return err
		},
		"logout": func() error {
			_, err := env.sessions.Logout(env.ctx, id)
			return err
		},
		"back": func() error {
			_, err := env.sessions.Back(env.ctx, id)
			return err
		},
	}
	for name, step := range steps {
		t.Run(name, func(t *testing.T) {
			if err := step(); !errors.Is(err, apperrors.ErrInvalidTransition) {
				t.Errorf("error = %v, want invalid transition", err)
			}
		})
	}

	s, err := env.sessions.Get(env.ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if s.State != models.StateRoleSelection {
		t.Errorf("rejected actions moved the session to %s", s.State)
	}

	if _, err := env.sessions.SelectRole(env.ctx, id, models.RoleAdmin); err != nil {
		t.Fatal(err)
	}
	if _, err := env.sessions.SelectRole(env.ctx, id, models.RoleAdmin); !errors.Is(err, apperrors.ErrInvalidTransition) {
		t.Errorf("second SelectRole error = %v", err)
	}
	if _, err := env.sessions.VerifyOTP(env.ctx, id, "123456"); !errors.Is(err, apperrors.ErrInvalidTransition) {
		t.Errorf("otp before register error = %v", err)
	}
}

func TestVerifyOTPRejectsMalformedCodes(t *testing.T) {
	env := newTestEnv(t)
	id := startSession(t, env, models.RoleAdmin)
	if _, err := env.sessions.Register(env.ctx, id, &dto.RegisterRequest{Identifier: "ops-admin", Password: "secret42"}); err != nil {
		t.Fatalf("Register: %v", err)
	}

	for _, code := range []string{"12345", "1234567", "12a456", ""} {
		if _, err := env.sessions.VerifyOTP(env.ctx, id, code); !errors.Is(err, apperrors.ErrValidationFailed) {
			t.Errorf("VerifyOTP(%q) error = %v, want validation", code, err)
		}
	}
	s, _ := env.sessions.Get(env.ctx, id)
	if s.State != models.StateOtpPending {
		t.Errorf("state = %s, want OtpPending", s.State)
	}
}

type rejectingVerifier struct{}

func (rejectingVerifier) Verify(context.Context, *models.Session, string) (bool, error) {
	return false, nil
}

func TestVerifyOTPUsesVerifier(t *testing.T) {
	env := newTestEnv(t)
	sessions := NewSessionService(env.store, env.repos, env.users,
		auth.NewJWTService(auth.JWTConfig{SecretKey: "k", AccessTokenExp: time.Hour}),
		rejectingVerifier{}, keylock.New(), env.clock,
		SessionConfig{TTL: time.Hour, OTPLength: 4, BcryptCost: bcrypt.MinCost}, zerolog.Nop())

	s, _ := sessions.Start(env.ctx)
	if _, err := sessions.SelectRole(env.ctx, s.ID, models.RoleAdmin); err != nil {
		t.Fatal(err)
	}
	if _, err := sessions.Register(env.ctx, s.ID, &dto.RegisterRequest{Identifier: "root", Password: "secret42"}); err != nil {
		t.Fatal(err)
	}
	if _, err := sessions.VerifyOTP(env.ctx, s.ID, "1234"); !errors.Is(err, apperrors.ErrValidationFailed) {
		t.Errorf("error = %v, want validation", err)
	}
}

func TestRegisterValidation(t *testing.T) {
	env := newTestEnv(t)

	cases := []struct {
		name  string
		role  models.Role
		req   dto.RegisterRequest
		field string
		want  error
	}{
		{"student without phone", models.RoleStudent, dto.RegisterRequest{Identifier: "UUCMS060", Password: "secret42"}, "personalNumber", apperrors.ErrValidationFailed},
		{"bad uucms", models.RoleStudent, dto.RegisterRequest{Identifier: "no spaces!", Password: "secret42", PersonalNumber: "9876543299"}, "identifier", apperrors.ErrValidationFailed},
		{"short password", models.RoleFaculty, dto.RegisterRequest{Identifier: "prof", Password: "abc"}, "password", apperrors.ErrValidationFailed},
		{"taken identifier", models.RoleStudent, dto.RegisterRequest{Identifier: "uucms001", Password: "secret42", PersonalNumber: "9876543299"}, "", apperrors.ErrConflict},
		{"taken across roles", models.RoleAdmin, dto.RegisterRequest{Identifier: "Faculty01", Password: "secret42"}, "", apperrors.ErrConflict},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			id := startSession(t, env, tc.role)
			_, err := env.sessions.Register(env.ctx, id, &tc.req)
			if !errors.Is(err, tc.want) {
				t.Fatalf("error = %v, want %v", err, tc.want)
			}
			if tc.field != "" {
				if got := apperrors.DetailsOf(err)["field"]; got != tc.field {
					t.Errorf("field = %v, want %s", got, tc.field)
				}
			}
		})
	}
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t)

	t.Run("seeded student", func(t *testing.T) {
		id := startSession(t, env, models.RoleStudent)
		s, err := env.sessions.Login(env.ctx, id, " UUCMS001 ", testPassword)
		if err != nil {
			t.Fatalf("Login: %v", err)
		}
		if s.State != models.StateActive || s.UserID != "student01" || s.Auth.User.ID != "student01" {
			t.Errorf("session = %+v", s)
		}
	})

	t.Run("wrong password", func(t *testing.T) {
		id := startSession(t, env, models.RoleStudent)
		if _, err := env.sessions.Login(env.ctx, id, "UUCMS001", "nope"); !errors.Is(err, apperrors.ErrInvalidCredentials) {
			t.Errorf("error = %v", err)
		}
		s, _ := env.sessions.Get(env.ctx, id)
		if s.State != models.StateAuthenticating {
			t.Errorf("state = %s", s.State)
		}
	})

	t.Run("wrong role", func(t *testing.T) {
		id := startSession(t, env, models.RoleFaculty)
		if _, err := env.sessions.Login(env.ctx, id, "UUCMS001", testPassword); !errors.Is(err, apperrors.ErrInvalidCredentials) {
			t.Errorf("error = %v", err)
		}
	})
}

func TestRemovedUserSessionStopsAuthorizing(t *testing.T) {
	env := newTestEnv(t)
	id := startSession(t, env, models.RoleStudent)
	s, err := env.sessions.Login(env.ctx, id, "UUCMS002", testPassword)
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if err := env.sessions.Authorize(env.ctx, id, s.UserID); err != nil {
		t.Fatalf("Authorize before removal: %v", err)
	}

	if err := env.users.RemoveUser(env.ctx, "student02", true); err != nil {
		t.Fatalf("RemoveUser: %v", err)
	}
	if err := env.sessions.Authorize(env.ctx, id, s.UserID); !errors.Is(err, apperrors.ErrSessionExpired) {
		t.Errorf("Authorize after removal = %v, want ErrSessionExpired", err)
	}
}

func TestBack(t *testing.T) {
	env := newTestEnv(t)
	id := startSession(t, env, models.RoleAdmin)

	if _, err := env.sessions.Register(env.ctx, id, &dto.RegisterRequest{Identifier: "campus-ops", Password: "secret42"}); err != nil {
		t.Fatal(err)
	}
	s, err := env.sessions.Back(env.ctx, id)
	if err != nil || s.State != models.StateAuthenticating {
		t.Fatalf("Back from OtpPending: %v, %+v", err, s)
	}
	s, err = env.sessions.Back(env.ctx, id)
	if err != nil || s.State != models.StateRoleSelection || s.Role != "" {
		t.Fatalf("Back from Authenticating: %v, %+v", err, s)
	}
}

func TestSessionExpiry(t *testing.T) {
	env := newTestEnv(t)
	id := startSession(t, env, "")

	if _, err := env.sessions.Get(env.ctx, "unknown"); !errors.Is(err, apperrors.ErrResourceNotFound) {
		t.Errorf("unknown session error = %v", err)
	}

	env.clock.Advance(2 * time.Hour)
	if _, err := env.sessions.SelectRole(env.ctx, id, models.RoleStudent); !errors.Is(err, apperrors.ErrSessionNotFound) {
		t.Errorf("expired session error = %v", err)
	}
	removed, err := env.sessions.SweepExpired(env.ctx)
	if err != nil {
		t.Fatal(err)
	}
	if removed != 1 {
		t.Errorf("swept %d sessions, want 1", removed)
	}
}

func TestRegistrationFor(t *testing.T) {
	req := &dto.RegisterRequest{Identifier: " UUCMS070 ", Password: "secret42", PersonalNumber: "9876543270"}

	reg, err := RegistrationFor(models.RoleStudent, req)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := reg.(StudentRegistration); !ok {
		t.Fatalf("got %T", reg)
	}
	if reg.Identifier() != "uucms070" || reg.Contact() != "9876543270" {
		t.Errorf("identifier %q contact %q", reg.Identifier(), reg.Contact())
	}
	if err := reg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}

	if _, err := RegistrationFor("", req); !errors.Is(err, apperrors.ErrValidationFailed) {
		t.Errorf("no role error = %v", err)
	}
}
