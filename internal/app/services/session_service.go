package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/yigit/campuskizuna/internal/app/models"
	"github.com/yigit/campuskizuna/internal/app/models/dto"
	"github.com/yigit/campuskizuna/internal/app/repositories"
	"github.com/yigit/campuskizuna/internal/pkg/apperrors"
	"github.com/yigit/campuskizuna/internal/pkg/auth"
	"github.com/yigit/campuskizuna/internal/pkg/helpers"
	"github.com/yigit/campuskizuna/internal/pkg/keylock"
	"github.com/yigit/campuskizuna/internal/pkg/validation"
)

// OTPVerifier decides whether a well-formed one-time code is correct
type OTPVerifier interface {
	Verify(ctx context.Context, session *models.Session, code string) (bool, error)
}

// AcceptAnyOTP accepts every well-formed code. Codes are not delivered anywhere,
// so there is nothing to compare against.
type AcceptAnyOTP struct{}

// Verify always succeeds
func (AcceptAnyOTP) Verify(context.Context, *models.Session, string) (bool, error) { return true, nil }

// SessionConfig tunes the state machine
type SessionConfig struct {
	TTL        time.Duration
	OTPLength  int
	BcryptCost int
}

// SessionService drives a client through role selection, sign-up or login,
// OTP verification and profile setup until it is Active
type SessionService interface {
	Start(ctx context.Context) (*dto.SessionResponse, error)
	Get(ctx context.Context, sessionID string) (*dto.SessionResponse, error)
	SelectRole(ctx context.Context, sessionID string, role models.Role) (*dto.SessionResponse, error)
	Register(ctx context.Context, sessionID string, req *dto.RegisterRequest) (*dto.SessionResponse, error)
	Login(ctx context.Context, sessionID string, identifier, password string) (*dto.SessionResponse, error)
	VerifyOTP(ctx context.Context, sessionID, code string) (*dto.SessionResponse, error)
	CompleteProfile(ctx context.Context, sessionID string, req *dto.ProfileSetupRequest) (*dto.SessionResponse, error)
	Back(ctx context.Context, sessionID string) (*dto.SessionResponse, error)
	Logout(ctx context.Context, sessionID string) (*dto.SessionResponse, error)

	// Authorize confirms that sessionID is Active for userID
	Authorize(ctx context.Context, sessionID, userID string) error
	SweepExpired(ctx context.Context) (int, error)
}

type sessionServiceImpl struct {
	store      repositories.SessionStore
	repos      *repositories.Repositories
	users      UserService
	jwtService *auth.JWTService
	verifier   OTPVerifier
	locks      *keylock.Locker
	clock      helpers.Clock
	config     SessionConfig
	logger     zerolog.Logger
}

// NewSessionService creates a new SessionService
func NewSessionService(
	store repositories.SessionStore,
	repos *repositories.Repositories,
	users UserService,
	jwtService *auth.JWTService,
	verifier OTPVerifier,
	locks *keylock.Locker,
	clock helpers.Clock,
	config SessionConfig,
	logger zerolog.Logger,
) SessionService {
	if verifier == nil {
		verifier = AcceptAnyOTP{}
	}
	if config.TTL <= 0 {
		config.TTL = 24 * time.Hour
	}
	if config.OTPLength <= 0 {
		config.OTPLength = 6
	}
	if config.BcryptCost <= 0 {
		config.BcryptCost = auth.BcryptCost
	}
	return &sessionServiceImpl{
		store:      store,
		repos:      repos,
		users:      users,
		jwtService: jwtService,
		verifier:   verifier,
		locks:      locks,
		clock:      clock,
		config:     config,
		logger:     logger.With().Str("service", "sessions").Logger(),
	}
}

// Start opens a session in RoleSelection
func (s *sessionServiceImpl) Start(ctx context.Context) (*dto.SessionResponse, error) {
	now := s.clock.Now().UTC()
	session := &models.Session{
		ID:        uuid.New().String(),
		State:     models.StateRoleSelection,
		CreatedAt: now,
	}
	if err := s.save(ctx, session); err != nil {
		return nil, err
	}
	s.logger.Debug().Str("sessionID", session.ID).Msg("Session started")
	resp := dto.NewSessionResponse(session)
	return &resp, nil
}

// Get returns the current state of a session
func (s *sessionServiceImpl) Get(ctx context.Context, sessionID string) (*dto.SessionResponse, error) {
	session, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	resp := dto.NewSessionResponse(session)
	return &resp, nil
}

// SelectRole: RoleSelection -> Authenticating
func (s *sessionServiceImpl) SelectRole(ctx context.Context, sessionID string, role models.Role) (*dto.SessionResponse, error) {
	if !role.Valid() {
		return nil, apperrors.NewValidationError("role", "role must be Student, Faculty or Admin")
	}
	return s.transition(ctx, sessionID, "select role", func(session *models.Session) error {
		if session.State != models.StateRoleSelection {
			return apperrors.NewTransitionError("select role", string(session.State))
		}
		session.Role = role
		session.State = models.StateAuthenticating
		return nil
	})
}

// Register: Authenticating -> OtpPending. The identifier must be free.
func (s *sessionServiceImpl) Register(ctx context.Context, sessionID string, req *dto.RegisterRequest) (*dto.SessionResponse, error) {
	return s.transition(ctx, sessionID, "register", func(session *models.Session) error {
		if session.State != models.StateAuthenticating {
			return apperrors.NewTransitionError("register", string(session.State))
		}
		reg, err := RegistrationFor(session.Role, req)
		if err != nil {
			return err
		}
		if err := reg.Validate(); err != nil {
			return err
		}
		taken, err := s.identifierTaken(ctx, reg.Identifier())
		if err != nil {
			return err
		}
		if taken {
			return apperrors.ErrIdentifierExists
		}

		hash, err := auth.HashPasswordWithCost(reg.Secret(), s.config.BcryptCost)
		if err != nil {
			return err
		}
		session.Registration = &models.PendingRegistration{
			Role:           reg.Role(),
			Identifier:     reg.Identifier(),
			PasswordHash:   hash,
			PersonalNumber: reg.Contact(),
		}
		session.State = models.StateOtpPending
		return nil
	})
}

// Login: Authenticating -> Active for a credential of the selected role
func (s *sessionServiceImpl) Login(ctx context.Context, sessionID string, identifier, password string) (*dto.SessionResponse, error) {
	var user *models.User
	resp, err := s.transition(ctx, sessionID, "login", func(session *models.Session) error {
		if session.State != models.StateAuthenticating {
			return apperrors.NewTransitionError("login", string(session.State))
		}
		creds, err := s.repos.Credentials.Find(ctx, repositories.Where{
			"identifier": normalizeIdentifier(identifier),
			"role":       string(session.Role),
		})
		if err != nil {
			return err
		}
		if len(creds) == 0 || !auth.CheckPassword(creds[0].PasswordHash, password) {
			s.logger.Info().Str("sessionID", sessionID).Str("role", string(session.Role)).Msg("Login rejected")
			return apperrors.ErrInvalidCredentials
		}
		user, err = s.repos.Users.FindByID(ctx, creds[0].ID)
		if errors.Is(err, apperrors.ErrResourceNotFound) {
			return apperrors.ErrInvalidCredentials
		}
		if err != nil {
			return err
		}
		session.UserID = user.ID
		session.State = models.StateActive
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.withToken(resp, user)
}

// VerifyOTP: OtpPending -> ProfileSetup
func (s *sessionServiceImpl) VerifyOTP(ctx context.Context, sessionID, code string) (*dto.SessionResponse, error) {
	code = strings.TrimSpace(code)
	return s.transition(ctx, sessionID, "verify otp", func(session *models.Session) error {
		if session.State != models.StateOtpPending {
			return apperrors.NewTransitionError("verify otp", string(session.State))
		}
		if !validation.IsOTP(code, s.config.OTPLength) {
			return apperrors.NewValidationError("code", fmt.Sprintf("code must be exactly %d digits", s.config.OTPLength))
		}
		ok, err := s.verifier.Verify(ctx, session, code)
		if err != nil {
			return err
		}
		if !ok {
			return apperrors.NewValidationError("code", "incorrect code")
		}
		session.State = models.StateProfileSetup
		return nil
	})
}

// CompleteProfile: ProfileSetup -> Active. Creates the user and their credential.
func (s *sessionServiceImpl) CompleteProfile(ctx context.Context, sessionID string, req *dto.ProfileSetupRequest) (*dto.SessionResponse, error) {
	var user *models.User
	resp, err := s.transition(ctx, sessionID, "complete profile", func(session *models.Session) error {
		if session.State != models.StateProfileSetup || session.Registration == nil {
			return apperrors.NewTransitionError("complete profile", string(session.State))
		}
		reg := session.Registration

		unlock := s.locks.Lock("identifier:" + reg.Identifier)
		defer unlock()

		taken, err := s.identifierTaken(ctx, reg.Identifier)
		if err != nil {
			return err
		}
		if taken {
			return apperrors.ErrIdentifierExists
		}

		avatar := strings.TrimSpace(req.Avatar)
		if avatar == "" {
			avatar = DefaultAvatar(req.Name)
		}
		input := NewUserInput{
			Name:         req.Name,
			Role:         reg.Role,
			Avatar:       avatar,
			Bio:          req.Bio,
			Skills:       req.Skills,
			Achievements: req.Achievements,
		}
		if reg.Role == models.RoleStudent {
			input.UUCMS = reg.Identifier
			input.PersonalNumber = reg.PersonalNumber
		}
		user, err = s.users.CreateUser(ctx, input)
		if err != nil {
			return err
		}

		credential := &models.Credential{
			ID:           user.ID,
			Identifier:   reg.Identifier,
			Role:         reg.Role,
			PasswordHash: reg.PasswordHash,
			CreatedAt:    s.clock.Now().UTC(),
		}
		if err := s.repos.Credentials.Insert(ctx, credential); err != nil {
			if delErr := s.repos.Users.Delete(ctx, user.ID); delErr != nil {
				s.logger.Error().Err(delErr).Str("userID", user.ID).Msg("Failed to roll back user after credential error")
			}
			if errors.Is(err, apperrors.ErrResourceAlreadyExists) {
				return apperrors.ErrIdentifierExists
			}
			return err
		}

		session.Registration = nil
		session.UserID = user.ID
		session.State = models.StateActive
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("sessionID", sessionID).Str("userID", user.ID).Str("role", string(user.Role)).Msg("Onboarding completed")
	return s.withToken(resp, user)
}

// Back: Authenticating -> RoleSelection, OtpPending -> Authenticating
func (s *sessionServiceImpl) Back(ctx context.Context, sessionID string) (*dto.SessionResponse, error) {
	return s.transition(ctx, sessionID, "go back", func(session *models.Session) error {
		switch session.State {
		case models.StateAuthenticating:
			session.Role = ""
			session.State = models.StateRoleSelection
		case models.StateOtpPending:
			session.Registration = nil
			session.State = models.StateAuthenticating
		default:
			return apperrors.NewTransitionError("go back", string(session.State))
		}
		return nil
	})
}

// Logout: Active -> RoleSelection. Tokens bound to the session stop working.
func (s *sessionServiceImpl) Logout(ctx context.Context, sessionID string) (*dto.SessionResponse, error) {
	return s.transition(ctx, sessionID, "logout", func(session *models.Session) error {
		if session.State != models.StateActive {
			return apperrors.NewTransitionError("logout", string(session.State))
		}
		s.logger.Info().Str("sessionID", sessionID).Str("userID", session.UserID).Msg("Logged out")
		session.UserID = ""
		session.Role = ""
		session.State = models.StateRoleSelection
		return nil
	})
}

// Authorize returns ErrSessionExpired unless the session is Active for userID
func (s *sessionServiceImpl) Authorize(ctx context.Context, sessionID, userID string) error {
	session, err := s.store.Get(ctx, sessionID)
	if errors.Is(err, apperrors.ErrResourceNotFound) {
		return apperrors.ErrSessionExpired
	}
	if err != nil {
		return err
	}
	if session.State != models.StateActive || session.UserID != userID {
		return apperrors.ErrSessionExpired
	}
	// A removed user's sessions die with them
	if _, err := s.repos.Users.FindByID(ctx, userID); err != nil {
		if errors.Is(err, apperrors.ErrResourceNotFound) {
			return apperrors.ErrSessionExpired
		}
		return err
	}
	return nil
}

// SweepExpired purges expired sessions
func (s *sessionServiceImpl) SweepExpired(ctx context.Context) (int, error) {
	return s.store.DeleteExpired(ctx, s.clock.Now())
}

// transition loads the session under its lock, applies step and saves the result.
// Nothing is saved when step fails.
func (s *sessionServiceImpl) transition(ctx context.Context, sessionID, action string, step func(*models.Session) error) (*dto.SessionResponse, error) {
	unlock := s.locks.Lock("session:" + sessionID)
	defer unlock()

	session, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	from := session.State
	if err := step(session); err != nil {
		return nil, err
	}
	if err := s.save(ctx, session); err != nil {
		return nil, err
	}
	s.logger.Debug().Str("sessionID", sessionID).Str("action", action).
		Str("from", string(from)).Str("to", string(session.State)).Msg("Session transition")
	resp := dto.NewSessionResponse(session)
	return &resp, nil
}

// save slides the expiry window forward and stores the session
func (s *sessionServiceImpl) save(ctx context.Context, session *models.Session) error {
	now := s.clock.Now().UTC()
	session.UpdatedAt = now
	session.ExpiresAt = now.Add(s.config.TTL)
	if err := s.store.Save(ctx, session); err != nil {
		s.logger.Error().Err(err).Str("sessionID", session.ID).Msg("Failed to save session")
		return err
	}
	return nil
}

func (s *sessionServiceImpl) withToken(resp *dto.SessionResponse, user *models.User) (*dto.SessionResponse, error) {
	token, expiresIn, err := s.jwtService.GenerateAccessToken(user, resp.ID)
	if err != nil {
		s.logger.Error().Err(err).Str("userID", user.ID).Msg("Failed to issue access token")
		return nil, err
	}
	resp.Auth = &dto.AuthTokenResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   expiresIn,
		User:        dto.NewUserResponse(user),
	}
	return resp, nil
}

func (s *sessionServiceImpl) identifierTaken(ctx context.Context, identifier string) (bool, error) {
	creds, err := s.repos.Credentials.Find(ctx, repositories.Where{"identifier": identifier})
	if err != nil {
		return false, err
	}
	return len(creds) > 0, nil
}

// DefaultAvatar is the placeholder picture for a user without one
func DefaultAvatar(name string) string {
	return "https://picsum.photos/seed/" + url.PathEscape(strings.TrimSpace(name)) + "/200"
}
