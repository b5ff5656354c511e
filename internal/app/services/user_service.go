package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog"
	"github.com/yigit/campuskizuna/internal/app/models"
	"github.com/yigit/campuskizuna/internal/app/models/dto"
	"github.com/yigit/campuskizuna/internal/app/repositories"
	"github.com/yigit/campuskizuna/internal/pkg/apperrors"
	"github.com/yigit/campuskizuna/internal/pkg/helpers"
	"github.com/yigit/campuskizuna/internal/pkg/keylock"
	"github.com/yigit/campuskizuna/internal/pkg/validation"
)

// NewUserInput is the profile a user is created from
type NewUserInput struct {
	ID             string // optional; allocated when empty
	Name           string
	Role           models.Role
	Avatar         string
	Bio            string
	Skills         []string
	Achievements   []string
	UUCMS          string
	PersonalNumber string
	ClassroomID    string
	Coins          *int
}

// UserService manages identities and the follow graph
type UserService interface {
	CreateUser(ctx context.Context, input NewUserInput) (*models.User, error)
	GetUser(ctx context.Context, userID string) (*models.User, error)
	ListUsers(ctx context.Context, role models.Role) ([]*models.User, error)
	SearchUsers(ctx context.Context, query, excludeID string) ([]*models.User, error)
	UpdateProfile(ctx context.Context, userID string, req *dto.UpdateProfileRequest) (*models.User, error)
	ToggleFollow(ctx context.Context, actorID, targetID string) (*dto.FollowResponse, error)
	RemoveUser(ctx context.Context, userID string, confirmed bool) error
	ReconcileStats(ctx context.Context) (int, error)
}

type userServiceImpl struct {
	repos    *repositories.Repositories
	locks    *keylock.Locker
	clock    helpers.Clock
	notifier Notifier
	logger   zerolog.Logger
}

// NewUserService creates a new UserService
func NewUserService(
	repos *repositories.Repositories,
	locks *keylock.Locker,
	clock helpers.Clock,
	notifier Notifier,
	logger zerolog.Logger,
) UserService {
	return &userServiceImpl{
		repos:    repos,
		locks:    locks,
		clock:    clock,
		notifier: notifierOrNoop(notifier),
		logger:   logger.With().Str("service", "users").Logger(),
	}
}

// CreateUser allocates a user with empty follow sets and zeroed stats
func (s *userServiceImpl) CreateUser(ctx context.Context, input NewUserInput) (*models.User, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperrors.NewValidationError("name", "name is required")
	}
	bio := strings.TrimSpace(input.Bio)
	if bio == "" {
		return nil, apperrors.NewValidationError("bio", "bio is required")
	}
	if !input.Role.Valid() {
		return nil, apperrors.NewValidationError("role", "role must be Student, Faculty or Admin")
	}

	id := input.ID
	if id == "" {
		id = models.NewID(models.PrefixUser)
	}
	coins := models.DefaultCoins
	if input.Coins != nil {
		coins = *input.Coins
	}

	user := &models.User{
		ID:           id,
		Name:         name,
		Role:         input.Role,
		Avatar:       strings.TrimSpace(input.Avatar),
		Bio:          bio,
		Skills:       validation.UniqueStrings(input.Skills),
		Achievements: validation.UniqueStrings(input.Achievements),
		FollowerIDs:  []string{},
		FollowingIDs: []string{},
		Coins:        coins,
		CreatedAt:    s.clock.Now().UTC(),
	}
	if input.Role == models.RoleStudent {
		user.UUCMS = strings.ToUpper(strings.TrimSpace(input.UUCMS))
		user.PersonalNumber = strings.TrimSpace(input.PersonalNumber)
		user.ClassroomID = input.ClassroomID
	}

	if err := s.repos.Users.Insert(ctx, user); err != nil {
		if errors.Is(err, apperrors.ErrResourceAlreadyExists) {
			return nil, apperrors.NewConflictError("a user with this id already exists")
		}
		s.logger.Error().Err(err).Str("userID", id).Msg("Failed to create user")
		return nil, err
	}

	s.logger.Info().Str("userID", id).Str("role", string(user.Role)).Msg("User created")
	return user, nil
}

// GetUser returns one user
func (s *userServiceImpl) GetUser(ctx context.Context, userID string) (*models.User, error) {
	return findUser(ctx, s.repos.Users, userID)
}

// ListUsers returns users ordered by name; an empty role lists everyone
func (s *userServiceImpl) ListUsers(ctx context.Context, role models.Role) ([]*models.User, error) {
	where := repositories.Where{}
	if role != "" {
		if !role.Valid() {
			return nil, apperrors.NewValidationError("role", "unknown role")
		}
		where["role"] = string(role)
	}
	users, err := s.repos.Users.Find(ctx, where)
	if err != nil {
		return nil, err
	}
	sortUsersByName(users)
	return users, nil
}

// SearchUsers matches names case-insensitively, leaving out excludeID
func (s *userServiceImpl) SearchUsers(ctx context.Context, query, excludeID string) ([]*models.User, error) {
	users, err := s.repos.Users.Find(ctx, nil)
	if err != nil {
		return nil, err
	}
	q := strings.ToLower(strings.TrimSpace(query))
	out := make([]*models.User, 0)
	for _, u := range users {
		if u.ID == excludeID {
			continue
		}
		if q == "" || strings.Contains(strings.ToLower(u.Name), q) {
			out = append(out, u)
		}
	}
	sortUsersByName(out)
	return out, nil
}

// UpdateProfile replaces the editable profile fields. Posts and comments refer
// to authors by id, so the change is visible everywhere on the next read.
func (s *userServiceImpl) UpdateProfile(ctx context.Context, userID string, req *dto.UpdateProfileRequest) (*models.User, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, apperrors.NewValidationError("name", "name is required")
	}
	bio := strings.TrimSpace(req.Bio)
	if bio == "" {
		return nil, apperrors.NewValidationError("bio", "bio is required")
	}

	unlock := s.locks.Lock(userKey(userID))
	defer unlock()

	user, err := findUser(ctx, s.repos.Users, userID)
	if err != nil {
		return nil, err
	}

	user.Name = name
	user.Bio = bio
	user.Skills = validation.UniqueStrings(req.Skills)
	user.Achievements = validation.UniqueStrings(req.Achievements)
	if avatar := strings.TrimSpace(req.Avatar); avatar != "" {
		user.Avatar = avatar
	}

	if err := s.repos.Users.Replace(ctx, user); err != nil {
		s.logger.Error().Err(err).Str("userID", userID).Msg("Failed to update profile")
		return nil, err
	}
	return user, nil
}

// ToggleFollow flips the follow edge from actor to target and recomputes both
// users' counters. Both documents are written together.
func (s *userServiceImpl) ToggleFollow(ctx context.Context, actorID, targetID string) (*dto.FollowResponse, error) {
	if actorID == targetID {
		return nil, apperrors.NewValidationError("targetId", "users cannot follow themselves")
	}

	unlock := s.locks.Lock(userKey(actorID), userKey(targetID))
	defer unlock()

	actor, err := findUser(ctx, s.repos.Users, actorID)
	if err != nil {
		return nil, err
	}
	target, err := findUser(ctx, s.repos.Users, targetID)
	if err != nil {
		return nil, err
	}

	following := !actor.IsFollowing(targetID)
	if following {
		actor.FollowingIDs = models.WithAdded(actor.FollowingIDs, targetID)
		target.FollowerIDs = models.WithAdded(target.FollowerIDs, actorID)
	} else {
		actor.FollowingIDs = models.Without(actor.FollowingIDs, targetID)
		target.FollowerIDs = models.Without(target.FollowerIDs, actorID)
	}
	actor.RecomputeFollowStats()
	target.RecomputeFollowStats()

	if err := s.repos.Users.SaveAll(ctx, actor, target); err != nil {
		s.logger.Error().Err(err).Str("actorID", actorID).Str("targetID", targetID).Msg("Failed to save follow edge")
		return nil, err
	}

	s.logger.Debug().Str("actorID", actorID).Str("targetID", targetID).Bool("following", following).Msg("Follow toggled")
	if following {
		s.notifier.Publish(UserTopic(targetID), EventFollowed, dto.NewUserSummary(actor))
	}

	return &dto.FollowResponse{
		Following: following,
		Actor:     dto.NewUserResponse(actor),
		Target:    dto.NewUserResponse(target),
	}, nil
}

// RemoveUser deletes a user after explicit confirmation. Removal is refused
// while the user coordinates a classroom or teaches a timetable slot; otherwise
// everything that references the user is cleaned up.
func (s *userServiceImpl) RemoveUser(ctx context.Context, userID string, confirmed bool) error {
	if !confirmed {
		return apperrors.NewValidationError("confirm", "removal must be explicitly confirmed")
	}

	keys, err := s.removalKeys(ctx, userID)
	if err != nil {
		return err
	}
	// Documents may start referencing the user between the snapshot and the
	// lock, so the key set is re-derived under the locks until it is stable.
	var unlock func()
	for attempt := 1; ; attempt++ {
		unlock = s.locks.Lock(keys...)
		current, err := s.removalKeys(ctx, userID)
		if err != nil {
			unlock()
			return err
		}
		missing := missingKeys(keys, current)
		if len(missing) == 0 {
			break
		}
		unlock()
		if attempt == maxRemovalAttempts {
			return apperrors.NewConflictError("user changed while being removed, try again")
		}
		keys = append(keys, missing...)
	}
	defer unlock()

	user, err := findUser(ctx, s.repos.Users, userID)
	if err != nil {
		return err
	}
	classrooms, err := s.repos.Classrooms.Find(ctx, nil)
	if err != nil {
		return err
	}
	for _, c := range classrooms {
		if c.CoordinatorID == userID || c.TaughtBy(userID) {
			return apperrors.NewConflictError(fmt.Sprintf("user still coordinates or teaches in classroom %s", c.Name))
		}
	}

	if err := s.detachContent(ctx, userID); err != nil {
		return err
	}
	if err := s.detachFollowEdges(ctx, user); err != nil {
		return err
	}

	var unenrolled []*models.Classroom
	for _, c := range classrooms {
		if c.HasStudent(userID) {
			c.StudentIDs = models.Without(c.StudentIDs, userID)
			unenrolled = append(unenrolled, c)
		}
	}
	if err := s.repos.Classrooms.SaveAll(ctx, unenrolled...); err != nil {
		return err
	}

	records, err := s.repos.Attendance.Find(ctx, repositories.Where{"studentId": userID})
	if err != nil {
		return err
	}
	recordIDs := make([]string, 0, len(records))
	for _, r := range records {
		recordIDs = append(recordIDs, r.ID)
	}
	if err := s.repos.Attendance.DeleteAll(ctx, recordIDs...); err != nil {
		return err
	}

	if err := s.repos.Credentials.Delete(ctx, userID); err != nil && !errors.Is(err, apperrors.ErrResourceNotFound) {
		return err
	}
	if err := s.repos.Users.Delete(ctx, userID); err != nil {
		return err
	}

	s.logger.Info().Str("userID", userID).Int("classrooms", len(unenrolled)).Msg("User removed")
	return nil
}

// maxRemovalAttempts bounds how often RemoveUser re-locks when new documents
// reference the user while it waits
const maxRemovalAttempts = 3

// removalKeys lists every lock RemoveUser needs: the user, everyone on either
// side of their follow edges, every classroom and every post
func (s *userServiceImpl) removalKeys(ctx context.Context, userID string) ([]string, error) {
	user, err := findUser(ctx, s.repos.Users, userID)
	if err != nil {
		return nil, err
	}
	classrooms, err := s.repos.Classrooms.Find(ctx, nil)
	if err != nil {
		return nil, err
	}
	posts, err := s.repos.Posts.Find(ctx, nil)
	if err != nil {
		return nil, err
	}

	keys := []string{userKey(userID)}
	for _, id := range user.FollowerIDs {
		keys = append(keys, userKey(id))
	}
	for _, id := range user.FollowingIDs {
		keys = append(keys, userKey(id))
	}
	for _, c := range classrooms {
		keys = append(keys, classroomKey(c.ID))
	}
	for _, p := range posts {
		keys = append(keys, postKey(p.ID))
	}
	return keys, nil
}

// missingKeys returns the entries of want not present in held
func missingKeys(held, want []string) []string {
	have := make(map[string]struct{}, len(held))
	for _, k := range held {
		have[k] = struct{}{}
	}
	var missing []string
	for _, k := range want {
		if _, ok := have[k]; !ok {
			have[k] = struct{}{}
			missing = append(missing, k)
		}
	}
	return missing
}

// detachContent deletes the user's posts and stories and strips their likes and
// comments from everyone else's posts
func (s *userServiceImpl) detachContent(ctx context.Context, userID string) error {
	posts, err := s.repos.Posts.Find(ctx, nil)
	if err != nil {
		return err
	}
	var owned []string
	var touched []*models.Post
	for _, p := range posts {
		if p.AuthorID == userID {
			owned = append(owned, p.ID)
			continue
		}
		changed := false
		if p.LikedBy(userID) {
			p.Likes = models.Without(p.Likes, userID)
			changed = true
		}
		kept := p.Comments[:0]
		for _, c := range p.Comments {
			if c.AuthorID != userID {
				kept = append(kept, c)
			}
		}
		if len(kept) != len(p.Comments) {
			p.Comments = kept
			changed = true
		}
		if changed {
			touched = append(touched, p)
		}
	}
	if err := s.repos.Posts.SaveAll(ctx, touched...); err != nil {
		return err
	}
	if err := s.repos.Posts.DeleteAll(ctx, owned...); err != nil {
		return err
	}

	stories, err := s.repos.Stories.Find(ctx, repositories.Where{"authorId": userID})
	if err != nil {
		return err
	}
	storyIDs := make([]string, 0, len(stories))
	for _, st := range stories {
		storyIDs = append(storyIDs, st.ID)
	}
	return s.repos.Stories.DeleteAll(ctx, storyIDs...)
}

// detachFollowEdges removes the user from every counterpart's follow sets
func (s *userServiceImpl) detachFollowEdges(ctx context.Context, user *models.User) error {
	related := make(map[string]struct{})
	for _, id := range user.FollowerIDs {
		related[id] = struct{}{}
	}
	for _, id := range user.FollowingIDs {
		related[id] = struct{}{}
	}

	var changed []*models.User
	for id := range related {
		other, err := s.repos.Users.FindByID(ctx, id)
		if errors.Is(err, apperrors.ErrResourceNotFound) {
			continue
		}
		if err != nil {
			return err
		}
		other.FollowerIDs = models.Without(other.FollowerIDs, user.ID)
		other.FollowingIDs = models.Without(other.FollowingIDs, user.ID)
		other.RecomputeFollowStats()
		changed = append(changed, other)
	}
	return s.repos.Users.SaveAll(ctx, changed...)
}

// ReconcileStats recomputes every user's counters from the follow sets and the
// stored posts. It returns how many users needed a correction.
func (s *userServiceImpl) ReconcileStats(ctx context.Context) (int, error) {
	posts, err := s.repos.Posts.Find(ctx, nil)
	if err != nil {
		return 0, err
	}
	postCounts := make(map[string]int)
	for _, p := range posts {
		postCounts[p.AuthorID]++
	}

	users, err := s.repos.Users.Find(ctx, nil)
	if err != nil {
		return 0, err
	}

	fixed := 0
	for _, u := range users {
		corrected, err := s.reconcileUser(ctx, u.ID, postCounts[u.ID])
		if err != nil {
			return fixed, err
		}
		if corrected {
			fixed++
		}
	}
	if fixed > 0 {
		s.logger.Info().Int("users", fixed).Msg("Social stats reconciled")
	}
	return fixed, nil
}

func (s *userServiceImpl) reconcileUser(ctx context.Context, userID string, posts int) (bool, error) {
	unlock := s.locks.Lock(userKey(userID))
	defer unlock()

	u, err := s.repos.Users.FindByID(ctx, userID)
	if errors.Is(err, apperrors.ErrResourceNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	want := models.UserStats{Posts: posts, Followers: len(u.FollowerIDs), Following: len(u.FollowingIDs)}
	if u.Stats == want {
		return false, nil
	}
	u.Stats = want
	return true, s.repos.Users.Replace(ctx, u)
}

func sortUsersByName(users []*models.User) {
	sort.SliceStable(users, func(i, j int) bool {
		ni, nj := strings.ToLower(users[i].Name), strings.ToLower(users[j].Name)
		if ni != nj {
			return ni < nj
		}
		return users[i].ID < users[j].ID
	})
}
