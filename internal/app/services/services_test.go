package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/yigit/campuskizuna/internal/app/models"
	"github.com/yigit/campuskizuna/internal/app/repositories"
	"github.com/yigit/campuskizuna/internal/pkg/auth"
	"github.com/yigit/campuskizuna/internal/pkg/keylock"
	"github.com/yigit/campuskizuna/internal/seed"
	"golang.org/x/crypto/bcrypt"
)

// Tuesday, 15:30 in Asia/Kolkata
var testNow = time.Date(2025, time.June, 10, 10, 0, 0, 0, time.UTC)

var testLocation = time.FixedZone("IST", 5*60*60+30*60)

const testPassword = "campus123"

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type publishedEvent struct {
	topic string
	event string
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (n *recordingNotifier) Publish(topic, event string, _ interface{}) {
	n.mu.Lock()
	n.events = append(n.events, publishedEvent{topic: topic, event: event})
	n.mu.Unlock()
}

func (n *recordingNotifier) has(topic, event string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, e := range n.events {
		if e.topic == topic && e.event == event {
			return true
		}
	}
	return false
}

type testEnv struct {
	ctx        context.Context
	repos      *repositories.Repositories
	clock      *testClock
	notifier   *recordingNotifier
	store      *repositories.MemorySessionStore
	users      UserService
	content    ContentService
	scheduling SchedulingService
	sessions   SessionService
	exports    ExportService
}

// newTestEnv wires every service against seeded in-memory collections
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	ctx := context.Background()
	clock := &testClock{t: testNow}
	repos := repositories.NewMemoryRepositories()
	logger := zerolog.Nop()

	if err := seed.CreateDefaultData(ctx, repos, clock, seed.Options{Password: testPassword, BcryptCost: bcrypt.MinCost}, logger); err != nil {
		t.Fatalf("seed: %v", err)
	}

	locks := keylock.New()
	notifier := &recordingNotifier{}
	store := repositories.NewMemorySessionStore(clock.Now)
	jwtService := auth.NewJWTService(auth.JWTConfig{
		SecretKey:      "test-secret",
		AccessTokenExp: time.Hour,
		TokenIssuer:    "campuskizuna-test",
	})

	users := NewUserService(repos, locks, clock, notifier, logger)
	return &testEnv{
		ctx:        ctx,
		repos:      repos,
		clock:      clock,
		notifier:   notifier,
		store:      store,
		users:      users,
		content:    NewContentService(repos, locks, clock, notifier, logger),
		scheduling: NewSchedulingService(repos, locks, clock, testLocation, notifier, logger),
		sessions: NewSessionService(store, repos, users, jwtService, nil, locks, clock,
			SessionConfig{TTL: time.Hour, OTPLength: 6, BcryptCost: bcrypt.MinCost}, logger),
		exports: NewExportService(repos, ExportConfig{
			TermStart: time.Date(2025, time.June, 2, 0, 0, 0, 0, testLocation),
			TermWeeks: 16,
			Location:  testLocation,
		}, clock, logger),
	}
}

func (e *testEnv) user(t *testing.T, id string) *models.User {
	t.Helper()
	u, err := e.repos.Users.FindByID(e.ctx, id)
	if err != nil {
		t.Fatalf("load user %s: %v", id, err)
	}
	return u
}

func (e *testEnv) classroom(t *testing.T, id string) *models.Classroom {
	t.Helper()
	c, err := e.repos.Classrooms.FindByID(e.ctx, id)
	if err != nil {
		t.Fatalf("load classroom %s: %v", id, err)
	}
	return c
}

// assertFollowSymmetry checks A in B.followers <=> B in A.following and the counters
func assertFollowSymmetry(t *testing.T, e *testEnv) {
	t.Helper()
	users, err := e.repos.Users.Find(e.ctx, nil)
	if err != nil {
		t.Fatalf("list users: %v", err)
	}
	byID := make(map[string]*models.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}
	for _, a := range users {
		for _, id := range a.FollowingIDs {
			b, ok := byID[id]
			if !ok {
				t.Errorf("%s follows missing user %s", a.ID, id)
				continue
			}
			if !models.Contains(b.FollowerIDs, a.ID) {
				t.Errorf("%s follows %s but is not among its followers", a.ID, b.ID)
			}
		}
		for _, id := range a.FollowerIDs {
			b, ok := byID[id]
			if !ok {
				t.Errorf("%s is followed by missing user %s", a.ID, id)
				continue
			}
			if !b.IsFollowing(a.ID) {
				t.Errorf("%s lists follower %s who does not follow it", a.ID, b.ID)
			}
		}
		if a.Stats.Followers != len(a.FollowerIDs) || a.Stats.Following != len(a.FollowingIDs) {
			t.Errorf("%s stats %+v do not match follow sets", a.ID, a.Stats)
		}
	}
}
