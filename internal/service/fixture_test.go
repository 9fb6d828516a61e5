package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"timetrack/api/internal/config"
	"timetrack/api/internal/models"
	"timetrack/api/internal/repository/memory"
	"timetrack/api/internal/security"
)

const testPassword = "correct-horse"

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fakeReportStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	err     error
}

func (f *fakeReportStore) PutReport(_ context.Context, key string, body []byte, _ string) (string, time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", time.Time{}, f.err
	}
	if f.objects == nil {
		f.objects = make(map[string][]byte)
	}
	f.objects[key] = append([]byte(nil), body...)
	return "https://reports.example.test/" + key, time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC), nil
}

type fixture struct {
	ctx     context.Context
	store   *memory.Store
	clock   *fakeClock
	hasher  *security.PasswordHasher
	tokens  *security.TokenManager
	timer   *TimerService
	daily   *DailyLoginService
	auth    *AuthService
	admin   *AdminService
	catalog *CatalogService
	reports *ReportService
	exports *fakeReportStore

	user    models.User
	manager models.User
	root    models.User
	org     models.Organization
	target  models.Target
}

var baseTime = time.Date(2024, 3, 11, 9, 0, 0, 0, time.UTC)

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		ctx:     context.Background(),
		store:   memory.New(),
		clock:   &fakeClock{now: baseTime},
		hasher:  security.NewPasswordHasher(security.Argon2Params{Time: 1, Memory: 1024, Threads: 1}),
		exports: &fakeReportStore{},
	}
	f.tokens = security.NewTokenManager(security.TokenConfig{
		AccessSecret:  "access-secret",
		RefreshSecret: "refresh-secret",
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    7 * 24 * time.Hour,
		Issuer:        "timetrack-api",
		Audience:      "timetrack-clients",
	}).WithClock(f.clock.Now)

	log := zerolog.Nop()
	users := f.store.Users()
	sessions := f.store.Sessions()
	orgs := f.store.Organizations()
	customers := f.store.Customers()
	processes := f.store.Processes()
	entries := f.store.TimeEntries()

	f.daily = NewDailyLoginService(f.store.DailyLogins(), time.UTC, nil, log).WithClock(f.clock.Now)
	f.timer = NewTimerService(entries, orgs, customers, processes, nil, log).WithClock(f.clock.Now)
	f.auth = NewAuthService(users, sessions, orgs, f.daily, f.hasher, f.tokens, config.SecurityConfig{
		MaxLoginAttempts: 3,
		LockoutDuration:  30 * time.Minute,
	}, nil, log).WithClock(f.clock.Now)
	f.admin = NewAdminService(users, sessions, f.hasher, log)
	f.catalog = NewCatalogService(orgs, customers, processes, users, log)
	f.reports = NewReportService(entries, f.exports, time.UTC, nil, log).WithClock(f.clock.Now)

	f.user = f.seedUser(t, "Ada User", "ada@example.com", models.RoleUser)
	f.manager = f.seedUser(t, "Max Manager", "max@example.com", models.RoleManager)
	f.root = f.seedUser(t, "Root Admin", "root@example.com", models.RoleAdmin)

	var err error
	f.org, err = f.catalog.CreateOrganization(f.ctx, "Acme", "")
	require.NoError(t, err)
	customer, err := f.catalog.CreateCustomer(f.ctx, models.Customer{OrganizationID: f.org.ID, Name: "Globex"})
	require.NoError(t, err)
	process, err := f.catalog.CreateProcess(f.ctx, "Development", "")
	require.NoError(t, err)
	activity, err := f.catalog.CreateActivity(f.ctx, models.Activity{ProcessID: process.ID, Name: "Coding"})
	require.NoError(t, err)

	for _, u := range []models.User{f.user, f.manager} {
		_, err := f.catalog.AddMember(f.ctx, f.org.ID, u.ID, "")
		require.NoError(t, err)
	}

	f.target = models.Target{
		OrganizationID: f.org.ID,
		CustomerID:     customer.ID,
		ProcessID:      process.ID,
		ActivityID:     activity.ID,
	}
	return f
}

func (f *fixture) seedUser(t *testing.T, name, email string, role models.Role) models.User {
	t.Helper()
	user, err := f.admin.Create(f.ctx, CreateUserInput{
		Name:     name,
		Email:    email,
		Password: testPassword,
		Role:     role,
	})
	require.NoError(t, err)
	return user
}

func ptr[T any](v T) *T {
	return &v
}
