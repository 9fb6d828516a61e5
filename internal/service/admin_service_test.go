package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"timetrack/api/internal/apperr"
	"timetrack/api/internal/models"
)

func TestAdminList(t *testing.T) {
	f := newFixture(t)

	users, page, err := f.admin.List(f.ctx, models.UserFilter{})
	require.NoError(t, err)
	assert.Len(t, users, 3)
	assert.Equal(t, 3, page.TotalItems)

	users, _, err = f.admin.List(f.ctx, models.UserFilter{Role: models.RoleManager})
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, f.manager.ID, users[0].ID)

	users, _, err = f.admin.List(f.ctx, models.UserFilter{Search: " ADA "})
	require.NoError(t, err)
	require.Len(t, users, 1)

	_, _, err = f.admin.List(f.ctx, models.UserFilter{Role: "owner"})
	requireKind(t, err, apperr.KindValidation)
}

func TestAdminCreateValidation(t *testing.T) {
	f := newFixture(t)

	_, err := f.admin.Create(f.ctx, CreateUserInput{Name: "Dup", Email: "ada@example.com", Password: testPassword})
	requireKind(t, err, apperr.KindConflict)

	_, err = f.admin.Create(f.ctx, CreateUserInput{Name: "Odd", Email: "odd@example.com", Password: testPassword, Role: "owner"})
	requireKind(t, err, apperr.KindValidation)

	inactive, err := f.admin.Create(f.ctx, CreateUserInput{
		Name: "Later", Email: "later@example.com", Password: testPassword, IsActive: ptr(false),
	})
	require.NoError(t, err)
	assert.False(t, inactive.IsActive)
	assert.Equal(t, models.RoleUser, inactive.Role)
}

func TestAdminSelfProtection(t *testing.T) {
	f := newFixture(t)

	err := f.admin.Delete(f.ctx, f.root, f.root.ID)
	appErr := requireKind(t, err, apperr.KindConflict)
	assert.Equal(t, "You cannot delete your own account", appErr.Message)

	_, err = f.admin.Update(f.ctx, f.root, f.root.ID, models.UserPatch{IsActive: ptr(false)})
	appErr = requireKind(t, err, apperr.KindConflict)
	assert.Equal(t, "You cannot deactivate your own account", appErr.Message)
}

func TestAdminKeepsLastAdmin(t *testing.T) {
	f := newFixture(t)

	_, err := f.admin.Update(f.ctx, f.root, f.root.ID, models.UserPatch{Role: ptr(models.RoleManager)})
	appErr := requireKind(t, err, apperr.KindConflict)
	assert.Equal(t, "Cannot demote or deactivate the last remaining admin", appErr.Message)

	second := f.seedUser(t, "Second Admin", "second@example.com", models.RoleAdmin)
	require.NoError(t, f.admin.Delete(f.ctx, second, f.root.ID))

	_, err = f.admin.Update(f.ctx, second, second.ID, models.UserPatch{Role: ptr(models.RoleUser)})
	requireKind(t, err, apperr.KindConflict)

	stored, err := f.admin.Get(f.ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, stored.Role)

	_, err = f.admin.Get(f.ctx, f.root.ID)
	requireKind(t, err, apperr.KindNotFound)
}

func TestAdminUpdate(t *testing.T) {
	f := newFixture(t)
	session := f.login(t, "ada@example.com", testPassword)

	updated, err := f.admin.Update(f.ctx, f.root, f.user.ID, models.UserPatch{
		Name: ptr("Ada Lovelace"),
		Role: ptr(models.RoleManager),
	})
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", updated.Name)
	assert.Equal(t, models.RoleManager, updated.Role)

	_, err = f.admin.Update(f.ctx, f.root, f.user.ID, models.UserPatch{Email: ptr("max@example.com")})
	requireKind(t, err, apperr.KindConflict)

	_, err = f.admin.Update(f.ctx, f.root, "missing", models.UserPatch{Name: ptr("x")})
	requireKind(t, err, apperr.KindNotFound)

	_, err = f.admin.Update(f.ctx, f.root, f.user.ID, models.UserPatch{IsActive: ptr(false)})
	require.NoError(t, err)
	_, err = f.auth.Authenticate(f.ctx, session.Tokens.AccessToken, "", "")
	requireKind(t, err, apperr.KindAuth)
}

func TestAdminUnlock(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 3; i++ {
		_, err := f.auth.Login(f.ctx, LoginInput{Email: "ada@example.com", Password: "wrong-password"})
		requireKind(t, err, apperr.KindAuth)
	}

	user, err := f.admin.Unlock(f.ctx, f.user.ID)
	require.NoError(t, err)
	assert.Nil(t, user.LockUntil)
	assert.Zero(t, user.LoginAttempts)
	f.login(t, "ada@example.com", testPassword)

	_, err = f.admin.Unlock(f.ctx, "missing")
	requireKind(t, err, apperr.KindNotFound)
}

func TestAdminDeleteCascades(t *testing.T) {
	f := newFixture(t)
	f.login(t, "ada@example.com", testPassword)
	_, err := f.timer.Start(f.ctx, f.user, StartInput{Target: f.target, TaskName: "work"})
	require.NoError(t, err)

	require.NoError(t, f.admin.Delete(f.ctx, f.root, f.user.ID))
	assert.Zero(t, f.countEntries(t, f.user.ID, models.EntryStatusAll))

	_, members, err := f.daily.TeamOverview(f.ctx, f.root, nil)
	require.NoError(t, err)
	assert.Len(t, members, 2)
}
