package memory

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"time"

	"timetrack/api/internal/models"
	"timetrack/api/internal/repository"
)

type Users struct {
	s *Store
}

func (r *Users) Create(_ context.Context, user models.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.users[user.ID]; ok {
		return repository.ErrDuplicate
	}
	for _, existing := range r.s.users {
		if existing.Email == user.Email {
			return repository.ErrDuplicate
		}
	}
	now := time.Now().UTC()
	user.CreatedAt, user.UpdatedAt = now, now
	r.s.users[user.ID] = cloneUser(user)
	return nil
}

func (r *Users) GetByID(_ context.Context, id string) (models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	user, ok := r.s.users[id]
	if !ok {
		return models.User{}, repository.ErrNotFound
	}
	return cloneUser(user), nil
}

func (r *Users) FindByEmail(_ context.Context, email string) (models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, user := range r.s.users {
		if user.Email == email {
			return cloneUser(user), nil
		}
	}
	return models.User{}, repository.ErrNotFound
}

func (r *Users) List(_ context.Context, filter models.UserFilter) ([]models.User, int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	search := strings.ToLower(filter.Search)
	var matched []models.User
	for _, user := range r.s.users {
		if search != "" && !strings.Contains(strings.ToLower(user.Name), search) &&
			!strings.Contains(strings.ToLower(user.Email), search) {
			continue
		}
		if filter.Role != "" && user.Role != filter.Role {
			continue
		}
		if filter.IsActive != nil && user.IsActive != *filter.IsActive {
			continue
		}
		matched = append(matched, cloneUser(user))
	}
	slices.SortFunc(matched, func(a, b models.User) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return page(matched, filter.Page), len(matched), nil
}

func (r *Users) RecordFailedLogin(_ context.Context, id string, now time.Time) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	user, ok := r.s.users[id]
	if !ok {
		return 0, repository.ErrNotFound
	}
	if user.LockUntil != nil && !user.LockUntil.After(now) {
		user.LoginAttempts = 1
		user.LockUntil = nil
	} else {
		user.LoginAttempts++
	}
	user.UpdatedAt = time.Now().UTC()
	r.s.users[id] = user
	return user.LoginAttempts, nil
}

func (r *Users) Lock(_ context.Context, id string, until time.Time) error {
	return r.modify(id, func(u *models.User) { u.LockUntil = &until })
}

func (r *Users) Unlock(_ context.Context, id string) error {
	return r.modify(id, func(u *models.User) {
		u.LockUntil = nil
		u.LoginAttempts = 0
	})
}

func (r *Users) RecordSuccessfulLogin(_ context.Context, id string, at time.Time) error {
	return r.modify(id, func(u *models.User) {
		u.LoginAttempts = 0
		u.LockUntil = nil
		u.LastLogin = &at
	})
}

func (r *Users) UpdatePassword(_ context.Context, id string, hash []byte) error {
	return r.modify(id, func(u *models.User) { u.PasswordHash = slices.Clone(hash) })
}

func (r *Users) UpdateGuarded(_ context.Context, id string, mutate func(user *models.User, activeAdmins int) error) (models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	user, ok := r.s.users[id]
	if !ok {
		return models.User{}, repository.ErrNotFound
	}
	user = cloneUser(user)
	if err := mutate(&user, r.s.activeAdmins()); err != nil {
		return models.User{}, err
	}
	for _, other := range r.s.users {
		if other.ID != id && other.Email == user.Email {
			return models.User{}, repository.ErrDuplicate
		}
	}
	user.UpdatedAt = time.Now().UTC()
	r.s.users[id] = user
	return cloneUser(user), nil
}

// DeleteGuarded removes the user and cascades to rows owned by them.
func (r *Users) DeleteGuarded(_ context.Context, id string, check func(user models.User, activeAdmins int) error) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	user, ok := r.s.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	if err := check(cloneUser(user), r.s.activeAdmins()); err != nil {
		return err
	}

	delete(r.s.users, id)
	for sid, session := range r.s.sessions {
		if session.UserID == id {
			delete(r.s.sessions, sid)
		}
	}
	for key := range r.s.members {
		if key.userID == id {
			delete(r.s.members, key)
		}
	}
	for eid, entry := range r.s.entries {
		if entry.UserID == id {
			delete(r.s.entries, eid)
		}
	}
	for key := range r.s.trackers {
		if key.userID == id {
			delete(r.s.trackers, key)
		}
	}
	return nil
}

func (r *Users) modify(id string, fn func(u *models.User)) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	user, ok := r.s.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	fn(&user)
	user.UpdatedAt = time.Now().UTC()
	r.s.users[id] = user
	return nil
}

func (s *Store) activeAdmins() int {
	n := 0
	for _, u := range s.users {
		if u.Role == models.RoleAdmin && u.IsActive {
			n++
		}
	}
	return n
}

type Sessions struct {
	s *Store
}

func (r *Sessions) Create(_ context.Context, session models.Session) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.users[session.UserID]; !ok {
		return repository.ErrInUse
	}
	if _, ok := r.s.sessions[session.ID]; ok {
		return repository.ErrDuplicate
	}
	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now().UTC()
	}
	session.LastSeenAt = session.CreatedAt
	session.RefreshTokenHash = slices.Clone(session.RefreshTokenHash)
	r.s.sessions[session.ID] = session
	return nil
}

func (r *Sessions) GetByID(_ context.Context, id string) (models.Session, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	session, ok := r.s.sessions[id]
	if !ok {
		return models.Session{}, repository.ErrNotFound
	}
	return session, nil
}

func (r *Sessions) Rotate(_ context.Context, id string, currentHash, nextHash []byte, expiresAt time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	session, ok := r.s.sessions[id]
	if !ok || !slices.Equal(session.RefreshTokenHash, currentHash) {
		return repository.ErrNotFound
	}
	session.RefreshTokenHash = slices.Clone(nextHash)
	session.ExpiresAt = expiresAt
	session.LastSeenAt = time.Now().UTC()
	r.s.sessions[id] = session
	return nil
}

func (r *Sessions) ListByUser(_ context.Context, userID string, now time.Time) ([]models.Session, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	out := make([]models.Session, 0)
	for _, session := range r.s.sessions {
		if session.UserID == userID && session.ExpiresAt.After(now) {
			out = append(out, session)
		}
	}
	slices.SortFunc(out, func(a, b models.Session) int {
		if c := b.LastSeenAt.Compare(a.LastSeenAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out, nil
}

func (r *Sessions) Touch(_ context.Context, id string, ip string, userAgent string, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	session, ok := r.s.sessions[id]
	if !ok {
		return nil
	}
	if ip != "" {
		session.IPAddress = ip
	}
	if userAgent != "" {
		session.UserAgent = userAgent
	}
	session.LastSeenAt = at.UTC()
	r.s.sessions[id] = session
	return nil
}

func (r *Sessions) DeleteByID(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.sessions[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.s.sessions, id)
	return nil
}

func (r *Sessions) DeleteByUserExcept(_ context.Context, userID string, keepID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for id, session := range r.s.sessions {
		if session.UserID == userID && id != keepID {
			delete(r.s.sessions, id)
		}
	}
	return nil
}

func (r *Sessions) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var n int64
	for id, session := range r.s.sessions {
		if !session.ExpiresAt.After(now) {
			delete(r.s.sessions, id)
			n++
		}
	}
	return n, nil
}
