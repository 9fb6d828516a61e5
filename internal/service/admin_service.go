package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"timetrack/api/internal/apperr"
	"timetrack/api/internal/ids"
	"timetrack/api/internal/models"
	"timetrack/api/internal/policy"
	"timetrack/api/internal/repository"
	"timetrack/api/internal/security"
)

// AdminService is user management for administrators.
type AdminService struct {
	users    UserStore
	sessions SessionStore
	hasher   *security.PasswordHasher
	log      zerolog.Logger
}

func NewAdminService(users UserStore, sessions SessionStore, hasher *security.PasswordHasher, log zerolog.Logger) *AdminService {
	return &AdminService{
		users:    users,
		sessions: sessions,
		hasher:   hasher,
		log:      log,
	}
}

func (s *AdminService) List(ctx context.Context, filter models.UserFilter) ([]models.User, models.Pagination, error) {
	if filter.Role != "" && !filter.Role.Valid() {
		return nil, models.Pagination{}, apperr.Validation("Validation failed",
			apperr.FieldError{Field: "role", Message: "must be one of user, manager, admin"})
	}
	filter.Search = strings.TrimSpace(filter.Search)
	filter.Page = models.NewPage(filter.Page.Number, filter.Page.Limit)

	users, total, err := s.users.List(ctx, filter)
	if err != nil {
		return nil, models.Pagination{}, fmt.Errorf("list users: %w", err)
	}
	if users == nil {
		users = []models.User{}
	}
	return users, models.NewPagination(filter.Page, total), nil
}

func (s *AdminService) Get(ctx context.Context, id string) (models.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return models.User{}, notFound(err, "load user", "User not found")
	}
	return user, nil
}

type CreateUserInput struct {
	Name     string
	Email    string
	Password string
	Role     models.Role
	IsActive *bool
}

func (s *AdminService) Create(ctx context.Context, in CreateUserInput) (models.User, error) {
	email, err := normalizeEmail(in.Email)
	if err != nil {
		return models.User{}, err
	}
	name, err := requireName(in.Name)
	if err != nil {
		return models.User{}, err
	}
	if err := checkPassword("password", in.Password); err != nil {
		return models.User{}, err
	}
	role := in.Role
	if role == "" {
		role = models.RoleUser
	}
	if !role.Valid() {
		return models.User{}, apperr.Validation("Validation failed",
			apperr.FieldError{Field: "role", Message: "must be one of user, manager, admin"})
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return models.User{}, fmt.Errorf("hash password: %w", err)
	}
	active := true
	if in.IsActive != nil {
		active = *in.IsActive
	}

	user := models.User{
		ID:           ids.New(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		IsActive:     active,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return models.User{}, apperr.Conflict("User with this email already exists")
		}
		return models.User{}, fmt.Errorf("create user: %w", err)
	}

	s.log.Info().Str("user_id", user.ID).Str("role", string(role)).Msg("user created by admin")
	return s.Get(ctx, user.ID)
}

// Update applies patch to the user. Self-deactivation and changes that would
// leave no active admin are rejected inside one transaction.
func (s *AdminService) Update(ctx context.Context, actor models.User, id string, patch models.UserPatch) (models.User, error) {
	if patch.Name != nil {
		name, err := requireName(*patch.Name)
		if err != nil {
			return models.User{}, err
		}
		patch.Name = &name
	}
	if patch.Email != nil {
		email, err := normalizeEmail(*patch.Email)
		if err != nil {
			return models.User{}, err
		}
		patch.Email = &email
	}
	if patch.Role != nil && !patch.Role.Valid() {
		return models.User{}, apperr.Validation("Validation failed",
			apperr.FieldError{Field: "role", Message: "must be one of user, manager, admin"})
	}
	if patch.IsActive != nil && !*patch.IsActive {
		if err := policy.CanDeactivate(actor, id); err != nil {
			return models.User{}, err
		}
	}

	var hash []byte
	if patch.Password != nil {
		if err := checkPassword("password", *patch.Password); err != nil {
			return models.User{}, err
		}
		h, err := s.hasher.Hash(*patch.Password)
		if err != nil {
			return models.User{}, fmt.Errorf("hash password: %w", err)
		}
		hash = h
	}

	updated, err := s.users.UpdateGuarded(ctx, id, func(user *models.User, activeAdmins int) error {
		if err := policy.CanChangeRoleOrStatus(*user, patch, activeAdmins); err != nil {
			return err
		}
		if patch.Name != nil {
			user.Name = *patch.Name
		}
		if patch.Email != nil {
			user.Email = *patch.Email
		}
		if patch.Role != nil {
			user.Role = *patch.Role
		}
		if patch.IsActive != nil {
			user.IsActive = *patch.IsActive
		}
		if hash != nil {
			user.PasswordHash = hash
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return models.User{}, apperr.Conflict("User with this email already exists")
		}
		return models.User{}, storeError(err, "update user", "User")
	}

	if !updated.IsActive {
		if err := s.sessions.DeleteByUserExcept(ctx, updated.ID, ""); err != nil {
			s.log.Warn().Err(err).Str("user_id", updated.ID).Msg("revoke sessions of deactivated user failed")
		}
	}
	s.log.Info().Str("actor_id", actor.ID).Str("user_id", id).Msg("user updated")
	return updated, nil
}

func (s *AdminService) Delete(ctx context.Context, actor models.User, id string) error {
	err := s.users.DeleteGuarded(ctx, id, func(target models.User, activeAdmins int) error {
		return policy.CanDelete(actor, target, activeAdmins)
	})
	if err != nil {
		return storeError(err, "delete user", "User")
	}
	s.log.Info().Str("actor_id", actor.ID).Str("user_id", id).Msg("user deleted")
	return nil
}

func (s *AdminService) Unlock(ctx context.Context, id string) (models.User, error) {
	if err := s.users.Unlock(ctx, id); err != nil {
		return models.User{}, notFound(err, "unlock user", "User not found")
	}
	return s.Get(ctx, id)
}
