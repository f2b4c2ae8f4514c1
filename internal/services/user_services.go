package services

import (
	"context"
	"errors"
	"strings"

	"StoreProAPI/internal/model"
	"StoreProAPI/internal/repository"
)

type UserService struct {
	Users UserStore
}

func NewUserService(users UserStore) *UserService {
	return &UserService{Users: users}
}

// ProfileUpdate carries the optional fields a user may change about themselves.
type ProfileUpdate struct {
	Name      *string          `json:"name"`
	Phone     *string          `json:"phone"`
	Addresses *[]model.Address `json:"addresses"`
}

// AdminUserUpdate is ProfileUpdate plus the fields only admins may touch.
// Passwords are never changed here.
type AdminUserUpdate struct {
	ProfileUpdate
	Email *string `json:"email"`
	Role  *string `json:"role"`
}

func (s *UserService) Get(ctx context.Context, id int64) (*model.User, error) {
	u, err := s.Users.GetByID(ctx, id)
	if err != nil {
		return nil, mapNotFound(err, "no user found with that ID")
	}
	u.PasswordHash = ""
	return u, nil
}

func (s *UserService) List(ctx context.Context, q repository.ListQuery) ([]model.User, error) {
	return s.Users.List(ctx, q)
}

func (s *UserService) UpdateMe(ctx context.Context, id int64, in ProfileUpdate) (*model.User, error) {
	u, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := applyProfile(u, in); err != nil {
		return nil, err
	}
	if err := s.Users.UpdateProfile(ctx, u); err != nil {
		return nil, mapNotFound(err, "no user found with that ID")
	}
	return u, nil
}

// DeleteMe deactivates the account; the row is kept.
func (s *UserService) DeleteMe(ctx context.Context, id int64) error {
	return mapNotFound(s.Users.SetActive(ctx, id, false), "no user found with that ID")
}

func (s *UserService) Update(ctx context.Context, id int64, in AdminUserUpdate) (*model.User, error) {
	u, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := applyProfile(u, in.ProfileUpdate); err != nil {
		return nil, err
	}
	if in.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*in.Email))
		if !emailRegex.MatchString(email) {
			return nil, validation("invalid email format")
		}
		u.Email = email
	}
	if in.Role != nil {
		if *in.Role != model.RoleCustomer && *in.Role != model.RoleAdmin {
			return nil, validation("role must be customer or admin")
		}
		u.Role = *in.Role
	}
	if err := s.Users.UpdateProfile(ctx, u); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, validation("email already registered")
		}
		return nil, mapNotFound(err, "no user found with that ID")
	}
	return u, nil
}

func (s *UserService) Delete(ctx context.Context, id int64) error {
	err := s.Users.Delete(ctx, id)
	if errors.Is(err, repository.ErrInUse) {
		return businessRule(err, "user has existing orders and cannot be deleted, deactivate the account instead")
	}
	return mapNotFound(err, "no user found with that ID")
}

func applyProfile(u *model.User, in ProfileUpdate) error {
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return validation("name cannot be empty")
		}
		u.Name = name
	}
	if in.Phone != nil {
		u.Phone = strings.TrimSpace(*in.Phone)
	}
	if in.Addresses != nil {
		u.Addresses = *in.Addresses
	}
	return nil
}
