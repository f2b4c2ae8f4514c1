package services

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"StoreProAPI/internal/model"
	"StoreProAPI/internal/repository"

	"golang.org/x/crypto/bcrypt"
)

const (
	MinPasswordLen = 8
	ResetTokenTTL  = 10 * time.Minute
)

type AuthService struct {
	Users     UserStore
	Mailer    EmailSender
	Validator EmailValidator
	// ResetURLPrefix is joined with the raw reset token to form the mailed link.
	ResetURLPrefix string
	Now            func() time.Time
}

func NewAuthService(users UserStore, mailer EmailSender, validator EmailValidator, resetURLPrefix string) *AuthService {
	if validator == nil {
		validator = NewLocalValidator()
	}
	return &AuthService{
		Users:          users,
		Mailer:         mailer,
		Validator:      validator,
		ResetURLPrefix: resetURLPrefix,
		Now:            time.Now,
	}
}

type SignupInput struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"passwordConfirm"`
}

func (s *AuthService) validatePassword(pw, confirm string) error {
	if len(pw) < MinPasswordLen {
		return validation(fmt.Sprintf("password too short: must be at least %d characters", MinPasswordLen))
	}
	if pw != confirm {
		return validation("passwords do not match")
	}
	return nil
}

// Signup registers a customer account. New accounts never get the admin role.
func (s *AuthService) Signup(ctx context.Context, in SignupInput) (*model.User, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if in.Name == "" {
		return nil, validation("please provide your name")
	}
	if err := s.Validator.Validate(ctx, in.Email); err != nil {
		return nil, &AppError{Kind: KindValidation, Message: err.Error(), Err: err}
	}
	if err := s.validatePassword(in.Password, in.PasswordConfirm); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	u := &model.User{
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: string(hash),
		Role:         model.RoleCustomer,
		Addresses:    []model.Address{},
		Active:       true,
	}
	id, err := s.Users.Create(ctx, u)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, validation("email already registered")
		}
		return nil, err
	}
	u.UserID = id
	u.PasswordHash = ""
	return u, nil
}

// Login authenticates using email + password and returns the user (without passwordhash).
func (s *AuthService) Login(ctx context.Context, email, password string) (*model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, validation("please provide email and password")
	}
	u, err := s.Users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// do not reveal whether email exists
			return nil, unauthorized("incorrect email or password")
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, unauthorized("incorrect email or password")
	}
	u.PasswordHash = ""
	return u, nil
}

// Authenticate resolves the user behind a token issued at issuedAt.
func (s *AuthService) Authenticate(ctx context.Context, userID int64, issuedAt time.Time) (*model.User, error) {
	u, err := s.Users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, unauthorized("the user belonging to this token no longer exists")
		}
		return nil, err
	}
	if !u.Active {
		return nil, unauthorized("the user belonging to this token no longer exists")
	}
	if u.ChangedPasswordAfter(issuedAt) {
		return nil, unauthorized("user recently changed password, please log in again")
	}
	u.PasswordHash = ""
	return u, nil
}

// ForgotPassword stores a hashed one-time token and mails the raw token to the user.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	u, err := s.Users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return mapNotFound(err, "there is no user with that email address")
	}
	if s.Mailer == nil {
		return upstream("password reset email is not available", errors.New("no mailer configured"))
	}

	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return err
	}
	token := hex.EncodeToString(raw)
	hash := hashToken(token)
	expires := s.Now().Add(ResetTokenTTL)
	if err := s.Users.SetResetToken(ctx, u.UserID, &hash, &expires); err != nil {
		return err
	}

	if err := s.Mailer.SendPasswordReset(ctx, u.Email, s.ResetURLPrefix+token); err != nil {
		if cerr := s.Users.SetResetToken(ctx, u.UserID, nil, nil); cerr != nil {
			err = errors.Join(err, cerr)
		}
		return upstream("there was an error sending the email, try again later", err)
	}
	return nil
}

func (s *AuthService) ResetPassword(ctx context.Context, token, password, confirm string) (*model.User, error) {
	now := s.Now()
	u, err := s.Users.GetByResetToken(ctx, hashToken(token), now)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, validation("token is invalid or has expired")
		}
		return nil, err
	}
	if err := s.setPassword(ctx, u, password, confirm, now); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *AuthService) UpdatePassword(ctx context.Context, userID int64, current, password, confirm string) (*model.User, error) {
	u, err := s.Users.GetByID(ctx, userID)
	if err != nil {
		return nil, mapNotFound(err, "user not found")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(current)); err != nil {
		return nil, unauthorized("your current password is wrong")
	}
	if err := s.setPassword(ctx, u, password, confirm, s.Now()); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *AuthService) setPassword(ctx context.Context, u *model.User, password, confirm string, now time.Time) error {
	if err := s.validatePassword(password, confirm); err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	// one second back so a token issued right after the change still passes
	changedAt := now.Add(-time.Second)
	if err := s.Users.SetPassword(ctx, u.UserID, string(hash), changedAt); err != nil {
		return err
	}
	u.PasswordHash = ""
	u.PasswordChangedAt = &changedAt
	u.ResetTokenHash = nil
	u.ResetExpiresAt = nil
	return nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
