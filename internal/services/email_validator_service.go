package services

import (
	"context"
	"errors"
	"regexp"
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

type EmailValidator interface {
	Validate(ctx context.Context, email string) error
}

// LocalValidator only checks the address format.
type LocalValidator struct{}

func NewLocalValidator() *LocalValidator {
	return &LocalValidator{}
}

func (v *LocalValidator) Validate(ctx context.Context, email string) error {
	if email == "" {
		return errors.New("email is required")
	}
	if !emailRegex.MatchString(email) {
		return errors.New("invalid email format")
	}
	return nil
}

// ChainValidator runs validators in order and stops at the first rejection.
type ChainValidator []EmailValidator

func (c ChainValidator) Validate(ctx context.Context, email string) error {
	for _, v := range c {
		if err := v.Validate(ctx, email); err != nil {
			return err
		}
	}
	return nil
}
