package model

import "time"

const (
	RoleCustomer = "customer"
	RoleAdmin    = "admin"
)

type Address struct {
	AddressID int64  `json:"addressid,omitempty"`
	Street    string `json:"street"`
	City      string `json:"city"`
	State     string `json:"state"`
	Zip       string `json:"zip"`
	Country   string `json:"country"`
}

type User struct {
	UserID            int64      `json:"userid"`
	Name              string     `json:"name"`
	Email             string     `json:"email"`
	PasswordHash      string     `json:"-"` // never JSON-encode
	Role              string     `json:"role"`
	Phone             string     `json:"phone"`
	Addresses         []Address  `json:"addresses"`
	Active            bool       `json:"-"`
	PasswordChangedAt *time.Time `json:"-"`
	ResetTokenHash    *string    `json:"-"`
	ResetExpiresAt    *time.Time `json:"-"`
	CreatedAt         *time.Time `json:"created_at,omitempty"`
	UpdatedAt         *time.Time `json:"updated_at,omitempty"`
}

// ChangedPasswordAfter reports whether the password was changed after a token
// issued at issuedAt.
func (u *User) ChangedPasswordAfter(issuedAt time.Time) bool {
	if u.PasswordChangedAt == nil {
		return false
	}
	return issuedAt.Unix() < u.PasswordChangedAt.Unix()
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
