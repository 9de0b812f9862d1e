package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Gender values accepted at registration.
const (
	GenderMale   = "Male"
	GenderFemale = "Female"
	GenderOther  = "Other"
)

// Marital status values accepted at registration.
const (
	MaritalStatusSingle   = "Single"
	MaritalStatusMarried  = "Married"
	MaritalStatusDivorced = "Divorced"
	MaritalStatusWidowed  = "Widowed"
)

// Customer is a registered account. WalletBalance is only changed by the
// wallet manager and never drops below zero.
type Customer struct {
	ID            string          `json:"id"`
	Username      string          `json:"username"`
	PasswordHash  string          `json:"-"`
	FullName      string          `json:"full_name"`
	Age           int             `json:"age"`
	Address       string          `json:"address"`
	Gender        string          `json:"gender"`
	MaritalStatus string          `json:"marital_status"`
	Role          string          `json:"role"`
	WalletBalance decimal.Decimal `json:"wallet_balance"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// IsAdmin reports whether the customer holds the admin role.
func (c *Customer) IsAdmin() bool {
	return c.Role == RoleAdmin
}

// CustomerPatch holds a partial profile update. Nil fields are left unchanged.
type CustomerPatch struct {
	FullName      *string
	Age           *int
	Address       *string
	Gender        *string
	MaritalStatus *string
	PasswordHash  *string
}

// Apply copies the non-nil fields of p onto c.
func (p CustomerPatch) Apply(c *Customer) {
	if p.FullName != nil {
		c.FullName = *p.FullName
	}
	if p.Age != nil {
		c.Age = *p.Age
	}
	if p.Address != nil {
		c.Address = *p.Address
	}
	if p.Gender != nil {
		c.Gender = *p.Gender
	}
	if p.MaritalStatus != nil {
		c.MaritalStatus = *p.MaritalStatus
	}
	if p.PasswordHash != nil {
		c.PasswordHash = *p.PasswordHash
	}
}

// ValidGenders returns the set of valid gender values.
func ValidGenders() []string {
	return []string{GenderMale, GenderFemale, GenderOther}
}

// IsValidGender checks whether the given string is a valid gender value.
func IsValidGender(g string) bool {
	for _, v := range ValidGenders() {
		if v == g {
			return true
		}
	}
	return false
}

// ValidMaritalStatuses returns the set of valid marital status values.
func ValidMaritalStatuses() []string {
	return []string{MaritalStatusSingle, MaritalStatusMarried, MaritalStatusDivorced, MaritalStatusWidowed}
}

// IsValidMaritalStatus checks whether the given string is a valid marital status.
func IsValidMaritalStatus(s string) bool {
	for _, v := range ValidMaritalStatuses() {
		if v == s {
			return true
		}
	}
	return false
}
