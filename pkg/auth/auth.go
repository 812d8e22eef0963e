// Package auth models the authenticated caller and the role policy that
// decides which ledger operations a caller may perform.
package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/chris/campus-ledger/pkg/models"
)

var (
	// ErrUnauthenticated is returned when no caller identity is available.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrForbidden is returned when the caller's role does not permit the action.
	ErrForbidden = errors.New("forbidden")
	// ErrCallerDisabled is returned when the caller's own account is disabled.
	ErrCallerDisabled = errors.New("caller account is disabled")
)

// Principal is the authenticated caller, loaded from its account.
type Principal struct {
	AccountKey string
	IDNumber   string
	Role       models.Role
	Disabled   bool
}

// PrincipalFromAccount builds a Principal from a stored account.
func PrincipalFromAccount(a *models.Account) Principal {
	return Principal{
		AccountKey: a.AccountKey,
		IDNumber:   a.IDNumber,
		Role:       a.Role,
		Disabled:   a.Disabled,
	}
}

// IsAdmin reports whether the principal holds the admin role.
func (p Principal) IsAdmin() bool {
	return p.Role == models.RoleAdmin
}

type contextKey struct{}

// WithPrincipal returns a copy of ctx carrying p.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, contextKey{}, p)
}

// FromContext returns the principal stored on ctx.
func FromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(contextKey{}).(Principal)
	return p, ok
}

// transferPolicy lists the transfer types each role may initiate.
var transferPolicy = map[models.Role][]models.TransactionType{
	models.RoleAdmin:      {models.CASHIN, models.PAYMENT, models.SEND},
	models.RoleCashier:    {models.CASHIN, models.PAYMENT},
	models.RoleAccountant: {models.CASHIN},
	models.RoleStudent:    {models.SEND},
	models.RoleFaculty:    {models.SEND},
}

// selfOnly lists the roles that may only move value out of their own account.
var selfOnly = map[models.Role]bool{
	models.RoleStudent: true,
	models.RoleFaculty: true,
}

func active(p Principal) error {
	if p.AccountKey == "" {
		return ErrUnauthenticated
	}
	if p.Disabled {
		return ErrCallerDisabled
	}
	return nil
}

// CanTransact decides whether p may initiate a transfer of type t whose
// sender is identified by senderIDNumber.
func CanTransact(p Principal, t models.TransactionType, senderIDNumber string) error {
	if err := active(p); err != nil {
		return err
	}
	allowed := false
	for _, permitted := range transferPolicy[p.Role] {
		if permitted == t {
			allowed = true
			break
		}
	}
	if !allowed {
		return fmt.Errorf("%w: role %s may not create %s transactions", ErrForbidden, p.Role, t)
	}
	if selfOnly[p.Role] && senderIDNumber != p.IDNumber {
		return fmt.Errorf("%w: role %s may only send from its own account", ErrForbidden, p.Role)
	}
	return nil
}

// CanAdminister decides whether p may create, update or delete accounts.
func CanAdminister(p Principal) error {
	if err := active(p); err != nil {
		return err
	}
	if !p.IsAdmin() {
		return fmt.Errorf("%w: account administration requires the admin role", ErrForbidden)
	}
	return nil
}

// CanViewFull decides whether p may see the full profile and history of the
// account holding idNumber.
func CanViewFull(p Principal, idNumber string) bool {
	if active(p) != nil {
		return false
	}
	switch p.Role {
	case models.RoleAdmin, models.RoleAccountant:
		return true
	}
	return p.IDNumber == idNumber
}

// CanRead decides whether p may perform read operations at all.
func CanRead(p Principal) error {
	return active(p)
}
