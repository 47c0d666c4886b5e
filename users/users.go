package users

import (
	"time"
)

// RoleType represents the storefront role assigned by the backend
type RoleType string

const (
	RoleUser   RoleType = "user"   // Shopper
	RoleSeller RoleType = "seller" // Approved or pending seller
	RoleAdmin  RoleType = "admin"  // Store administrator
)

// Valid reports whether r is one of the roles the backend issues
func (r RoleType) Valid() bool {
	switch r {
	case RoleUser, RoleSeller, RoleAdmin:
		return true
	}
	return false
}

// SellerProfile is only present for users that applied to sell
type SellerProfile struct {
	BusinessName   string     `json:"businessName,omitempty"`
	IsApproved     bool       `json:"isApproved,omitempty"`
	ApprovalDate   *time.Time `json:"approvalDate,omitempty"`
	CommissionRate float64    `json:"commissionRate,omitempty"`
}

// User is the backend's view of the signed-in account. The session core only
// looks at Role; the rest is carried for the pages.
type User struct {
	ID            string         `json:"id,omitempty"`            // Backend user id
	IdentityUID   string         `json:"firebaseUid,omitempty"`   // Identity provider UID
	Email         string         `json:"email,omitempty"`         // Account email
	Name          string         `json:"name,omitempty"`          // Display name
	Role          RoleType       `json:"role,omitempty"`          // user, seller or admin
	EmailVerified bool           `json:"isEmailVerified,omitempty"`
	IsActive      bool           `json:"isActive,omitempty"`
	SellerProfile *SellerProfile `json:"sellerProfile,omitempty"`
	LastLogin     *time.Time     `json:"lastLogin,omitempty"`
}

// HasRole is an exact role match; admins are not implicitly sellers
func (u *User) HasRole(role RoleType) bool {
	return u != nil && u.Role == role
}

// HasAnyRole reports whether the user holds one of roles
func (u *User) HasAnyRole(roles ...RoleType) bool {
	for _, role := range roles {
		if u.HasRole(role) {
			return true
		}
	}
	return false
}

// Clone returns a deep copy so readers cannot mutate shared session state
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	if u.SellerProfile != nil {
		sp := *u.SellerProfile
		if sp.ApprovalDate != nil {
			d := *sp.ApprovalDate
			sp.ApprovalDate = &d
		}
		c.SellerProfile = &sp
	}
	if u.LastLogin != nil {
		l := *u.LastLogin
		c.LastLogin = &l
	}
	return &c
}
