package models

import "time"

type Role string

const (
	RoleFarmer      Role = "farmer"
	RoleDistributor Role = "distributor"
	RoleRetailer    Role = "retailer"
	RoleAdmin       Role = "admin"
	RoleConsumer    Role = "consumer"
)

func (r Role) Valid() bool {
	switch r {
	case RoleFarmer, RoleDistributor, RoleRetailer, RoleAdmin, RoleConsumer:
		return true
	}
	return false
}

// User represents application user.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"passwordHash"`
	DisplayName  string    `json:"displayName"`
	Role         Role      `json:"role"`
	Organization string    `json:"organization,omitempty"`
	Location     string    `json:"location,omitempty"`
	Phone        string    `json:"phone,omitempty"`
	Email        string    `json:"email,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`

	FailedLoginAttempts int        `json:"failedLoginAttempts,omitempty"` // consecutive failures
	LockedUntil         *time.Time `json:"lockedUntil,omitempty"`
	LastLoginAt         *time.Time `json:"lastLoginAt,omitempty"`
	LastLoginIP         string     `json:"lastLoginIp,omitempty"`
}

// Profile is the part of a user that is safe to return to clients.
type Profile struct {
	ID           string     `json:"id"`
	Username     string     `json:"username"`
	DisplayName  string     `json:"displayName"`
	Role         Role       `json:"role"`
	Organization string     `json:"organization,omitempty"`
	Location     string     `json:"location,omitempty"`
	Phone        string     `json:"phone,omitempty"`
	Email        string     `json:"email,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
	LastLoginAt  *time.Time `json:"lastLoginAt,omitempty"`
}

func (u *User) Profile() Profile {
	return Profile{
		ID:           u.ID,
		Username:     u.Username,
		DisplayName:  u.DisplayName,
		Role:         u.Role,
		Organization: u.Organization,
		Location:     u.Location,
		Phone:        u.Phone,
		Email:        u.Email,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
		LastLoginAt:  u.LastLoginAt,
	}
}
