package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"agritrace/internal/models"
	"agritrace/internal/store"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	maxFailedLogins = 5
	lockoutDuration = 10 * time.Minute
)

var usernameRe = regexp.MustCompile(`^[A-Za-z0-9_]{3,20}$`)

// Users manages accounts and credentials.
type Users struct {
	store      store.Store
	bcryptCost int
	logger     *slog.Logger
	now        func() time.Time
}

func NewUsers(s store.Store, bcryptCost int, logger *slog.Logger) *Users {
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		bcryptCost = bcrypt.DefaultCost
	}
	return &Users{
		store:      s,
		bcryptCost: bcryptCost,
		logger:     logger.With("component", "users"),
		now:        time.Now,
	}
}

// RegisterInput is the sign-up form.
type RegisterInput struct {
	Username     string      `json:"username"`
	Password     string      `json:"password"`
	DisplayName  string      `json:"displayName"`
	Role         models.Role `json:"role"`
	Organization string      `json:"organization"`
	Location     string      `json:"location"`
	Phone        string      `json:"phone"`
	Email        string      `json:"email"`
}

// ProfileUpdate merges the non-nil fields into a user profile.
type ProfileUpdate struct {
	DisplayName  *string `json:"displayName"`
	Organization *string `json:"organization"`
	Location     *string `json:"location"`
	Phone        *string `json:"phone"`
	Email        *string `json:"email"`
}

// strongPassword: 8-32 characters with upper case, lower case and a digit.
func strongPassword(pwd string) bool {
	if len(pwd) < 8 || len(pwd) > 32 {
		return false
	}
	var hasUpper, hasLower, hasDigit bool
	for _, ch := range pwd {
		switch {
		case ch >= 'A' && ch <= 'Z':
			hasUpper = true
		case ch >= 'a' && ch <= 'z':
			hasLower = true
		case ch >= '0' && ch <= '9':
			hasDigit = true
		}
	}
	return hasUpper && hasLower && hasDigit
}

// Register creates an account. Only an admin may create another admin.
func (u *Users) Register(ctx context.Context, actor Actor, in RegisterInput) (*models.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	if !usernameRe.MatchString(in.Username) {
		return nil, invalid("username must be 3-20 letters, digits or underscores")
	}
	if !strongPassword(in.Password) {
		return nil, invalid("password must be 8-32 characters with upper case, lower case and digits")
	}
	if in.Role == "" {
		in.Role = models.RoleFarmer
	}
	if !in.Role.Valid() {
		return nil, invalid("unknown role %q", in.Role)
	}
	if in.Role == models.RoleAdmin && !actor.IsAdmin() {
		return nil, forbidden("only an admin can create admin accounts")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), u.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	now := u.now().UTC()
	user := &models.User{
		ID:           uuid.NewString(),
		Username:     in.Username,
		PasswordHash: string(hash),
		DisplayName:  in.DisplayName,
		Role:         in.Role,
		Organization: in.Organization,
		Location:     in.Location,
		Phone:        in.Phone,
		Email:        in.Email,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if user.DisplayName == "" {
		user.DisplayName = user.Username
	}

	err = u.store.Update(ctx, func(tx store.Txn) error {
		_, err := tx.Get(usernameKey(strings.ToLower(user.Username)))
		if err == nil {
			return invalid("username already exists")
		}
		if !errors.Is(err, store.ErrNotFound) {
			return err
		}
		if err := tx.Set(usernameKey(strings.ToLower(user.Username)), []byte(user.ID)); err != nil {
			return err
		}
		return store.SetJSON(tx, userKey(user.ID), user)
	})
	if err != nil {
		return nil, fmt.Errorf("register %s: %w", in.Username, err)
	}
	u.logger.Info("user registered", "user", user.ID, "role", user.Role)
	return user, nil
}

// Authenticate checks credentials. Five consecutive failures lock the
// account for ten minutes.
func (u *Users) Authenticate(ctx context.Context, username, password, ip string) (*models.User, error) {
	username = strings.TrimSpace(username)
	badCredentials := fmt.Errorf("%w: invalid username or password", ErrUnauthorized)

	var (
		user     models.User
		matched  bool
		lockedAt time.Time
	)
	err := u.store.Update(ctx, func(tx store.Txn) error {
		matched = false
		raw, err := tx.Get(usernameKey(strings.ToLower(username)))
		if errors.Is(err, store.ErrNotFound) {
			return badCredentials
		}
		if err != nil {
			return err
		}
		if err := store.GetJSON(tx, userKey(string(raw)), &user); err != nil {
			return err
		}

		now := u.now().UTC()
		if user.LockedUntil != nil && now.Before(*user.LockedUntil) {
			lockedAt = *user.LockedUntil
			return nil
		}
		if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
			user.FailedLoginAttempts++
			if user.FailedLoginAttempts >= maxFailedLogins {
				until := now.Add(lockoutDuration)
				user.LockedUntil = &until
				user.FailedLoginAttempts = 0
			}
			return store.SetJSON(tx, userKey(user.ID), &user)
		}

		matched = true
		user.FailedLoginAttempts = 0
		user.LockedUntil = nil
		user.LastLoginAt = &now
		user.LastLoginIP = ip
		return store.SetJSON(tx, userKey(user.ID), &user)
	})
	if err != nil {
		return nil, err
	}
	if !lockedAt.IsZero() {
		return nil, fmt.Errorf("%w: account locked, try again later", ErrUnauthorized)
	}
	if !matched {
		u.logger.Warn("login failed", "user", user.ID, "ip", ip)
		return nil, badCredentials
	}
	return &user, nil
}

// GetUser returns the account with the given id.
func (u *Users) GetUser(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	err := u.store.View(ctx, func(tx store.Txn) error {
		return store.GetJSON(tx, userKey(id), &user)
	})
	if errors.Is(err, store.ErrNotFound) {
		return nil, notFound("user %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get user %s: %w", id, err)
	}
	return &user, nil
}

// UpdateUser merges profile fields. Only the user or an admin may do it.
func (u *Users) UpdateUser(ctx context.Context, actor Actor, id string, p ProfileUpdate) (*models.User, error) {
	if !actor.Authenticated() {
		return nil, fmt.Errorf("%w: login required", ErrUnauthorized)
	}
	if !actor.CanActFor(id) {
		return nil, forbidden("cannot update user %s", id)
	}
	var user models.User
	err := u.store.Update(ctx, func(tx store.Txn) error {
		if err := store.GetJSON(tx, userKey(id), &user); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return notFound("user %s", id)
			}
			return err
		}
		set := func(dst *string, src *string) {
			if src != nil {
				*dst = strings.TrimSpace(*src)
			}
		}
		set(&user.DisplayName, p.DisplayName)
		set(&user.Organization, p.Organization)
		set(&user.Location, p.Location)
		set(&user.Phone, p.Phone)
		set(&user.Email, p.Email)
		user.UpdatedAt = u.now().UTC()
		return store.SetJSON(tx, userKey(id), &user)
	})
	if err != nil {
		return nil, fmt.Errorf("update user %s: %w", id, err)
	}
	return &user, nil
}

// ChangePassword replaces the caller's password after checking the old one.
func (u *Users) ChangePassword(ctx context.Context, actor Actor, id, oldPassword, newPassword string) error {
	if !actor.Authenticated() {
		return fmt.Errorf("%w: login required", ErrUnauthorized)
	}
	if actor.ID != id {
		return forbidden("can only change your own password")
	}
	if !strongPassword(newPassword) {
		return invalid("password must be 8-32 characters with upper case, lower case and digits")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), u.bcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return u.store.Update(ctx, func(tx store.Txn) error {
		var user models.User
		if err := store.GetJSON(tx, userKey(id), &user); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return notFound("user %s", id)
			}
			return err
		}
		if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(oldPassword)) != nil {
			return invalid("old password is incorrect")
		}
		user.PasswordHash = string(hash)
		user.UpdatedAt = u.now().UTC()
		return store.SetJSON(tx, userKey(id), &user)
	})
}
