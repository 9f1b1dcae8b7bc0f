package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"store-backend/internal/pg"
)

var (
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("incorrect email or password")
)

type User struct {
	ID       int64  `json:"id"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	IsActive bool   `json:"is_active"`

	passwordHash string
}

type NewUser struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Role     string `json:"role" validate:"omitempty,oneof=buyer seller admin"`
}

type Conf struct {
	db *sql.DB
}

func NewConf(db *sql.DB) (Conf, error) {
	if db == nil {
		return Conf{}, fmt.Errorf("db is nil")
	}
	return Conf{db: db}, nil
}

// InsertUser registers a user with a bcrypt-hashed password. Emails are
// stored lower-cased and unique.
func (c *Conf) InsertUser(ctx context.Context, nu NewUser) (User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(nu.Password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, fmt.Errorf("failed to hash password: %w", err)
	}

	role := nu.Role
	if role == "" {
		role = "buyer"
	}

	query := `
		INSERT INTO users (email, hashed_password, role, is_active)
		VALUES ($1, $2, $3, TRUE)
		RETURNING id, email, role, is_active
	`
	var u User
	err = c.db.QueryRowContext(ctx, query, strings.ToLower(nu.Email), string(hash), role).
		Scan(&u.ID, &u.Email, &u.Role, &u.IsActive)
	if err != nil {
		if pg.IsUniqueViolation(err) {
			return User{}, ErrEmailTaken
		}
		return User{}, fmt.Errorf("failed to insert user: %w", err)
	}
	return u, nil
}

// Authenticate verifies email and password and returns the active user.
func (c *Conf) Authenticate(ctx context.Context, email string, password string) (User, error) {
	query := `
		SELECT id, email, hashed_password, role, is_active
		FROM users
		WHERE email = $1 AND is_active = TRUE
	`
	var u User
	err := c.db.QueryRowContext(ctx, query, strings.ToLower(email)).
		Scan(&u.ID, &u.Email, &u.passwordHash, &u.Role, &u.IsActive)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrInvalidCredentials
		}
		return User{}, fmt.Errorf("failed to query user: %w", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(u.passwordHash), []byte(password)) != nil {
		return User{}, ErrInvalidCredentials
	}
	u.passwordHash = ""
	return u, nil
}
