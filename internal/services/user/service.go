// Package user is the identity edge: registration, activation and login.
// Authentication internals stay thin; the ledger only consumes the
// activation event to create the user's wallet.
package user

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	errs "vaultpay/internal/errors"
	"vaultpay/internal/events"
	"vaultpay/internal/models"
	"vaultpay/internal/repositories"
)

// Service handles registration and login.
type Service interface {
	Register(ctx context.Context, email, password string) (*models.User, error)
	Login(ctx context.Context, email, password string) (string, error)
}

type service struct {
	uow       repositories.UnitOfWork
	bus       events.Publisher
	jwtSecret []byte
	tokenTTL  time.Duration
}

// NewService creates a new user service.
func NewService(uow repositories.UnitOfWork, bus events.Publisher, jwtSecret string, tokenTTL time.Duration) Service {
	if uow == nil {
		panic("unit of work is required")
	}
	if tokenTTL == 0 {
		tokenTTL = 15 * time.Minute
	}
	return &service{
		uow:       uow,
		bus:       bus,
		jwtSecret: []byte(jwtSecret),
		tokenTTL:  tokenTTL,
	}
}

// Register creates an active user and announces the activation on the bus,
// which triggers lazy wallet creation.
func (s *service) Register(ctx context.Context, email, password string) (*models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	u := &models.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: string(hash),
		IsActive:     true,
		Lifecycle:    models.LifecycleActive,
	}
	err = s.uow.Do(ctx, func(st repositories.Store) error {
		return st.Users().Create(ctx, u)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to register user: %w", err)
	}

	if s.bus != nil {
		activation := events.UserActivated{Base: events.NewBase(), UserID: u.ID}
		if err := s.bus.Publish(ctx, activation); err != nil {
			log.Printf("failed to publish user activation for %s: %v", u.ID, err)
		}
	}
	return u, nil
}

func (s *service) Login(ctx context.Context, email, password string) (string, error) {
	var u *models.User
	err := s.uow.Do(ctx, func(st repositories.Store) error {
		found, err := st.Users().GetByEmail(ctx, email)
		if err != nil {
			return err
		}
		u = found
		return nil
	})
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return "", errs.ErrUnauthorized
		}
		return "", fmt.Errorf("failed to load user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return "", errs.ErrUnauthorized
	}
	if !u.IsActive {
		return "", errs.ErrForbidden.WithMessage("user is not active")
	}

	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   u.ID.String(),
		Issuer:    "vaultpay-api",
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}
