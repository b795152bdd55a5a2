// Package users implements registration, authentication, and profile
// lookups.
package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rewear/service_layer/internal/app/domain/errs"
	"github.com/rewear/service_layer/internal/app/domain/user"
	"github.com/rewear/service_layer/internal/app/services/points"
	"github.com/rewear/service_layer/internal/app/storage"
	"github.com/rewear/service_layer/internal/auth"
	"github.com/rewear/service_layer/pkg/logger"
)

// Service manages accounts.
type Service struct {
	store  storage.Store
	ledger *points.Service
	hasher auth.PasswordHasher
	tokens auth.TokenIssuer
	log    *logger.Logger
}

// New constructs the account service.
func New(store storage.Store, ledger *points.Service, hasher auth.PasswordHasher, tokens auth.TokenIssuer, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("users")
	}
	return &Service{store: store, ledger: ledger, hasher: hasher, tokens: tokens, log: log}
}

// RegisterParams are the signup fields.
type RegisterParams struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	City      string
	Country   string
}

func (p RegisterParams) validate() error {
	email := strings.TrimSpace(p.Email)
	if email == "" || !strings.Contains(email, "@") {
		return fmt.Errorf("valid email is required: %w", errs.ErrInvalidState)
	}
	if len(p.Password) < 8 {
		return fmt.Errorf("password must be at least 8 characters: %w", errs.ErrInvalidState)
	}
	if strings.TrimSpace(p.FirstName) == "" {
		return fmt.Errorf("first name is required: %w", errs.ErrInvalidState)
	}
	return nil
}

// Register creates an account and credits the signup grant, both in one
// atomic unit: a grant is never credited without its account and vice
// versa. A taken email fails with errs.ErrDuplicateEmail.
func (s *Service) Register(ctx context.Context, p RegisterParams) (user.Profile, error) {
	if err := p.validate(); err != nil {
		return user.Profile{}, err
	}

	hash, err := s.hasher.Hash(p.Password)
	if err != nil {
		return user.Profile{}, err
	}

	var created user.User
	err = s.store.InTx(ctx, func(tx storage.Tx) error {
		var err error
		created, err = tx.CreateUser(ctx, user.User{
			Email:        strings.ToLower(strings.TrimSpace(p.Email)),
			PasswordHash: hash,
			FirstName:    strings.TrimSpace(p.FirstName),
			LastName:     strings.TrimSpace(p.LastName),
			City:         p.City,
			Country:      p.Country,
			Role:         user.RoleUser,
			Active:       true,
		})
		if err != nil {
			return err
		}
		balance, err := s.ledger.Credit(ctx, tx, created.ID, user.SignupGrant)
		if err != nil {
			return err
		}
		created.Points = balance
		return nil
	})
	if err != nil {
		return user.Profile{}, err
	}

	s.log.WithField("user_id", created.ID).Info("user registered")
	return created.Public(), nil
}

// Authenticate checks credentials and returns the profile plus a signed
// token. Unknown emails and wrong passwords both fail with
// errs.ErrForbidden so callers cannot probe for accounts.
func (s *Service) Authenticate(ctx context.Context, email, password string) (user.Profile, string, error) {
	u, err := s.store.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return user.Profile{}, "", errs.Forbidden("invalid credentials")
		}
		return user.Profile{}, "", err
	}
	if !u.Active {
		return user.Profile{}, "", errs.Forbidden("account disabled")
	}
	if err := s.hasher.Compare(u.PasswordHash, password); err != nil {
		return user.Profile{}, "", errs.Forbidden("invalid credentials")
	}

	token, err := s.tokens.Issue(u.ID, string(u.Role))
	if err != nil {
		return user.Profile{}, "", fmt.Errorf("issue token: %w", err)
	}

	s.log.WithField("user_id", u.ID).Info("user authenticated")
	return u.Public(), token, nil
}

// Get returns a user's public profile.
func (s *Service) Get(ctx context.Context, id string) (user.Profile, error) {
	u, err := s.store.GetUser(ctx, id)
	if err != nil {
		return user.Profile{}, err
	}
	return u.Public(), nil
}
