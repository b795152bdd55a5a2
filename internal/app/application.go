// Package app wires the marketplace services over a shared store and
// manages their lifecycle.
package app

import (
	"context"
	"fmt"

	"github.com/rewear/service_layer/internal/app/services/aitext"
	"github.com/rewear/service_layer/internal/app/services/items"
	"github.com/rewear/service_layer/internal/app/services/points"
	"github.com/rewear/service_layer/internal/app/services/ratings"
	"github.com/rewear/service_layer/internal/app/services/redemptions"
	"github.com/rewear/service_layer/internal/app/services/swaps"
	"github.com/rewear/service_layer/internal/app/services/users"
	"github.com/rewear/service_layer/internal/app/storage"
	"github.com/rewear/service_layer/internal/app/storage/memory"
	"github.com/rewear/service_layer/internal/app/system"
	"github.com/rewear/service_layer/internal/auth"
	"github.com/rewear/service_layer/pkg/logger"
)

// Deps are the external collaborators. A nil Store defaults to the
// in-memory implementation; a nil Hasher and Tokens get working defaults;
// Cache and Generator stay optional.
type Deps struct {
	Store     storage.Store
	Cache     items.ListingCache
	Hasher    auth.PasswordHasher
	Tokens    *auth.JWTManager
	Generator aitext.TextGenerator
}

// Application ties domain services together and manages their lifecycle.
type Application struct {
	manager *system.Manager
	log     *logger.Logger

	Store       storage.Store
	Tokens      *auth.JWTManager
	Users       *users.Service
	Items       *items.Service
	Points      *points.Service
	Swaps       *swaps.Service
	Redemptions *redemptions.Service
	Ratings     *ratings.Service
	AIText      *aitext.Service
}

// New builds a fully initialised application with the provided deps.
func New(deps Deps, log *logger.Logger) (*Application, error) {
	if log == nil {
		log = logger.NewDefault("app")
	}
	if deps.Store == nil {
		deps.Store = memory.New()
	}
	if deps.Hasher == nil {
		deps.Hasher = auth.NewBcryptHasher(0)
	}
	if deps.Tokens == nil {
		deps.Tokens = auth.NewJWTManager("dev-secret-change-me", 0)
		log.Warn("no JWT secret configured; using insecure default")
	}

	manager := system.NewManager()

	ledger := points.New(deps.Store, log)
	itemSvc := items.New(deps.Store, log)
	if deps.Cache != nil {
		itemSvc = itemSvc.WithCache(deps.Cache)
	}
	userSvc := users.New(deps.Store, ledger, deps.Hasher, deps.Tokens, log)
	swapSvc := swaps.New(deps.Store, itemSvc, log)
	redemptionSvc := redemptions.New(deps.Store, ledger, itemSvc, log)
	ratingSvc := ratings.New(deps.Store, log)
	aiSvc := aitext.New(deps.Generator, log)

	for _, name := range []string{"users", "items", "points", "swaps", "redemptions", "ratings"} {
		if err := manager.Register(system.NoopService{ServiceName: name}); err != nil {
			return nil, fmt.Errorf("register %s service: %w", name, err)
		}
	}

	return &Application{
		manager:     manager,
		log:         log,
		Store:       deps.Store,
		Tokens:      deps.Tokens,
		Users:       userSvc,
		Items:       itemSvc,
		Points:      ledger,
		Swaps:       swapSvc,
		Redemptions: redemptionSvc,
		Ratings:     ratingSvc,
		AIText:      aiSvc,
	}, nil
}

// Attach registers an additional lifecycle-managed service. Call before Start.
func (a *Application) Attach(service system.Service) error {
	return a.manager.Register(service)
}

// Start begins all registered services.
func (a *Application) Start(ctx context.Context) error {
	return a.manager.Start(ctx)
}

// Stop stops all services.
func (a *Application) Stop(ctx context.Context) error {
	return a.manager.Stop(ctx)
}
