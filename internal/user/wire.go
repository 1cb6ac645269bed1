//go:build wireinject
// +build wireinject

package user

import (
	"github.com/google/wire"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/olenev/userhub/internal/mailer"
	"github.com/olenev/userhub/internal/user/delivery/http"
	"github.com/olenev/userhub/internal/user/domain"
	"github.com/olenev/userhub/internal/user/repository"
	"github.com/olenev/userhub/internal/user/storage"
	"github.com/olenev/userhub/kafka"
	"github.com/olenev/userhub/pkg/auth"
)

// ProvideUserRepository assembles the instrumented repository stack:
// gorm persistence wrapped in tracing, wrapped in the Redis read cache.
func ProvideUserRepository(db *gorm.DB, rdb redis.UniversalClient) domain.UserRepository {
	base := repository.NewGormUserRepository(db)
	traced := repository.NewTracingUserRepository(base)
	return repository.NewCachedUserRepository(traced, rdb, repository.DefaultCacheTTL)
}

// Wire sets
var RepositorySet = wire.NewSet(
	ProvideUserRepository,
)

// InitializeHTTPHandler initializes the HTTP handler with all dependencies
func InitializeHTTPHandler(
	db *gorm.DB,
	rdb redis.UniversalClient,
	avatars storage.AvatarStorage,
	tokens *auth.TokenManager,
	dispatcher mailer.Dispatcher,
	publisher *kafka.Publisher,
) (*http.UserHandler, error) {
	wire.Build(
		RepositorySet,
		http.NewUserHandler,
	)
	return nil, nil
}

// InitializeSMTPSender initializes the mail sender for the worker
func InitializeSMTPSender(cfg mailer.SMTPConfig, tokens *auth.TokenManager) (*mailer.SMTPSender, error) {
	wire.Build(
		mailer.NewSMTPSender,
	)
	return nil, nil
}
