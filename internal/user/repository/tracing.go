package repository

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/olenev/userhub/internal/user/domain"
)

var tracer = otel.Tracer("user-repository")

// TracingUserRepository wraps a UserRepository with OpenTelemetry spans
type TracingUserRepository struct {
	next domain.UserRepository
}

// NewTracingUserRepository creates a repository decorator that records a
// span per data access call
func NewTracingUserRepository(next domain.UserRepository) *TracingUserRepository {
	return &TracingUserRepository{next: next}
}

func (r *TracingUserRepository) span(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

func finishSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// Create with tracing
func (r *TracingUserRepository) Create(ctx context.Context, user *domain.User) error {
	ctx, span := r.span(ctx, "repository.Create",
		attribute.String("user.username", user.Username),
		attribute.String("user.email", user.Email),
	)
	err := r.next.Create(ctx, user)
	if err == nil {
		span.SetAttributes(attribute.Int("user.id", int(user.ID)))
	}
	finishSpan(span, err)
	return err
}

// FindByID with tracing
func (r *TracingUserRepository) FindByID(ctx context.Context, id uint) (*domain.User, error) {
	ctx, span := r.span(ctx, "repository.FindByID",
		attribute.Int("user.id", int(id)),
	)
	user, err := r.next.FindByID(ctx, id)
	finishSpan(span, err)
	return user, err
}

// FindByUsername with tracing
func (r *TracingUserRepository) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	ctx, span := r.span(ctx, "repository.FindByUsername",
		attribute.String("user.username", username),
	)
	user, err := r.next.FindByUsername(ctx, username)
	finishSpan(span, err)
	return user, err
}

// FindByEmail with tracing
func (r *TracingUserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	ctx, span := r.span(ctx, "repository.FindByEmail",
		attribute.String("user.email", email),
	)
	user, err := r.next.FindByEmail(ctx, email)
	finishSpan(span, err)
	return user, err
}

// FindAll with tracing
func (r *TracingUserRepository) FindAll(ctx context.Context, limit, offset int) ([]domain.User, error) {
	ctx, span := r.span(ctx, "repository.FindAll",
		attribute.Int("query.limit", limit),
		attribute.Int("query.offset", offset),
	)
	users, err := r.next.FindAll(ctx, limit, offset)
	if err == nil {
		span.SetAttributes(attribute.Int("result.count", len(users)))
	}
	finishSpan(span, err)
	return users, err
}

// FindByRole with tracing
func (r *TracingUserRepository) FindByRole(ctx context.Context, role string, limit, offset int) ([]domain.User, error) {
	ctx, span := r.span(ctx, "repository.FindByRole",
		attribute.String("user.role", role),
		attribute.Int("query.limit", limit),
		attribute.Int("query.offset", offset),
	)
	users, err := r.next.FindByRole(ctx, role, limit, offset)
	if err == nil {
		span.SetAttributes(attribute.Int("result.count", len(users)))
	}
	finishSpan(span, err)
	return users, err
}

// Update with tracing
func (r *TracingUserRepository) Update(ctx context.Context, user *domain.User) error {
	ctx, span := r.span(ctx, "repository.Update",
		attribute.Int("user.id", int(user.ID)),
	)
	err := r.next.Update(ctx, user)
	finishSpan(span, err)
	return err
}

// UpdateRefreshToken with tracing
func (r *TracingUserRepository) UpdateRefreshToken(ctx context.Context, id uint, token *string) error {
	ctx, span := r.span(ctx, "repository.UpdateRefreshToken",
		attribute.Int("user.id", int(id)),
		attribute.Bool("token.cleared", token == nil),
	)
	err := r.next.UpdateRefreshToken(ctx, id, token)
	finishSpan(span, err)
	return err
}

// ConfirmEmail with tracing
func (r *TracingUserRepository) ConfirmEmail(ctx context.Context, email string) error {
	ctx, span := r.span(ctx, "repository.ConfirmEmail",
		attribute.String("user.email", email),
	)
	err := r.next.ConfirmEmail(ctx, email)
	finishSpan(span, err)
	return err
}

// UpdateAvatar with tracing
func (r *TracingUserRepository) UpdateAvatar(ctx context.Context, id uint, url string) error {
	ctx, span := r.span(ctx, "repository.UpdateAvatar",
		attribute.Int("user.id", int(id)),
	)
	err := r.next.UpdateAvatar(ctx, id, url)
	finishSpan(span, err)
	return err
}

// Delete with tracing
func (r *TracingUserRepository) Delete(ctx context.Context, id uint) error {
	ctx, span := r.span(ctx, "repository.Delete",
		attribute.Int("user.id", int(id)),
	)
	err := r.next.Delete(ctx, id)
	finishSpan(span, err)
	return err
}

// Count with tracing
func (r *TracingUserRepository) Count(ctx context.Context) (int64, error) {
	ctx, span := r.span(ctx, "repository.Count")
	count, err := r.next.Count(ctx)
	if err == nil {
		span.SetAttributes(attribute.Int64("result.count", count))
	}
	finishSpan(span, err)
	return count, err
}

// CountByRole with tracing
func (r *TracingUserRepository) CountByRole(ctx context.Context, role string) (int64, error) {
	ctx, span := r.span(ctx, "repository.CountByRole",
		attribute.String("user.role", role),
	)
	count, err := r.next.CountByRole(ctx, role)
	finishSpan(span, err)
	return count, err
}

// CountConfirmed with tracing
func (r *TracingUserRepository) CountConfirmed(ctx context.Context) (int64, error) {
	ctx, span := r.span(ctx, "repository.CountConfirmed")
	count, err := r.next.CountConfirmed(ctx)
	finishSpan(span, err)
	return count, err
}

// CountActive with tracing
func (r *TracingUserRepository) CountActive(ctx context.Context) (int64, error) {
	ctx, span := r.span(ctx, "repository.CountActive")
	count, err := r.next.CountActive(ctx)
	finishSpan(span, err)
	return count, err
}
