package user

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	domain "user-service/internal/domain/user"
	pkgerrors "user-service/pkg/errors"
	"user-service/pkg/logger"
	"user-service/pkg/validation"
)

const tracerName = "user-service/internal/usecase/user"

// Usecase implements the business logic for user management operations.
// It provides a clean separation between the transport layer and data layer.
type Usecase struct {
	repo     Repository             // Persistence collaborator
	pub      Publisher              // Lifecycle event sink, optional
	ops      *prometheus.CounterVec // Operation counter labelled by operation and result, optional
	log      *zap.Logger            // Logger for structured logging
	validate *validation.Validator  // Input contract validator
	tracer   trace.Tracer
}

// New creates a new instance of Usecase.
// If pub is nil, no events are published. If ops is nil, no operation
// metrics are recorded.
func New(r Repository, pub Publisher, ops *prometheus.CounterVec, log *zap.Logger) *Usecase {
	return &Usecase{
		repo:     r,
		pub:      pub,
		ops:      ops,
		log:      log,
		validate: validation.MustNew(),
		tracer:   otel.Tracer(tracerName),
	}
}

// FindAllUsers returns every stored user in the order the repository
// provides them. The result is never nil.
func (uc *Usecase) FindAllUsers(ctx context.Context) (_ []domain.User, err error) {
	ctx, span := uc.tracer.Start(ctx, "user.Usecase/FindAllUsers")
	defer func() { uc.finish(span, "find_all", err) }()

	users, err := uc.repo.Find(ctx)
	if err != nil {
		logger.WithContext(ctx, uc.log).Error("failed to list users", zap.Error(err))
		return nil, err
	}
	if users == nil {
		users = []domain.User{}
	}

	span.SetAttributes(attribute.Int("user.count", len(users)))
	return users, nil
}

// FindUserByID returns the user with the given ID or a NotFoundError.
func (uc *Usecase) FindUserByID(ctx context.Context, id string) (_ *domain.User, err error) {
	ctx, span := uc.tracer.Start(ctx, "user.Usecase/FindUserByID", trace.WithAttributes(attribute.String("user.id", id)))
	defer func() { uc.finish(span, "find_by_id", err) }()

	return uc.mustFind(ctx, id)
}

// CreateUser validates the input, builds the entity and persists it.
// A save that fails or yields nothing is reported as an InternalError.
func (uc *Usecase) CreateUser(ctx context.Context, in CreateUserInput) (_ *domain.User, err error) {
	ctx, span := uc.tracer.Start(ctx, "user.Usecase/CreateUser")
	defer func() { uc.finish(span, "create", err) }()

	log := logger.WithContext(ctx, uc.log)
	log.Debug("creating user")

	if err := uc.validate.Struct(in); err != nil {
		log.Warn("validate failed", zap.Error(err))
		return nil, err
	}

	u := uc.repo.Create(domain.User{
		Name:  in.Name,
		Email: in.Email,
	})

	saved, err := uc.repo.Save(ctx, u)
	if err != nil {
		log.Error("failed to save user", zap.Error(err))
		return nil, pkgerrors.NewInternalError(pkgerrors.MsgCreateUser, err)
	}
	if saved == nil {
		log.Error("save returned no user")
		return nil, pkgerrors.NewInternalError(pkgerrors.MsgCreateUser, nil)
	}

	log.Info("user created", zap.String("id", saved.ID))
	uc.publish(ctx, domain.EventCreated, *saved)
	return saved, nil
}

// UpdateUser applies a partial update to an existing user. Every field
// present in the input overrides the stored value.
func (uc *Usecase) UpdateUser(ctx context.Context, id string, in UpdateUserInput) (_ *domain.User, err error) {
	ctx, span := uc.tracer.Start(ctx, "user.Usecase/UpdateUser", trace.WithAttributes(attribute.String("user.id", id)))
	defer func() { uc.finish(span, "update", err) }()

	log := logger.WithContext(ctx, uc.log).With(zap.String("id", id))
	log.Info("updating user")

	if err := uc.validate.Struct(in); err != nil {
		log.Warn("validate failed", zap.Error(err))
		return nil, err
	}

	existing, err := uc.mustFind(ctx, id)
	if err != nil {
		return nil, err
	}

	patch := in.Patch()
	if _, err := uc.repo.Update(ctx, id, patch); err != nil {
		log.Error("failed to update user", zap.Error(err))
		return nil, err
	}

	merged := uc.repo.Create(patch.Apply(*existing))

	uc.publish(ctx, domain.EventUpdated, *merged)
	return merged, nil
}

// DeleteUser removes an existing user. It reports whether the repository
// actually removed a record.
func (uc *Usecase) DeleteUser(ctx context.Context, id string) (_ bool, err error) {
	ctx, span := uc.tracer.Start(ctx, "user.Usecase/DeleteUser", trace.WithAttributes(attribute.String("user.id", id)))
	defer func() { uc.finish(span, "delete", err) }()

	log := logger.WithContext(ctx, uc.log).With(zap.String("id", id))
	log.Info("deleting user")

	existing, err := uc.mustFind(ctx, id)
	if err != nil {
		return false, err
	}

	affected, err := uc.repo.Delete(ctx, id)
	if err != nil {
		log.Error("failed to delete user", zap.Error(err))
		return false, err
	}
	if affected == 0 {
		log.Warn("delete removed no rows")
		return false, nil
	}

	uc.publish(ctx, domain.EventDeleted, *existing)
	return true, nil
}

// mustFind runs exactly one lookup and turns absence into a NotFoundError.
func (uc *Usecase) mustFind(ctx context.Context, id string) (*domain.User, error) {
	u, err := uc.repo.FindOne(ctx, id)
	if err != nil {
		logger.WithContext(ctx, uc.log).Error("failed to get user", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	if u == nil {
		logger.WithContext(ctx, uc.log).Warn("user not found", zap.String("id", id))
		return nil, pkgerrors.NewNotFoundError("user", id)
	}
	return u, nil
}

func (uc *Usecase) publish(ctx context.Context, t domain.EventType, u domain.User) {
	if uc.pub == nil {
		return
	}
	uc.pub.Publish(ctx, domain.NewEvent(t, u))
}

// finish closes the operation span and counts the outcome.
func (uc *Usecase) finish(span trace.Span, op string, err error) {
	result := "ok"
	switch {
	case err == nil:
	case pkgerrors.IsValidation(err):
		result = "invalid"
	case pkgerrors.IsNotFound(err):
		result = "not_found"
	case pkgerrors.IsInternal(err):
		result = "internal"
	default:
		result = "error"
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()

	if uc.ops != nil {
		uc.ops.WithLabelValues(op, result).Inc()
	}
}
