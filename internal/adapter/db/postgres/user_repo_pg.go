package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"user-service/internal/domain/user"
)

// UserRepoPG implements the user Repository on top of GORM. It runs on
// PostgreSQL in production and on SQLite locally and in tests.
type UserRepoPG struct {
	db  *gorm.DB    // GORM database connection
	log *zap.Logger // Structured logger for database operations
}

// NewUserRepoPG creates a new instance of UserRepoPG.
func NewUserRepoPG(db *gorm.DB, log *zap.Logger) *UserRepoPG {
	return &UserRepoPG{db: db, log: log}
}

// UserSchema represents the database schema for the users table.
type UserSchema struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)"` // UUID assigned on first save
	Name      string    `gorm:"not null"`
	Email     string    `gorm:"not null;index"`
	CreatedAt time.Time `gorm:"index"`
	UpdatedAt time.Time
}

// TableName specifies the table name for the UserSchema model.
func (UserSchema) TableName() string {
	return "users"
}

// Migrate creates or updates the users table.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&UserSchema{}); err != nil {
		return fmt.Errorf("failed to migrate users table: %w", err)
	}
	return nil
}

func toDomain(m UserSchema) user.User {
	return user.User{
		ID:    m.ID,
		Name:  m.Name,
		Email: m.Email,
	}
}

// Find returns all users ordered by creation time.
func (r *UserRepoPG) Find(ctx context.Context) ([]user.User, error) {
	var models []UserSchema
	if err := r.db.WithContext(ctx).Order("created_at, id").Find(&models).Error; err != nil {
		r.log.Error("failed to list users from db", zap.Error(err))
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	users := make([]user.User, len(models))
	for i, m := range models {
		users[i] = toDomain(m)
	}
	return users, nil
}

// FindOne retrieves a user by ID. It returns nil, nil when no row matches.
func (r *UserRepoPG) FindOne(ctx context.Context, id string) (*user.User, error) {
	var model UserSchema
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			r.log.Debug("user not found", zap.String("id", id))
			return nil, nil
		}
		r.log.Error("failed to get user from db", zap.Error(err), zap.String("id", id))
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	u := toDomain(model)
	return &u, nil
}

// Create builds an unsaved user entity from fields.
func (r *UserRepoPG) Create(fields user.User) *user.User {
	u := fields
	return &u
}

// Save inserts u, or overwrites the stored row when u already exists. An
// empty ID is replaced by a new UUID.
func (r *UserRepoPG) Save(ctx context.Context, u *user.User) (*user.User, error) {
	if u == nil {
		return nil, errors.New("user cannot be nil")
	}

	model := UserSchema{
		ID:    u.ID,
		Name:  u.Name,
		Email: u.Email,
	}
	if model.ID == "" {
		model.ID = uuid.NewString()
	}

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "email", "updated_at"}),
	}).Create(&model).Error
	if err != nil {
		r.log.Error("failed to save user in db", zap.Error(err), zap.String("email", u.Email))
		return nil, fmt.Errorf("failed to save user: %w", err)
	}

	r.log.Info("user saved in db", zap.String("id", model.ID))
	saved := toDomain(model)
	return &saved, nil
}

// Update writes the present patch fields of the user with the given ID and
// returns the number of rows affected.
func (r *UserRepoPG) Update(ctx context.Context, id string, p user.Patch) (int64, error) {
	if p.IsEmpty() {
		return 0, nil
	}

	values := map[string]any{}
	if p.Name != nil {
		values["name"] = *p.Name
	}
	if p.Email != nil {
		values["email"] = *p.Email
	}
	res := r.db.WithContext(ctx).Model(&UserSchema{}).Where("id = ?", id).Updates(values)
	if res.Error != nil {
		r.log.Error("failed to update user in db", zap.Error(res.Error), zap.String("id", id))
		return 0, fmt.Errorf("failed to update user: %w", res.Error)
	}

	r.log.Info("user updated in db", zap.String("id", id), zap.Int64("rows", res.RowsAffected))
	return res.RowsAffected, nil
}

// Delete removes the user with the given ID and returns the number of rows
// affected.
func (r *UserRepoPG) Delete(ctx context.Context, id string) (int64, error) {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&UserSchema{})
	if res.Error != nil {
		r.log.Error("failed to delete user in db", zap.Error(res.Error), zap.String("id", id))
		return 0, fmt.Errorf("failed to delete user: %w", res.Error)
	}

	r.log.Info("user deleted in db", zap.String("id", id), zap.Int64("rows", res.RowsAffected))
	return res.RowsAffected, nil
}
