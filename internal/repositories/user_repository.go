package repositories

import (
	"context"
	stderrors "errors"
	"strings"

	"github.com/mroshb/friend_calendar/internal/models"
	"github.com/mroshb/friend_calendar/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// scoreColumns are the gamification columns written by score updates.
var scoreColumns = []string{
	"weekly_points", "lifetime_points", "week_start_date",
	"current_streak", "last_completion_date",
	"daily_tasks_count", "daily_tasks_date",
}

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// CreateUser creates a new user
func (r *UserRepository) CreateUser(ctx context.Context, user *models.User) error {
	result := r.db.WithContext(ctx).Omit(clause.Associations).Create(user)
	if stderrors.Is(result.Error, gorm.ErrDuplicatedKey) {
		return errors.Wrap(result.Error, errors.ErrCodeAlreadyExists, "username or email already taken")
	}
	if result.Error != nil {
		return errors.Wrap(result.Error, errors.ErrCodeInternalError, "failed to create user")
	}
	return nil
}

// GetUserByID retrieves a user by ID
func (r *UserRepository) GetUserByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	result := r.db.WithContext(ctx).First(&user, id)

	if stderrors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, errors.New(errors.ErrCodeNotFound, "user not found")
	}
	if result.Error != nil {
		return nil, errors.Wrap(result.Error, errors.ErrCodeInternalError, "failed to get user")
	}

	return &user, nil
}

// GetUserByUsername retrieves a user by username
func (r *UserRepository) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	result := r.db.WithContext(ctx).Where("username = ?", username).First(&user)

	if stderrors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, errors.New(errors.ErrCodeNotFound, "user not found")
	}
	if result.Error != nil {
		return nil, errors.Wrap(result.Error, errors.ErrCodeInternalError, "failed to get user")
	}

	return &user, nil
}

// GetUsersByIDs returns the users that exist among ids, keyed by id.
func (r *UserRepository) GetUsersByIDs(ctx context.Context, ids []uint) (map[uint]*models.User, error) {
	found := make(map[uint]*models.User, len(ids))
	if len(ids) == 0 {
		return found, nil
	}

	var users []models.User
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternalError, "failed to get users")
	}
	for i := range users {
		found[users[i].ID] = &users[i]
	}
	return found, nil
}

// UserExists checks if a username or email is already registered
func (r *UserRepository) UserExists(ctx context.Context, username string, email *string) (bool, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&models.User{}).Where("username = ?", username)
	if email != nil {
		query = query.Or("email = ?", *email)
	}
	if err := query.Count(&count).Error; err != nil {
		return false, errors.Wrap(err, errors.ErrCodeInternalError, "failed to check user existence")
	}
	return count > 0, nil
}

// UpdateProfile writes the editable profile fields of user
func (r *UserRepository) UpdateProfile(ctx context.Context, user *models.User) error {
	result := r.db.WithContext(ctx).Model(user).
		Select("display_name", "bio", "profile_image", "telegram_chat_id").
		Updates(user)
	if result.Error != nil {
		return errors.Wrap(result.Error, errors.ErrCodeInternalError, "failed to update profile")
	}
	return nil
}

// UpdateScore writes the gamification state of user
func (r *UserRepository) UpdateScore(ctx context.Context, user *models.User) error {
	return updateScore(r.db.WithContext(ctx), user)
}

func updateScore(tx *gorm.DB, user *models.User) error {
	result := tx.Model(user).Select(scoreColumns).Updates(user)
	if result.Error != nil {
		return errors.Wrap(result.Error, errors.ErrCodeInternalError, "failed to update score")
	}
	return nil
}

// SearchUsers matches username or display name, case insensitive.
func (r *UserRepository) SearchUsers(ctx context.Context, query string, excludeID uint, limit int) ([]models.User, error) {
	var users []models.User
	pattern := "%" + escapeLike(strings.ToLower(query)) + "%"

	err := r.db.WithContext(ctx).
		Where("id <> ?", excludeID).
		Where("LOWER(username) LIKE ? ESCAPE '\\' OR LOWER(display_name) LIKE ? ESCAPE '\\'", pattern, pattern).
		Order("username ASC").
		Limit(limit).
		Find(&users).Error
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternalError, "failed to search users")
	}
	return users, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
