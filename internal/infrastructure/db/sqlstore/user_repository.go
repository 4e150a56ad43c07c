package sqlstore

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/fakaperformance/contest-api/internal/core/domain"
)

// UserRepository implements ports.UserRepository.
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	row := &userModel{
		Username:     user.Username,
		FPCode:       user.FPCode,
		BalanceCents: toCents(user.Balance),
		IBAN:         user.IBAN,
	}
	err := r.db.WithContext(ctx).Create(row).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		var n int64
		if cerr := r.db.WithContext(ctx).Model(&userModel{}).Where("username = ?", user.Username).Count(&n).Error; cerr != nil {
			return fmt.Errorf("check username: %w", cerr)
		}
		if n > 0 {
			return domain.ErrUserExists
		}
		return domain.ErrDepositCodeTaken
	}
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}

	user.ID = row.ID
	user.CreatedAt = row.CreatedAt
	return nil
}

func (r *UserRepository) FindByID(ctx context.Context, id uint) (*domain.User, error) {
	return r.findOne(ctx, "id = ?", id)
}

func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.findOne(ctx, "username = ?", username)
}

func (r *UserRepository) FindByFPCode(ctx context.Context, code string) (*domain.User, error) {
	return r.findOne(ctx, "fp_code = ?", code)
}

func (r *UserRepository) findOne(ctx context.Context, query string, arg any) (*domain.User, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var row userModel
	if err := r.db.WithContext(ctx).Preload("Roles").Where(query, arg).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	return toDomainUser(&row), nil
}

func (r *UserRepository) UpdateIBAN(ctx context.Context, userID uint, iban string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res := r.db.WithContext(ctx).Model(&userModel{}).Where("id = ?", userID).Update("iban", iban)
	if res.Error != nil {
		return fmt.Errorf("update iban: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) AddRole(ctx context.Context, userID, roleID uint) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user, role, err := loadUserAndRole(tx, userID, roleID)
		if err != nil {
			return err
		}
		if err := tx.Model(user).Association("Roles").Append(role); err != nil {
			return fmt.Errorf("assign role: %w", err)
		}
		return nil
	})
}

func (r *UserRepository) RemoveRole(ctx context.Context, userID, roleID uint) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user, role, err := loadUserAndRole(tx, userID, roleID)
		if err != nil {
			return err
		}
		if err := tx.Model(user).Association("Roles").Delete(role); err != nil {
			return fmt.Errorf("revoke role: %w", err)
		}
		return nil
	})
}

func loadUserAndRole(tx *gorm.DB, userID, roleID uint) (*userModel, *roleModel, error) {
	var user userModel
	if err := tx.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, domain.ErrUserNotFound
		}
		return nil, nil, err
	}
	var role roleModel
	if err := tx.First(&role, roleID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, domain.ErrRoleNotFound
		}
		return nil, nil, err
	}
	return &user, &role, nil
}
