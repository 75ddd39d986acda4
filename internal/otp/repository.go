package otp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

var ErrOTPNotFound = errors.New("otp not found")

type Repository interface {
	Create(ctx context.Context, otp *OTP) error
	FindValid(ctx context.Context, phone, code string, now time.Time) (*OTP, error)
	MarkVerified(ctx context.Context, id string) (bool, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, otp *OTP) error {
	if err := r.db.WithContext(ctx).Create(otp).Error; err != nil {
		return fmt.Errorf("create otp: %w", err)
	}
	return nil
}

// FindValid returns the newest unverified, unexpired code for phone.
func (r *repository) FindValid(ctx context.Context, phone, code string, now time.Time) (*OTP, error) {
	var otp OTP
	err := r.db.WithContext(ctx).
		Where("phone = ? AND code = ? AND verified = ? AND expires_at >= ?", phone, code, false, now).
		Order("created_at desc").
		First(&otp).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOTPNotFound
		}
		return nil, fmt.Errorf("find otp: %w", err)
	}
	return &otp, nil
}

// MarkVerified consumes the code; false means another request used it first.
func (r *repository) MarkVerified(ctx context.Context, id string) (bool, error) {
	res := r.db.WithContext(ctx).Model(&OTP{}).
		Where("id = ? AND verified = ?", id, false).
		Update("verified", true)
	if res.Error != nil {
		return false, fmt.Errorf("verify otp: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}
