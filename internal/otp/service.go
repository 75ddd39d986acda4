package otp

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/zjoart/go-intouch-transfer/pkg/id"
	"github.com/zjoart/go-intouch-transfer/pkg/logger"
)

var ErrInvalidOTP = errors.New("invalid or expired OTP")

// Sender delivers a code to a phone number.
type Sender interface {
	Send(ctx context.Context, phone, code string, expiresAt time.Time) error
}

// LogSender writes codes to the log instead of sending an SMS.
type LogSender struct{}

func (LogSender) Send(ctx context.Context, phone, code string, expiresAt time.Time) error {
	logger.Info("OTP generated", logger.Fields{"phone": phone, "code": code, "expires_at": expiresAt})
	return nil
}

type Service struct {
	repo   Repository
	sender Sender
	expiry time.Duration
	now    func() time.Time
}

func NewService(repo Repository, sender Sender, expiry time.Duration) *Service {
	return &Service{repo: repo, sender: sender, expiry: expiry, now: func() time.Time { return time.Now().UTC() }}
}

// Issue stores a fresh six-digit code for phone and hands it to the sender.
func (s *Service) Issue(ctx context.Context, phone string) (*OTP, error) {
	code, err := generateCode()
	if err != nil {
		return nil, err
	}

	now := s.now()
	record := &OTP{
		ID:        id.Generate(),
		Phone:     phone,
		Code:      code,
		ExpiresAt: now.Add(s.expiry),
		CreatedAt: now,
	}
	if err := s.repo.Create(ctx, record); err != nil {
		return nil, err
	}
	if err := s.sender.Send(ctx, phone, code, record.ExpiresAt); err != nil {
		return nil, fmt.Errorf("send otp: %w", err)
	}
	return record, nil
}

func (s *Service) Verify(ctx context.Context, phone, code string) error {
	record, err := s.repo.FindValid(ctx, phone, code, s.now())
	if err != nil {
		if errors.Is(err, ErrOTPNotFound) {
			return ErrInvalidOTP
		}
		return err
	}

	consumed, err := s.repo.MarkVerified(ctx, record.ID)
	if err != nil {
		return err
	}
	if !consumed {
		return ErrInvalidOTP
	}
	return nil
}

func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}
