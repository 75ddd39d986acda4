package auth

import (
	"context"
	"errors"
	"net/mail"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/zjoart/go-intouch-transfer/internal/otp"
	"github.com/zjoart/go-intouch-transfer/internal/user"
	"github.com/zjoart/go-intouch-transfer/pkg/apperr"
	"github.com/zjoart/go-intouch-transfer/pkg/id"
	"github.com/zjoart/go-intouch-transfer/pkg/logger"
	"golang.org/x/crypto/bcrypt"
)

var (
	phonePattern = regexp.MustCompile(`^[0-9]{12}$`)
	codePattern  = regexp.MustCompile(`^[0-9]{6}$`)
)

type RegisterInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

type AuthUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

type Session struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      AuthUser  `json:"user"`
}

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type Service struct {
	users  user.Repository
	otps   *otp.Service
	tokens *TokenIssuer
}

func NewService(users user.Repository, otps *otp.Service, tokens *TokenIssuer) *Service {
	return &Service{users: users, otps: otps, tokens: tokens}
}

// Register creates an unverified user and sends an OTP to their phone.
func (s *Service) Register(ctx context.Context, in RegisterInput) (string, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Name = strings.TrimSpace(in.Name)
	if errs := validateRegistration(in); len(errs) > 0 {
		return "", validationFailed(errs)
	}

	exists, err := s.users.ExistsByEmailOrPhone(ctx, in.Email, in.Phone)
	if err != nil {
		return "", apperr.Internal(err)
	}
	if exists {
		return "", apperr.Conflict("User with this email or phone already exists")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return "", apperr.Internal(err)
	}

	usr := &user.User{
		ID:           id.Generate(),
		Name:         in.Name,
		Email:        in.Email,
		Phone:        in.Phone,
		PasswordHash: string(hash),
	}
	if err := s.users.CreateUser(ctx, usr); err != nil {
		if errors.Is(err, user.ErrUserExists) {
			return "", apperr.Conflict("User with this email or phone already exists")
		}
		return "", apperr.Internal(err)
	}

	if _, err := s.otps.Issue(ctx, usr.Phone); err != nil {
		return "", apperr.Internal(err)
	}

	logger.Info("User registered", logger.Fields{logger.UserIdKey: usr.ID})
	return usr.ID, nil
}

func (s *Service) VerifyOTP(ctx context.Context, phone, code string) (*Session, error) {
	var errs []FieldError
	if !phonePattern.MatchString(phone) {
		errs = append(errs, FieldError{Field: "phone", Message: "Phone must be 12 digits"})
	}
	if !codePattern.MatchString(code) {
		errs = append(errs, FieldError{Field: "code", Message: "OTP must be 6 digits"})
	}
	if len(errs) > 0 {
		return nil, validationFailed(errs)
	}

	if err := s.otps.Verify(ctx, phone, code); err != nil {
		if errors.Is(err, otp.ErrInvalidOTP) {
			return nil, apperr.Validation("Invalid or expired OTP")
		}
		return nil, apperr.Internal(err)
	}

	usr, err := s.users.MarkVerified(ctx, phone)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	logger.Info("User verified", logger.Fields{logger.UserIdKey: usr.ID})
	return s.session(*usr)
}

func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, apperr.Validation("Email and password are required")
	}

	usr, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			return nil, apperr.Unauthorized("Invalid credentials")
		}
		return nil, apperr.Internal(err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(usr.PasswordHash), []byte(password)); err != nil {
		return nil, apperr.Unauthorized("Invalid credentials")
	}
	if !usr.IsVerified {
		return nil, apperr.Unauthorized("Please verify your phone number first")
	}

	logger.Info("User logged in", logger.Fields{logger.UserIdKey: usr.ID})
	return s.session(*usr)
}

func (s *Service) session(usr user.User) (*Session, error) {
	token, expiresAt, err := s.tokens.Issue(usr)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return &Session{
		Token:     token,
		ExpiresAt: expiresAt,
		User:      AuthUser{ID: usr.ID, Email: usr.Email, Name: usr.Name, Phone: usr.Phone},
	}, nil
}

func validateRegistration(in RegisterInput) []FieldError {
	var errs []FieldError
	if len([]rune(in.Name)) < 2 {
		errs = append(errs, FieldError{Field: "name", Message: "Name must be at least 2 characters"})
	}
	if addr, err := mail.ParseAddress(in.Email); err != nil || addr.Address != in.Email {
		errs = append(errs, FieldError{Field: "email", Message: "Invalid email format"})
	}
	if !phonePattern.MatchString(in.Phone) {
		errs = append(errs, FieldError{Field: "phone", Message: "Phone must be 12 digits (e.g., 221771234567)"})
	}
	if msg := passwordProblem(in.Password); msg != "" {
		errs = append(errs, FieldError{Field: "password", Message: msg})
	}
	return errs
}

func passwordProblem(pw string) string {
	if len(pw) < 8 {
		return "Password must be at least 8 characters"
	}
	var upper, lower, digit bool
	for _, r := range pw {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	switch {
	case !upper:
		return "Password must contain at least one uppercase letter"
	case !lower:
		return "Password must contain at least one lowercase letter"
	case !digit:
		return "Password must contain at least one number"
	}
	return ""
}

func validationFailed(errs []FieldError) error {
	err := apperr.Validation("Validation failed")
	err.Details = errs
	return err
}
