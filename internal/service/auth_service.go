package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/segyhp/loan-engine/internal/auth"
	"github.com/segyhp/loan-engine/internal/config"
	"github.com/segyhp/loan-engine/internal/domain"
	"github.com/segyhp/loan-engine/internal/notify"
	"github.com/segyhp/loan-engine/internal/repository"
	customError "github.com/segyhp/loan-engine/pkg/errors"
)

// AuthService handles registration, email verification and login
type AuthService struct {
	UserRepo  repository.UserRepository
	tokens    *auth.TokenManager
	sender    notify.Sender
	validator *validator.Validate
	config    *config.Config
	logger    logrus.FieldLogger

	Now         func() time.Time
	GenerateOTP func() (string, error)
}

func NewAuthService(
	userRepo repository.UserRepository,
	tokens *auth.TokenManager,
	sender notify.Sender,
	config *config.Config,
	logger logrus.FieldLogger,
) (*AuthService, error) {
	v, err := NewValidator(config.Business)
	if err != nil {
		return nil, err
	}

	return &AuthService{
		UserRepo:    userRepo,
		tokens:      tokens,
		sender:      sender,
		validator:   v,
		config:      config,
		logger:      logger,
		Now:         time.Now,
		GenerateOTP: auth.GenerateOTP,
	}, nil
}

// Register creates an unverified account and emails it a one-time code
func (s *AuthService) Register(ctx context.Context, request *domain.RegisterRequest) (*domain.User, error) {
	if err := s.validator.Struct(request); err != nil {
		return nil, validationError(err, s.config.Business)
	}

	username := strings.TrimSpace(request.Username)
	email := strings.ToLower(strings.TrimSpace(request.Email))

	usernameTaken, emailTaken, err := s.UserRepo.ExistsByUsernameOrEmail(ctx, username, email)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	if usernameTaken {
		return nil, customError.WrapUserAlreadyExists("username")
	}
	if emailTaken {
		return nil, customError.WrapUserAlreadyExists("email")
	}

	hash, err := auth.HashPassword(request.Password)
	if err != nil {
		return nil, err
	}

	otp, err := s.GenerateOTP()
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
	}
	user.SetOTP(otp, s.Now())

	if err := s.UserRepo.Create(ctx, user); err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	s.logger.WithFields(logrus.Fields{"user_id": user.ID, "username": user.Username}).Info("user registered")

	if err := s.sendOTP(ctx, user, otp); err != nil {
		return nil, err
	}
	return user, nil
}

// VerifyOTP marks the account verified when the code matches and is still fresh
func (s *AuthService) VerifyOTP(ctx context.Context, request *domain.VerifyOTPRequest) error {
	if err := s.validator.Struct(request); err != nil {
		return validationError(err, s.config.Business)
	}

	user, err := s.findUser(ctx, request.UsernameOrEmail)
	if err != nil {
		return err
	}

	if !user.OTP.Valid {
		return customError.WrapInvalidOTP()
	}
	if !user.OTPMatches(request.OTP) {
		attempts, err := s.UserRepo.RecordFailedOTPAttempt(ctx, user.ID, s.config.Auth.OTPMaxAttempts)
		if err != nil {
			return customError.WrapDatabaseError(err)
		}
		if attempts >= s.config.Auth.OTPMaxAttempts {
			s.logger.WithField("user_id", user.ID).Warn("otp burned after too many wrong codes")
		}
		return customError.WrapInvalidOTP()
	}
	if !user.IsOTPValid(s.Now(), s.config.Auth.OTPTTL) {
		return customError.WrapOTPExpired()
	}

	user.IsVerified = true
	user.ClearOTP()
	if err := s.UserRepo.Update(ctx, user); err != nil {
		return customError.WrapDatabaseError(err)
	}

	s.logger.WithField("user_id", user.ID).Info("email verified")
	return nil
}

// ResendOTP issues a new code to an account that has not been verified yet
func (s *AuthService) ResendOTP(ctx context.Context, request *domain.ResendOTPRequest) error {
	if err := s.validator.Struct(request); err != nil {
		return validationError(err, s.config.Business)
	}

	user, err := s.findUser(ctx, request.UsernameOrEmail)
	if err != nil {
		return err
	}
	if user.IsVerified {
		return customError.WrapInvalidInput("Email is already verified")
	}

	otp, err := s.GenerateOTP()
	if err != nil {
		return err
	}
	user.SetOTP(otp, s.Now())

	if err := s.UserRepo.Update(ctx, user); err != nil {
		return customError.WrapDatabaseError(err)
	}
	return s.sendOTP(ctx, user, otp)
}

// Login checks the credentials of a verified user and issues an access token
func (s *AuthService) Login(ctx context.Context, request *domain.LoginRequest) (*domain.LoginResponse, error) {
	if err := s.validator.Struct(request); err != nil {
		return nil, validationError(err, s.config.Business)
	}

	user, err := s.UserRepo.GetByUsernameOrEmail(ctx, request.Username)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, customError.WrapInvalidCredentials()
	}
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	if !auth.CheckPassword(user.PasswordHash, request.Password) {
		return nil, customError.WrapInvalidCredentials()
	}
	if !user.IsVerified {
		return nil, customError.WrapEmailNotVerified()
	}

	token, expiresAt, err := s.tokens.Issue(user)
	if err != nil {
		return nil, err
	}

	return &domain.LoginResponse{Access: token, ExpiresAt: expiresAt}, nil
}

// Authenticate resolves a bearer token to the caller it was issued for
func (s *AuthService) Authenticate(token string) (domain.Actor, error) {
	actor, err := s.tokens.Parse(token)
	if err != nil {
		return domain.Actor{}, customError.WrapUnauthorized("Invalid or expired token")
	}
	return actor, nil
}

// PurgeExpiredOTPs clears codes that can no longer be used
func (s *AuthService) PurgeExpiredOTPs(ctx context.Context) (int64, error) {
	cleared, err := s.UserRepo.ClearExpiredOTPs(ctx, s.Now().Add(-s.config.Auth.OTPTTL))
	if err != nil {
		return 0, customError.WrapDatabaseError(err)
	}
	return cleared, nil
}

func (s *AuthService) findUser(ctx context.Context, usernameOrEmail string) (*domain.User, error) {
	user, err := s.UserRepo.GetByUsernameOrEmail(ctx, strings.TrimSpace(usernameOrEmail))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, customError.WrapUserNotFound(usernameOrEmail)
	}
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	return user, nil
}

func (s *AuthService) sendOTP(ctx context.Context, user *domain.User, otp string) error {
	msg := notify.OTPMessage(user.Email, user.Username, otp, s.config.Auth.OTPTTL)
	if err := s.sender.Send(ctx, msg); err != nil {
		return customError.WrapEmailError(err)
	}
	return nil
}
