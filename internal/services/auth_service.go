package services

import (
	"context"

	"github.com/mroshb/friend_calendar/internal/models"
	"github.com/mroshb/friend_calendar/internal/repositories"
	"github.com/mroshb/friend_calendar/internal/security"
	"github.com/mroshb/friend_calendar/internal/validation"
	"github.com/mroshb/friend_calendar/pkg/errors"
	"github.com/mroshb/friend_calendar/pkg/logger"
)

type RegisterInput struct {
	Username    string  `json:"username" validate:"required,min=3,max=30,username"`
	Password    string  `json:"password" validate:"required,min=6,max=72"`
	Email       *string `json:"email" validate:"omitempty,email,max=255"`
	DisplayName string  `json:"displayName" validate:"max=50"`
}

type LoginInput struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type ProfileInput struct {
	DisplayName    *string `json:"displayName" validate:"omitempty,max=50"`
	Bio            *string `json:"bio" validate:"omitempty,max=300"`
	ProfileImage   *string `json:"profileImage" validate:"omitempty,max=500"`
	TelegramChatID *int64  `json:"telegramChatId"`
}

// AuthResult is returned by register and login.
type AuthResult struct {
	Token string             `json:"token"`
	User  models.UserSummary `json:"user"`
}

type AuthService struct {
	userRepo *repositories.UserRepository
	tokens   *security.TokenIssuer
	cache    PrincipalCache
}

// NewAuthService builds the identity service. cache may be nil.
func NewAuthService(userRepo *repositories.UserRepository, tokens *security.TokenIssuer, cache PrincipalCache) *AuthService {
	return &AuthService{userRepo: userRepo, tokens: tokens, cache: cache}
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	in.DisplayName = security.SanitizeText(in.DisplayName)
	if in.Email != nil {
		email := security.SanitizeString(*in.Email)
		in.Email = &email
		if email == "" {
			in.Email = nil
		}
	}
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	exists, err := s.userRepo.UserExists(ctx, in.Username, in.Email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, errors.New(errors.ErrCodeAlreadyExists, "username or email already taken")
	}

	hash, err := security.HashPassword(in.Password)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternalError, "failed to hash password")
	}

	user := &models.User{
		Username:     in.Username,
		PasswordHash: hash,
		Email:        in.Email,
		DisplayName:  in.DisplayName,
	}
	if user.DisplayName == "" {
		user.DisplayName = in.Username
	}
	if err := s.userRepo.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	logger.Info("User registered", "user_id", user.ID, "username", user.Username)
	return s.issue(user)
}

func (s *AuthService) Login(ctx context.Context, in LoginInput) (*AuthResult, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	user, err := s.userRepo.GetUserByUsername(ctx, in.Username)
	if errors.Is(err, errors.ErrCodeNotFound) {
		return nil, errors.New(errors.ErrCodeUnauthorized, "invalid username or password")
	}
	if err != nil {
		return nil, err
	}

	ok, err := security.CheckPassword(user.PasswordHash, in.Password)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternalError, "failed to check password")
	}
	if !ok {
		return nil, errors.New(errors.ErrCodeUnauthorized, "invalid username or password")
	}

	return s.issue(user)
}

func (s *AuthService) issue(user *models.User) (*AuthResult, error) {
	token, err := s.tokens.GenerateJWT(user.ID, user.Username)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternalError, "failed to issue token")
	}
	return &AuthResult{Token: token, User: user.Summary()}, nil
}

// Authenticate resolves a bearer token to a principal. Tokens of users that
// no longer exist are rejected.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*security.Principal, error) {
	claims, err := s.tokens.ValidateJWT(token)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeUnauthorized, "invalid or expired token")
	}

	if s.cache != nil {
		if p, ok := s.cache.Get(ctx, claims.UserID); ok {
			return p, nil
		}
	}

	user, err := s.userRepo.GetUserByID(ctx, claims.UserID)
	if errors.Is(err, errors.ErrCodeNotFound) {
		return nil, errors.New(errors.ErrCodeUnauthorized, "invalid or expired token")
	}
	if err != nil {
		return nil, err
	}

	p := &security.Principal{UserID: user.ID, Username: user.Username}
	if s.cache != nil {
		s.cache.Set(ctx, p)
	}
	return p, nil
}

func (s *AuthService) Me(ctx context.Context, userID uint) (*models.User, error) {
	return s.userRepo.GetUserByID(ctx, userID)
}

// UpdateProfile applies the fields present in the input.
func (s *AuthService) UpdateProfile(ctx context.Context, userID uint, in ProfileInput) (*models.User, error) {
	for _, field := range []*string{in.DisplayName, in.Bio, in.ProfileImage} {
		if field != nil {
			*field = security.SanitizeText(*field)
		}
	}
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	user, err := s.userRepo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if in.DisplayName != nil {
		user.DisplayName = *in.DisplayName
	}
	if in.Bio != nil {
		user.Bio = *in.Bio
	}
	if in.ProfileImage != nil {
		user.ProfileImage = *in.ProfileImage
	}
	if in.TelegramChatID != nil {
		user.TelegramChatID = *in.TelegramChatID
	}

	if err := s.userRepo.UpdateProfile(ctx, user); err != nil {
		return nil, err
	}
	if s.cache != nil {
		s.cache.Delete(ctx, userID)
	}
	return user, nil
}
