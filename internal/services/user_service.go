package services

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/gigmarket/backend/internal/apperr"
	"github.com/gigmarket/backend/internal/auth"
	"github.com/gigmarket/backend/internal/config"
	"github.com/gigmarket/backend/internal/models"
	"github.com/gigmarket/backend/internal/repositories"
)

type UserService struct {
	userRepo       *repositories.UserRepo
	trustSvc       *TrustService
	identityClient *IdentityClient
	cfg            *config.Config
	log            *zap.Logger
}

func NewUserService(
	userRepo *repositories.UserRepo,
	trustSvc *TrustService,
	identityClient *IdentityClient,
	cfg *config.Config,
	log *zap.Logger,
) *UserService {
	return &UserService{
		userRepo:       userRepo,
		trustSvc:       trustSvc,
		identityClient: identityClient,
		cfg:            cfg,
		log:            log,
	}
}

type RegisterInput struct {
	Email       string
	Password    string
	DisplayName *string
	Role        string
}

// Register creates the account with its trust score row and signs the
// first token.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*models.User, string, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, "", apperr.Validation("a valid email is required")
	}
	if len(in.Password) < 8 {
		return nil, "", apperr.Validation("password must be at least 8 characters")
	}
	role, ok := models.ParseParty(in.Role)
	if !ok {
		return nil, "", apperr.Validation("role must be artist, organizer or venue")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", err
	}

	u := &models.User{
		Email:        email,
		PasswordHash: string(hash),
		DisplayName:  in.DisplayName,
		Role:         role,
	}
	if err := s.userRepo.Create(ctx, u); err != nil {
		return nil, "", err
	}

	if _, err := s.trustSvc.Initialize(ctx, u.ID); err != nil {
		return nil, "", err
	}

	token, err := auth.GenerateJWT(s.cfg.JWTSecret, u.ID, string(u.Role), s.cfg.JWTExpiration)
	if err != nil {
		return nil, "", err
	}
	return u, token, nil
}

// Login verifies credentials and signs a token.
func (s *UserService) Login(ctx context.Context, email, password string) (*models.User, string, error) {
	u, err := s.userRepo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if apperr.IsKind(err, apperr.KindNotFound) {
			return nil, "", apperr.Validation("invalid email or password")
		}
		return nil, "", err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return nil, "", apperr.Validation("invalid email or password")
	}

	if err := s.userRepo.TouchActive(ctx, u.ID); err != nil {
		s.log.Warn("touching last_active failed", zap.Error(err))
	}

	token, err := auth.GenerateJWT(s.cfg.JWTSecret, u.ID, string(u.Role), s.cfg.JWTExpiration)
	if err != nil {
		return nil, "", err
	}
	return u, token, nil
}

func (s *UserService) Get(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return s.userRepo.GetByID(ctx, id)
}

// SyncVerification refreshes the verified flag from the identity
// service.
func (s *UserService) SyncVerification(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	u, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	status, err := s.identityClient.CheckVerification(ctx, userID.String())
	if err != nil {
		return nil, err
	}
	if status.Verified != u.Verified {
		if err := s.userRepo.SetVerified(ctx, userID, status.Verified); err != nil {
			return nil, err
		}
		u.Verified = status.Verified
	}
	return u, nil
}
