package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/chalkline/league-system/models"
	"github.com/chalkline/league-system/repositories"
	"github.com/chalkline/league-system/utils"
	"github.com/golang-jwt/jwt/v4"
)

const minPasswordLength = 8

type AuthService interface {
	Register(ctx context.Context, player *models.Player, password string) (*models.Player, error)
	Login(ctx context.Context, creds models.Credentials) (token string, player *models.Player, err error)
}

type authService struct {
	playerRepo repositories.PlayerRepository
	jwtSecret  []byte
	tokenTTL   time.Duration
	logger     *slog.Logger
}

func NewAuthService(playerRepo repositories.PlayerRepository, jwtSecret []byte, logger *slog.Logger) AuthService {
	return &authService{
		playerRepo: playerRepo,
		jwtSecret:  jwtSecret,
		tokenTTL:   24 * time.Hour,
		logger:     logger,
	}
}

func (s *authService) Register(ctx context.Context, player *models.Player, password string) (*models.Player, error) {
	if len(password) < minPasswordLength {
		return nil, ErrPasswordTooShort
	}
	if !utils.IsValidEmail(player.Email) {
		return nil, fmt.Errorf("%w: malformed email", ErrValidationFailed)
	}
	if player.Role == "" {
		player.Role = models.RolePlayer
	}

	hash, err := utils.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	player.PasswordHash = hash

	if err := s.playerRepo.Create(ctx, player); err != nil {
		if errors.Is(err, repositories.ErrPlayerEmailConflict) {
			return nil, ErrPlayerEmailConflict
		}
		return nil, err
	}

	s.logger.Info("player registered", slog.Int("player_id", player.ID), slog.String("role", string(player.Role)))
	return player, nil
}

func (s *authService) Login(ctx context.Context, creds models.Credentials) (string, *models.Player, error) {
	player, err := s.playerRepo.GetByEmail(ctx, creds.Email)
	if err != nil {
		if errors.Is(err, repositories.ErrPlayerNotFound) {
			// Одинаковый ответ для неизвестного email и неверного пароля.
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, err
	}
	if !utils.CheckPasswordHash(creds.Password, player.PasswordHash) {
		return "", nil, ErrInvalidCredentials
	}

	claims := jwt.MapClaims{
		"user_id": player.ID,
		"role":    string(player.Role),
		"exp":     time.Now().Add(s.tokenTTL).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
	if err != nil {
		return "", nil, fmt.Errorf("failed to sign token: %w", err)
	}
	return token, player, nil
}
