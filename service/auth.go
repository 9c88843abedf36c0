package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/avolkv/canvora/models"
	"github.com/avolkv/canvora/store"
	"github.com/avolkv/canvora/worker"
)

const minPasswordLen = 8

func (s *Service) Signup(ctx context.Context, email, password string) (models.User, string, error) {
	email = strings.TrimSpace(email)
	if email == "" || !strings.Contains(email, "@") {
		return models.User{}, "", fmt.Errorf("%w: invalid email", ErrConflict)
	}
	if len(password) < minPasswordLen {
		return models.User{}, "", fmt.Errorf("%w: password too short", ErrConflict)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return models.User{}, "", fmt.Errorf("hash password: %w", err)
	}

	user, err := s.Store.CreateUser(ctx, models.User{
		Email:        email,
		PasswordHash: string(hash),
	})
	if err != nil {
		if errors.Is(err, store.ErrDuplicateItem) {
			return models.User{}, "", fmt.Errorf("%w: email already registered", ErrConflict)
		}
		return models.User{}, "", fmt.Errorf("create user: %w", err)
	}

	token, err := s.CreateJWT(user.Id)
	if err != nil {
		return models.User{}, "", fmt.Errorf("token generation failed: %w", err)
	}

	return user, token, nil
}

func (s *Service) Login(ctx context.Context, email, password string) (models.User, string, error) {
	user, err := s.Store.GetUserByEmail(ctx, email)
	if err != nil {
		// Same response whether the account is missing or the password is
		// wrong
		return models.User{}, "", ErrAuthentication
	}

	if err := s.checkPassword(user, password); err != nil {
		return models.User{}, "", err
	}

	token, err := s.CreateJWT(user.Id)
	if err != nil {
		return models.User{}, "", fmt.Errorf("token generation failed: %w", err)
	}

	return user, token, nil
}

func (s *Service) checkPassword(user models.User, password string) error {
	if user.PasswordHash == "" {
		// OAuth-created account, no password to check against
		return ErrAuthentication
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return ErrAuthentication
	}
	return nil
}

func (s *Service) CreateJWT(userId string) (string, error) {
	claims := jwt.MapClaims{
		"sub": userId,
		"exp": time.Now().Add(24 * time.Hour).Unix(),
		"iat": time.Now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString(s.JWTSecret)
	if err != nil {
		return "", err
	}

	return signedToken, nil
}

func (s *Service) VerifyJWT(tokenString string) (string, time.Time, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		return s.JWTSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", time.Time{}, err
	}

	if !token.Valid {
		return "", time.Time{}, errors.New("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", time.Time{}, errors.New("invalid token claims")
	}

	sub, ok := claims["sub"].(string)
	if !ok {
		return "", time.Time{}, errors.New("missing sub claim")
	}

	expFloat, ok := claims["exp"].(float64)
	if !ok {
		return "", time.Time{}, errors.New("missing exp claim")
	}
	expiry := time.Unix(int64(expFloat), 0)

	return sub, expiry, nil
}

// AuthenticateToken resolves a bearer credential to the user it identifies.
func (s *Service) AuthenticateToken(ctx context.Context, token string) (models.User, error) {
	if len(token) == 0 {
		return models.User{}, ErrAuthentication
	}

	userId, _, err := s.VerifyJWT(token)
	if err != nil {
		return models.User{}, ErrAuthentication
	}

	user, err := s.Store.GetUserById(ctx, userId)
	if err != nil {
		return models.User{}, ErrAuthentication
	}

	return user, nil
}

// ChangeEmail re-verifies the current password before touching the account.
func (s *Service) ChangeEmail(ctx context.Context, user models.User, currentPassword, newEmail string) (models.User, error) {
	if err := s.checkPassword(user, currentPassword); err != nil {
		return models.User{}, err
	}

	newEmail = strings.TrimSpace(newEmail)
	if newEmail == "" || !strings.Contains(newEmail, "@") {
		return models.User{}, fmt.Errorf("%w: invalid email", ErrConflict)
	}

	updated, err := s.Store.UpdateUserEmail(ctx, user, newEmail)
	if err != nil {
		if errors.Is(err, store.ErrDuplicateItem) {
			return models.User{}, fmt.Errorf("%w: email already registered", ErrConflict)
		}
		return models.User{}, err
	}

	return updated, nil
}

func (s *Service) ChangePassword(ctx context.Context, user models.User, currentPassword, newPassword string) error {
	if err := s.checkPassword(user, currentPassword); err != nil {
		return err
	}
	if len(newPassword) < minPasswordLen {
		return fmt.Errorf("%w: password too short", ErrConflict)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	return s.Store.UpdateUserPassword(ctx, user, string(hash))
}

type UserDeletedMessage struct {
	UserId string `json:"userId"`
}

// DeleteAccount removes the user record; the owned canvases and their
// invitations are cascaded asynchronously by the cleanup consumer.
func (s *Service) DeleteAccount(ctx context.Context, user models.User) error {
	if err := s.Store.DeleteUser(ctx, user); err != nil {
		return err
	}

	// Async side-effects - return to caller as soon as the store operation
	// is done
	go func() {
		userDeletedMsg := UserDeletedMessage{UserId: user.Id}
		if userDeletedMsgBytes, err := json.Marshal(userDeletedMsg); err == nil {
			s.Cache.Publish(context.Background(), "user-deleted", userDeletedMsgBytes)
		}

		msg := worker.CleanupOwnerMessage{OwnerId: user.Id}
		if msgBytes, err := json.Marshal(msg); err == nil {
			s.MQ.Send(context.Background(), string(msgBytes))
		}
	}()

	return nil
}
