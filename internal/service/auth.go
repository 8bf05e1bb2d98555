package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"menu-catalog/internal/core/auth"
	"menu-catalog/internal/domain"
	"menu-catalog/pkg/utils"
)

const (
	minUsernameLen = 3
	maxUsernameLen = 32
	minPasswordLen = 6
	maxPasswordLen = 128
)

type LoginResult struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Token    string `json:"token"`
	Exp      int64  `json:"exp"`
}

// AuthService 账号创建与登录。登录不区分"用户不存在"和"密码错误"。
type AuthService struct {
	users  domain.UserRepository
	jwt    *auth.JWTer
	params utils.PasswordParams
	log    *zap.Logger
	// 未知用户登录时用来对比的 hash，代价与真实 hash 相同
	dummyHash string
}

func NewAuthService(users domain.UserRepository, jwter *auth.JWTer, params utils.PasswordParams, l *zap.Logger) *AuthService {
	if l == nil {
		l = zap.NewNop()
	}
	return &AuthService{users: users, jwt: jwter, params: params, log: l, dummyHash: params.DummyHash()}
}

func (s *AuthService) CreateUser(ctx context.Context, username, password string) (*domain.User, error) {
	username = strings.TrimSpace(username)
	if n := utf8.RuneCountInString(username); n < minUsernameLen || n > maxUsernameLen {
		return nil, fmt.Errorf("%w: username must be %d-%d characters", domain.ErrValidation, minUsernameLen, maxUsernameLen)
	}
	if n := len(password); n < minPasswordLen || n > maxPasswordLen {
		return nil, fmt.Errorf("%w: password must be %d-%d bytes", domain.ErrValidation, minPasswordLen, maxPasswordLen)
	}

	hash, err := s.params.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("%w: hash password: %w", domain.ErrStorage, err)
	}
	id, err := s.users.InsertUser(ctx, username, hash)
	if err != nil {
		s.log.Warn("create user failed", zap.String("username", username), zap.Error(err))
		return nil, err
	}
	s.log.Info("user created", zap.String("user_id", id), zap.String("username", username))
	return &domain.User{ID: id, Username: username}, nil
}

func (s *AuthService) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	logCtx := s.log.With(zap.String("username", username))

	u, err := s.users.FindUserByUsername(ctx, strings.TrimSpace(username))
	switch {
	case errors.Is(err, domain.ErrNotFound):
		// 仍然做一次哈希校验，避免靠响应时间枚举用户名
		utils.CheckPassword(password, s.dummyHash)
		logCtx.Warn("login rejected: unknown user")
		return nil, domain.ErrAuth
	case err != nil:
		logCtx.Error("login: find user failed", zap.Error(err))
		return nil, err
	}

	if !utils.CheckPassword(password, u.PasswordHash) {
		logCtx.Warn("login rejected: bad password", zap.String("user_id", u.ID))
		return nil, domain.ErrAuth
	}

	if utils.NeedsRehash(u.PasswordHash, s.params) {
		s.rehash(ctx, u.ID, password)
	}

	token, exp, err := s.jwt.Issue(u.ID)
	if err != nil {
		logCtx.Error("login: issue token failed", zap.Error(err))
		return nil, fmt.Errorf("%w: issue token: %w", domain.ErrStorage, err)
	}
	logCtx.Info("login ok", zap.String("user_id", u.ID))
	return &LoginResult{ID: u.ID, Username: u.Username, Token: token, Exp: exp}, nil
}

// Authenticate 每个请求独立校验 token，返回用户 id
func (s *AuthService) Authenticate(token string) (string, error) {
	if token == "" {
		return "", domain.ErrAuth
	}
	c, err := s.jwt.Parse(token)
	if err != nil {
		return "", domain.ErrAuth
	}
	return c.UID, nil
}

func (s *AuthService) User(ctx context.Context, id string) (*domain.User, error) {
	return s.users.FindUserByID(ctx, id)
}

func (s *AuthService) ListUsers(ctx context.Context) ([]domain.User, error) {
	return s.users.ListUsers(ctx)
}

func (s *AuthService) DeleteUser(ctx context.Context, id string) error {
	if err := s.users.DeleteUserByID(ctx, id); err != nil {
		return err
	}
	s.log.Info("user deleted", zap.String("user_id", id))
	return nil
}

func (s *AuthService) rehash(ctx context.Context, id, password string) {
	hash, err := s.params.Hash(password)
	if err == nil {
		err = s.users.UpdatePasswordHash(ctx, id, hash)
	}
	if err != nil {
		s.log.Warn("password rehash failed", zap.String("user_id", id), zap.Error(err))
		return
	}
	s.log.Info("password rehashed", zap.String("user_id", id))
}
