package auth

import (
	"context"
	"net/mail"
	"strings"

	"go.uber.org/zap"

	"github.com/Y4SSERk/Real-Estate-Advertisement-RE-Ad/internal/domain"
	"github.com/Y4SSERk/Real-Estate-Advertisement-RE-Ad/pkg/utils"
)

// Service 注册 + 登录。token 的签发在 handler 层，这里只产出 Identity
type Service struct {
	users domain.UserRepository
	log   *zap.Logger
}

func NewService(users domain.UserRepository, log *zap.Logger) *Service {
	return &Service{users: users, log: log}
}

type RegisterInput struct {
	Username  string
	Email     string
	Password  string
	FirstName string
	LastName  string
	Phone     string
	Role      string
}

func (s *Service) Register(ctx context.Context, in RegisterInput) (*domain.User, error) {
	fe := domain.FieldErrors{}

	username := strings.TrimSpace(in.Username)
	email := strings.TrimSpace(strings.ToLower(in.Email))

	if username == "" {
		fe.Add("username", "required")
	}
	switch {
	case email == "":
		fe.Add("email", "required")
	default:
		if _, err := mail.ParseAddress(email); err != nil {
			fe.Add("email", "invalid email address")
		}
	}
	switch {
	case in.Password == "":
		fe.Add("password", "required")
	case len(in.Password) < 8:
		fe.Add("password", "at least 8 characters")
	}

	role := domain.Role(in.Role)
	if role == "" {
		role = domain.RoleIndividual
	}
	switch {
	case !role.Valid():
		fe.Add("role", "unknown role")
	case role == domain.RoleAdmin:
		// admin 只能由管理端授予
		fe.Add("role", "cannot self-assign admin")
	}

	if len(fe) > 0 {
		return nil, fe
	}

	u := &domain.User{
		ID:           utils.NewID(),
		Username:     username,
		Email:        email,
		PasswordHash: utils.HashPassword(in.Password),
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		Phone:        strings.TrimSpace(in.Phone),
		Role:         role,
		IsActive:     true,
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}
	s.log.Info("user registered",
		zap.String("uid", u.ID),
		zap.String("username", u.Username),
		zap.String("role", string(u.Role)),
	)
	return u, nil
}

// Authenticate 标识符先按用户名找，找不到再按邮箱。任何一步失败都
// 返回同一个 ErrInvalidCredentials，不给枚举账号的口子
func (s *Service) Authenticate(ctx context.Context, identifier, password string) (*domain.Identity, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || password == "" {
		return nil, domain.ErrInvalidCredentials
	}

	u, err := s.users.FindByUsername(ctx, identifier)
	if err != nil {
		return nil, err
	}
	if u == nil {
		u, err = s.users.FindByEmail(ctx, strings.ToLower(identifier))
		if err != nil {
			return nil, err
		}
	}
	if u == nil || !u.IsActive {
		return nil, domain.ErrInvalidCredentials
	}
	if !utils.CheckPassword(password, u.PasswordHash) {
		return nil, domain.ErrInvalidCredentials
	}
	return &domain.Identity{UID: u.ID, Username: u.Username, Role: u.Role}, nil
}

func (s *Service) Me(ctx context.Context, uid string) (*domain.User, error) {
	u, err := s.users.FindByID(ctx, uid)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, domain.ErrNotFound
	}
	return u, nil
}
