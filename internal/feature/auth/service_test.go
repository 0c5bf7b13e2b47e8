package auth

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/Y4SSERk/Real-Estate-Advertisement-RE-Ad/internal/domain"
)

type memUsers struct {
	byID map[string]*domain.User
}

func newMemUsers() *memUsers { return &memUsers{byID: map[string]*domain.User{}} }

func (m *memUsers) Create(_ context.Context, u *domain.User) error {
	for _, ex := range m.byID {
		if ex.Username == u.Username || ex.Email == u.Email {
			return domain.ErrDuplicateIdentity
		}
	}
	cp := *u
	m.byID[u.ID] = &cp
	return nil
}

func (m *memUsers) FindByID(_ context.Context, id string) (*domain.User, error) {
	if u, ok := m.byID[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, nil
}

func (m *memUsers) FindByUsername(_ context.Context, username string) (*domain.User, error) {
	for _, u := range m.byID {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memUsers) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	for _, u := range m.byID {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memUsers) List(_ context.Context, _ string, _, _ int, _ bool) ([]domain.User, int64, error) {
	return nil, 0, nil
}

func (m *memUsers) Update(_ context.Context, u *domain.User) error {
	cp := *u
	m.byID[u.ID] = &cp
	return nil
}

func (m *memUsers) SoftDelete(_ context.Context, id string) error {
	delete(m.byID, id)
	return nil
}

func newSvc() (*Service, *memUsers) {
	users := newMemUsers()
	return NewService(users, zap.NewNop()), users
}

func TestRegisterAndAuthenticate(t *testing.T) {
	svc, _ := newSvc()
	ctx := context.Background()

	u, err := svc.Register(ctx, RegisterInput{
		Username: "zineb",
		Email:    "zineb@example.com",
		Password: "password123",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if u.ID == "" {
		t.Error("no id assigned")
	}
	if !u.IsActive {
		t.Error("new account must be active")
	}
	if u.Role != domain.RoleIndividual {
		t.Errorf("default role = %q", u.Role)
	}
	if u.PasswordHash == "password123" || strings.Contains(u.PasswordHash, "password123") {
		t.Error("password stored in plaintext")
	}

	// 用户名登录和邮箱登录给同一个身份
	id1, err := svc.Authenticate(ctx, "zineb", "password123")
	if err != nil {
		t.Fatalf("authenticate by username: %v", err)
	}
	id2, err := svc.Authenticate(ctx, "zineb@example.com", "password123")
	if err != nil {
		t.Fatalf("authenticate by email: %v", err)
	}
	if id1.UID != id2.UID || id1.UID != u.ID {
		t.Errorf("identities differ: %v vs %v", id1, id2)
	}

	// 幂等：重复登录拿到等价身份
	id3, err := svc.Authenticate(ctx, "zineb", "password123")
	if err != nil || *id3 != *id1 {
		t.Errorf("re-authentication not idempotent: %v %v", id3, err)
	}
}

func TestRegisterFieldValidation(t *testing.T) {
	svc, _ := newSvc()
	_, err := svc.Register(context.Background(), RegisterInput{})
	var fe domain.FieldErrors
	if !errors.As(err, &fe) {
		t.Fatalf("expected FieldErrors, got %v", err)
	}
	for _, f := range []string{"username", "email", "password"} {
		if fe[f] == "" {
			t.Errorf("missing error for %q: %v", f, fe)
		}
	}
}

func TestRegisterRejectsBadEmailAndShortPassword(t *testing.T) {
	svc, _ := newSvc()
	_, err := svc.Register(context.Background(), RegisterInput{
		Username: "x", Email: "not-an-email", Password: "short",
	})
	var fe domain.FieldErrors
	if !errors.As(err, &fe) {
		t.Fatalf("expected FieldErrors, got %v", err)
	}
	if fe["email"] == "" || fe["password"] == "" {
		t.Errorf("expected email+password errors: %v", fe)
	}
}

func TestRegisterRejectsSelfAssignedAdmin(t *testing.T) {
	svc, _ := newSvc()
	_, err := svc.Register(context.Background(), RegisterInput{
		Username: "mallory", Email: "m@example.com", Password: "password123", Role: "admin",
	})
	var fe domain.FieldErrors
	if !errors.As(err, &fe) || fe["role"] == "" {
		t.Fatalf("expected role error, got %v", err)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, _ := newSvc()
	ctx := context.Background()
	if _, err := svc.Register(ctx, RegisterInput{
		Username: "first", Email: "same@example.com", Password: "password123",
	}); err != nil {
		t.Fatalf("first register: %v", err)
	}
	_, err := svc.Register(ctx, RegisterInput{
		Username: "second", Email: "same@example.com", Password: "password123",
	})
	if !errors.Is(err, domain.ErrDuplicateIdentity) {
		t.Fatalf("expected ErrDuplicateIdentity, got %v", err)
	}
}

func TestAuthenticateUndifferentiatedFailure(t *testing.T) {
	svc, users := newSvc()
	ctx := context.Background()
	if _, err := svc.Register(ctx, RegisterInput{
		Username: "omar", Email: "omar@example.com", Password: "password123",
	}); err != nil {
		t.Fatalf("register: %v", err)
	}

	// 账号不存在和密码错误给同一个错误，不泄露哪种情况
	_, errUnknown := svc.Authenticate(ctx, "nobody", "password123")
	_, errWrongPw := svc.Authenticate(ctx, "omar", "wrongpass")
	if !errors.Is(errUnknown, domain.ErrInvalidCredentials) {
		t.Errorf("unknown user: %v", errUnknown)
	}
	if !errors.Is(errWrongPw, domain.ErrInvalidCredentials) {
		t.Errorf("wrong password: %v", errWrongPw)
	}
	if errUnknown.Error() != errWrongPw.Error() {
		t.Error("error messages must not distinguish the two cases")
	}

	// 停用账号同样的失败
	for _, u := range users.byID {
		u.IsActive = false
	}
	if _, err := svc.Authenticate(ctx, "omar", "password123"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Errorf("inactive account: %v", err)
	}
}

func TestMe(t *testing.T) {
	svc, _ := newSvc()
	ctx := context.Background()
	u, err := svc.Register(ctx, RegisterInput{
		Username: "sara", Email: "sara@example.com", Password: "password123",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	got, err := svc.Me(ctx, u.ID)
	if err != nil || got.Username != "sara" {
		t.Fatalf("me: %v %v", got, err)
	}
	if _, err := svc.Me(ctx, "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
