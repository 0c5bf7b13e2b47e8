package response

import (
	"errors"

	"github.com/Y4SSERk/Real-Estate-Advertisement-RE-Ad/internal/domain"
)

// FromError 领域错误 → 统一响应。兜底一律笼统的 500，细节留给日志
func FromError(err error) Resp {
	var fe domain.FieldErrors
	if errors.As(err, &fe) {
		return Invalid(fe)
	}
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return Error(CodeNotFound, "")
	case errors.Is(err, domain.ErrForbidden):
		return Error(CodeForbidden, "")
	case errors.Is(err, domain.ErrDuplicateIdentity):
		return Error(CodeConflict, "username or email already taken")
	case errors.Is(err, domain.ErrInvalidCredentials):
		return Error(CodeUnauthorized, "invalid credentials")
	default:
		return Error(CodeServerError, "")
	}
}

// IsInternal 需要带堆栈/错误细节进日志的那一类
func IsInternal(err error) bool {
	var fe domain.FieldErrors
	var se *domain.StorageError
	if errors.As(err, &fe) {
		return false
	}
	if errors.As(err, &se) {
		return true
	}
	return !errors.Is(err, domain.ErrNotFound) &&
		!errors.Is(err, domain.ErrForbidden) &&
		!errors.Is(err, domain.ErrDuplicateIdentity) &&
		!errors.Is(err, domain.ErrInvalidCredentials)
}
