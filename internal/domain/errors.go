package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// 业务错误类型：handler 层据此翻译成统一响应码
var (
	ErrNotFound           = errors.New("not found")
	ErrForbidden          = errors.New("forbidden")
	ErrDuplicateIdentity  = errors.New("duplicate identity")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// FieldErrors 按字段聚合的校验错误（一次请求尽量报全，不止报第一个）
type FieldErrors map[string]string

func (e FieldErrors) Add(field, msg string) { e[field] = msg }

func (e FieldErrors) Error() string {
	keys := make([]string, 0, len(e))
	for k := range e {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteString("; ")
		}
		b.WriteString(k + ": " + e[k])
	}
	return b.String()
}

// StorageError 底层存储失败（DB / 对象存储）。对外只暴露笼统失败，细节进日志
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string { return fmt.Sprintf("storage %s: %v", e.Op, e.Err) }
func (e *StorageError) Unwrap() error { return e.Err }

func WrapStorage(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Err: err}
}
