package utils

import (
	"strings"
	"testing"
)

func TestPasswordHashAndCheck(t *testing.T) {
	h := HashPassword("s3cret-pass")
	if h == "" || h == "s3cret-pass" {
		t.Fatalf("hash = %q", h)
	}
	if !CheckPassword("s3cret-pass", h) {
		t.Error("correct password rejected")
	}
	if CheckPassword("wrong-pass", h) {
		t.Error("wrong password accepted")
	}
	if CheckPassword("s3cret-pass", "not-a-bcrypt-hash") {
		t.Error("garbage hash accepted")
	}
}

func TestPasswordHashIsSalted(t *testing.T) {
	if HashPassword("same") == HashPassword("same") {
		t.Error("two hashes of the same password are identical")
	}
}

func TestNewID(t *testing.T) {
	a, b := NewID(), NewID()
	if len(a) != 32 || strings.Contains(a, "-") {
		t.Errorf("id = %q", a)
	}
	if a == b {
		t.Error("ids collide")
	}
}
