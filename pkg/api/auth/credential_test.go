package auth

import (
	"errors"
	"strings"
	"testing"
)

func TestHashPasswordAndVerify(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if hash == "" {
		t.Fatal("Expected non-empty hash")
	}

	cred := Credential{Username: "admin", PasswordHash: hash}
	if !cred.Verify("admin", "correct horse battery staple") {
		t.Error("Expected matching credential to verify")
	}
	if cred.Verify("admin", "wrong password!") {
		t.Error("Expected wrong password to fail")
	}
	if cred.Verify("root", "correct horse battery staple") {
		t.Error("Expected wrong username to fail")
	}
}

func TestHashPassword_TooShort(t *testing.T) {
	if _, err := HashPassword("short"); !errors.Is(err, ErrPasswordTooShort) {
		t.Errorf("Expected ErrPasswordTooShort, got: %v", err)
	}
}

func TestHashPassword_TooLong(t *testing.T) {
	long := strings.Repeat("a", MaxPasswordLength+1)
	if _, err := HashPassword(long); !errors.Is(err, ErrPasswordTooLong) {
		t.Errorf("Expected ErrPasswordTooLong, got: %v", err)
	}
}

func TestCredential_Unconfigured(t *testing.T) {
	var cred Credential
	if cred.Configured() {
		t.Error("Expected zero credential to report unconfigured")
	}
	if cred.Verify("", "") {
		t.Error("Expected unconfigured credential to reject everything")
	}

	hash, _ := HashPassword("some password")
	cred = Credential{PasswordHash: hash}
	if cred.Verify("", "some password") {
		t.Error("Expected credential without username to reject")
	}
}
