package user

import (
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestPasswordHasher_HashAndVerify(t *testing.T) {
	hasher := NewPasswordHasherWithCost(bcrypt.MinCost)

	hash, err := hasher.Hash("secret")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}
	if hash == "secret" {
		t.Fatal("Hash() returned the plain password")
	}
	if !hasher.Verify("secret", hash) {
		t.Error("Verify() = false for the right password")
	}
	if hasher.Verify("Secret", hash) {
		t.Error("Verify() = true for the wrong password")
	}
}

func TestNewPasswordHasherWithCost_OutOfRange(t *testing.T) {
	tests := []struct {
		cost int
		want int
	}{
		{0, bcrypt.DefaultCost},
		{bcrypt.MaxCost + 1, bcrypt.DefaultCost},
		{bcrypt.MinCost, bcrypt.MinCost},
	}
	for _, tt := range tests {
		if got := NewPasswordHasherWithCost(tt.cost).cost; got != tt.want {
			t.Errorf("NewPasswordHasherWithCost(%d).cost = %d, want %d", tt.cost, got, tt.want)
		}
	}
	if NewPasswordHasher().cost != DefaultBcryptCost {
		t.Errorf("NewPasswordHasher().cost = %d, want %d", NewPasswordHasher().cost, DefaultBcryptCost)
	}
}
