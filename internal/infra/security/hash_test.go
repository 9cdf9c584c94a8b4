package security

import (
	"strings"
	"testing"
)

func TestHashPasswordRoundTrip(t *testing.T) {
	encoded, err := HashPassword("C0mplex!Passphrase#2025")
	if err != nil {
		t.Fatalf("HashPassword returned error: %v", err)
	}

	if !strings.HasPrefix(encoded, "argon2id$v=19$") {
		t.Fatalf("unexpected hash format: %s", encoded)
	}

	ok, err := VerifyPassword("C0mplex!Passphrase#2025", encoded)
	if err != nil {
		t.Fatalf("VerifyPassword returned error: %v", err)
	}
	if !ok {
		t.Fatalf("expected password to verify")
	}

	ok, err = VerifyPassword("wrong-password", encoded)
	if err != nil {
		t.Fatalf("VerifyPassword returned error: %v", err)
	}
	if ok {
		t.Fatalf("expected mismatch to fail verification")
	}
}

func TestHashPasswordSaltsDiffer(t *testing.T) {
	first, err := HashPassword("same-password-1")
	if err != nil {
		t.Fatalf("HashPassword returned error: %v", err)
	}
	second, err := HashPassword("same-password-1")
	if err != nil {
		t.Fatalf("HashPassword returned error: %v", err)
	}
	if first == second {
		t.Fatalf("expected distinct salts to produce distinct hashes")
	}
}

func TestVerifyPasswordRejectsGarbage(t *testing.T) {
	if ok, _ := VerifyPassword("password", "not-a-valid-hash"); ok {
		t.Fatalf("expected malformed hash to fail verification")
	}

	if ok, err := VerifyPassword("", ""); ok || err != nil {
		t.Fatalf("expected empty inputs to fail silently, ok=%v err=%v", ok, err)
	}
}

func TestConfigureArgon2RejectsWeakParams(t *testing.T) {
	if err := ConfigureArgon2(Argon2Config{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}); err == nil {
		t.Fatalf("expected low memory config to be rejected")
	}
	if err := ConfigureArgon2(DefaultArgon2Config()); err != nil {
		t.Fatalf("expected default config to be accepted, got %v", err)
	}
}
