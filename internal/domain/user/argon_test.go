package user

import (
	"strings"
	"testing"
)

func TestHashPasswordWithParams(t *testing.T) {
	// Cheap parameters keep the test fast; the encoded hash must carry them
	p := HashParams{Memory: 8 * 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}

	hash, err := HashPasswordWithParams("Sup3rsecret", p)
	if err != nil {
		t.Fatalf("HashPasswordWithParams() error = %v", err)
	}
	if !strings.Contains(hash, "m=8192,t=1,p=1") {
		t.Errorf("encoded hash does not carry its parameters: %s", hash)
	}

	if !VerifyPassword("Sup3rsecret", hash) {
		t.Errorf("VerifyPassword() rejected the matching password")
	}
	if VerifyPassword("wrong", hash) {
		t.Errorf("VerifyPassword() accepted a wrong password")
	}
}

func TestHashPassword_SaltsDiffer(t *testing.T) {
	a, err := HashPassword("Sup3rsecret")
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	b, err := HashPassword("Sup3rsecret")
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	if a == b {
		t.Errorf("two hashes of the same password must not be identical")
	}
}

func TestDecodeHash(t *testing.T) {
	p := HashParams{Memory: 8 * 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}
	encoded, err := HashPasswordWithParams("Sup3rsecret", p)
	if err != nil {
		t.Fatalf("HashPasswordWithParams() error = %v", err)
	}

	got, salt, hash, err := decodeHash(encoded)
	if err != nil {
		t.Fatalf("decodeHash() error = %v", err)
	}
	if got != p {
		t.Errorf("decodeHash() params = %+v, want %+v", got, p)
	}
	if len(salt) != int(p.SaltLength) || len(hash) != int(p.KeyLength) {
		t.Errorf("decodeHash() salt/hash lengths = %d/%d", len(salt), len(hash))
	}

	if _, _, _, err := decodeHash("$2a$10$notbcryptactually"); err == nil {
		t.Errorf("decodeHash() accepted a non-argon2id hash")
	}
}
