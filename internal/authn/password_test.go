package authn

import "testing"

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}

	if !VerifyPassword("correct horse battery staple", hash) {
		t.Error("VerifyPassword() failed for correct password")
	}
	if VerifyPassword("wrong password", hash) {
		t.Error("VerifyPassword() succeeded for incorrect password")
	}
}

func TestHashPassword_Salted(t *testing.T) {
	h1, err := HashPassword("same-password")
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	h2, err := HashPassword("same-password")
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	if h1 == h2 {
		t.Error("HashPassword() produced identical hashes for the same password twice")
	}
	if !VerifyPassword("same-password", h1) || !VerifyPassword("same-password", h2) {
		t.Error("both salted hashes should verify the original password")
	}
}

func TestVerifyPassword_MalformedHash(t *testing.T) {
	for _, h := range []string{"", "not-a-hash", "$argon2id$v=19$m=65536,t=3,p=2$bad!salt$bad!key"} {
		if VerifyPassword("anything", h) {
			t.Errorf("VerifyPassword succeeded against malformed hash %q", h)
		}
	}
}
