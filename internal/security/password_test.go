package security

import "testing"

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("correct horse")
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	if hash == "correct horse" {
		t.Fatal("HashPassword() returned the plain password")
	}

	tests := []struct {
		name     string
		password string
		want     bool
	}{
		{name: "Matching password", password: "correct horse", want: true},
		{name: "Wrong password", password: "battery staple", want: false},
		{name: "Empty password", password: "", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := CheckPassword(hash, tt.password)
			if err != nil {
				t.Fatalf("CheckPassword() error = %v", err)
			}
			if ok != tt.want {
				t.Errorf("CheckPassword() = %v, want %v", ok, tt.want)
			}
		})
	}
}

func TestCheckPassword_MalformedHash(t *testing.T) {
	if _, err := CheckPassword("not-a-bcrypt-hash", "secret"); err == nil {
		t.Error("CheckPassword() expected error for malformed hash")
	}
}
