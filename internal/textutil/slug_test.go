package textutil

import "testing"

func TestSlug(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Network security", "network_security"},
		{"Sécurité des réseaux", "securite_des_reseaux"},
		{"  Migration   Cloud !  ", "migration_cloud"},
		{"L'architecture émergée", "l_architecture_emergee"},
		{"___", "prosit"},
		{"", "prosit"},
		{"Chiffrement: AES-256 (symétrique)", "chiffrement_aes_256_symetrique"},
	}
	for _, tc := range cases {
		if got := Slug(tc.in); got != tc.want {
			t.Fatalf("Slug(%q) = %q, expected %q", tc.in, got, tc.want)
		}
	}
}

func TestSlugCapsLength(t *testing.T) {
	long := ""
	for i := 0; i < 20; i++ {
		long += "abcdefghij "
	}
	got := Slug(long)
	if len([]rune(got)) > maxSlugRunes {
		t.Fatalf("slug length %d exceeds cap", len([]rune(got)))
	}
	if got == "" {
		t.Fatal("expected non-empty slug")
	}
}
