package domain

import "testing"

func TestNormalizeURL(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want string
	}{
		{"https://x.com/a/", "https://x.com/a"},
		{"https://x.com/a", "https://x.com/a"},
		{"HTTPS://X.COM/Path/To/Article", "https://x.com/Path/To/Article"},
		{"https://x.com/a.", "https://x.com/a"},
		{"https://x.com/a),", "https://x.com/a"},
		{"  https://x.com/a?q=V#Frag ", "https://x.com/a?q=V#Frag"},
		{"https://x.com", "https://x.com"},
	}

	for _, tc := range cases {
		if got := NormalizeURL(tc.in); got != tc.want {
			t.Fatalf("NormalizeURL(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestNormalizeURLEquivalence(t *testing.T) {
	t.Parallel()

	if NormalizeURL("https://x.com/a/") != NormalizeURL("https://x.com/a") {
		t.Fatal("trailing-slash variants must normalize to the same candidate")
	}
	if NormalizeURL("https://X.com/A") == NormalizeURL("https://x.com/a") {
		t.Fatal("path case must be preserved")
	}
}
