package slug

import "testing"

func TestMake(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"simple", "Ada Lovelace", "ada-lovelace"},
		{"punctuation", "Go, Concurrency & You!", "go-concurrency-you"},
		{"collapsed runs", "a  --  b", "a-b"},
		{"leading trailing", "  ...Hello...  ", "hello"},
		{"digits", "Go 1.24 in Production", "go-1-24-in-production"},
		{"empty", "!!!", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Make(tc.in); got != tc.want {
				t.Fatalf("Make(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestWithSuffix(t *testing.T) {
	if got := WithSuffix("talk", 1); got != "talk" {
		t.Fatalf("WithSuffix n=1: got %q", got)
	}
	if got := WithSuffix("talk", 3); got != "talk-3" {
		t.Fatalf("WithSuffix n=3: got %q", got)
	}
}
