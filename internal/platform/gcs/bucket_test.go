package gcs

import "testing"

func TestObjectKey(t *testing.T) {
	if got := objectKey(CategoryAvatar, "/acct/1.png"); got != "avatar/acct/1.png" {
		t.Fatalf("objectKey: got %q", got)
	}
	if got := objectKey(CategorySlide, "sub/deck.pdf"); got != "slide/sub/deck.pdf" {
		t.Fatalf("objectKey: got %q", got)
	}
}

func TestContentTypeForKey(t *testing.T) {
	cases := map[string]string{
		"a/b.png":        "image/png",
		"a/b.JPG":        "image/jpeg",
		"deck.pdf?x=1":   "application/pdf",
		"noext":          "",
		"card.webp":      "image/webp",
	}
	for in, want := range cases {
		if got := contentTypeForKey(in); got != want {
			t.Errorf("contentTypeForKey(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestPublicURL(t *testing.T) {
	bs := &bucketService{bucket: "assets"}
	if got := bs.PublicURL(CategoryPhoto, "s/1.png"); got != "https://storage.googleapis.com/assets/photo/s/1.png" {
		t.Fatalf("gcs url: %q", got)
	}
	bs.cdnDomain = "cdn.borealisconf.test"
	if got := bs.PublicURL(CategoryPhoto, "s/1.png"); got != "https://cdn.borealisconf.test/photo/s/1.png" {
		t.Fatalf("cdn url: %q", got)
	}
	bs.cdnDomain = ""
	bs.emulatorHost = "http://localhost:4443"
	if got := bs.PublicURL(CategoryPhoto, "s/1.png"); got != "http://localhost:4443/storage/v1/b/assets/o/photo%2Fs%2F1.png?alt=media" {
		t.Fatalf("emulator url: %q", got)
	}
}
