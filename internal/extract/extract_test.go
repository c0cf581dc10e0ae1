package extract

import (
	"reflect"
	"testing"
)

func TestExtractFiltersDenylistAndLength(t *testing.T) {
	t.Parallel()

	text := "Check https://click.tracking.example.com/x and https://real-article.example.com/long-enough-path today"
	got := New(nil, 0).Extract(text)

	want := []string{"https://real-article.example.com/long-enough-path"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Extract = %v, want %v", got, want)
	}
}

func TestExtractShortURLsDropped(t *testing.T) {
	t.Parallel()

	got := New(nil, 0).Extract("short link https://x.co/a here")
	if len(got) != 0 {
		t.Fatalf("expected no candidates, got %v", got)
	}
}

func TestExtractDeduplicatesWithinItem(t *testing.T) {
	t.Parallel()

	text := "https://blog.example.com/post/one and again https://blog.example.com/post/one/ (trailing slash)"
	got := New(nil, 0).Extract(text)

	if len(got) != 1 {
		t.Fatalf("expected 1 candidate after dedup, got %v", got)
	}
	if got[0] != "https://blog.example.com/post/one" {
		t.Fatalf("unexpected candidate: %s", got[0])
	}
}

func TestExtractTrailingPunctuation(t *testing.T) {
	t.Parallel()

	got := New(nil, 0).Extract("Read this: https://blog.example.com/post/one.")
	if len(got) != 1 || got[0] != "https://blog.example.com/post/one" {
		t.Fatalf("unexpected candidates: %v", got)
	}
}

func TestExtractCustomDenylist(t *testing.T) {
	t.Parallel()

	extractor := New([]string{"ads."}, 10)
	got := extractor.Extract("https://ads.example.com/banner https://blog.example.com/post")
	if len(got) != 1 || got[0] != "https://blog.example.com/post" {
		t.Fatalf("unexpected candidates: %v", got)
	}
}

func TestExtractIgnoresNonURLText(t *testing.T) {
	t.Parallel()

	if got := New(nil, 0).Extract("no links here, just prose"); len(got) != 0 {
		t.Fatalf("expected no candidates, got %v", got)
	}
}
