package glossary

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

// ---------------------------------------------------------------------------
// NormalizeKey
// ---------------------------------------------------------------------------

func TestNormalizeKey(t *testing.T) {
	tests := []struct{ in, want string }{
		{"孔 子", "孔子"},
		{" Triệu\tKhuông\nDận ", "TriệuKhuôngDận"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := NormalizeKey(tt.in); got != tt.want {
			t.Errorf("NormalizeKey(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

// ---------------------------------------------------------------------------
// Store round-trip
// ---------------------------------------------------------------------------

func TestLoadSave_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "glossary.json")
	m := map[string]string{
		"孔子":   "Khổng Tử",
		"長安":   "Trường An",
		"中書侍郎": "Trung Thư Thị Lang",
	}

	if err := Save(path, m); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !reflect.DeepEqual(got, m) {
		t.Errorf("round trip: got %v, want %v", got, m)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	got, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	if err != nil {
		t.Fatalf("missing file must not error: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("got %v, want empty map", got)
	}
}

func TestLoad_NonObjectRoot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "glossary.json")
	if err := os.WriteFile(path, []byte(`["not", "an", "object"]`), 0644); err != nil {
		t.Fatal(err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("non-object root must not error: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("got %v, want empty map", got)
	}
}

func TestLoad_CoercesValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "glossary.json")
	if err := os.WriteFile(path, []byte(`{"a": 3, "b": true, "c": "x"}`), 0644); err != nil {
		t.Fatal(err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if got["a"] != "3" || got["b"] != "true" || got["c"] != "x" {
		t.Errorf("coercion: got %v", got)
	}
}

// ---------------------------------------------------------------------------
// ProperCase
// ---------------------------------------------------------------------------

func TestProperCase(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"multi word", "triệu khuông dận", "Triệu Khuông Dận"},
		{"already cased", "Khổng Tử", "Khổng Tử"},
		{"shouting input lowered", "YÊN KINH", "Yên Kinh"},
		{"hyphenated", "gia-luat", "Gia-Luat"},
		{"punctuation only token", "trung thư — thị lang", "Trung Thư — Thị Lang"},
		{"wrapping punctuation kept", "(yên kinh)", "(Yên Kinh)"},
		{"single letter core", "a", "A"},
		{"newlines flattened", "trung\nthư", "Trung Thư"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ProperCase(tt.in); got != tt.want {
				t.Errorf("ProperCase(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestProperCase_Idempotent(t *testing.T) {
	for _, s := range []string{"hello", "Trieu", "gia-luat", "anh hùng"} {
		once := ProperCase(s)
		if twice := ProperCase(once); twice != once {
			t.Errorf("not idempotent on %q: %q then %q", s, once, twice)
		}
	}
}

// ---------------------------------------------------------------------------
// Build
// ---------------------------------------------------------------------------

func TestBuild_ResolvesAndProperCases(t *testing.T) {
	lookup := func(ctx context.Context, term string) (string, error) {
		return "triệu khuông dận", nil
	}
	got := Build(context.Background(), []string{"趙匡胤"}, nil, lookup, BuildOptions{})
	if got["趙匡胤"] != "Triệu Khuông Dận" {
		t.Errorf("got %v", got)
	}
}

func TestBuild_SkipsKnownTerms(t *testing.T) {
	calls := 0
	lookup := func(ctx context.Context, term string) (string, error) {
		calls++
		return "x", nil
	}
	existing := map[string]string{"孔 子": "Khổng Tử"}

	// Same term with different internal whitespace must not be re-looked-up.
	got := Build(context.Background(), []string{"孔子"}, existing, lookup, BuildOptions{})
	if calls != 0 {
		t.Errorf("lookup called %d times for a known term", calls)
	}
	if len(got) != 0 {
		t.Errorf("known term must not be re-added: %v", got)
	}
}

func TestBuild_LooksUpEachTermOnce(t *testing.T) {
	calls := 0
	lookup := func(ctx context.Context, term string) (string, error) {
		calls++
		return "kết quả", nil
	}
	Build(context.Background(), []string{"甲", "甲", "乙"}, nil, lookup, BuildOptions{})
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
}

func TestBuild_SkipsOverlongTerms(t *testing.T) {
	calls := 0
	lookup := func(ctx context.Context, term string) (string, error) {
		calls++
		return "x", nil
	}
	long := make([]rune, 120)
	for i := range long {
		long[i] = '安'
	}
	got := Build(context.Background(), []string{string(long)}, nil, lookup, BuildOptions{})
	if calls != 0 {
		t.Errorf("overlong term was looked up")
	}
	if len(got) != 0 {
		t.Errorf("overlong term resolved: %v", got)
	}
}

func TestBuild_DiscardsErrorPageMarkers(t *testing.T) {
	lookup := func(ctx context.Context, term string) (string, error) {
		return "quá giới hạn cho phép", nil
	}
	got := Build(context.Background(), []string{"趙"}, nil, lookup, BuildOptions{})
	if len(got) != 0 {
		t.Errorf("error-page rendering kept: %v", got)
	}
}

func TestBuild_LookupErrorDropsTerm(t *testing.T) {
	lookup := func(ctx context.Context, term string) (string, error) {
		return "", errors.New("network down")
	}
	got := Build(context.Background(), []string{"趙"}, nil, lookup, BuildOptions{})
	if len(got) != 0 {
		t.Errorf("failed lookup produced an entry: %v", got)
	}
}
