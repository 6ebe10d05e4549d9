package automation

import (
	"regexp"
	"testing"
	"time"
)

func TestMatchConfirmationNumber(t *testing.T) {
	tests := []struct {
		name     string
		pageText string
		want     string
		wantOK   bool
	}{
		{
			name:     "standard confirmation line",
			pageText: "Thank you. Confirmation Number: AB-123",
			want:     "AB-123",
			wantOK:   true,
		},
		{
			name:     "hash separator",
			pageText: "Reference Number# X99Y",
			want:     "X99Y",
			wantOK:   true,
		},
		{
			name:     "no separator",
			pageText: "Number 20260815001",
			want:     "20260815001",
			wantOK:   true,
		},
		{
			name:     "word number absent",
			pageText: "Your release was received.",
			wantOK:   false,
		},
		{
			name:     "number as substring does not match",
			pageText: "OutNumbered: 42",
			wantOK:   false,
		},
		{
			name:     "empty text",
			pageText: "",
			wantOK:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := MatchConfirmationNumber(tt.pageText)
			if ok != tt.wantOK {
				t.Fatalf("MatchConfirmationNumber(%q) ok = %v, want %v", tt.pageText, ok, tt.wantOK)
			}
			if ok && got != tt.want {
				t.Errorf("MatchConfirmationNumber(%q) = %q, want %q", tt.pageText, got, tt.want)
			}
		})
	}
}

func TestPatternMatcher(t *testing.T) {
	matcher, err := PatternMatcher(`Ref:\s*(\d+)`)
	if err != nil {
		t.Fatalf("PatternMatcher returned error: %v", err)
	}

	token, ok := matcher("Submitted. Ref: 445566")
	if !ok || token != "445566" {
		t.Errorf("matcher = (%q, %v), want (445566, true)", token, ok)
	}

	if _, ok := matcher("Submitted."); ok {
		t.Error("matcher matched text without the pattern")
	}
}

func TestPatternMatcherInvalidPattern(t *testing.T) {
	if _, err := PatternMatcher(`([unclosed`); err == nil {
		t.Fatal("expected error for invalid pattern")
	}
}

func TestPlaceholderConfirmation(t *testing.T) {
	now := time.Date(2026, 8, 15, 10, 30, 0, 0, time.UTC)
	got := PlaceholderConfirmation(now)

	if !regexp.MustCompile(`^UNKNOWN-\d+$`).MatchString(got) {
		t.Errorf("PlaceholderConfirmation = %q, want UNKNOWN-<millis>", got)
	}
}

func TestExtractText(t *testing.T) {
	html := `<html><head><style>.x{color:red}</style></head>
	<body><h1>Done</h1><script>var a=1;</script>
	<p>Confirmation   Number:
	AB-123</p></body></html>`

	got := ExtractText(html)
	want := "Done Confirmation Number: AB-123"
	if got != want {
		t.Errorf("ExtractText = %q, want %q", got, want)
	}
}
