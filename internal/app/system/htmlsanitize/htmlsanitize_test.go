package htmlsanitize_test

import (
	"strings"
	"testing"

	"github.com/dalemusser/hearth/internal/app/system/htmlsanitize"
)

func TestPlainText_Empty(t *testing.T) {
	if got := htmlsanitize.PlainText(""); got != "" {
		t.Errorf("expected empty string, got %q", got)
	}
}

func TestPlainText_Unchanged(t *testing.T) {
	in := "Take out the trash & recycling"
	if got := htmlsanitize.PlainText(in); got != in {
		t.Errorf("expected plain text unchanged, got %q", got)
	}
}

func TestPlainText_RemovesScript(t *testing.T) {
	got := htmlsanitize.PlainText("Hello<script>alert('xss')</script>")
	if strings.Contains(got, "script") || strings.Contains(got, "alert") {
		t.Errorf("expected script removed, got %q", got)
	}
	if !strings.HasPrefix(got, "Hello") {
		t.Errorf("expected text preserved, got %q", got)
	}
}

func TestPlainText_StripsTags(t *testing.T) {
	got := htmlsanitize.PlainText(`<p><strong>Bold</strong> <a href="javascript:x()">link</a></p>`)
	if got != "Bold link" {
		t.Errorf("PlainText = %q, want %q", got, "Bold link")
	}
}

func TestPlainText_EncodedMarkup(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"encoded script and img", "&lt;script&gt;alert(1)&lt;/script&gt;&lt;img src=x onerror=alert(2)&gt;", ""},
		{"encoded tag keeps text", "Mop &lt;b&gt;floors&lt;/b&gt;", "Mop floors"},
		{"double encoded", "&amp;lt;i&amp;gt;dust&amp;lt;/i&amp;gt;", "dust"},
		{"entity text survives", "Fish &amp; chips", "Fish & chips"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := htmlsanitize.PlainText(tt.in)
			if got != tt.want {
				t.Errorf("PlainText(%q) = %q, want %q", tt.in, got, tt.want)
			}
			if strings.ContainsAny(got, "<>") {
				t.Errorf("PlainText(%q) left markup: %q", tt.in, got)
			}
		})
	}
}
