package htmlsanitize_test

import (
	"strings"
	"testing"

	"github.com/dalemusser/stockconsole/internal/app/system/htmlsanitize"
)

func TestPlainText_Empty(t *testing.T) {
	if got := htmlsanitize.PlainText(""); got != "" {
		t.Errorf("expected empty string, got %q", got)
	}
}

func TestPlainText_KeepsText(t *testing.T) {
	in := "Email o contraseña incorrectos."
	if got := htmlsanitize.PlainText(in); got != in {
		t.Errorf("expected text unchanged, got %q", got)
	}
}

func TestPlainText_StripsTags(t *testing.T) {
	got := htmlsanitize.PlainText("<p><strong>El email</strong> ya está registrado.</p>")
	if got != "El email ya está registrado." {
		t.Errorf("got %q", got)
	}
}

func TestPlainText_RemovesScript(t *testing.T) {
	got := htmlsanitize.PlainText("<script>alert('xss')</script>Error")
	if strings.Contains(got, "alert") {
		t.Errorf("expected script content removed, got %q", got)
	}
	if got != "Error" {
		t.Errorf("got %q", got)
	}
}

func TestPlainText_DoesNotDoubleEscape(t *testing.T) {
	got := htmlsanitize.PlainText("<b>Stock & precio</b>")
	if got != "Stock & precio" {
		t.Errorf("got %q", got)
	}
}

func TestIsPlainText(t *testing.T) {
	if !htmlsanitize.IsPlainText("Hola") {
		t.Error("expected plain text")
	}
	if htmlsanitize.IsPlainText("<p>Hola</p>") {
		t.Error("expected markup")
	}
}
