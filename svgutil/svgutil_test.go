package svgutil

import (
	"errors"
	"strings"
	"testing"
)

func TestSanitizeForEPUBAddsNamespace(t *testing.T) {
	out, err := SanitizeForEPUB([]byte(`<svg width="10" height="10"><rect/></svg>`))
	if err != nil {
		t.Fatalf("SanitizeForEPUB returned error: %v", err)
	}
	if !strings.Contains(string(out), `xmlns="http://www.w3.org/2000/svg"`) {
		t.Errorf("expected xmlns injected, got: %s", out)
	}
}

func TestSanitizeForEPUBStripsProlog(t *testing.T) {
	svg := `<?xml version="1.0" encoding="UTF-8"?><svg xmlns="http://www.w3.org/2000/svg" width="1" height="1"/>`
	out, err := SanitizeForEPUB([]byte(svg))
	if err != nil {
		t.Fatalf("SanitizeForEPUB returned error: %v", err)
	}
	if strings.Contains(string(out), "<?xml") {
		t.Errorf("expected prolog stripped, got: %s", out)
	}
}

func TestSanitizeForEPUBStripsOpacity(t *testing.T) {
	svg := `<svg xmlns="http://www.w3.org/2000/svg" width="1" height="1">` +
		`<rect opacity="0.5" style="fill: red; opacity: 0.3;"/>` +
		`<style>.a { opacity: 0.7; fill: blue }</style></svg>`

	out, err := SanitizeForEPUB([]byte(svg))
	if err != nil {
		t.Fatalf("SanitizeForEPUB returned error: %v", err)
	}
	if strings.Contains(string(out), "opacity") {
		t.Errorf("expected all opacity references removed, got: %s", out)
	}
	if !strings.Contains(string(out), "fill: red") || !strings.Contains(string(out), "fill: blue") {
		t.Errorf("non-opacity styling should survive, got: %s", out)
	}
}

func TestSanitizeForEPUBDefaultSize(t *testing.T) {
	out, err := SanitizeForEPUB([]byte(`<svg xmlns="http://www.w3.org/2000/svg"><rect/></svg>`))
	if err != nil {
		t.Fatalf("SanitizeForEPUB returned error: %v", err)
	}
	s := string(out)
	if !strings.Contains(s, `width="400"`) || !strings.Contains(s, `height="300"`) {
		t.Errorf("expected default size injected, got: %s", s)
	}
}

func TestSanitizeForEPUBKeepsExplicitSize(t *testing.T) {
	out, err := SanitizeForEPUB([]byte(`<svg xmlns="http://www.w3.org/2000/svg" width="88" height="44"/>`))
	if err != nil {
		t.Fatalf("SanitizeForEPUB returned error: %v", err)
	}
	if strings.Contains(string(out), "400") {
		t.Errorf("explicit size should be kept, got: %s", out)
	}
}

func TestPatchFonts(t *testing.T) {
	svg := `<svg xmlns="http://www.w3.org/2000/svg" width="1" height="1">` +
		`<text font-family="Helvetica">hi</text>` +
		`<text style="font-family: Arial, sans-serif; fill: black">yo</text>` +
		`<style>text { font-family: Times }</style></svg>`

	out, err := PatchFonts([]byte(svg), "Noto Sans CJK SC")
	if err != nil {
		t.Fatalf("PatchFonts returned error: %v", err)
	}
	s := string(out)
	for _, gone := range []string{"Helvetica", "Arial", "Times"} {
		if strings.Contains(s, gone) {
			t.Errorf("expected %s replaced, got: %s", gone, s)
		}
	}
	if strings.Count(s, "Noto Sans CJK SC") != 3 {
		t.Errorf("expected 3 font references patched, got: %s", s)
	}
	if !strings.Contains(s, "fill: black") {
		t.Errorf("unrelated styling lost: %s", s)
	}
}

func TestMalformedSVG(t *testing.T) {
	_, err := SanitizeForEPUB([]byte(`<svg `))
	if !errors.Is(err, ErrMalformedSVG) {
		t.Fatalf("expected ErrMalformedSVG, got %v", err)
	}
}
