package epubdoc

import (
	"archive/zip"
	"bytes"
	"errors"
	"testing"
)

// buildZip creates an in-memory zip.Reader from a name→content map.
func buildZip(t *testing.T, files map[string]string) *zip.Reader {
	t.Helper()

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, content := range files {
		fw, err := w.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		fw.Write([]byte(content))
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatal(err)
	}
	return zr
}

func TestCheckDRMClean(t *testing.T) {
	zr := buildZip(t, map[string]string{
		"mimetype":               "application/epub+zip",
		"META-INF/container.xml": "<container/>",
	})
	if err := CheckDRM(zr); err != nil {
		t.Errorf("clean archive flagged: %v", err)
	}
}

func TestCheckDRMRightsFile(t *testing.T) {
	zr := buildZip(t, map[string]string{
		"META-INF/rights.xml": "<rights/>",
	})
	if err := CheckDRM(zr); !errors.Is(err, ErrDRMProtected) {
		t.Errorf("expected ErrDRMProtected, got %v", err)
	}
}

func TestCheckDRMEncryptedContent(t *testing.T) {
	enc := `<encryption xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
  <EncryptedData>
    <EncryptionMethod Algorithm="http://www.w3.org/2001/04/xmlenc#aes128-cbc"/>
    <CipherData><CipherReference URI="OEBPS/chapter1.xhtml"/></CipherData>
  </EncryptedData>
</encryption>`
	zr := buildZip(t, map[string]string{"META-INF/encryption.xml": enc})
	if err := CheckDRM(zr); !errors.Is(err, ErrDRMProtected) {
		t.Errorf("expected ErrDRMProtected, got %v", err)
	}
}

func TestCheckDRMFontObfuscationAllowed(t *testing.T) {
	enc := `<encryption>
  <EncryptedData>
    <EncryptionMethod Algorithm="http://www.idpf.org/2008/embedding#obfuscation"/>
    <CipherData><CipherReference URI="OEBPS/fonts/serif.otf"/></CipherData>
  </EncryptedData>
</encryption>`
	zr := buildZip(t, map[string]string{"META-INF/encryption.xml": enc})
	if err := CheckDRM(zr); err != nil {
		t.Errorf("font obfuscation flagged as DRM: %v", err)
	}
}
