package epubdoc

import (
	"archive/zip"
	"encoding/xml"
	"errors"
	"io"
	"strings"
)

// ErrDRMProtected is returned for encrypted books. MarkEdit refuses them at
// upload time; importing one would only produce unreadable chapter files.
var ErrDRMProtected = errors.New("epubdoc: DRM-protected content cannot be imported")

// encryptionXML mirrors META-INF/encryption.xml.
type encryptionXML struct {
	XMLName       xml.Name `xml:"encryption"`
	EncryptedData []struct {
		EncryptionMethod struct {
			Algorithm string `xml:"Algorithm,attr"`
		} `xml:"EncryptionMethod"`
		CipherData struct {
			CipherReference struct {
				URI string `xml:"URI,attr"`
			} `xml:"CipherReference"`
		} `xml:"CipherData"`
	} `xml:"EncryptedData"`
}

// CheckDRM returns ErrDRMProtected when the archive carries DRM. Font
// obfuscation is tolerated; encrypted content documents are not.
func CheckDRM(zr *zip.Reader) error {
	for _, f := range zr.File {
		switch f.Name {
		case "META-INF/rights.xml":
			// Adobe ADEPT marker.
			return ErrDRMProtected
		case "META-INF/encryption.xml":
			encrypted, err := hasEncryptedContent(f)
			if err != nil || encrypted {
				return ErrDRMProtected
			}
		}
	}
	return nil
}

// hasEncryptedContent reports whether encryption.xml declares encryption on
// any content or stylesheet resource.
func hasEncryptedContent(f *zip.File) (bool, error) {
	rc, err := f.Open()
	if err != nil {
		return false, err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return false, err
	}

	var enc encryptionXML
	if err := xml.Unmarshal(data, &enc); err != nil {
		return false, err
	}

	for _, ed := range enc.EncryptedData {
		if isFontObfuscation(ed.EncryptionMethod.Algorithm) {
			continue
		}
		uri := strings.ToLower(ed.CipherData.CipherReference.URI)
		switch {
		case strings.HasSuffix(uri, ".xhtml"),
			strings.HasSuffix(uri, ".html"),
			strings.HasSuffix(uri, ".htm"),
			strings.HasSuffix(uri, ".xml"),
			strings.HasSuffix(uri, ".css"):
			return true, nil
		}
	}
	return false, nil
}

// isFontObfuscation recognizes the Adobe and IDPF font mangling algorithms,
// which are not DRM.
func isFontObfuscation(algorithm string) bool {
	if !strings.Contains(algorithm, "obfuscation") {
		return false
	}
	return strings.Contains(algorithm, "adobe.com") || strings.Contains(algorithm, "idpf.org")
}
