package providers

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"net/http"
	"strings"
)

// ErrEmptyImage is returned when an image has no bytes.
var ErrEmptyImage = errors.New("providers: empty image")

// Image is the payload sent to a provider.
type Image struct {
	Name     string
	MIMEType string
	Data     []byte
}

// NewImage builds an Image, sniffing the MIME type when mimeType is empty or generic.
func NewImage(name string, data []byte, mimeType string) (Image, error) {
	if len(data) == 0 {
		return Image{}, ErrEmptyImage
	}
	mimeType = strings.TrimSpace(strings.Split(mimeType, ";")[0])
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = http.DetectContentType(data)
	}
	return Image{Name: name, Data: data, MIMEType: mimeType}, nil
}

// Digest returns the hex SHA-256 of the image bytes.
func (i Image) Digest() string {
	sum := sha256.Sum256(i.Data)
	return hex.EncodeToString(sum[:])
}

// Base64 returns the standard base64 encoding of the image bytes.
func (i Image) Base64() string {
	return base64.StdEncoding.EncodeToString(i.Data)
}

// DataURL returns the image as a data: URL.
func (i Image) DataURL() string {
	return "data:" + i.MIMEType + ";base64," + i.Base64()
}
