// Package qrimg renders customer entry tokens as QR PNG images. The
// images are linked from WhatsApp messages, so the serving endpoint is
// public and the token is the only secret.
package qrimg

import (
	"fmt"
	"strings"

	qrcode "github.com/skip2/go-qrcode"
)

const defaultSize = 512

// PNG renders the token as a QR code PNG.
func PNG(token string) ([]byte, error) {
	if strings.TrimSpace(token) == "" {
		return nil, fmt.Errorf("qr token must not be empty")
	}
	image, err := qrcode.Encode(token, qrcode.Medium, defaultSize)
	if err != nil {
		return nil, fmt.Errorf("encode qr image: %w", err)
	}
	return image, nil
}

// ImageURL builds the public URL a customer uses to fetch their code.
func ImageURL(publicBaseURL string, token string) string {
	return strings.TrimRight(publicBaseURL, "/") + "/qr/" + token + ".png"
}
