package qrimg

import (
	"bytes"
	"testing"
)

func TestPNGRendersImage(test *testing.T) {
	test.Parallel()
	image, err := PNG("0f8fad5b-d9cb-469f-a165-70867728950e")
	if err != nil {
		test.Fatalf("png: %v", err)
	}
	if !bytes.HasPrefix(image, []byte("\x89PNG")) {
		test.Fatal("expected png magic bytes")
	}
}

func TestPNGRejectsEmptyToken(test *testing.T) {
	test.Parallel()
	if _, err := PNG("  "); err == nil {
		test.Fatal("expected error for empty token")
	}
}

func TestImageURLJoinsCleanly(test *testing.T) {
	test.Parallel()
	url := ImageURL("https://play.example/", "abc")
	if url != "https://play.example/qr/abc.png" {
		test.Fatalf("unexpected url %q", url)
	}
}
