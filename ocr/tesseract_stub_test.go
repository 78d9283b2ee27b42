//go:build !ocr

package ocr

import (
	"context"
	"testing"

	"github.com/FransAris/visio-to-xml/errors"
)

func TestTesseractStubReturnsNotEnabled(t *testing.T) {
	e := NewTesseractEngine()
	if e.Name() != "tesseract" {
		t.Errorf("Name() = %q", e.Name())
	}

	_, err := e.Recognize(context.Background(), Input{Bytes: []byte("img")})
	if !errors.Is(err, errors.ErrCodeOCRUnavailable) {
		t.Errorf("err = %v, want OCR_UNAVAILABLE", err)
	}
}
