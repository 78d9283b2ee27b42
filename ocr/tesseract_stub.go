//go:build !ocr

package ocr

import "context"

// TesseractEngine is the stub compiled when the "ocr" build tag is not
// set. Every recognition returns [ErrNotEnabled].
type TesseractEngine struct{}

// NewTesseractEngine constructs the stub engine. To get a working engine,
// rebuild with: go build -tags ocr
func NewTesseractEngine() *TesseractEngine {
	return &TesseractEngine{}
}

func (e *TesseractEngine) Name() string { return "tesseract" }

// Recognize returns ErrNotEnabled.
func (e *TesseractEngine) Recognize(ctx context.Context, img Input) (Result, error) {
	return Result{}, ErrNotEnabled
}
