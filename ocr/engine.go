// Package ocr recognizes text in diagram media and feeds it back into
// shape labels.
//
// Recognition runs through the [Engine] interface. Two engines ship with
// the package: [TesseractEngine] wraps a local Tesseract install via
// gosseract and is only functional when built with the "ocr" tag, and
// [VisionEngine] calls a hosted vision model over HTTP. [CachingEngine]
// wraps either with a file cache. [Enricher] orchestrates recognition
// over a whole diagram.
//
// To enable the Tesseract engine, rebuild with the "ocr" build tag:
//
//	go build -tags ocr
//
// This requires Tesseract to be installed. On macOS:
//
//	brew install tesseract
//
// On Ubuntu/Debian:
//
//	apt-get install tesseract-ocr
package ocr

import (
	"context"

	"github.com/FransAris/visio-to-xml/errors"
)

// ErrNotEnabled is returned by engines whose backend is not compiled in or
// not configured. Callers treat it as "no recognition available", never as
// a failure of the input.
var ErrNotEnabled = errors.New(errors.ErrCodeOCRUnavailable,
	"ocr support not enabled; rebuild with -tags ocr or configure a vision api key")

// Input is one image submitted for recognition.
type Input struct {
	// ID identifies the submission in logs and diagnostics.
	ID string
	// Bytes is the encoded image.
	Bytes []byte
	// MIME declares the image content type, image/png when empty.
	MIME string
	// Languages lists language hints, engine-specific interpretation.
	Languages []string
}

// Result is the recognition outcome for one input.
type Result struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

// Engine recognizes text in a single image. Implementations must be safe
// for concurrent use.
type Engine interface {
	Name() string
	Recognize(ctx context.Context, img Input) (Result, error)
}
