//go:build ocr

package ocr

import (
	"context"
	"strings"

	"github.com/otiai10/gosseract/v2"

	"github.com/FransAris/visio-to-xml/errors"
)

// TesseractEngine recognizes text through a local Tesseract install. Each
// call uses a fresh gosseract client, which makes the engine safe for
// concurrent use at the cost of per-call setup.
type TesseractEngine struct {
	clientFactory func() *gosseract.Client
}

// NewTesseractEngine constructs a Tesseract-backed engine.
func NewTesseractEngine() *TesseractEngine {
	return &TesseractEngine{clientFactory: gosseract.NewClient}
}

func (e *TesseractEngine) Name() string { return "tesseract" }

// Recognize performs OCR on a single image.
func (e *TesseractEngine) Recognize(ctx context.Context, img Input) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	c := e.clientFactory()
	defer c.Close()

	if err := c.SetImageFromBytes(img.Bytes); err != nil {
		return Result{}, errors.Wrap(errors.ErrCodeOCR, err, "setting image")
	}
	if len(img.Languages) > 0 {
		if err := c.SetLanguage(img.Languages...); err != nil {
			return Result{}, errors.Wrap(errors.ErrCodeOCR, err, "setting languages")
		}
	}

	text, err := c.Text()
	if err != nil {
		return Result{}, errors.Wrap(errors.ErrCodeOCR, err, "recognizing text")
	}

	return Result{
		Text:       strings.TrimSpace(text),
		Confidence: wordConfidence(c),
	}, nil
}

// wordConfidence averages per-word confidences. Tesseract reports
// percentages, results are scaled to 0..1. An image without boxes gets
// full confidence so empty diagrams don't trip the threshold.
func wordConfidence(c *gosseract.Client) float64 {
	boxes, err := c.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil || len(boxes) == 0 {
		return 1
	}
	var sum float64
	for _, b := range boxes {
		sum += b.Confidence / 100.0
	}
	return sum / float64(len(boxes))
}
