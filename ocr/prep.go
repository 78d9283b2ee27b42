package ocr

import (
	"bytes"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"

	"golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	"golang.org/x/image/tiff"

	"github.com/FransAris/visio-to-xml/errors"
)

// DefaultMaxDimension bounds the longer image side before submission.
const DefaultMaxDimension = 2048

// PrepareImage decodes an image, downscales it so neither side exceeds
// maxDim, and re-encodes it as PNG. A maxDim of 0 selects the default.
// Vector media such as EMF and WMF have no decoder and return an
// UNSUPPORTED_FORMAT error so callers can skip them.
func PrepareImage(data []byte, mime string, maxDim int) ([]byte, error) {
	if maxDim <= 0 {
		maxDim = DefaultMaxDimension
	}

	img, err := decodeImage(data, mime)
	if err != nil {
		return nil, err
	}

	b := img.Bounds()
	if b.Dx() > maxDim || b.Dy() > maxDim {
		img = downscale(img, maxDim)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, errors.Wrap(errors.ErrCodeOCR, err, "encoding image")
	}
	return buf.Bytes(), nil
}

func decodeImage(data []byte, mime string) (image.Image, error) {
	var (
		img image.Image
		err error
	)
	switch mime {
	case "image/png":
		img, err = png.Decode(bytes.NewReader(data))
	case "image/jpeg":
		img, err = jpeg.Decode(bytes.NewReader(data))
	case "image/gif":
		img, err = gif.Decode(bytes.NewReader(data))
	case "image/tiff":
		img, err = tiff.Decode(bytes.NewReader(data))
	case "image/bmp", "image/x-ms-bmp":
		img, err = bmp.Decode(bytes.NewReader(data))
	case "image/emf", "image/wmf", "image/x-emf", "image/x-wmf":
		return nil, errors.New(errors.ErrCodeUnsupportedFormat, "no decoder for %s media", mime)
	default:
		img, _, err = image.Decode(bytes.NewReader(data))
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeOCR, err, "decoding image").WithDetail(mime)
	}
	return img, nil
}

// downscale resizes so the longer side equals maxDim, preserving the
// aspect ratio.
func downscale(img image.Image, maxDim int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w >= h {
		h = max(h*maxDim/w, 1)
		w = maxDim
	} else {
		w = max(w*maxDim/h, 1)
		h = maxDim
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	return dst
}
