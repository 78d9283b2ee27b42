package visio

import (
	"time"

	"github.com/charmbracelet/log"

	"github.com/FransAris/visio-to-xml/ocr"
)

// ConvertOptions holds configuration for diagram conversion.
type ConvertOptions struct {
	// Page selection (1-indexed in API, stored as-is)
	pages []int

	// Recognition settings; engine nil means no enrichment
	engine       ocr.Engine
	threshold    float64
	languages    []string
	concurrency  int
	timeout      time.Duration
	maxImageSize int

	// Emitter settings
	scale     float64 // draw.io pixels per inch, 0 means emitter default
	direction string  // mermaid flow direction, "" means emitter default
	detailed  bool    // include ids and master names in DOT labels

	logger *log.Logger
}

// defaultOptions returns the default conversion options.
func defaultOptions() ConvertOptions {
	return ConvertOptions{
		pages:        nil, // nil means all pages
		engine:       nil, // nil means labels stay as parsed
		threshold:    ocr.DefaultThreshold,
		concurrency:  ocr.DefaultConcurrency,
		timeout:      ocr.DefaultTimeout,
		maxImageSize: ocr.DefaultMaxDimension,
	}
}

// clone creates a deep copy of ConvertOptions.
func (o ConvertOptions) clone() ConvertOptions {
	newOpts := ConvertOptions{
		engine:       o.engine,
		threshold:    o.threshold,
		concurrency:  o.concurrency,
		timeout:      o.timeout,
		maxImageSize: o.maxImageSize,
		scale:        o.scale,
		direction:    o.direction,
		detailed:     o.detailed,
		logger:       o.logger,
	}

	if o.pages != nil {
		newOpts.pages = make([]int, len(o.pages))
		copy(newOpts.pages, o.pages)
	}
	if o.languages != nil {
		newOpts.languages = make([]string, len(o.languages))
		copy(newOpts.languages, o.languages)
	}

	return newOpts
}
