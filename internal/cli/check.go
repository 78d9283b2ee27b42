package cli

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	verrors "github.com/FransAris/visio-to-xml/errors"
	"github.com/FransAris/visio-to-xml/internal/cache"
	"github.com/FransAris/visio-to-xml/internal/config"
	"github.com/FransAris/visio-to-xml/ocr"
)

// pingTimeout bounds the vision API reachability probe.
const pingTimeout = 10 * time.Second

// newCheckCmd creates the check command.
func newCheckCmd(root *rootOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify configuration, cache, and recognition engine health",
		Long: `Verify configuration, cache, and recognition engine health.

Loads the configuration, reports the resolved settings, checks that the
result cache is usable, and probes the configured recognition engine.
The command fails on configuration errors; engine problems are reported
as warnings since conversion works without recognition.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd.Context(), root)
		},
	}
}

func runCheck(ctx context.Context, root *rootOpts) error {
	cfg, err := config.Load(root.configPath)
	if err != nil {
		printError("Configuration invalid: %v", err)
		return err
	}
	printSuccess("Configuration valid")
	printKeyValue("Engine", cfg.OCR.Engine)
	if cfg.OCR.Engine == "vision" {
		printKeyValue("API URL", cfg.OCR.APIURL)
	}
	printKeyValue("Languages", strings.Join(cfg.OCR.Languages, ", "))
	printKeyValue("Threshold", strconv.FormatFloat(cfg.OCR.ConfidenceThreshold, 'g', -1, 64))
	printKeyValue("Timeout", cfg.OCR.Timeout.Duration.String())
	printKeyValue("Output", cfg.Output.Dir+" ("+cfg.Output.Format+")")

	checkCache(cfg)

	printNewline()
	if !cfg.OCR.Enabled {
		printInfo("Recognition disabled, image labels stay as parsed")
		return nil
	}
	switch cfg.OCR.Engine {
	case "tesseract":
		checkTesseract(ctx)
	default:
		checkVision(ctx, cfg)
	}
	return nil
}

// checkCache reports whether the result cache is usable and how full it is.
func checkCache(cfg *config.Config) {
	c, err := cache.New(cfg.Cache.Dir, cfg.Cache.TTL.Duration)
	if err != nil {
		printWarning("Cache unusable: %v", err)
		return
	}
	printKeyValue("Cache", c.Dir())

	stats, err := c.Stats()
	if err != nil {
		printWarning("Cache unreadable: %v", err)
		return
	}
	printKeyValue("Cached", fmt.Sprintf("%d entries, %s", stats.Entries, formatBytes(stats.Bytes)))
}

// checkVision probes the hosted vision API.
func checkVision(ctx context.Context, cfg *config.Config) {
	key := visionAPIKey(cfg)
	if key == "" {
		printWarning("No vision API key, set %sOCR_API_KEY or MISTRAL_API_KEY", config.EnvPrefix)
		return
	}

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	sp := newSpinnerWithContext(ctx, "Checking vision API reachability...")
	sp.Start()
	err := ocr.NewVisionEngine(cfg.OCR.APIURL, key).Ping(ctx)
	if err != nil {
		sp.StopWithError(fmt.Sprintf("Vision API unreachable: %v", err))
		return
	}
	sp.StopWithSuccess("Vision API reachable")
}

// checkTesseract exercises the local engine with a tiny blank image.
func checkTesseract(ctx context.Context) {
	_, err := ocr.NewTesseractEngine().Recognize(ctx, ocr.Input{
		ID:    "probe",
		Bytes: probeImage(),
		MIME:  "image/png",
	})
	switch {
	case err == nil:
		printSuccess("Tesseract available")
	case verrors.Is(err, verrors.ErrCodeOCRUnavailable):
		printWarning("Tesseract support not compiled in, rebuild with -tags ocr")
	default:
		printWarning("Tesseract check failed: %v", err)
	}
}

// probeImage returns a small blank PNG.
func probeImage() []byte {
	img := image.NewGray(image.Rect(0, 0, 8, 8))
	for i := range img.Pix {
		img.Pix[i] = 0xff
	}
	var buf bytes.Buffer
	_ = png.Encode(&buf, img)
	return buf.Bytes()
}
