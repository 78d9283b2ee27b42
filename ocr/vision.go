package ocr

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/FransAris/visio-to-xml/errors"
)

const (
	visionModel  = "pixtral-12b-2409"
	visionPrompt = "extract all text from this image. return only the text content, no descriptions or explanations."

	// The chat API reports no confidence of its own.
	visionConfidence = 0.9
)

// VisionEngine recognizes text through a hosted vision model speaking the
// chat-completions dialect. Transport errors and 5xx responses retry with
// exponential backoff; other failures return immediately.
type VisionEngine struct {
	apiURL string
	apiKey string
	model  string
	http   *http.Client

	retryAttempts int
	retryDelay    time.Duration
}

// VisionOption configures a VisionEngine.
type VisionOption func(*VisionEngine)

// WithVisionModel overrides the model name sent with each request.
func WithVisionModel(model string) VisionOption {
	return func(e *VisionEngine) { e.model = model }
}

// WithVisionHTTPClient substitutes the HTTP client.
func WithVisionHTTPClient(c *http.Client) VisionOption {
	return func(e *VisionEngine) { e.http = c }
}

// WithVisionRetry adjusts the retry policy for transient failures.
func WithVisionRetry(attempts int, delay time.Duration) VisionOption {
	return func(e *VisionEngine) {
		e.retryAttempts = attempts
		e.retryDelay = delay
	}
}

// NewVisionEngine constructs an engine against the given API base URL,
// such as https://api.mistral.ai/v1.
func NewVisionEngine(apiURL, apiKey string, opts ...VisionOption) *VisionEngine {
	e := &VisionEngine{
		apiURL:        strings.TrimRight(apiURL, "/"),
		apiKey:        apiKey,
		model:         visionModel,
		http:          &http.Client{Timeout: 30 * time.Second},
		retryAttempts: 3,
		retryDelay:    time.Second,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *VisionEngine) Name() string { return "vision" }

type visionRequest struct {
	Model       string          `json:"model"`
	Messages    []visionMessage `json:"messages"`
	MaxTokens   int             `json:"max_tokens"`
	Temperature float64         `json:"temperature"`
}

type visionMessage struct {
	Role    string          `json:"role"`
	Content []visionContent `json:"content"`
}

type visionContent struct {
	Type     string          `json:"type"`
	Text     string          `json:"text,omitempty"`
	ImageURL *visionImageURL `json:"image_url,omitempty"`
}

type visionImageURL struct {
	URL string `json:"url"`
}

type visionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Recognize submits the image as a base64 data URL and returns the model's
// reply as recognized text.
func (e *VisionEngine) Recognize(ctx context.Context, img Input) (Result, error) {
	if e.apiKey == "" {
		return Result{}, ErrNotEnabled
	}

	mime := img.MIME
	if mime == "" {
		mime = "image/png"
	}
	payload := visionRequest{
		Model: e.model,
		Messages: []visionMessage{{
			Role: "user",
			Content: []visionContent{
				{Type: "text", Text: visionPrompt},
				{Type: "image_url", ImageURL: &visionImageURL{
					URL: fmt.Sprintf("data:%s;base64,%s", mime, base64.StdEncoding.EncodeToString(img.Bytes)),
				}},
			},
		}},
		MaxTokens:   1000,
		Temperature: 0.1,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return Result{}, errors.Wrap(errors.ErrCodeOCR, err, "encoding request")
	}

	var out visionResponse
	err = retry(ctx, e.retryAttempts, e.retryDelay, func() error {
		return e.post(ctx, e.apiURL+"/chat/completions", body, &out)
	})
	if err != nil {
		return Result{}, err
	}
	if len(out.Choices) == 0 {
		return Result{}, errors.New(errors.ErrCodeOCR, "vision response carries no choices")
	}

	return Result{
		Text:       strings.TrimSpace(out.Choices[0].Message.Content),
		Confidence: visionConfidence,
	}, nil
}

// Ping reports whether the API answers on its model listing endpoint.
func (e *VisionEngine) Ping(ctx context.Context) error {
	if e.apiKey == "" {
		return ErrNotEnabled
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.apiURL+"/models", nil)
	if err != nil {
		return errors.Wrap(errors.ErrCodeOCR, err, "building request")
	}
	req.Header.Set("Authorization", "Bearer "+e.apiKey)

	resp, err := e.http.Do(req)
	if err != nil {
		return errors.Wrap(errors.ErrCodeNetwork, err, "calling vision api")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return errors.New(errors.ErrCodeOCRUnavailable, "vision api status %d", resp.StatusCode)
	}
	return nil
}

func (e *VisionEngine) post(ctx context.Context, url string, body []byte, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(errors.ErrCodeOCR, err, "building request")
	}
	req.Header.Set("Authorization", "Bearer "+e.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.http.Do(req)
	if err != nil {
		return &retryableError{err: errors.Wrap(errors.ErrCodeNetwork, err, "calling vision api")}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return &retryableError{err: errors.New(errors.ErrCodeNetwork, "vision api status %d", resp.StatusCode)}
	}
	if resp.StatusCode != http.StatusOK {
		return errors.New(errors.ErrCodeOCR, "vision api status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(v)
}
