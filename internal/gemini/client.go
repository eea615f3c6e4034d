package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/time/rate"
)

const (
	defaultBaseURL    = "https://generativelanguage.googleapis.com"
	defaultAPIVersion = "v1beta"
	defaultTextModel  = "gemini-2.0-flash"
	defaultImageModel = "gemini-2.0-flash-preview-image-generation"
)

var (
	// ErrBadCredentials marks a request the backend refused because of
	// the API key.
	ErrBadCredentials = errors.New("bad api credentials")

	// ErrMalformedResponse marks a 2xx reply whose body did not carry the
	// expected content.
	ErrMalformedResponse = errors.New("malformed gemini response")
)

// APIError is a non-2xx backend reply that is not a credentials problem.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("gemini API status %d: %s", e.StatusCode, e.Message)
}

type Options struct {
	BaseURL    string
	APIVersion string
	TextModel  string
	ImageModel string
	HTTPClient *http.Client
	Logger     *slog.Logger
	Limiter    *rate.Limiter
}

// Client is a single-shot Gemini REST client. The API key belongs to the
// caller and is passed per call, never stored and never logged.
type Client struct {
	baseURL    string
	apiVersion string
	textModel  string
	imageModel string
	httpClient *http.Client
	logger     *slog.Logger
	limiter    *rate.Limiter
}

func New(opts Options) *Client {
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	apiVersion := strings.TrimSpace(opts.APIVersion)
	if apiVersion == "" {
		apiVersion = defaultAPIVersion
	}

	textModel := strings.TrimSpace(opts.TextModel)
	if textModel == "" {
		textModel = defaultTextModel
	}

	imageModel := strings.TrimSpace(opts.ImageModel)
	if imageModel == "" {
		imageModel = defaultImageModel
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Client{
		baseURL:    baseURL,
		apiVersion: apiVersion,
		textModel:  textModel,
		imageModel: imageModel,
		httpClient: opts.HTTPClient,
		logger:     logger,
		limiter:    opts.Limiter,
	}
}

// GenerateText runs one text generation call and returns the text of the
// first part of the first candidate. One attempt, no retry.
func (c *Client) GenerateText(ctx context.Context, apiKey, prompt string) (string, error) {
	req := generateContentRequest{
		Contents: []content{{Parts: []Part{{Text: prompt}}}},
	}

	decoded, err := c.generateContent(ctx, c.textModel, apiKey, req)
	if err != nil {
		return "", err
	}

	if len(decoded.Candidates) == 0 || len(decoded.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("%w: no candidate content", ErrMalformedResponse)
	}
	text := decoded.Candidates[0].Content.Parts[0].Text
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%w: empty candidate text", ErrMalformedResponse)
	}
	return text, nil
}

// GenerateImage runs one image generation call and returns the parts of
// the first candidate. The image endpoint wants both modalities requested
// even when only the image is used.
func (c *Client) GenerateImage(ctx context.Context, apiKey, prompt string) (Response, error) {
	req := generateContentRequest{
		Contents: []content{{Parts: []Part{{Text: prompt}}}},
		GenerationConfig: &generationConfig{
			ResponseModalities: []string{"IMAGE", "TEXT"},
		},
	}

	decoded, err := c.generateContent(ctx, c.imageModel, apiKey, req)
	if err != nil {
		return Response{}, err
	}

	if len(decoded.Candidates) == 0 {
		return Response{}, fmt.Errorf("%w: no candidates", ErrMalformedResponse)
	}
	return Response{Parts: decoded.Candidates[0].Content.Parts}, nil
}

func (c *Client) generateContent(ctx context.Context, model, apiKey string, payload generateContentRequest) (generateContentResponse, error) {
	if c.httpClient == nil {
		return generateContentResponse{}, errors.New("http client is nil")
	}
	if strings.TrimSpace(apiKey) == "" {
		return generateContentResponse{}, fmt.Errorf("%w: empty api key", ErrBadCredentials)
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return generateContentResponse{}, fmt.Errorf("rate limit wait: %w", err)
		}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return generateContentResponse{}, fmt.Errorf("marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/%s/models/%s:generateContent?key=%s",
		c.baseURL, c.apiVersion, model, url.QueryEscape(apiKey))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return generateContentResponse{}, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("content-type", "application/json")

	c.logger.Debug("gemini request", "model", model)

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return generateContentResponse{}, fmt.Errorf("request: %w", err)
	}
	defer httpResp.Body.Close()

	rawBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return generateContentResponse{}, fmt.Errorf("read response: %w", err)
	}

	if httpResp.StatusCode >= 400 {
		msg := strings.TrimSpace(string(rawBody))
		if isBadKeyReply(httpResp.StatusCode, msg) {
			return generateContentResponse{}, fmt.Errorf("%w: status %d", ErrBadCredentials, httpResp.StatusCode)
		}
		return generateContentResponse{}, &APIError{StatusCode: httpResp.StatusCode, Message: msg}
	}

	var decoded generateContentResponse
	if err := json.Unmarshal(rawBody, &decoded); err != nil {
		return generateContentResponse{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return decoded, nil
}

// isBadKeyReply spots key rejections. The backend answers 400 with an
// explanatory body for malformed keys and 401/403 for revoked ones.
func isBadKeyReply(status int, body string) bool {
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		return true
	}
	return status == http.StatusBadRequest &&
		(strings.Contains(body, "API key not valid") || strings.Contains(body, "API_KEY_INVALID"))
}

type generateContentRequest struct {
	Contents         []content         `json:"contents"`
	GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
}

type generationConfig struct {
	ResponseModalities []string `json:"responseModalities,omitempty"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []Part `json:"parts"`
}

type generateContentResponse struct {
	Candidates []candidate `json:"candidates"`
}

type candidate struct {
	Content content `json:"content"`
}
