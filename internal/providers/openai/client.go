// Package openai is a small raw-HTTP client for the OpenAI image API. It
// performs exactly one synchronous call per render request and never retries.
package openai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"imagestudio/internal/render"
)

// Options controls how the client is configured.
type Options struct {
	APIKey     string
	BaseURL    string
	Model      string
	HTTPClient *http.Client
	Logger     zerolog.Logger
}

// Client dispatches validated render requests to the image provider.
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
	logger     zerolog.Logger
}

// Image is the decoded payload extracted from a provider response.
type Image struct {
	Data     []byte
	MIMEType string
}

// NewClient constructs a client with sane defaults. Callers may provide a nil
// HTTP client; one with a generous timeout is created, since image renders
// routinely take tens of seconds.
func NewClient(opts Options) *Client {
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 120 * time.Second}
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}

	model := opts.Model
	if model == "" {
		model = "gpt-image-1"
	}

	return &Client{
		apiKey:     strings.TrimSpace(opts.APIKey),
		baseURL:    baseURL,
		model:      model,
		httpClient: client,
		logger:     opts.Logger,
	}
}

// Model returns the configured image model identifier.
func (c *Client) Model() string {
	return c.model
}

// Render performs the single provider call a validated request maps to and
// returns the first image payload. A success response that carries no image
// reports ErrNoImage so callers can distinguish it from provider failures.
func (c *Client) Render(ctx context.Context, req *render.Request) (*Image, error) {
	var (
		resp *imagesResponse
		err  error
	)
	switch req.Kind {
	case render.KindEdit:
		resp, err = c.edit(ctx, req)
	default:
		resp, err = c.generate(ctx, req)
	}
	if err != nil {
		return nil, err
	}

	for _, entry := range resp.Data {
		if entry.B64JSON == "" {
			continue
		}
		data, decErr := base64.StdEncoding.DecodeString(entry.B64JSON)
		if decErr != nil || len(data) == 0 {
			continue
		}
		c.logger.Debug().
			Str("model", c.model).
			Str("kind", string(req.Kind)).
			Int("bytes", len(data)).
			Msg("openai: image rendered")
		return &Image{Data: data, MIMEType: req.Settings.MIMEType()}, nil
	}
	return nil, ErrNoImage
}

type generationPayload struct {
	Model             string `json:"model"`
	Prompt            string `json:"prompt"`
	Size              string `json:"size"`
	Quality           string `json:"quality,omitempty"`
	OutputFormat      string `json:"output_format,omitempty"`
	OutputCompression *int   `json:"output_compression,omitempty"`
}

type imagesResponse struct {
	Data []struct {
		B64JSON string `json:"b64_json"`
	} `json:"data"`
}

func (c *Client) generate(ctx context.Context, req *render.Request) (*imagesResponse, error) {
	payload := generationPayload{
		Model:        c.model,
		Prompt:       req.Prompt,
		Size:         req.Settings.Size,
		Quality:      req.Settings.Quality,
		OutputFormat: req.Settings.OutputFormat,
	}
	if req.Settings.HasCompression {
		level := req.Settings.OutputCompression
		payload.OutputCompression = &level
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/images/generations", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	return c.do(httpReq)
}

// edit sends a multipart request with the image list in order: the edit source
// (or the reference set on a generate-with-references call) first.
func (c *Client) edit(ctx context.Context, req *render.Request) (*imagesResponse, error) {
	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)

	fields := map[string]string{
		"model":         c.model,
		"prompt":        req.Prompt,
		"size":          req.Settings.Size,
		"quality":       req.Settings.Quality,
		"output_format": req.Settings.OutputFormat,
	}
	if req.Settings.HasCompression {
		fields["output_compression"] = strconv.Itoa(req.Settings.OutputCompression)
	}
	for name, value := range fields {
		if err := form.WriteField(name, value); err != nil {
			return nil, fmt.Errorf("write form field %s: %w", name, err)
		}
	}

	for i, img := range req.Images {
		part, err := form.CreatePart(imagePartHeader(i, img))
		if err != nil {
			return nil, fmt.Errorf("create image part: %w", err)
		}
		if _, err := part.Write(img.Data); err != nil {
			return nil, fmt.Errorf("write image part: %w", err)
		}
	}
	if err := form.Close(); err != nil {
		return nil, fmt.Errorf("finalize form: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/images/edits", &buf)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", form.FormDataContentType())

	return c.do(httpReq)
}

func imagePartHeader(index int, img render.Image) textproto.MIMEHeader {
	filename := img.Name
	if filename == "" {
		filename = fmt.Sprintf("image-%d", index+1)
	}
	ext := ".png"
	if img.MIMEType == render.MIMEJPEG {
		ext = ".jpg"
	}
	if !strings.Contains(filename, ".") {
		filename += ext
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="image[]"; filename=%q`, filename))
	h.Set("Content-Type", img.MIMEType)
	return h
}

func (c *Client) do(req *http.Request) (*imagesResponse, error) {
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("invoke image api: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, c.apiError(resp)
	}

	var out imagesResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode image api response: %w", err)
	}
	return &out, nil
}

type errorBody struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error"`
	RequestID string `json:"request_id"`
}

func (c *Client) apiError(resp *http.Response) error {
	apiErr := &APIError{
		StatusCode: resp.StatusCode,
		RequestID:  resp.Header.Get("x-request-id"),
	}

	data, _ := io.ReadAll(resp.Body)
	var body errorBody
	if err := json.Unmarshal(data, &body); err == nil && body.Error.Message != "" {
		apiErr.Message = body.Error.Message
		if apiErr.RequestID == "" {
			apiErr.RequestID = body.RequestID
		}
	} else if msg := strings.TrimSpace(string(data)); msg != "" {
		apiErr.Message = msg
	}

	c.logger.Warn().
		Int("status", apiErr.StatusCode).
		Str("request_id", apiErr.RequestID).
		Str("model", c.model).
		Msg("openai: image request failed")

	return apiErr
}
