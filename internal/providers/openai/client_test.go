package openai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"imagestudio/internal/render"
)

var fakeImage = []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a}

func b64Response(payloads ...string) string {
	entries := make([]map[string]string, len(payloads))
	for i, p := range payloads {
		entries[i] = map[string]string{"b64_json": p}
	}
	body, _ := json.Marshal(map[string]any{"data": entries})
	return string(body)
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Options{
		APIKey:  "sk-test",
		BaseURL: srv.URL,
		Logger:  zerolog.Nop(),
	})
}

func generateRequest(t *testing.T, format string, compression any) *render.Request {
	t.Helper()
	req, err := render.BuildGenerate(render.GenerateInput{
		Prompt:            "a red fox",
		Size:              render.SizeSquare,
		Quality:           render.QualityLow,
		OutputFormat:      format,
		OutputCompression: compression,
	})
	require.NoError(t, err)
	return req
}

func TestRenderGenerateSuccess(t *testing.T) {
	var got generationPayload
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/images/generations", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(b64Response(base64.StdEncoding.EncodeToString(fakeImage))))
	})

	img, err := client.Render(context.Background(), generateRequest(t, render.FormatPNG, nil))
	require.NoError(t, err)
	assert.Equal(t, fakeImage, img.Data)
	assert.Equal(t, render.MIMEPNG, img.MIMEType)

	assert.Equal(t, "gpt-image-1", got.Model)
	assert.Equal(t, "a red fox", got.Prompt)
	assert.Equal(t, render.SizeSquare, got.Size)
	assert.Equal(t, render.QualityLow, got.Quality)
	assert.Equal(t, render.FormatPNG, got.OutputFormat)
	assert.Nil(t, got.OutputCompression, "compression must not be forwarded for png")
}

func TestRenderGenerateForwardsJPEGCompression(t *testing.T) {
	var got generationPayload
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(b64Response(base64.StdEncoding.EncodeToString(fakeImage))))
	})

	img, err := client.Render(context.Background(), generateRequest(t, render.FormatJPEG, float64(80)))
	require.NoError(t, err)
	assert.Equal(t, render.MIMEJPEG, img.MIMEType)

	require.NotNil(t, got.OutputCompression)
	assert.Equal(t, 80, *got.OutputCompression)
}

func TestRenderNoImageReturned(t *testing.T) {
	testCases := []struct {
		name string
		body string
	}{
		{"empty data", `{"data":[]}`},
		{"entry without payload", b64Response("")},
		{"undecodable payload", b64Response("!!not-base64!!")},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(tc.body))
			})

			_, err := client.Render(context.Background(), generateRequest(t, render.FormatPNG, nil))
			require.ErrorIs(t, err, ErrNoImage)
		})
	}
}

func TestRenderProviderError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("x-request-id", "req_123")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"Your request was rejected as a result of our safety system.","type":"invalid_request_error"}}`))
	})

	_, err := client.Render(context.Background(), generateRequest(t, render.FormatPNG, nil))
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "req_123", apiErr.RequestID)

	msg := apiErr.Error()
	assert.Contains(t, msg, "status 400")
	assert.Contains(t, msg, "req_123")
	assert.Contains(t, msg, "simpler wording")
}

func TestRenderProviderErrorWithoutSafetyGuidance(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"message":"The server had an error processing your request."}}`))
	})

	_, err := client.Render(context.Background(), generateRequest(t, render.FormatPNG, nil))
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "simpler wording")
}

func TestRenderTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	client := NewClient(Options{APIKey: "sk-test", BaseURL: srv.URL, Logger: zerolog.Nop()})
	srv.Close()

	_, err := client.Render(context.Background(), generateRequest(t, render.FormatPNG, nil))
	require.Error(t, err)
	var apiErr *APIError
	assert.False(t, errors.As(err, &apiErr), "transport failures are not provider rejections")
}

func TestRenderEditMultipart(t *testing.T) {
	var (
		fields    map[string]string
		filenames []string
		mimes     []string
	)
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/images/edits", r.URL.Path)
		assert.True(t, strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data"))
		require.NoError(t, r.ParseMultipartForm(16<<20))
		fields = map[string]string{}
		for name, values := range r.MultipartForm.Value {
			fields[name] = values[0]
		}
		for _, part := range r.MultipartForm.File["image[]"] {
			filenames = append(filenames, part.Filename)
			mimes = append(mimes, part.Header.Get("Content-Type"))
		}
		_, _ = w.Write([]byte(b64Response(base64.StdEncoding.EncodeToString(fakeImage))))
	})

	source := base64.StdEncoding.EncodeToString(fakeImage)
	req, err := render.BuildEdit(render.EditInput{
		Prompt:            "make it blue",
		Size:              render.SizeLandscape,
		Quality:           render.QualityHigh,
		OutputFormat:      render.FormatJPEG,
		OutputCompression: float64(90),
		ImageB64:          source,
		ImageMIMEType:     render.MIMEJPEG,
		ReferenceImages: []render.ReferenceImageInput{
			{Name: "ref.png", MIMEType: render.MIMEPNG, B64: source},
		},
	})
	require.NoError(t, err)

	img, err := client.Render(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, render.MIMEJPEG, img.MIMEType)

	assert.Equal(t, "make it blue", fields["prompt"])
	assert.Equal(t, render.SizeLandscape, fields["size"])
	assert.Equal(t, render.QualityHigh, fields["quality"])
	assert.Equal(t, render.FormatJPEG, fields["output_format"])
	assert.Equal(t, "90", fields["output_compression"])

	require.Len(t, filenames, 2, "source plus one reference")
	assert.Equal(t, "source.jpg", filenames[0], "source image must come first")
	assert.Equal(t, render.MIMEJPEG, mimes[0])
	assert.Equal(t, "ref.png", filenames[1])
	assert.Equal(t, render.MIMEPNG, mimes[1])
}
