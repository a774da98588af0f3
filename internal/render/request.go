package render

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// Kind distinguishes the two provider calls a validated request can produce.
type Kind string

const (
	KindGenerate Kind = "generate"
	KindEdit     Kind = "edit"
)

// Image is a decoded image payload bound for the provider.
type Image struct {
	Name     string
	MIMEType string
	Data     []byte
}

// Request is a fully normalized render request ready for dispatch. For
// KindEdit, Images holds the source image first, followed by any references.
type Request struct {
	Kind     Kind
	Prompt   string
	Settings Settings
	Images   []Image
}

// ReferenceImageInput is one entry of the optional reference collection as it
// arrives on the wire.
type ReferenceImageInput struct {
	Name     string `json:"name"`
	MIMEType string `json:"mime_type"`
	B64      string `json:"b64"`
}

// GenerateInput is the untrusted body of a generate request.
// OutputCompression is deliberately untyped: a string or fractional value must
// be reported as a compression error, not a decode failure.
type GenerateInput struct {
	Prompt            string                `json:"prompt"`
	Size              string                `json:"size"`
	Quality           string                `json:"quality"`
	OutputFormat      string                `json:"output_format"`
	OutputCompression any                   `json:"output_compression"`
	ReferenceImages   []ReferenceImageInput `json:"reference_images"`
}

// EditInput is the untrusted body of an edit request.
type EditInput struct {
	Prompt            string                `json:"prompt"`
	Size              string                `json:"size"`
	Quality           string                `json:"quality"`
	OutputFormat      string                `json:"output_format"`
	OutputCompression any                   `json:"output_compression"`
	ImageB64          string                `json:"image_b64"`
	ImageMIMEType     string                `json:"image_mime_type"`
	ReferenceImages   []ReferenceImageInput `json:"reference_images"`
}

// BuildGenerate validates a generate request and produces the normalized form.
// When reference images are supplied the request becomes an edit-style call
// that uses the references as its image list; otherwise it is pure generation.
func BuildGenerate(in GenerateInput) (*Request, error) {
	prompt, settings, err := validateCommon(in.Prompt, in.Size, in.Quality, in.OutputFormat, in.OutputCompression)
	if err != nil {
		return nil, err
	}

	refs, err := validateReferences(in.ReferenceImages)
	if err != nil {
		return nil, err
	}

	req := &Request{Kind: KindGenerate, Prompt: prompt, Settings: settings}
	if len(refs) > 0 {
		req.Kind = KindEdit
		req.Images = refs
	}
	return req, nil
}

// BuildEdit validates an edit request. The source image is mandatory; its MIME
// type is normalized to image/png when missing or unrecognized. References are
// validated exactly like on the generate path and appended after the source.
func BuildEdit(in EditInput) (*Request, error) {
	prompt, settings, err := validateCommon(in.Prompt, in.Size, in.Quality, in.OutputFormat, in.OutputCompression)
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(in.ImageB64) == "" {
		return nil, invalidf("image_b64", "missing source image")
	}
	data, err := base64.StdEncoding.DecodeString(in.ImageB64)
	if err != nil || len(data) == 0 {
		return nil, invalidf("image_b64", "source image is empty or not valid base64")
	}

	refs, err := validateReferences(in.ReferenceImages)
	if err != nil {
		return nil, err
	}

	images := make([]Image, 0, 1+len(refs))
	images = append(images, Image{
		Name:     "source",
		MIMEType: NormalizeSourceMIME(in.ImageMIMEType),
		Data:     data,
	})
	images = append(images, refs...)

	return &Request{Kind: KindEdit, Prompt: prompt, Settings: settings, Images: images}, nil
}

// NormalizeSourceMIME falls back to image/png for a missing or unrecognized
// edit source MIME type. Reference images do not get this leniency; their MIME
// types reject instead.
func NormalizeSourceMIME(mime string) string {
	if validImageMIME(mime) {
		return mime
	}
	return MIMEPNG
}

func validateCommon(prompt, size, quality, format string, compression any) (string, Settings, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", Settings{}, invalidf("prompt", "missing prompt")
	}
	if !validSize(size) {
		return "", Settings{}, invalidf("size", "invalid size %q: must be one of %s, %s, %s", size, SizeSquare, SizePortrait, SizeLandscape)
	}
	if !validQuality(quality) {
		return "", Settings{}, invalidf("quality", "invalid quality %q: must be low, medium, or high", quality)
	}
	if !validFormat(format) {
		return "", Settings{}, invalidf("output_format", "invalid output format %q: must be jpeg or png", format)
	}

	settings := Settings{Size: size, Quality: quality, OutputFormat: format}
	if format == FormatJPEG {
		level, err := compressionLevel(compression)
		if err != nil {
			return "", Settings{}, err
		}
		settings.OutputCompression = level
		settings.HasCompression = true
	}
	return prompt, settings, nil
}

// compressionLevel enforces that output_compression is a well-formed integer in
// [0,100]. JSON numbers arrive as float64, so integrality is checked explicitly;
// strings and other shapes are rejected outright.
func compressionLevel(v any) (int, error) {
	f, ok := v.(float64)
	if !ok || f != float64(int(f)) {
		return 0, invalidf("output_compression", "output_compression must be an integer between 0 and 100 for jpeg output")
	}
	level := int(f)
	if level < 0 || level > 100 {
		return 0, invalidf("output_compression", "output_compression must be between 0 and 100, got %d", level)
	}
	return level, nil
}

func validateReferences(refs []ReferenceImageInput) ([]Image, error) {
	if len(refs) == 0 {
		return nil, nil
	}
	if len(refs) > MaxReferenceImages {
		return nil, invalidf("reference_images", "too many reference images: %d exceeds the maximum of %d", len(refs), MaxReferenceImages)
	}

	out := make([]Image, 0, len(refs))
	for i, ref := range refs {
		name := strings.TrimSpace(ref.Name)
		if name == "" {
			name = fmt.Sprintf("reference %d", i+1)
		}
		if !validImageMIME(ref.MIMEType) {
			return nil, invalidf("reference_images", "reference image %q has unsupported type %q: must be image/png or image/jpeg", name, ref.MIMEType)
		}
		data, err := base64.StdEncoding.DecodeString(ref.B64)
		if err != nil || len(data) == 0 {
			return nil, invalidf("reference_images", "reference image %q is empty or not valid base64", name)
		}
		out = append(out, Image{Name: name, MIMEType: ref.MIMEType, Data: data})
	}
	return out, nil
}
