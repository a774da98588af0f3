package render

// Supported render sizes. The upstream image model only accepts these three
// fixed resolutions.
const (
	SizeSquare    = "1024x1024"
	SizePortrait  = "1024x1536"
	SizeLandscape = "1536x1024"
)

// Supported quality tiers.
const (
	QualityLow    = "low"
	QualityMedium = "medium"
	QualityHigh   = "high"
)

// Supported output formats.
const (
	FormatJPEG = "jpeg"
	FormatPNG  = "png"
)

// MIME types accepted for source and reference images.
const (
	MIMEPNG  = "image/png"
	MIMEJPEG = "image/jpeg"
)

// MaxReferenceImages bounds the reference collection per request.
const MaxReferenceImages = 4

// Settings is the normalized, validated bundle of render options forwarded to
// the image provider. OutputCompression is only meaningful (and only set) when
// OutputFormat is jpeg.
type Settings struct {
	Size              string
	Quality           string
	OutputFormat      string
	OutputCompression int
	HasCompression    bool
}

// MIMEType reports the media type of the image the provider will return for
// these settings.
func (s Settings) MIMEType() string {
	if s.OutputFormat == FormatJPEG {
		return MIMEJPEG
	}
	return MIMEPNG
}

func validSize(size string) bool {
	switch size {
	case SizeSquare, SizePortrait, SizeLandscape:
		return true
	}
	return false
}

func validQuality(quality string) bool {
	switch quality {
	case QualityLow, QualityMedium, QualityHigh:
		return true
	}
	return false
}

func validFormat(format string) bool {
	switch format {
	case FormatJPEG, FormatPNG:
		return true
	}
	return false
}

func validImageMIME(mime string) bool {
	switch mime {
	case MIMEPNG, MIMEJPEG:
		return true
	}
	return false
}
