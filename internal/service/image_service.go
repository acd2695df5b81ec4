package service

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/jpeg"
	"net/http"
	"strings"

	_ "image/gif" // register GIF decoder
	_ "image/png" // register PNG decoder

	"github.com/chai2010/webp"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // register WebP decoder
)

// Default codec parameters. Post images are downscaled to 600px wide and
// avatars to 300px, both at JPEG quality 50.
const (
	DefaultPostImageWidth = 600
	DefaultAvatarWidth    = 300
	DefaultJPEGQuality    = 50
	WebPQuality           = 70

	maxDecodedPixels = 50_000_000
)

// ImageFormat selects the codec output encoding.
type ImageFormat string

const (
	FormatJPEG ImageFormat = "jpeg"
	FormatWebP ImageFormat = "webp"
)

// ImageService is the image codec collaborator: decode, downscale to a
// target width, re-encode, and emit a self-contained base64 data reference
// the store can hold inside a document.
type ImageService struct {
	postWidth   int
	avatarWidth int
	quality     int
	format      ImageFormat
}

// NewImageService returns a codec with the given widths and JPEG quality.
// Zero values fall back to the defaults.
func NewImageService(postWidth, avatarWidth, quality int) *ImageService {
	if postWidth <= 0 {
		postWidth = DefaultPostImageWidth
	}
	if avatarWidth <= 0 {
		avatarWidth = DefaultAvatarWidth
	}
	if quality <= 0 || quality > 100 {
		quality = DefaultJPEGQuality
	}
	return &ImageService{
		postWidth:   postWidth,
		avatarWidth: avatarWidth,
		quality:     quality,
		format:      FormatJPEG,
	}
}

// WithFormat switches the output encoding. JPEG is the default.
func (s *ImageService) WithFormat(format ImageFormat) *ImageService {
	s.format = format
	return s
}

// EncodePostImage produces a storable reference for a post image.
func (s *ImageService) EncodePostImage(data []byte) (string, error) {
	return s.encode(data, s.postWidth)
}

// EncodeAvatar produces a storable reference for a profile avatar.
func (s *ImageService) EncodeAvatar(data []byte) (string, error) {
	return s.encode(data, s.avatarWidth)
}

func (s *ImageService) encode(data []byte, targetWidth int) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("empty image data")
	}
	if mime := http.DetectContentType(data); !strings.HasPrefix(mime, "image/") {
		return "", fmt.Errorf("not an image: detected %s", mime)
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("decode image: %w", err)
	}
	b := src.Bounds()
	if b.Dx()*b.Dy() > maxDecodedPixels {
		return "", fmt.Errorf("image too large: %dx%d", b.Dx(), b.Dy())
	}

	resized := resizeToWidth(src, targetWidth)

	var buf bytes.Buffer
	var mime string
	switch s.format {
	case FormatWebP:
		mime = "image/webp"
		err = webp.Encode(&buf, resized, &webp.Options{Quality: WebPQuality})
	default:
		mime = "image/jpeg"
		err = jpeg.Encode(&buf, resized, &jpeg.Options{Quality: s.quality})
	}
	if err != nil {
		return "", fmt.Errorf("encode image: %w", err)
	}

	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// resizeToWidth downscales to targetWidth preserving aspect ratio. Images
// already narrower than the target pass through unscaled.
func resizeToWidth(src image.Image, targetWidth int) image.Image {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= targetWidth || w <= 0 || h <= 0 {
		return src
	}

	scale := float64(targetWidth) / float64(w)
	newH := int(float64(h) * scale)
	if newH < 1 {
		newH = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, targetWidth, newH))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, b, xdraw.Over, nil)
	return dst
}
