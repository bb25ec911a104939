package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif" // Register GIF decoder
	"image/jpeg"
	_ "image/png" // Register PNG decoder
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"yatube/internal/config"
	"yatube/internal/middleware"

	"github.com/chai2010/webp"
	"github.com/google/uuid"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // Register WebP decoder
)

const (
	DefaultMediaDir             = "media"
	DefaultImageMaxUploadSizeMB = 5
	MasterMaxSize               = 1280
	JPEGQuality                 = 85
	WebPQuality                 = 75
)

// postImageDir is the media subdirectory holding post images.
const postImageDir = "posts"

var (
	errEmptyImage   = errors.New("The submitted file is empty.")
	errInvalidImage = errors.New("Upload a valid image. The file you uploaded was either not an image or a corrupted image.")
)

// ImageUpload is the raw file submitted in the image form field.
type ImageUpload struct {
	Filename    string
	ContentType string
	Content     []byte
}

// PreparedImage is a decoded upload re-encoded to its stored formats, not yet on disk.
type PreparedImage struct {
	Width  int
	Height int
	jpeg   []byte
	webp   []byte
}

// StoredImage names the files written for one post image, relative to the media root.
type StoredImage struct {
	JPEG string
	WebP string
}

type ImageService struct {
	mediaDir           string
	maxUploadSizeBytes int64
}

func NewImageService(cfg *config.Config) *ImageService {
	mediaDir := DefaultMediaDir
	maxUploadSizeMB := DefaultImageMaxUploadSizeMB

	if cfg != nil {
		if cfg.MediaDir != "" {
			mediaDir = cfg.MediaDir
		}
		if cfg.ImageMaxUploadSizeMB > 0 {
			maxUploadSizeMB = cfg.ImageMaxUploadSizeMB
		}
	}

	return &ImageService{
		mediaDir:           mediaDir,
		maxUploadSizeBytes: int64(maxUploadSizeMB) * 1024 * 1024,
	}
}

// MediaDir is the filesystem root served under /media/.
func (s *ImageService) MediaDir() string {
	return s.mediaDir
}

// Prepare validates and re-encodes an upload. Errors are user-facing messages
// for the image field.
func (s *ImageService) Prepare(in ImageUpload) (*PreparedImage, error) {
	if len(in.Content) == 0 {
		return nil, errEmptyImage
	}
	if int64(len(in.Content)) > s.maxUploadSizeBytes {
		return nil, fmt.Errorf("File too large (max %dMB).", s.maxUploadSizeBytes/(1024*1024))
	}

	if !isAllowedImageMIME(http.DetectContentType(in.Content)) {
		return nil, errInvalidImage
	}

	decoded, _, err := image.Decode(bytes.NewReader(in.Content))
	if err != nil {
		return nil, errInvalidImage
	}

	master := resizeToFit(decoded, MasterMaxSize, MasterMaxSize)

	encodedJPEG, err := encodeJPEG(master, JPEGQuality)
	if err != nil {
		return nil, err
	}
	encodedWebP, err := encodeWebP(master, WebPQuality)
	if err != nil {
		return nil, err
	}

	b := master.Bounds()
	return &PreparedImage{
		Width:  b.Dx(),
		Height: b.Dy(),
		jpeg:   encodedJPEG,
		webp:   encodedWebP,
	}, nil
}

// Store writes a prepared image under MEDIA_DIR/posts with a fresh name.
func (s *ImageService) Store(ctx context.Context, img *PreparedImage) (*StoredImage, error) {
	name := uuid.NewString()
	stored := &StoredImage{
		JPEG: path.Join(postImageDir, name+".jpg"),
		WebP: path.Join(postImageDir, name+".webp"),
	}

	if err := writeBytesToFile(s.abs(stored.JPEG), img.jpeg); err != nil {
		return nil, err
	}
	if err := writeBytesToFile(s.abs(stored.WebP), img.webp); err != nil {
		s.Remove(ctx, stored.JPEG)
		return nil, err
	}
	return stored, nil
}

// Remove deletes a stored post image and its WebP variant. Failures are logged only.
func (s *ImageService) Remove(ctx context.Context, rel string) {
	if rel == "" {
		return
	}
	paths := []string{s.abs(rel), s.abs(WebPVariant(rel))}
	for _, p := range paths {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			middleware.Logger.WarnContext(ctx, "failed to remove image file", "path", p, "error", err.Error())
		}
	}
}

// WebPVariant returns the WebP path stored next to a JPEG master.
func WebPVariant(rel string) string {
	return strings.TrimSuffix(rel, path.Ext(rel)) + ".webp"
}

func (s *ImageService) abs(rel string) string {
	return filepath.Join(s.mediaDir, filepath.FromSlash(rel))
}

func resizeToFit(src image.Image, maxWidth, maxHeight int) image.Image {
	bounds := src.Bounds()
	w := bounds.Dx()
	h := bounds.Dy()
	if w <= 0 || h <= 0 {
		return src
	}
	if w <= maxWidth && h <= maxHeight {
		return src
	}

	scaleW := float64(maxWidth) / float64(w)
	scaleH := float64(maxHeight) / float64(h)
	scale := scaleW
	if scaleH < scale {
		scale = scaleH
	}
	newW := max(int(float64(w)*scale), 1)
	newH := max(int(float64(h)*scale), 1)

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, xdraw.Over, nil)
	return dst
}

func encodeJPEG(img image.Image, quality int) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	if err := jpeg.Encode(buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeWebP(img image.Image, quality int) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	if err := webp.Encode(buf, img, &webp.Options{Quality: float32(quality)}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func isAllowedImageMIME(contentType string) bool {
	switch strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0])) {
	case "image/jpeg", "image/png", "image/gif", "image/webp":
		return true
	default:
		return false
	}
}

func writeBytesToFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
