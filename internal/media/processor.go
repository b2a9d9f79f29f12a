// Package media normalises uploaded images and stores them in the object
// store.
package media

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"image"
	"io"
	"strings"

	"github.com/disintegration/imaging"

	"github.com/StormyOasis/linsta-sub001/internal/config"
	"github.com/StormyOasis/linsta-sub001/internal/idgen"
	pkglog "github.com/StormyOasis/linsta-sub001/pkg/log"
	"github.com/StormyOasis/linsta-sub001/pkg/storage"
)

// ErrInvalidImage is returned when an upload cannot be decoded as an image.
var ErrInvalidImage = errors.New("invalid image")

const contentTypeJPEG = "image/jpeg"

// Stored describes an image written to the object store.
type Stored struct {
	Key      string
	URL      string
	Hash     string
	MimeType string
	Width    int
	Height   int
}

// Processor resizes images and uploads them.
type Processor struct {
	store storage.Storage
	ids   idgen.Generator
	cfg   config.MediaConfig
}

func NewProcessor(store storage.Storage, ids idgen.Generator, cfg config.MediaConfig) *Processor {
	if cfg.PostMaxWidth <= 0 {
		cfg.PostMaxWidth = 1080
	}
	if cfg.PhotoSize <= 0 {
		cfg.PhotoSize = 320
	}
	if cfg.JPEGQuality <= 0 {
		cfg.JPEGQuality = 85
	}
	if cfg.MaxPixels <= 0 {
		cfg.MaxPixels = 40_000_000
	}
	return &Processor{store: store, ids: ids, cfg: cfg}
}

// StorePostImage fits the image within the configured width, keeping its
// aspect ratio, and stores it under posts/<userID>/.
func (p *Processor) StorePostImage(ctx context.Context, userID string, r io.Reader) (*Stored, error) {
	img, err := p.decode(r)
	if err != nil {
		return nil, err
	}
	if img.Bounds().Dx() > p.cfg.PostMaxWidth {
		img = imaging.Resize(img, p.cfg.PostMaxWidth, 0, imaging.Lanczos)
	}
	return p.put(ctx, fmt.Sprintf("posts/%s", userID), img)
}

// StoreProfilePhoto crops the image to a centred square and stores it under
// profiles/<userID>/.
func (p *Processor) StoreProfilePhoto(ctx context.Context, userID string, r io.Reader) (*Stored, error) {
	img, err := p.decode(r)
	if err != nil {
		return nil, err
	}
	img = imaging.Fill(img, p.cfg.PhotoSize, p.cfg.PhotoSize, imaging.Center, imaging.Lanczos)
	return p.put(ctx, fmt.Sprintf("profiles/%s", userID), img)
}

// Remove deletes an object. Missing objects are not an error.
func (p *Processor) Remove(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}
	if err := p.store.Delete(ctx, key); err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

// KeyFromURL maps a public URL produced by this store back to its key.
func (p *Processor) KeyFromURL(url string) (string, bool) {
	if r, ok := p.store.(interface{ KeyFromURL(string) (string, bool) }); ok {
		return r.KeyFromURL(url)
	}
	prefix := p.store.URL("")
	if url == "" || !strings.HasPrefix(url, prefix) {
		return "", false
	}
	return strings.TrimPrefix(url, prefix), true
}

// decode checks the declared dimensions before decoding so a small file
// claiming a huge canvas is rejected without allocating it.
func (p *Processor) decode(r io.Reader) (image.Image, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	if px := int64(cfg.Width) * int64(cfg.Height); px > p.cfg.MaxPixels {
		return nil, fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrInvalidImage, cfg.Width, cfg.Height, p.cfg.MaxPixels)
	}
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	return img, nil
}

func (p *Processor) put(ctx context.Context, prefix string, img image.Image) (*Stored, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(p.cfg.JPEGQuality)); err != nil {
		return nil, fmt.Errorf("encode image: %w", err)
	}

	name, err := p.ids.MediaKey()
	if err != nil {
		return nil, err
	}
	key := fmt.Sprintf("%s/%s.jpg", prefix, name)

	sum := sha256.Sum256(buf.Bytes())
	if err := p.store.Write(ctx, key, bytes.NewReader(buf.Bytes()), int64(buf.Len()), contentTypeJPEG); err != nil {
		return nil, fmt.Errorf("upload %s: %w", key, err)
	}

	b := img.Bounds()
	l := pkglog.Ctx(ctx)
	l.Debug().Str("key", key).Int("width", b.Dx()).Int("height", b.Dy()).Msg("stored image")

	return &Stored{
		Key:      key,
		URL:      p.store.URL(key),
		Hash:     hex.EncodeToString(sum[:]),
		MimeType: contentTypeJPEG,
		Width:    b.Dx(),
		Height:   b.Dy(),
	}, nil
}
