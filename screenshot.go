package fairy

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"
)

// Screenshot queues a labeled capture of the next rendered frame. The PNG is
// written to StageConfig.ScreenshotDir with a timestamped filename.
func (s *Stage) Screenshot(label string) {
	s.screenshotQueue = append(s.screenshotQueue, label)
}

// flushScreenshots reads the rendered frame back from dst once and writes it
// for every queued label.
func (s *Stage) flushScreenshots(dst RenderTarget) {
	if len(s.screenshotQueue) == 0 {
		return
	}
	defer func() { s.screenshotQueue = s.screenshotQueue[:0] }()

	w, h := dst.Width(), dst.Height()
	if w <= 0 || h <= 0 {
		return
	}
	if err := os.MkdirAll(s.cfg.ScreenshotDir, 0o755); err != nil {
		pkgLogger.Error("fairy: screenshot", "dir", s.cfg.ScreenshotDir, "err", err)
		return
	}
	pixels := make([]byte, 4*w*h)
	dst.ReadPixels(pixels)
	img := unpremultiply(pixels, w, h)

	stamp := time.Now().Format("20060102_150405")
	for _, label := range s.screenshotQueue {
		path := filepath.Join(s.cfg.ScreenshotDir, fmt.Sprintf("%s_%s.png", stamp, sanitizeLabel(label)))
		if err := writePNG(path, img); err != nil {
			pkgLogger.Error("fairy: screenshot", "err", err)
		}
	}
}

// unpremultiply converts premultiplied RGBA pixels to straight-alpha NRGBA.
// Fully opaque and fully transparent pixels are copied unchanged.
func unpremultiply(pixels []byte, w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	n := min(len(pixels), len(img.Pix))
	copy(img.Pix, pixels[:n])
	for i := 0; i+3 < n; i += 4 {
		px := img.Pix[i : i+4 : i+4]
		a := int(px[3])
		if a == 0 || a == 255 {
			continue
		}
		for c := range 3 {
			px[c] = uint8(min(int(px[c])*255/a, 255))
		}
	}
	return img
}

func writePNG(path string, img image.Image) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("fairy: screenshot %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("fairy: screenshot %s: %w", path, cerr)
		}
	}()
	if err := png.Encode(f, img); err != nil {
		return fmt.Errorf("fairy: screenshot %s: %w", path, err)
	}
	return nil
}

// sanitizeLabel keeps letters, digits, '-' and '.', mapping anything else to
// '_'. Blank labels become "unlabeled".
func sanitizeLabel(label string) string {
	label = strings.TrimSpace(label)
	if label == "" {
		return "unlabeled"
	}
	return strings.Map(func(r rune) rune {
		if r < utf8.RuneSelf && (r == '-' || r == '.' || r >= '0' && r <= '9' ||
			r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z') {
			return r
		}
		return '_'
	}, label)
}
