// Package upload checks local image files against an image_upload question
// before they are handed to the engine.
package upload

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"

	"github.com/kokou-stm/kalanso/internal/answer"
	"github.com/kokou-stm/kalanso/internal/question"
)

const megabyte = 1 << 20

// Check validates paths for q given the number of images already accepted.
// Accepted files come back as images; every rejection is a user-facing
// message. Rejections never affect earlier uploads.
func Check(q *question.ImageUpload, existing int, paths []string, now time.Time) ([]answer.Image, []string) {
	var (
		imgs []answer.Image
		errs []string
	)
	for _, p := range paths {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		name := filepath.Base(p)
		if q.MaxImages > 0 && existing+len(imgs) >= q.MaxImages {
			errs = append(errs, fmt.Sprintf("%s: maximum of %d images reached", name, q.MaxImages))
			continue
		}
		if msg := checkFile(q, p); msg != "" {
			errs = append(errs, fmt.Sprintf("%s: %s", name, msg))
			continue
		}
		img := answer.Image{
			URL:        fileURL(p),
			Filename:   name,
			UploadedAt: now,
		}
		if i := existing + len(imgs); i < len(q.RequiredAngles) {
			img.Angle = q.RequiredAngles[i]
		}
		imgs = append(imgs, img)
	}
	return imgs, errs
}

func checkFile(q *question.ImageUpload, path string) string {
	info, err := os.Stat(path)
	if err != nil {
		return "cannot read file"
	}
	if info.IsDir() {
		return "is a directory"
	}
	if q.MaxFileSize > 0 && float64(info.Size()) > q.MaxFileSize*megabyte {
		return fmt.Sprintf("file is larger than %s MB", formatMB(q.MaxFileSize))
	}
	mt, err := mimetype.DetectFile(path)
	if err != nil {
		return "cannot read file"
	}
	if !Accepts(q.AcceptedFormats, mt) {
		return fmt.Sprintf("unsupported format %s (accepted: %s)", mt.String(), strings.Join(q.AcceptedFormats, ", "))
	}
	return ""
}

// Accepts reports whether the sniffed type matches one of formats. A format
// is either a MIME type ("image/png") or an extension ("png", ".jpg").
func Accepts(formats []string, mt *mimetype.MIME) bool {
	if len(formats) == 0 {
		return true
	}
	ext := normalizeExt(mt.Extension())
	for _, f := range formats {
		f = strings.ToLower(strings.TrimSpace(f))
		if strings.Contains(f, "/") {
			if mt.Is(f) {
				return true
			}
			continue
		}
		if ext != "" && normalizeExt(f) == ext {
			return true
		}
	}
	return false
}

func normalizeExt(ext string) string {
	ext = strings.TrimPrefix(strings.ToLower(ext), ".")
	if slices.Contains([]string{"jpeg", "jpe"}, ext) {
		return "jpg"
	}
	if ext == "tif" {
		return "tiff"
	}
	return ext
}

func fileURL(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return "file://" + filepath.ToSlash(path)
}

func formatMB(mb float64) string {
	if mb == float64(int64(mb)) {
		return fmt.Sprintf("%d", int64(mb))
	}
	return fmt.Sprintf("%.1f", mb)
}
