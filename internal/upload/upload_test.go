package upload

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kokou-stm/kalanso/internal/question"
)

var (
	pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")
	jpgHeader = []byte("\xff\xd8\xff\xe0\x00\x10JFIF\x00\x01\x01\x00\x00\x01\x00\x01\x00\x00")
	gifHeader = []byte("GIF89a\x01\x00\x01\x00\x00\x00\x00;")
)

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, data, 0o644))
	return p
}

func imageQuestion() *question.ImageUpload {
	return &question.ImageUpload{
		Base:            question.Base{ID: "q8", Points: 20},
		MinImages:       1,
		MaxImages:       2,
		AcceptedFormats: []string{"jpg", "png"},
		MaxFileSize:     1,
		RequiredAngles:  []string{"front", "side"},
	}
}

func TestCheck(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	png := writeFile(t, dir, "joint.png", pngHeader)
	jpg := writeFile(t, dir, "side.jpeg", jpgHeader)
	gif := writeFile(t, dir, "anim.gif", gifHeader)
	big := writeFile(t, dir, "big.png", append(pngHeader, make([]byte, 2<<20)...))
	// Content wins over the file name.
	disguised := writeFile(t, dir, "fake.png", gifHeader)

	tests := []struct {
		name     string
		existing int
		paths    []string
		wantOK   []string
		wantErrs int
	}{
		{"png and jpeg accepted", 0, []string{png, jpg}, []string{"joint.png", "side.jpeg"}, 0},
		{"gif rejected", 0, []string{gif}, nil, 1},
		{"disguised gif rejected", 0, []string{disguised}, nil, 1},
		{"oversized rejected", 0, []string{big}, nil, 1},
		{"missing file", 0, []string{filepath.Join(dir, "nope.png")}, nil, 1},
		{"count limit", 1, []string{png, jpg}, []string{"joint.png"}, 1},
		{"rejection keeps others", 0, []string{gif, png}, []string{"joint.png"}, 1},
		{"blank paths ignored", 0, []string{"  ", ""}, nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			imgs, errs := Check(imageQuestion(), tt.existing, tt.paths, now)
			var names []string
			for _, img := range imgs {
				names = append(names, img.Filename)
				assert.Equal(t, now, img.UploadedAt)
				assert.Contains(t, img.URL, "file://")
			}
			assert.Equal(t, tt.wantOK, names)
			assert.Len(t, errs, tt.wantErrs)
		})
	}
}

func TestCheckAssignsAngles(t *testing.T) {
	dir := t.TempDir()
	png := writeFile(t, dir, "a.png", pngHeader)

	imgs, errs := Check(imageQuestion(), 1, []string{png}, time.Now())
	require.Empty(t, errs)
	require.Len(t, imgs, 1)
	assert.Equal(t, "side", imgs[0].Angle)
}

func TestCheckErrorMessages(t *testing.T) {
	dir := t.TempDir()
	big := writeFile(t, dir, "big.png", append(pngHeader, make([]byte, 2<<20)...))
	gif := writeFile(t, dir, "anim.gif", gifHeader)

	_, errs := Check(imageQuestion(), 0, []string{big, gif}, time.Now())
	require.Len(t, errs, 2)
	assert.Equal(t, "big.png: file is larger than 1 MB", errs[0])
	assert.Contains(t, errs[1], "anim.gif: unsupported format image/gif")
	assert.Contains(t, errs[1], "accepted: jpg, png")
}

func TestAccepts(t *testing.T) {
	png := mimetype.Detect(pngHeader)
	jpg := mimetype.Detect(jpgHeader)

	assert.True(t, Accepts(nil, png))
	assert.True(t, Accepts([]string{"image/png"}, png))
	assert.True(t, Accepts([]string{".PNG"}, png))
	assert.True(t, Accepts([]string{"jpeg"}, jpg))
	assert.True(t, Accepts([]string{"jpg"}, jpg))
	assert.False(t, Accepts([]string{"png"}, jpg))
	assert.False(t, Accepts([]string{"image/jpeg"}, png))
}
