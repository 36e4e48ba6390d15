package services

import (
	"bytes"
	"context"
	"encoding/binary"
	"hash/crc32"
	"image"
	"image/color"
	"image/png"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"

	apperrors "AmberWatch/pkg/errors"
	"AmberWatch/pkg/evidence"
	"AmberWatch/pkg/metrics"
	"AmberWatch/pkg/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T, w, h int, noisy bool) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	r := rand.New(rand.NewSource(7))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if noisy {
				img.Set(x, y, color.RGBA{uint8(r.Intn(256)), uint8(r.Intn(256)), uint8(r.Intn(256)), 255})
			} else {
				img.Set(x, y, color.RGBA{200, 30, 30, 255})
			}
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func newEvidenceFixture(t *testing.T) (*EvidenceService, *storage.LocalStore, *metrics.Metrics) {
	t.Helper()
	st, err := storage.NewLocalStore(storage.LocalConfig{Root: t.TempDir(), BaseURL: "/media"})
	require.NoError(t, err)
	m := metrics.NewMetrics()
	return NewEvidenceService(st, m), st, m
}

func TestUploadSmallImageUnchanged(t *testing.T) {
	svc, st, m := newEvidenceFixture(t)
	data := pngBytes(t, 64, 48, false)

	up, err := svc.Upload(context.Background(), data, "")
	require.NoError(t, err)
	assert.False(t, up.Recompressed)
	assert.True(t, strings.HasSuffix(up.Key, ".png"))
	assert.Equal(t, "/media/"+up.Key, up.URL)

	stored, err := os.ReadFile(filepath.Join(st.Root(), up.Key))
	require.NoError(t, err)
	assert.Equal(t, data, stored)
	assert.Equal(t, 1.0, metricValue(t, m, "evidence_uploads_total"))
}

func TestUploadLargeImageRecompressed(t *testing.T) {
	svc, st, _ := newEvidenceFixture(t)
	data := pngBytes(t, 1400, 1000, true)
	require.Greater(t, len(data), evidence.MaxUnprocessedBytes)

	up, err := svc.Upload(context.Background(), data, "")
	require.NoError(t, err)
	assert.True(t, up.Recompressed)
	assert.True(t, strings.HasSuffix(up.Key, ".jpg"))
	assert.LessOrEqual(t, up.Size, len(data))

	f, err := os.Open(filepath.Join(st.Root(), up.Key))
	require.NoError(t, err)
	defer f.Close()
	cfg, format, err := image.DecodeConfig(f)
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
	assert.LessOrEqual(t, cfg.Width, evidence.MaxEdge)
	assert.LessOrEqual(t, cfg.Height, evidence.MaxEdge)
}

func TestUploadRejectsNonImages(t *testing.T) {
	svc, _, _ := newEvidenceFixture(t)
	_, err := svc.Upload(context.Background(), []byte("%PDF-1.7 not an image"), "")
	assert.Equal(t, apperrors.CodeUnsupportedMedia, apperrors.GetCode(err))

	_, err = svc.Upload(context.Background(), nil, "")
	assert.Equal(t, apperrors.CodeValidation, apperrors.GetCode(err))

	_, err = svc.Upload(context.Background(), make([]byte, MaxUploadBytes+1), "")
	assert.Equal(t, apperrors.CodeTooLarge, apperrors.GetCode(err))
}

// hugeDimensionPNG 1x1 PNG 改写 IHDR 声明的宽高，并用 tEXt 块填充到 1 MiB 以上。
// 只有头部可信，完整解码必然失败，因此能区分是否在解码前被拒绝
func hugeDimensionPNG(t *testing.T, w, h uint32) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewGray(image.Rect(0, 0, 1, 1))))
	data := buf.Bytes()

	// 8 字节签名 + IHDR(长度4 类型4 数据13 CRC4)
	binary.BigEndian.PutUint32(data[16:20], w)
	binary.BigEndian.PutUint32(data[20:24], h)
	binary.BigEndian.PutUint32(data[29:33], crc32.ChecksumIEEE(data[12:29]))

	payload := append([]byte("Comment\x00"), bytes.Repeat([]byte{'a'}, 1<<20)...)
	chunk := make([]byte, 8, 12+len(payload))
	binary.BigEndian.PutUint32(chunk[0:4], uint32(len(payload)))
	copy(chunk[4:8], "tEXt")
	chunk = append(chunk, payload...)
	chunk = binary.BigEndian.AppendUint32(chunk, crc32.ChecksumIEEE(chunk[4:]))

	out := append([]byte{}, data[:33]...)
	out = append(out, chunk...)
	return append(out, data[33:]...)
}

func TestUploadRejectsHugeDimensions(t *testing.T) {
	svc, st, m := newEvidenceFixture(t)
	_, err := svc.Upload(context.Background(), hugeDimensionPNG(t, 33000, 33000), "alert_")
	assert.Equal(t, apperrors.CodeTooLarge, apperrors.GetCode(err))
	assert.Equal(t, float64(1), metricValue(t, m, "evidence_uploads_total"))

	entries, err := os.ReadDir(st.Root())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestUploadCapturedFrame(t *testing.T) {
	svc, _, _ := newEvidenceFixture(t)
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 8, 8))))

	up, err := svc.UploadDataURL(context.Background(), "data:image/png;base64,"+encodeB64(buf.Bytes()))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(up.Key, CapturePrefix))

	_, err = svc.UploadDataURL(context.Background(), "not a data url")
	assert.Equal(t, apperrors.CodeValidation, apperrors.GetCode(err))
}
