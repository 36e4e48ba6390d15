package evidence

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"math/rand"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// noisyPNG 随机像素几乎不可压缩，保证编码后超过 1 MiB
func noisyPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	r := rand.New(rand.NewSource(42))
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i] = uint8(r.Intn(256))
		img.Pix[i+1] = uint8(r.Intn(256))
		img.Pix[i+2] = uint8(r.Intn(256))
		img.Pix[i+3] = 255
	}
	return encodePNG(t, img)
}

func TestSmallImageUnchanged(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 64, 48))
	for x := 0; x < 64; x++ {
		img.Set(x, x%48, color.RGBA{R: 200, A: 255})
	}
	data := encodePNG(t, img)
	require.LessOrEqual(t, len(data), MaxUnprocessedBytes)

	out, err := Normalize(data)
	require.NoError(t, err)
	assert.Equal(t, data, out.Data)
	assert.Equal(t, "image/png", out.ContentType)
	assert.Equal(t, "png", out.Ext)
	assert.False(t, out.Recompressed)
	assert.Equal(t, 64, out.Width)
	assert.Equal(t, 48, out.Height)
}

func TestLargeImageRecompressed(t *testing.T) {
	cases := []struct {
		name string
		w, h int
	}{
		{"landscape", 1400, 1000},
		{"portrait", 1000, 1400},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			data := noisyPNG(t, tc.w, tc.h)
			require.Greater(t, len(data), MaxUnprocessedBytes)

			out, err := Normalize(data)
			require.NoError(t, err)
			assert.True(t, out.Recompressed)
			assert.Equal(t, "image/jpeg", out.ContentType)
			assert.Equal(t, "jpg", out.Ext)
			assert.LessOrEqual(t, len(out.Data), len(data))

			cfg, err := jpeg.DecodeConfig(bytes.NewReader(out.Data))
			require.NoError(t, err)
			assert.LessOrEqual(t, cfg.Width, MaxEdge)
			assert.LessOrEqual(t, cfg.Height, MaxEdge)
			assert.Equal(t, out.Width, cfg.Width)
			assert.Equal(t, out.Height, cfg.Height)

			inRatio := float64(tc.w) / float64(tc.h)
			outRatio := float64(cfg.Width) / float64(cfg.Height)
			assert.InDelta(t, inRatio, outRatio, 0.01)
		})
	}
}

func TestRejectsNonImage(t *testing.T) {
	_, err := Normalize([]byte("%PDF-1.7\n1 0 obj\n<<>>\nendobj\n"))
	assert.ErrorIs(t, err, ErrUnsupportedType)

	_, err = Normalize(nil)
	assert.ErrorIs(t, err, ErrEmpty)
}

func TestLargeUndecodable(t *testing.T) {
	// 合法的 AVIF 文件头 + 填充，超出阈值但无解码器
	data := []byte{0, 0, 0, 0x1c, 'f', 't', 'y', 'p', 'a', 'v', 'i', 'f', 0, 0, 0, 0, 'a', 'v', 'i', 'f', 'm', 'i', 'f', '1', 'm', 'i', 'a', 'f'}
	data = append(data, make([]byte, MaxUnprocessedBytes)...)

	ct, _, err := Detect(data)
	require.NoError(t, err)
	require.Equal(t, "image/avif", ct)

	_, err = Normalize(data)
	assert.ErrorIs(t, err, ErrUndecodable)
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

func TestHugeDimensionsRejectedBeforeDecode(t *testing.T) {
	data := hugeDimensionPNG(t, 33000, 33000)
	require.Greater(t, len(data), MaxUnprocessedBytes)

	ct, _, err := Detect(data)
	require.NoError(t, err)
	require.Equal(t, "image/png", ct)

	_, err = Normalize(data)
	assert.ErrorIs(t, err, ErrTooManyPixels)
	assert.NotErrorIs(t, err, ErrUndecodable)

	// 像素预算以内的头部照常进入解码，伪造数据解码失败
	_, err = Normalize(hugeDimensionPNG(t, 4000, 3000))
	assert.ErrorIs(t, err, ErrUndecodable)
}

func TestScale(t *testing.T) {
	w, h := Scale(800, 600, MaxEdge)
	assert.Equal(t, []int{800, 600}, []int{w, h})

	w, h = Scale(4000, 3000, MaxEdge)
	assert.Equal(t, []int{1080, 810}, []int{w, h})

	w, h = Scale(1000, 1400, MaxEdge)
	assert.Equal(t, []int{771, 1080}, []int{w, h})

	w, h = Scale(5000, 1, MaxEdge)
	assert.Equal(t, []int{1080, 1}, []int{w, h})
}

func TestUniqueName(t *testing.T) {
	name := UniqueName("sighting_", "jpg")
	assert.Regexp(t, regexp.MustCompile(`^sighting_\d{13}_[0-9a-z]{6}\.jpg$`), name)
	assert.NotEqual(t, name, UniqueName("sighting_", "jpg"))
}
