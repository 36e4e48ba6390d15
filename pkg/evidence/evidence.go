package evidence

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"math"
	"strings"
	"time"

	_ "image/gif"
	_ "image/png"

	"AmberWatch/pkg/util"

	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

const (
	// MaxUnprocessedBytes 不超过该大小的图片原样上传
	MaxUnprocessedBytes = 1 << 20
	MaxEdge             = 1080
	JPEGQuality         = 80
	// MaxPixels 需要缩放的图片在完整解码前的像素上限
	MaxPixels = 40_000_000
)

var (
	ErrEmpty           = errors.New("image is empty")
	ErrUnsupportedType = errors.New("unsupported image type")
	ErrUndecodable     = errors.New("image cannot be decoded for resizing")
	ErrTooManyPixels   = errors.New("image dimensions exceed pixel limit")
)

// allowed 允许的 MIME 与扩展名
var allowed = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
	"image/webp": "webp",
	"image/gif":  "gif",
	"image/avif": "avif",
}

// Image 归一化后的图片
type Image struct {
	Data         []byte
	ContentType  string
	Ext          string
	Width        int
	Height       int
	Recompressed bool
}

// Detect 依据内容嗅探类型，不信任客户端声明的文件名或 Content-Type
func Detect(data []byte) (contentType, ext string, err error) {
	if len(data) == 0 {
		return "", "", ErrEmpty
	}
	mt := mimetype.Detect(data)
	ct := strings.TrimSpace(strings.SplitN(mt.String(), ";", 2)[0])
	ext, ok := allowed[ct]
	if !ok {
		return ct, "", fmt.Errorf("%w: %s", ErrUnsupportedType, ct)
	}
	return ct, ext, nil
}

// Normalize 校验类型并在超过 1 MiB 时缩放重编码为 JPEG
func Normalize(data []byte) (*Image, error) {
	ct, ext, err := Detect(data)
	if err != nil {
		return nil, err
	}
	if len(data) <= MaxUnprocessedBytes {
		img := &Image{Data: data, ContentType: ct, Ext: ext}
		if cfg, _, err := image.DecodeConfig(bytes.NewReader(data)); err == nil {
			img.Width, img.Height = cfg.Width, cfg.Height
		}
		return img, nil
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUndecodable, err)
	}
	if int64(cfg.Width)*int64(cfg.Height) > MaxPixels {
		return nil, fmt.Errorf("%w: %dx%d", ErrTooManyPixels, cfg.Width, cfg.Height)
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUndecodable, err)
	}
	out, w, h, err := Recompress(src)
	if err != nil {
		return nil, err
	}
	return &Image{Data: out, ContentType: "image/jpeg", Ext: "jpg", Width: w, Height: h, Recompressed: true}, nil
}

// Recompress 缩放到长边不超过 MaxEdge 并以 JPEGQuality 编码
func Recompress(src image.Image) ([]byte, int, int, error) {
	b := src.Bounds()
	w, h := Scale(b.Dx(), b.Dy(), MaxEdge)

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	// JPEG 没有透明通道，先铺白底
	draw.Draw(dst, dst.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Over, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: JPEGQuality}); err != nil {
		return nil, 0, 0, err
	}
	return buf.Bytes(), w, h, nil
}

// Scale 等比缩放使长边不超过 max，已满足时原样返回
func Scale(w, h, max int) (int, int) {
	if w <= max && h <= max {
		return w, h
	}
	if w >= h {
		nh := int(math.Round(float64(h) * float64(max) / float64(w)))
		return max, clampMin(nh)
	}
	nw := int(math.Round(float64(w) * float64(max) / float64(h)))
	return clampMin(nw), max
}

func clampMin(v int) int {
	if v < 1 {
		return 1
	}
	return v
}

// UniqueName 生成 {prefix}{毫秒时间戳}_{6位base36}.{ext}
func UniqueName(prefix, ext string) string {
	return fmt.Sprintf("%s%d_%s.%s", prefix, time.Now().UnixMilli(), util.RandBase36(6), ext)
}
