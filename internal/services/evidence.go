package services

import (
	"bytes"
	"context"
	"errors"

	"AmberWatch/pkg/capture"
	apperrors "AmberWatch/pkg/errors"
	"AmberWatch/pkg/evidence"
	"AmberWatch/pkg/logger"
	"AmberWatch/pkg/metrics"
	"AmberWatch/pkg/storage"

	"go.uber.org/zap"
)

const (
	// MaxUploadBytes 超过该大小直接拒绝，不进入解码
	MaxUploadBytes = 20 << 20
	// CapturePrefix 相机抓拍帧的对象名前缀
	CapturePrefix = "sighting_"
)

// Uploaded 上传结果
type Uploaded struct {
	URL          string `json:"url"`
	Key          string `json:"key"`
	ContentType  string `json:"content_type"`
	Size         int    `json:"size"`
	Recompressed bool   `json:"recompressed"`
}

type EvidenceService struct {
	store   storage.Store
	metrics *metrics.Metrics
}

func NewEvidenceService(s storage.Store, m *metrics.Metrics) *EvidenceService {
	return &EvidenceService{store: s, metrics: m}
}

// Upload 归一化后写入对象存储；失败不做补偿删除
func (s *EvidenceService) Upload(ctx context.Context, data []byte, prefix string) (*Uploaded, error) {
	if len(data) > MaxUploadBytes {
		s.metrics.EvidenceUploaded("rejected")
		return nil, apperrors.WithCode(apperrors.CodeTooLarge, "image exceeds upload limit")
	}
	img, err := evidence.Normalize(data)
	if err != nil {
		s.metrics.EvidenceUploaded("rejected")
		switch {
		case errors.Is(err, evidence.ErrEmpty):
			return nil, invalid("image is empty")
		case errors.Is(err, evidence.ErrUnsupportedType):
			return nil, apperrors.Wrap(err, apperrors.CodeUnsupportedMedia, "only jpeg, png, webp, gif and avif images are accepted")
		case errors.Is(err, evidence.ErrTooManyPixels):
			return nil, apperrors.Wrap(err, apperrors.CodeTooLarge, "image dimensions are too large")
		case errors.Is(err, evidence.ErrUndecodable):
			return nil, apperrors.Wrap(err, apperrors.CodeUnsupportedMedia, "image is too large and cannot be resized")
		}
		return nil, apperrors.Wrap(err, apperrors.CodeUnsupportedMedia, "image could not be processed")
	}

	key := evidence.UniqueName(prefix, img.Ext)
	if err := s.store.Write(ctx, key, bytes.NewReader(img.Data), int64(len(img.Data)), img.ContentType); err != nil {
		s.metrics.EvidenceUploaded("failed")
		if errors.Is(err, storage.ErrObjectExists) {
			return nil, ErrDuplicateEvidence.Because(err)
		}
		logger.Error("evidence upload failed", zap.String("key", key), zap.Error(err))
		return nil, backend(err, "upload image failed")
	}

	result := "original"
	if img.Recompressed {
		result = "recompressed"
	}
	s.metrics.EvidenceUploaded(result)
	return &Uploaded{
		URL:          s.store.PublicURL(key),
		Key:          key,
		ContentType:  img.ContentType,
		Size:         len(img.Data),
		Recompressed: img.Recompressed,
	}, nil
}

// UploadDataURL 上传相机确认后的 data URL 帧
func (s *EvidenceService) UploadDataURL(ctx context.Context, dataURL string) (*Uploaded, error) {
	data, err := capture.ParseDataURL(dataURL)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeValidation, "invalid captured image")
	}
	return s.Upload(ctx, data, CapturePrefix)
}
