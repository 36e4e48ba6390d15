package capture

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"strings"
	"sync"
)

const JPEGQuality = 80

type Facing string

const (
	FacingEnvironment Facing = "environment"
	FacingUser        Facing = "user"
)

var (
	ErrBusy     = errors.New("camera is in use by another capture session")
	ErrNoStream = errors.New("no active camera stream")
	ErrNoFrame  = errors.New("no captured frame")
	ErrClosed   = errors.New("capture session is closed")
)

// Camera 摄像头设备
type Camera interface {
	Open(ctx context.Context, facing Facing) (Stream, error)
}

// Stream 已打开的视频流，Close 必须可重复调用
type Stream interface {
	Frame() (image.Image, error)
	Close() error
}

// DeviceError 设备层错误（权限被拒、设备不可用等）
type DeviceError struct {
	Op  string
	Err error
}

func (e *DeviceError) Error() string { return "camera " + e.Op + ": " + e.Err.Error() }
func (e *DeviceError) Unwrap() error { return e.Err }

// Device 保证同一摄像头同时只有一个采集会话
type Device struct {
	cam    Camera
	mu     sync.Mutex
	active *Session
}

func NewDevice(cam Camera) *Device {
	return &Device{cam: cam}
}

// NewSession 占用设备并以后置摄像头开启视频流
func (d *Device) NewSession(ctx context.Context) (*Session, error) {
	d.mu.Lock()
	if d.active != nil {
		d.mu.Unlock()
		return nil, ErrBusy
	}
	s := &Session{dev: d, ctx: ctx}
	d.active = s
	d.mu.Unlock()

	if err := s.Start(); err != nil {
		s.Cancel()
		return nil, err
	}
	return s, nil
}

func (d *Device) release(s *Session) {
	d.mu.Lock()
	if d.active == s {
		d.active = nil
	}
	d.mu.Unlock()
}

// Session 一次拍照流程：开流、抓帧、重拍、确认或取消
type Session struct {
	dev    *Device
	ctx    context.Context
	mu     sync.Mutex
	stream Stream
	still  []byte
	closed bool
}

// Start 开启视频流，已在拍摄时为空操作
func (s *Session) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if s.stream != nil {
		return nil
	}
	st, err := s.dev.cam.Open(s.ctx, FacingEnvironment)
	if err != nil {
		return &DeviceError{Op: "open", Err: err}
	}
	s.stream = st
	return nil
}

// Capture 抓取一帧编码为 JPEG 并停止视频流
func (s *Session) Capture() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	if s.stream == nil {
		return nil, ErrNoStream
	}
	frame, err := s.stream.Frame()
	s.stopLocked()
	if err != nil {
		return nil, &DeviceError{Op: "frame", Err: err}
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, frame, &jpeg.Options{Quality: JPEGQuality}); err != nil {
		return nil, err
	}
	s.still = buf.Bytes()
	return s.still, nil
}

// Retake 丢弃已拍照片并重新开流
func (s *Session) Retake() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.still = nil
	s.stopLocked()
	s.mu.Unlock()
	return s.Start()
}

// Confirm 返回已拍照片并结束会话
func (s *Session) Confirm() ([]byte, error) {
	s.mu.Lock()
	still := s.still
	s.mu.Unlock()
	if still == nil {
		return nil, ErrNoFrame
	}
	s.Cancel()
	return still, nil
}

// Cancel 释放视频流与设备，可重复调用
func (s *Session) Cancel() {
	s.mu.Lock()
	s.stopLocked()
	s.still = nil
	already := s.closed
	s.closed = true
	s.mu.Unlock()
	if !already {
		s.dev.release(s)
	}
}

// Close 便于 defer 使用
func (s *Session) Close() error {
	s.Cancel()
	return nil
}

// Streaming 是否持有打开的视频流
func (s *Session) Streaming() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stream != nil
}

func (s *Session) stopLocked() {
	if s.stream != nil {
		_ = s.stream.Close()
		s.stream = nil
	}
}

const dataURLPrefix = "data:image/jpeg;base64,"

// DataURL 将 JPEG 编码为 data URL
func DataURL(jpegBytes []byte) string {
	return dataURLPrefix + base64.StdEncoding.EncodeToString(jpegBytes)
}

// ParseDataURL 解析 data:image/<type>;base64,<payload>
func ParseDataURL(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "data:image/") {
		return nil, fmt.Errorf("not an image data url")
	}
	comma := strings.IndexByte(s, ',')
	if comma < 0 || !strings.HasSuffix(s[:comma], ";base64") {
		return nil, fmt.Errorf("data url must be base64 encoded")
	}
	data, err := base64.StdEncoding.DecodeString(s[comma+1:])
	if err != nil {
		return nil, fmt.Errorf("decode data url: %w", err)
	}
	return data, nil
}
