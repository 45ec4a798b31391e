package capture

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

var (
	// ErrDeviceUnavailable means no camera device is configured or reachable.
	ErrDeviceUnavailable = errors.New("capture device unavailable")

	// ErrDeviceBusy means the device is already acquired by another stream.
	ErrDeviceBusy = errors.New("capture device already in use")

	// ErrNoFrame means the device is open but has nothing to capture yet.
	ErrNoFrame = errors.New("no frame available")
)

// Frame is a single still image taken from a camera stream.
type Frame struct {
	Data        []byte
	ContentType string
}

// DataURL encodes the frame as a base64 data URL payload.
func (f Frame) DataURL() string {
	return "data:" + f.ContentType + ";base64," + base64.StdEncoding.EncodeToString(f.Data)
}

// Camera acquires an exclusive stream from a capture device.
type Camera interface {
	// Acquire opens the device. It fails with ErrDeviceBusy while another
	// stream is open; the returned stream must be closed on every exit path.
	Acquire(ctx context.Context) (*Stream, error)
}

// Stream is an open, exclusive handle on a capture device.
type Stream struct {
	frame   func() (Frame, error)
	release func()

	mu     sync.Mutex
	closed bool
}

// Frame captures a still image from the stream.
func (s *Stream) Frame() (Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return Frame{}, fmt.Errorf("capture stream is closed")
	}
	return s.frame()
}

// Close releases the device. It is idempotent.
func (s *Stream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.release()
	return nil
}

// Snapshot acquires the camera, captures one frame as a data URL payload and
// releases the device, on success and on every error path.
func Snapshot(ctx context.Context, cam Camera) (string, error) {
	stream, err := cam.Acquire(ctx)
	if err != nil {
		return "", err
	}
	defer stream.Close()

	frame, err := stream.Frame()
	if err != nil {
		return "", fmt.Errorf("capturing frame: %w", err)
	}
	return frame.DataURL(), nil
}

// SpoolCamera treats a directory as a camera: capturing a frame reads the
// most recently modified image in the directory. Phone sync folders make
// this a practical stand-in for a hardware device.
type SpoolCamera struct {
	dir string

	mu   sync.Mutex
	busy bool
}

// NewSpoolCamera creates a SpoolCamera over an existing directory.
func NewSpoolCamera(dir string) (*SpoolCamera, error) {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("spool directory %q: %w", dir, ErrDeviceUnavailable)
	}
	return &SpoolCamera{dir: dir}, nil
}

// Acquire claims the camera. At most one stream may be open at a time.
func (c *SpoolCamera) Acquire(ctx context.Context) (*Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.busy {
		return nil, ErrDeviceBusy
	}
	c.busy = true

	return &Stream{
		frame: c.readNewest,
		release: func() {
			c.mu.Lock()
			c.busy = false
			c.mu.Unlock()
		},
	}, nil
}

func (c *SpoolCamera) readNewest() (Frame, error) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return Frame{}, fmt.Errorf("reading spool directory: %w", ErrDeviceUnavailable)
	}

	var newest string
	var newestMod int64
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if contentTypeFor(entry.Name()) == "" {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if newest == "" || info.ModTime().UnixNano() > newestMod {
			newest = entry.Name()
			newestMod = info.ModTime().UnixNano()
		}
	}
	if newest == "" {
		return Frame{}, ErrNoFrame
	}

	data, err := os.ReadFile(filepath.Join(c.dir, newest))
	if err != nil {
		return Frame{}, fmt.Errorf("reading frame %s: %w", newest, err)
	}
	return Frame{Data: data, ContentType: contentTypeFor(newest)}, nil
}

// contentTypeFor maps a filename to a capture payload MIME type. Unknown
// extensions are not capturable.
func contentTypeFor(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".heic":
		return "image/heic"
	case ".heif":
		return "image/heif"
	case ".pdf":
		return "application/pdf"
	default:
		return ""
	}
}
