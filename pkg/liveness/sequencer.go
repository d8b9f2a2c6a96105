package liveness

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrCameraUnavailable means acquisition was denied or failed.
	// Terminal for the attempt; the user must retry after granting
	// access.
	ErrCameraUnavailable = errors.New("liveness: camera unavailable")

	// ErrNoFrame means the camera produced no frame at the moment of a
	// mandatory capture.
	ErrNoFrame = errors.New("liveness: no frame available")
)

// Camera is an acquired frame source. Frame returns the current camera
// surface at the instant of the call.
type Camera interface {
	Frame(ctx context.Context) (image.Image, error)
	Close() error
}

// Source acquires a camera for the duration of one capture session.
type Source interface {
	Acquire(ctx context.Context) (Camera, error)
}

// TurnDirection is the side the subject is asked to turn toward.
type TurnDirection string

const (
	TurnLeft  TurnDirection = "left"
	TurnRight TurnDirection = "right"
)

// Default protocol timing.
const (
	DefaultFirstShotDelay = 250 * time.Millisecond
	DefaultTurnDelay      = 1600 * time.Millisecond
	DefaultExtraInterval  = 250 * time.Millisecond
	DefaultJPEGQuality    = 95

	// MaxExtraFrames bounds the stabilization frames after the turn.
	MaxExtraFrames = 3
)

// Config tunes the capture protocol.
type Config struct {
	// TurnDirection defaults to TurnRight.
	TurnDirection TurnDirection

	// FirstShotDelay is the pause before the frontal frame.
	FirstShotDelay time.Duration

	// TurnDelay is the pause after the turn instruction, long enough
	// for the physical motion.
	TurnDelay time.Duration

	// ExtraFrames is the number of stabilization frames after the turn,
	// clamped to [0, MaxExtraFrames].
	ExtraFrames int

	// ExtraInterval is the pause between stabilization frames.
	ExtraInterval time.Duration

	// JPEGQuality for frame encoding, 1-100. Defaults to 95.
	JPEGQuality int

	// CountdownTick is the pause between guided-mode countdown ticks.
	// Defaults to one second.
	CountdownTick time.Duration

	// Instruct, when set, receives each user-facing instruction as the
	// protocol advances.
	Instruct func(string)

	// Logger for capture events. If nil, slog.Default() is used.
	Logger *slog.Logger
}

func (c *Config) applyDefaults() {
	if c.TurnDirection != TurnLeft {
		c.TurnDirection = TurnRight
	}
	if c.FirstShotDelay <= 0 {
		c.FirstShotDelay = DefaultFirstShotDelay
	}
	if c.TurnDelay <= 0 {
		c.TurnDelay = DefaultTurnDelay
	}
	if c.ExtraFrames < 0 {
		c.ExtraFrames = 0
	}
	if c.ExtraFrames > MaxExtraFrames {
		c.ExtraFrames = MaxExtraFrames
	}
	if c.ExtraInterval <= 0 {
		c.ExtraInterval = DefaultExtraInterval
	}
	if c.JPEGQuality <= 0 || c.JPEGQuality > 100 {
		c.JPEGQuality = DefaultJPEGQuality
	}
	if c.CountdownTick <= 0 {
		c.CountdownTick = time.Second
	}
	if c.Instruct == nil {
		c.Instruct = func(string) {}
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Frame is one captured still: encoded JPEG bytes and the offset from
// the start of the capture session.
type Frame struct {
	Image      []byte
	CapturedAt time.Duration
}

// CaptureSet is the ordered result of one capture session. Frames keep
// protocol order: index 0 frontal, index 1 turned, the rest
// stabilization. Missed counts slots where the camera produced nothing.
type CaptureSet struct {
	ID     string
	Frames []Frame
	Missed int
}

// FrameBytes returns the encoded frames in capture order, the shape the
// verifier submission expects.
func (cs *CaptureSet) FrameBytes() [][]byte {
	out := make([][]byte, len(cs.Frames))
	for i, f := range cs.Frames {
		out[i] = f.Image
	}
	return out
}

// Sequencer runs the fixed-delay capture protocol.
type Sequencer struct {
	source Source
	cfg    Config
}

// NewSequencer creates a sequencer over the given camera source.
func NewSequencer(source Source, cfg Config) *Sequencer {
	cfg.applyDefaults()
	return &Sequencer{source: source, cfg: cfg}
}

// Capture runs the protocol: acquire, frontal frame after a short
// pause, turned frame after the motion pause, optional stabilization
// frames. A slot where the camera produces no frame is recorded as
// missed and the sequence continues; it is the verifier submission that
// rejects sets with fewer than two frames. The camera is released on
// every exit path.
func (s *Sequencer) Capture(ctx context.Context) (*CaptureSet, error) {
	cam, err := s.source.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrCameraUnavailable, err)
	}
	defer cam.Close()

	set := &CaptureSet{ID: uuid.NewString()}
	start := time.Now()

	s.cfg.Instruct("Look straight at the camera")
	if err := sleep(ctx, s.cfg.FirstShotDelay); err != nil {
		return nil, err
	}
	s.grab(ctx, cam, start, set)

	s.cfg.Instruct(fmt.Sprintf("Now turn your head to the %s", s.cfg.TurnDirection))
	if err := sleep(ctx, s.cfg.TurnDelay); err != nil {
		return nil, err
	}
	s.grab(ctx, cam, start, set)

	if s.cfg.ExtraFrames > 0 {
		s.cfg.Instruct("Hold still")
		for i := 0; i < s.cfg.ExtraFrames; i++ {
			if err := sleep(ctx, s.cfg.ExtraInterval); err != nil {
				return nil, err
			}
			s.grab(ctx, cam, start, set)
		}
	}

	s.cfg.Logger.Debug("capture session complete",
		"session_id", set.ID,
		"frames", len(set.Frames),
		"missed", set.Missed)
	return set, nil
}

// grab captures and encodes one frame, recording a miss instead of
// failing the sequence.
func (s *Sequencer) grab(ctx context.Context, cam Camera, start time.Time, set *CaptureSet) {
	img, err := cam.Frame(ctx)
	if err != nil || img == nil {
		s.cfg.Logger.Warn("frame capture missed", "session_id", set.ID, "error", err)
		set.Missed++
		return
	}
	data, err := encodeJPEG(img, s.cfg.JPEGQuality)
	if err != nil {
		s.cfg.Logger.Warn("frame encoding failed", "session_id", set.ID, "error", err)
		set.Missed++
		return
	}
	set.Frames = append(set.Frames, Frame{
		Image:      data,
		CapturedAt: time.Since(start),
	})
}

func encodeJPEG(img image.Image, quality int) ([]byte, error) {
	buf := &bytes.Buffer{}
	if err := jpeg.Encode(buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// sleep waits for d as a cancellable timer tied to the capture session.
func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
