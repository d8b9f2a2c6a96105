package liveness

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"sync"
	"testing"
	"time"
)

// fakeCamera returns solid-color frames and records its lifecycle.
type fakeCamera struct {
	mu       sync.Mutex
	frames   int
	failOn   map[int]bool // frame indexes (1-based) that produce no frame
	closed   bool
	closedCh chan struct{}
}

func newFakeCamera() *fakeCamera {
	return &fakeCamera{failOn: map[int]bool{}, closedCh: make(chan struct{})}
}

func (c *fakeCamera) Frame(ctx context.Context) (image.Image, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames++
	if c.failOn[c.frames] {
		return nil, errors.New("no frame produced")
	}
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	img.Set(0, 0, color.RGBA{R: uint8(c.frames)})
	return img, nil
}

func (c *fakeCamera) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.closedCh)
	}
	return nil
}

func (c *fakeCamera) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

type fakeSource struct {
	cam        *fakeCamera
	acquireErr error
}

func (s *fakeSource) Acquire(ctx context.Context) (Camera, error) {
	if s.acquireErr != nil {
		return nil, s.acquireErr
	}
	return s.cam, nil
}

// fastConfig keeps the protocol shape but shrinks delays for tests.
func fastConfig() Config {
	return Config{
		FirstShotDelay: time.Millisecond,
		TurnDelay:      2 * time.Millisecond,
		ExtraInterval:  time.Millisecond,
		CountdownTick:  time.Millisecond,
	}
}

func TestCapture_TwoMandatoryFramesInOrder(t *testing.T) {
	cam := newFakeCamera()
	var instructions []string
	cfg := fastConfig()
	cfg.Instruct = func(s string) { instructions = append(instructions, s) }

	seq := NewSequencer(&fakeSource{cam: cam}, cfg)
	set, err := seq.Capture(context.Background())
	if err != nil {
		t.Fatalf("Capture failed: %v", err)
	}

	if len(set.Frames) != 2 {
		t.Fatalf("expected 2 frames, got %d", len(set.Frames))
	}
	if set.ID == "" {
		t.Error("expected a capture session id")
	}
	if len(instructions) != 2 {
		t.Fatalf("expected 2 instructions, got %v", instructions)
	}
	if instructions[0] != "Look straight at the camera" {
		t.Errorf("unexpected first instruction: %q", instructions[0])
	}
	if instructions[1] != "Now turn your head to the right" {
		t.Errorf("unexpected second instruction: %q", instructions[1])
	}
	if !cam.isClosed() {
		t.Error("camera must be released on completion")
	}
}

func TestCapture_ExtraFramesAppendInOrder(t *testing.T) {
	t.Log("Testing extraFramesAfterTurn=1 produces exactly 3 ordered frames")
	cam := newFakeCamera()
	cfg := fastConfig()
	cfg.ExtraFrames = 1

	seq := NewSequencer(&fakeSource{cam: cam}, cfg)
	set, err := seq.Capture(context.Background())
	if err != nil {
		t.Fatalf("Capture failed: %v", err)
	}

	if len(set.Frames) != 3 {
		t.Fatalf("expected 3 frames [frontal, turned, stabilization], got %d", len(set.Frames))
	}
	for i := 1; i < len(set.Frames); i++ {
		if set.Frames[i].CapturedAt <= set.Frames[i-1].CapturedAt {
			t.Errorf("frame %d offset %v not after frame %d offset %v",
				i, set.Frames[i].CapturedAt, i-1, set.Frames[i-1].CapturedAt)
		}
	}
	if got := len(set.FrameBytes()); got != 3 {
		t.Errorf("FrameBytes returned %d frames", got)
	}
}

func TestCapture_ExtraFramesClamped(t *testing.T) {
	cam := newFakeCamera()
	cfg := fastConfig()
	cfg.ExtraFrames = 10

	seq := NewSequencer(&fakeSource{cam: cam}, cfg)
	set, err := seq.Capture(context.Background())
	if err != nil {
		t.Fatalf("Capture failed: %v", err)
	}
	if len(set.Frames) != 2+MaxExtraFrames {
		t.Errorf("expected %d frames, got %d", 2+MaxExtraFrames, len(set.Frames))
	}
}

func TestCapture_CameraUnavailable(t *testing.T) {
	seq := NewSequencer(&fakeSource{acquireErr: errors.New("permission denied")}, fastConfig())
	_, err := seq.Capture(context.Background())
	if !errors.Is(err, ErrCameraUnavailable) {
		t.Fatalf("expected ErrCameraUnavailable, got %v", err)
	}
}

func TestCapture_MissedFrameDoesNotAbort(t *testing.T) {
	cam := newFakeCamera()
	cam.failOn[2] = true // the turned frame produces nothing
	cfg := fastConfig()
	cfg.ExtraFrames = 1

	seq := NewSequencer(&fakeSource{cam: cam}, cfg)
	set, err := seq.Capture(context.Background())
	if err != nil {
		t.Fatalf("Capture failed: %v", err)
	}

	if len(set.Frames) != 2 {
		t.Errorf("expected 2 captured frames around the gap, got %d", len(set.Frames))
	}
	if set.Missed != 1 {
		t.Errorf("expected 1 missed slot, got %d", set.Missed)
	}
	if !cam.isClosed() {
		t.Error("camera must be released")
	}
}

func TestCapture_CancellationReleasesCamera(t *testing.T) {
	cam := newFakeCamera()
	cfg := fastConfig()
	cfg.TurnDelay = time.Minute // cancellation will arrive first

	ctx, cancel := context.WithCancel(context.Background())
	seq := NewSequencer(&fakeSource{cam: cam}, cfg)

	done := make(chan error, 1)
	go func() {
		_, err := seq.Capture(ctx)
		done <- err
	}()

	// Let the sequence reach the turn delay, then tear down.
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("capture did not return after cancellation")
	}

	select {
	case <-cam.closedCh:
	case <-time.After(time.Second):
		t.Fatal("camera not released after cancellation")
	}
}

// scriptedPrompter confirms every step and records the interaction.
type scriptedPrompter struct {
	confirms   []string
	ticks      []int
	confirmErr error
}

func (p *scriptedPrompter) Confirm(ctx context.Context, instruction string) error {
	p.confirms = append(p.confirms, instruction)
	return p.confirmErr
}

func (p *scriptedPrompter) Countdown(remaining int) {
	p.ticks = append(p.ticks, remaining)
}

func TestGuidedCapture(t *testing.T) {
	cam := newFakeCamera()
	prompter := &scriptedPrompter{}

	g := NewGuided(&fakeSource{cam: cam}, prompter, fastConfig())
	set, err := g.Capture(context.Background())
	if err != nil {
		t.Fatalf("guided Capture failed: %v", err)
	}

	if len(set.Frames) != 2 {
		t.Fatalf("expected both mandatory frames, got %d", len(set.Frames))
	}
	if len(prompter.confirms) != 2 {
		t.Fatalf("expected 2 confirmations, got %v", prompter.confirms)
	}
	want := []int{3, 2, 1, 0, 3, 2, 1, 0}
	if fmt.Sprint(prompter.ticks) != fmt.Sprint(want) {
		t.Errorf("expected countdown ticks %v, got %v", want, prompter.ticks)
	}
	if !cam.isClosed() {
		t.Error("camera must be released on completion")
	}
}

func TestGuidedCapture_AbortReleasesCamera(t *testing.T) {
	cam := newFakeCamera()
	prompter := &scriptedPrompter{confirmErr: errors.New("user backed out")}

	g := NewGuided(&fakeSource{cam: cam}, prompter, fastConfig())
	if _, err := g.Capture(context.Background()); err == nil {
		t.Fatal("expected an error when confirmation fails")
	}
	if !cam.isClosed() {
		t.Error("camera must be released on abort")
	}
}

func TestGuidedCapture_MissingFrameIsError(t *testing.T) {
	cam := newFakeCamera()
	cam.failOn[1] = true

	g := NewGuided(&fakeSource{cam: cam}, &scriptedPrompter{}, fastConfig())
	_, err := g.Capture(context.Background())
	if !errors.Is(err, ErrNoFrame) {
		t.Fatalf("expected ErrNoFrame, got %v", err)
	}
}
