package liveness

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Prompter is the interaction surface for the guided capture variant:
// each step waits for an explicit user action, then counts down to the
// shot.
type Prompter interface {
	// Confirm blocks until the user acknowledges the instruction (or
	// the context is cancelled).
	Confirm(ctx context.Context, instruction string) error

	// Countdown reports each tick of the 3..0 countdown before a shot.
	Countdown(remaining int)
}

// Guided runs the interactive capture variant: the same two-mandatory-
// frame ordering contract as Sequencer, but each shot is gated on user
// confirmation followed by a countdown instead of a fixed delay.
type Guided struct {
	source   Source
	prompter Prompter
	cfg      Config
}

// NewGuided creates a guided capturer. The fixed-delay Config fields
// are unused here; direction, JPEG quality, and CountdownTick apply.
func NewGuided(source Source, prompter Prompter, cfg Config) *Guided {
	cfg.applyDefaults()
	return &Guided{source: source, prompter: prompter, cfg: cfg}
}

// Capture walks the user through both mandatory shots. Unlike the timed
// variant, a missing frame here is an error: the guided flow only
// submits when both frames are present.
func (g *Guided) Capture(ctx context.Context) (*CaptureSet, error) {
	cam, err := g.source.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrCameraUnavailable, err)
	}
	defer cam.Close()

	set := &CaptureSet{ID: uuid.NewString()}
	start := time.Now()

	steps := []string{
		"Look straight at the camera",
		fmt.Sprintf("Turn your head to the %s and hold", g.cfg.TurnDirection),
	}
	for _, instruction := range steps {
		if err := g.prompter.Confirm(ctx, instruction); err != nil {
			return nil, err
		}
		if err := g.countdown(ctx); err != nil {
			return nil, err
		}

		img, err := cam.Frame(ctx)
		if err != nil || img == nil {
			return nil, ErrNoFrame
		}
		data, err := encodeJPEG(img, g.cfg.JPEGQuality)
		if err != nil {
			return nil, fmt.Errorf("encode frame: %w", err)
		}
		set.Frames = append(set.Frames, Frame{
			Image:      data,
			CapturedAt: time.Since(start),
		})
	}

	return set, nil
}

func (g *Guided) countdown(ctx context.Context) error {
	for i := 3; i > 0; i-- {
		g.prompter.Countdown(i)
		if err := sleep(ctx, g.cfg.CountdownTick); err != nil {
			return err
		}
	}
	g.prompter.Countdown(0)
	return nil
}
