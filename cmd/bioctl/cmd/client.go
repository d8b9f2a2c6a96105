package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"

	"github.com/yerzatm002/biometric-auth-system/internal/flow"
	"github.com/yerzatm002/biometric-auth-system/pkg/clierror"
	"github.com/yerzatm002/biometric-auth-system/pkg/guard"
	"github.com/yerzatm002/biometric-auth-system/pkg/liveness"
	"github.com/yerzatm002/biometric-auth-system/pkg/pipeline"
	"github.com/yerzatm002/biometric-auth-system/pkg/verifier"
)

// newAPIClient builds the verifier client on top of the authenticating
// pipeline, so every request carries the session credential and gets
// the transparent refresh cycle.
func newAPIClient() *verifier.Client {
	server := GetServer()
	pl := pipeline.New(sess, pipeline.Config{
		RefreshURL: server + "/auth/refresh",
		Logger:     logger,
		Recorder:   recorder,
	})
	return verifier.NewClient(server, pl)
}

// newCapturer selects the frame source for liveness capture. There is
// no direct camera backend in the CLI; frames come from a directory,
// which also makes scripted runs reproducible.
func newCapturer(framesDir string, guided bool) (flow.Capturer, error) {
	if framesDir == "" {
		return nil, clierror.CameraUnavailable()
	}

	source := liveness.NewDirSource(framesDir)
	cfg := liveness.Config{Instruct: printInstruction}
	if guided {
		return liveness.NewGuided(source, newTerminalPrompter(), cfg), nil
	}
	return liveness.NewSequencer(source, cfg), nil
}

// requireAdmitted gates a command behind the route guard. The denial
// reason maps directly onto the CLI error taxonomy.
func requireAdmitted(route string) error {
	g, err := guard.New(guard.Config{Logger: logger})
	if err != nil {
		return clierror.InternalError(err)
	}

	decision := g.Check(sess.Snapshot(), route)
	if decision.Allowed {
		return nil
	}

	switch decision.Reason {
	case guard.ReasonExpired:
		// An expired credential is dead weight; clear it so the next
		// login starts from the credentials step.
		if err := sess.ClearCredential(); err != nil {
			logger.Warn("failed to clear expired session", "error", err)
		}
		return clierror.SessionExpired()
	case guard.ReasonFaceRequired:
		return clierror.FaceRequired()
	default:
		return clierror.NotAuthenticated()
	}
}

func printInstruction(msg string) {
	color.New(color.FgCyan, color.Bold).Fprintln(os.Stderr, msg)
}

// terminalPrompter drives the guided capture variant: each step waits
// for Enter, then counts down before the shot.
type terminalPrompter struct {
	reader *bufio.Reader
}

func newTerminalPrompter() *terminalPrompter {
	return &terminalPrompter{reader: bufio.NewReader(os.Stdin)}
}

func (p *terminalPrompter) Confirm(ctx context.Context, instruction string) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	color.New(color.FgCyan, color.Bold).Fprintln(os.Stderr, instruction)
	fmt.Fprint(os.Stderr, "Press Enter when ready...")
	_, err := p.reader.ReadString('\n')
	return err
}

func (p *terminalPrompter) Countdown(remaining int) {
	if remaining == 0 {
		color.New(color.FgGreen, color.Bold).Fprintln(os.Stderr, "Capture!")
		return
	}
	fmt.Fprintf(os.Stderr, "%d...\n", remaining)
}

// readLine prompts on stderr and reads one trimmed line from stdin.
func readLine(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
