// Package polisher turns rough drafts into short-form posts by piping them
// through a local text-generation command.
package polisher

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/ai-post-manager/internal/config"
	"github.com/rs/zerolog"
)

// ErrTimeout is returned when the generation command does not exit within the configured timeout
var ErrTimeout = errors.New("generation timed out")

// Polisher rewrites a draft into a polished post
type Polisher interface {
	Polish(ctx context.Context, draft string) (string, error)
}

// GenerationError indicates the generation command could not be started or exited with an error
type GenerationError struct {
	Command string
	Stderr  string
	Err     error
}

// Error implements the error interface.
func (e *GenerationError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("%s failed: %v (stderr: %s)", e.Command, e.Err, e.Stderr)
	}
	return fmt.Sprintf("%s failed: %v", e.Command, e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

// timeoutError keeps the configured duration in the message while matching ErrTimeout
type timeoutError struct {
	timeout time.Duration
}

func (e *timeoutError) Error() string {
	return fmt.Sprintf("generation timed out after %v", e.timeout)
}

func (e *timeoutError) Is(target error) bool {
	return target == ErrTimeout
}

// CLIPolisher runs `<command> <args...>` with the prompt and draft on stdin
// and returns its trimmed stdout.
type CLIPolisher struct {
	command string
	args    []string
	prompt  string
	timeout time.Duration
	log     zerolog.Logger
}

var _ Polisher = (*CLIPolisher)(nil)

// NewCLIPolisher creates a polisher that runs `<command> run <model>`, e.g. `ollama run llama3.1`
func NewCLIPolisher(cfg config.GeneratorConfig, log zerolog.Logger) *CLIPolisher {
	return NewCommandPolisher(cfg.Command, []string{"run", cfg.Model}, cfg.Prompt, cfg.Timeout, log)
}

// NewCommandPolisher creates a polisher for an arbitrary command line.
// A non-positive timeout disables the deadline; the caller's context still applies.
func NewCommandPolisher(command string, args []string, prompt string, timeout time.Duration, log zerolog.Logger) *CLIPolisher {
	return &CLIPolisher{
		command: command,
		args:    args,
		prompt:  prompt,
		timeout: timeout,
		log:     log.With().Str("component", "polisher").Str("command", command).Logger(),
	}
}

// Polish sends prompt+draft to the generation command and waits for it to exit
func (p *CLIPolisher) Polish(ctx context.Context, draft string) (string, error) {
	runCtx := ctx
	if p.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(runCtx, p.command, p.args...)
	cmd.Stdin = strings.NewReader(p.prompt + draft)
	cmd.WaitDelay = 2 * time.Second

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	duration := time.Since(start)

	if err != nil {
		// The caller gave up first: its own deadline or cancellation
		if ctx.Err() != nil {
			return "", fmt.Errorf("generation stopped after %v: %w", duration.Round(time.Millisecond), ctx.Err())
		}
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			p.log.Warn().Dur("duration", duration).Dur("timeout", p.timeout).Msg("Generation timed out")
			return "", &timeoutError{timeout: p.timeout}
		}

		genErr := &GenerationError{
			Command: p.command,
			Stderr:  strings.TrimSpace(stderr.String()),
			Err:     err,
		}
		p.log.Error().Err(genErr).Dur("duration", duration).Msg("Generation command failed")
		return "", genErr
	}

	p.log.Debug().
		Dur("duration", duration).
		Int("draft_len", len(draft)).
		Int("output_len", stdout.Len()).
		Msg("Draft polished")

	return strings.TrimSpace(stdout.String()), nil
}
