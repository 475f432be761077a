package infra

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"repricer/internal/service"
)

// ExecRecommender runs the pricing model as a subprocess, one process per
// request. The request JSON is written to stdin and, with PassAsArgument,
// appended as the last argument for scripts that read argv. The last
// non-empty stdout line must hold the answer; earlier lines are treated as
// the script's own logging.
type ExecRecommender struct {
	command        string
	args           []string
	passAsArgument bool
}

func NewExecRecommender(command string, args []string, passAsArgument bool) *ExecRecommender {
	return &ExecRecommender{command: command, args: args, passAsArgument: passAsArgument}
}

const (
	// maxStderr bounds how much of the child's stderr ends up in an error.
	maxStderr = 512
	waitDelay = 500 * time.Millisecond
)

func (r *ExecRecommender) Recommend(ctx context.Context, req service.OptimizationRequest) (*service.Recommendation, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("%w: marshal request: %w", service.ErrRecommendationUnavailable, err)
	}

	args := append([]string(nil), r.args...)
	if r.passAsArgument {
		args = append(args, string(payload))
	}

	// CommandContext kills the child when ctx ends.
	cmd := exec.CommandContext(ctx, r.command, args...)
	cmd.Stdin = bytes.NewReader(payload)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	// Grandchildren holding the pipes open must not outlive the deadline.
	cmd.WaitDelay = waitDelay

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("%w: %w", service.ErrRecommendationUnavailable, ctxErr)
		}
		return nil, fmt.Errorf("%w: %s failed: %w: %s",
			service.ErrRecommendationUnavailable, r.command, err, truncate(stderr.String(), maxStderr))
	}

	line := lastLine(stdout.String())
	if line == "" {
		return nil, fmt.Errorf("%w: empty output", service.ErrRecommendationUnavailable)
	}
	return decodeRecommendation([]byte(line))
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if l := strings.TrimSpace(lines[i]); l != "" {
			return l
		}
	}
	return ""
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}
