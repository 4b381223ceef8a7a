package predictor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"exoplanet-backend/internal/models"
)

// CommandPredictor runs an external program with the JSON-encoded feature
// vector as its last argument and reads a JSON result from stdout.
type CommandPredictor struct {
	name    string
	args    []string
	timeout time.Duration
}

// NewCommandPredictor splits command on whitespace, e.g.
// "python ai/predict.py".
func NewCommandPredictor(command string, timeout time.Duration) (*CommandPredictor, error) {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return nil, fmt.Errorf("empty predictor command")
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &CommandPredictor{name: fields[0], args: fields[1:], timeout: timeout}, nil
}

func (p *CommandPredictor) Name() string {
	return "command:" + p.name
}

func (p *CommandPredictor) Predict(ctx context.Context, fv models.FeatureVector) (Result, error) {
	payload, err := json.Marshal(fv)
	if err != nil {
		return Result{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	args := append(append([]string{}, p.args...), string(payload))
	cmd := exec.CommandContext(ctx, p.name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = time.Second

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return Result{}, fmt.Errorf("classifier timed out: %w", ctx.Err())
		}
		return Result{}, fmt.Errorf("classifier failed: %v: %s", err, strings.TrimSpace(stderr.String()))
	}
	return parseResult(stdout.Bytes())
}
