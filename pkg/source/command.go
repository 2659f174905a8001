package source

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/stats-collector/pkg/logger"
)

// CommandRunner 执行一条 shell 命令并返回标准输出
type CommandRunner interface {
	Run(ctx context.Context, command string) (string, error)
}

// ShellRunner 通过 sh -c 执行命令，Timeout > 0 时限制单次执行时长
type ShellRunner struct {
	Timeout time.Duration
}

// NewShellRunner 创建命令执行器
func NewShellRunner(timeout time.Duration) *ShellRunner {
	return &ShellRunner{Timeout: timeout}
}

func (r *ShellRunner) Run(ctx context.Context, command string) (string, error) {
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	logger.Debug("executing command", zap.String("command", command))
	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", &UpstreamError{Source: "shell", Err: fmt.Errorf("command %q timed out: %w", command, ctx.Err())}
		}
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			err = fmt.Errorf("%w: %s", err, msg)
		}
		return "", &UpstreamError{Source: "shell", Err: fmt.Errorf("command %q failed: %w", command, err)}
	}
	return stdout.String(), nil
}
