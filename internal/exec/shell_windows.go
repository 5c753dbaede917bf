//go:build windows

package exec

import (
	"context"
	osexec "os/exec"
)

func shellCommand(ctx context.Context, command string) *osexec.Cmd {
	return osexec.CommandContext(ctx, "cmd.exe", "/C", command)
}
