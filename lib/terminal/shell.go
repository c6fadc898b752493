package terminal

import (
	"context"
	"strings"

	"github.com/onkernel/hypedesk/lib/logger"
)

// ShellKind is the outcome of shell negotiation.
type ShellKind int

const (
	// ShellSh is /bin/sh, present in every image we support.
	ShellSh ShellKind = iota
	// ShellBash is a login bash found on PATH.
	ShellBash
)

func (k ShellKind) String() string {
	if k == ShellBash {
		return "bash"
	}
	return "sh"
}

// Shell is the command an interactive session runs.
type Shell struct {
	Kind ShellKind
	Cmd  []string
}

var detectBashCmd = []string{"sh", "-c", "command -v bash"}

// detectShell looks for bash in the container and falls back to /bin/sh.
func detectShell(ctx context.Context, runtime Runtime, ref string) Shell {
	out, err := runtime.ExecOutput(ctx, ref, detectBashCmd)
	if err != nil {
		logger.FromContext(ctx).DebugContext(ctx, "bash lookup failed, using sh", "container_ref", ref, "error", err)
		return Shell{Kind: ShellSh, Cmd: []string{"/bin/sh"}}
	}
	if path := strings.TrimSpace(out); path != "" {
		return Shell{Kind: ShellBash, Cmd: []string{path, "-l"}}
	}
	return Shell{Kind: ShellSh, Cmd: []string{"/bin/sh"}}
}
