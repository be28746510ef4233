package mercatoctl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
)

// console runs an interactive loop sending each line to /v1/chat. Lines are
// plain questions; quit, exit and \q leave the session.
func (c *ctl) console(ctx context.Context) int {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "mercato> ",
		HistoryFile:     filepath.Join(os.TempDir(), "mercatoctl_history"),
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
		Stdout:          c.stdout,
		Stderr:          c.stderr,
	})
	if err != nil {
		_, _ = fmt.Fprintf(c.stderr, "console unavailable: %v\n", err)
		return 1
	}
	defer func() { _ = rl.Close() }()

	_, _ = fmt.Fprintln(c.stdout, "Ask about the transfer market. Type exit to leave.")
	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			if len(line) == 0 {
				return 0
			}
			continue
		}
		if errors.Is(err, io.EOF) {
			return 0
		}
		if err != nil {
			_, _ = fmt.Fprintf(c.stderr, "read error: %v\n", err)
			return 1
		}

		question := strings.TrimSpace(line)
		switch question {
		case "":
			continue
		case "quit", "exit", `\q`:
			return 0
		}

		answer, code := c.askOnce(ctx, question)
		if code != 0 {
			// keep the session alive; the error already went to stderr
			continue
		}
		printAnswer(c.stdout, answer)
		_, _ = fmt.Fprintln(c.stdout)
	}
}
