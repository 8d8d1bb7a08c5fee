package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	jsoniter "github.com/json-iterator/go"
	"golang.org/x/term"

	"github.com/mesh-intelligence/librarian/pkg/types"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Password sources, checked before prompting.
const (
	envPassword    = "LIBRARIAN_PASSWORD"
	envNewPassword = "LIBRARIAN_NEW_PASSWORD"
)

// emit writes v as indented JSON in --json mode and calls text otherwise.
func (a *app) emit(w io.Writer, v any, text func(w io.Writer)) error {
	if !a.flags.jsonMode {
		text(w)
		return nil
	}
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}
	fmt.Fprintln(w, string(out))
	return nil
}

// table writes aligned columns.
func table(w io.Writer, header []string, rows [][]string) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(header, "\t"))
	for _, r := range rows {
		fmt.Fprintln(tw, strings.Join(r, "\t"))
	}
	tw.Flush()
}

// password returns the value of env when set. Otherwise it prompts without
// echo on a terminal, or reads one line from a non-terminal stdin.
func (a *app) password(env, prompt string) (string, error) {
	if v, ok := os.LookupEnv(env); ok {
		return v, nil
	}
	if f, ok := a.stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(os.Stderr, prompt)
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return string(b), nil
	}
	if a.lines == nil {
		a.lines = bufio.NewReader(a.stdin)
	}
	line, err := a.lines.ReadString('\n')
	if err != nil && line == "" {
		return "", types.InvalidInputf("no password given: set %s or pass it on stdin", env)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
