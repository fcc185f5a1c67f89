// Package launcher drives an external dmenu-style picker: rows go to the
// child's stdin, the chosen row comes back on its stdout. Cancelling the
// picker (escape, empty selection) is reported as ErrCancelled, not as a
// failure.
package launcher

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"pamenu/log"
)

type Kind uint8

const (
	Fuzzel Kind = iota
	Rofi
	Dmenu
	Walker
	Custom
	TTY
)

// ParseKind maps a config string to a launcher Kind.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "fuzzel":
		return Fuzzel, nil
	case "rofi":
		return Rofi, nil
	case "dmenu":
		return Dmenu, nil
	case "walker":
		return Walker, nil
	case "custom":
		return Custom, nil
	case "tty":
		return TTY, nil
	}
	return Fuzzel, fmt.Errorf("unknown launcher %q", s)
}

var (
	// ErrCancelled means the user dismissed the picker or selected nothing.
	ErrCancelled = errors.New("selection cancelled")

	// ErrUnavailable means the launcher program could not be run.
	ErrUnavailable = errors.New("launcher unavailable")
)

// Launcher builds and runs picker invocations for one configured launcher.
type Launcher struct {
	kind     Kind
	command  string // template for Custom, may contain {prompt}/{placeholder}
	iconMode string // "none", "font" or "xdg"; some launchers need flags
}

func New(kind Kind, command, iconMode string) (*Launcher, error) {
	if kind == Custom && strings.TrimSpace(command) == "" {
		return nil, errors.New("custom launcher requires a command")
	}
	return &Launcher{kind: kind, command: command, iconMode: iconMode}, nil
}

// Pick shows rows and returns the selected one. The selection is returned as
// printed by the launcher, including any row decoration.
func (l *Launcher) Pick(ctx context.Context, prompt string, rows []string) (string, error) {
	if l.kind == TTY {
		return pickTTY(prompt, rows)
	}
	argv, err := l.argv(prompt)
	if err != nil {
		return "", err
	}
	log.Debugf("launcher: %s", strings.Join(argv, " "))

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Stdin = strings.NewReader(strings.Join(rows, "\n"))
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		var exit *exec.ExitError
		if errors.As(err, &exit) {
			// Pickers exit nonzero when dismissed.
			return "", ErrCancelled
		}
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	sel := strings.TrimSpace(stdout.String())
	if sel == "" {
		return "", ErrCancelled
	}
	return sel, nil
}

func (l *Launcher) argv(prompt string) ([]string, error) {
	switch l.kind {
	case Fuzzel:
		argv := []string{"fuzzel", "-d"}
		if l.iconMode == "font" {
			argv = append(argv, "-I")
		}
		if prompt != "" {
			argv = append(argv, "--placeholder", prompt)
		}
		return argv, nil
	case Rofi:
		argv := []string{"rofi", "-m", "-1", "-dmenu"}
		if l.iconMode == "xdg" {
			argv = append(argv, "-show-icons")
		}
		if prompt != "" {
			argv = append(argv, "-theme-str", fmt.Sprintf("entry { placeholder: %q; }", prompt))
		}
		return argv, nil
	case Dmenu:
		argv := []string{"dmenu"}
		if prompt != "" {
			argv = append(argv, "-p", prompt+": ")
		}
		return argv, nil
	case Walker:
		argv := []string{"walker", "-d", "-k"}
		if prompt != "" {
			argv = append(argv, "-p", prompt)
		}
		return argv, nil
	case Custom:
		cmd := strings.ReplaceAll(l.command, "{prompt}", prompt)
		cmd = strings.ReplaceAll(cmd, "{placeholder}", prompt)
		argv := splitCommand(cmd)
		if len(argv) == 0 {
			return nil, fmt.Errorf("%w: empty custom command", ErrUnavailable)
		}
		return argv, nil
	}
	return nil, fmt.Errorf("%w: unsupported launcher", ErrUnavailable)
}

// splitCommand splits a command line into argv, honoring single quotes,
// double quotes and backslash escapes outside single quotes.
func splitCommand(s string) []string {
	var argv []string
	var cur strings.Builder
	var inWord bool
	var quote byte

	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case quote == '\'':
			if c == '\'' {
				quote = 0
			} else {
				cur.WriteByte(c)
			}
		case quote == '"':
			if c == '"' {
				quote = 0
			} else if c == '\\' && i+1 < len(s) && (s[i+1] == '"' || s[i+1] == '\\') {
				i++
				cur.WriteByte(s[i])
			} else {
				cur.WriteByte(c)
			}
		case c == '\'' || c == '"':
			quote = c
			inWord = true
		case c == '\\' && i+1 < len(s):
			i++
			cur.WriteByte(s[i])
			inWord = true
		case c == ' ' || c == '\t':
			if inWord {
				argv = append(argv, cur.String())
				cur.Reset()
				inWord = false
			}
		default:
			cur.WriteByte(c)
			inWord = true
		}
	}
	if inWord {
		argv = append(argv, cur.String())
	}
	return argv
}
