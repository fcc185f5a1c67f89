package launcher

import (
	"fmt"
	"os"

	"golang.org/x/term"
)

// pickTTY is the fallback picker for terminals without any graphical
// launcher: an inline list driven by arrow keys (or j/k), Enter to confirm,
// Esc or Ctrl+C to cancel. Rows are rendered as-is, so icon decoration
// should be off in this mode.
func pickTTY(prompt string, rows []string) (string, error) {
	if len(rows) == 0 {
		return "", ErrCancelled
	}

	fd := int(os.Stdin.Fd())
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return "", fmt.Errorf("%w: setting raw mode: %v", ErrUnavailable, err)
	}
	defer term.Restore(fd, oldState)

	cursor := 0
	render := func() {
		fmt.Fprint(os.Stderr, "\r\x1b[J")
		fmt.Fprintf(os.Stderr, "%s (↑/↓, Enter to confirm, Esc to cancel):\r\n\r\n", prompt)
		for i, row := range rows {
			if i == cursor {
				fmt.Fprintf(os.Stderr, "  \x1b[1;36m▶ %s\x1b[0m\r\n", row)
			} else {
				fmt.Fprintf(os.Stderr, "    %s\r\n", row)
			}
		}
	}
	render()

	buf := make([]byte, 3)
	for {
		n, err := os.Stdin.Read(buf)
		if err != nil {
			return "", fmt.Errorf("%w: reading input: %v", ErrUnavailable, err)
		}

		if n == 1 {
			switch buf[0] {
			case 13: // Enter
				fmt.Fprint(os.Stderr, "\r\n")
				return rows[cursor], nil
			case 3, 27: // Ctrl+C, Esc
				fmt.Fprint(os.Stderr, "\r\n")
				return "", ErrCancelled
			case 'j':
				if cursor < len(rows)-1 {
					cursor++
				}
			case 'k':
				if cursor > 0 {
					cursor--
				}
			}
		} else if n == 3 && buf[0] == 0x1b && buf[1] == '[' {
			switch buf[2] {
			case 'A':
				if cursor > 0 {
					cursor--
				}
			case 'B':
				if cursor < len(rows)-1 {
					cursor++
				}
			}
		}

		fmt.Fprintf(os.Stderr, "\x1b[%dA", len(rows)+2)
		render()
	}
}
