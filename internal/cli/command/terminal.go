package command

import (
	"io"
	"os"

	"golang.org/x/term"
)

// Terminal reads passwords without echo.
type Terminal interface {
	// Fd returns the descriptor behind r when r is an interactive terminal.
	Fd(r io.Reader) (int, bool)
	ReadPassword(fd int) ([]byte, error)
}

type stdTerminal struct{}

func (stdTerminal) Fd(r io.Reader) (int, bool) {
	f, ok := r.(*os.File)
	if !ok {
		return 0, false
	}
	fd := int(f.Fd())
	return fd, term.IsTerminal(fd)
}

func (stdTerminal) ReadPassword(fd int) ([]byte, error) {
	return term.ReadPassword(fd)
}
