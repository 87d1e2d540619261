package passphrase

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"golang.org/x/term"
)

// DefaultEnv is consulted before prompting for a wallet keystore passphrase.
const DefaultEnv = "MARKET_KEY_PASS"

// ErrEmpty is returned when the resolved passphrase is blank.
var ErrEmpty = errors.New("wallet passphrase cannot be empty")

// Source lazily resolves a wallet keystore passphrase from an environment
// variable or a terminal prompt. The first result is cached.
type Source struct {
	envVar string
	lookup func(string) (string, bool)
	prompt func(label string) (string, error)

	once  sync.Once
	value string
	err   error
}

// NewSource checks envVar before prompting on the controlling terminal.
func NewSource(envVar string) *Source {
	return &Source{
		envVar: strings.TrimSpace(envVar),
		lookup: os.LookupEnv,
		prompt: terminalPrompt(os.Stdin, os.Stderr),
	}
}

// Static returns a source that always yields value. Blank values still fail.
func Static(value string) *Source {
	return &Source{
		lookup: func(string) (string, bool) { return "", false },
		prompt: func(string) (string, error) { return value, nil },
	}
}

// Get returns the cached passphrase or resolves it on first use.
func (s *Source) Get() (string, error) {
	s.once.Do(func() {
		if s.envVar != "" {
			if value, ok := s.lookup(s.envVar); ok {
				if strings.TrimSpace(value) == "" {
					s.err = fmt.Errorf("%s is set but empty", s.envVar)
					return
				}
				s.value = value
				return
			}
		}

		passphrase, err := s.prompt("Enter wallet passphrase: ")
		if err != nil {
			if s.envVar != "" {
				s.err = fmt.Errorf("%w; set %s or run interactively", err, s.envVar)
			} else {
				s.err = err
			}
			return
		}
		if strings.TrimSpace(passphrase) == "" {
			s.err = ErrEmpty
			return
		}
		s.value = passphrase
	})

	return s.value, s.err
}

func terminalPrompt(in *os.File, out io.Writer) func(string) (string, error) {
	return func(label string) (string, error) {
		if !term.IsTerminal(int(in.Fd())) {
			return "", errors.New("wallet passphrase required and no terminal available")
		}
		fmt.Fprint(out, label)
		raw, err := term.ReadPassword(int(in.Fd()))
		fmt.Fprintln(out)
		if err != nil {
			return "", fmt.Errorf("failed to read passphrase: %w", err)
		}
		return string(raw), nil
	}
}
