// Package realdialog provides a TUI password prompt using charmbracelet/huh.
package realdialog

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/huh"

	"github.com/acolita/sshsync/internal/ports"
)

// ErrEmptyPassword is returned when the user submits an empty password.
var ErrEmptyPassword = errors.New("empty password")

// Prompter implements ports.PasswordPrompter with a single masked input.
type Prompter struct {
	// Accessible switches huh to its screen-reader friendly mode, which
	// also works when the terminal cannot enter raw mode.
	Accessible bool
}

// New returns a new TUI prompter.
func New() *Prompter {
	return &Prompter{}
}

// PromptPassword asks for the password of user@host.
func (p *Prompter) PromptPassword(user, host string) (string, error) {
	var password string

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title(passwordTitle(user, host)).
				EchoMode(huh.EchoModePassword).
				Value(&password),
		),
	).WithAccessible(p.Accessible)

	if err := form.Run(); err != nil {
		return "", fmt.Errorf("password prompt: %w", err)
	}
	if password == "" {
		return "", ErrEmptyPassword
	}
	return password, nil
}

func passwordTitle(user, host string) string {
	return fmt.Sprintf("Password for %s@%s", user, host)
}

var _ ports.PasswordPrompter = (*Prompter)(nil)
