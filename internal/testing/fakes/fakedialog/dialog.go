// Package fakedialog provides a test fake for ports.PasswordPrompter.
package fakedialog

import "github.com/acolita/sshsync/internal/ports"

// Prompter is a controllable fake PasswordPrompter for testing.
type Prompter struct {
	// Password is returned by PromptPassword.
	Password string
	// Err is the error returned by PromptPassword.
	Err error
	// Calls counts PromptPassword invocations.
	Calls int
	// LastUser and LastHost capture the most recent prompt target.
	LastUser string
	LastHost string
}

// New returns a fake prompter that answers with password.
func New(password string) *Prompter {
	return &Prompter{Password: password}
}

// PromptPassword returns the configured Password and Err.
func (p *Prompter) PromptPassword(user, host string) (string, error) {
	p.Calls++
	p.LastUser = user
	p.LastHost = host
	if p.Err != nil {
		return "", p.Err
	}
	return p.Password, nil
}

var _ ports.PasswordPrompter = (*Prompter)(nil)
