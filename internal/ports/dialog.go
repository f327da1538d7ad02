package ports

// PasswordPrompter asks the user for a credential interactively.
// Implementations may use TUI forms or test fakes.
type PasswordPrompter interface {
	// PromptPassword asks for the password of user@host.
	PromptPassword(user, host string) (string, error)
}
