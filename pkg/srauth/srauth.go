// Package srauth gates the sr-reroute-network CLI's mutating
// subcommands (start/resume) behind an administrative passphrase,
// scoped down from the teacher's pkg/auth group-permission checker to
// the single operation this spec exposes (SPEC_FULL.md §11.1).
package srauth

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/term"
)

// ErrDenied is the sentinel wrapped by every denial, mirroring the
// teacher's util.ErrPermissionDenied convention.
var ErrDenied = errors.New("srauth: permission denied")

// Gate checks an operator-supplied passphrase against a bcrypt hash
// before allowing a mutating CLI operation. A Gate with an empty hash
// allows everyone — the unconfigured default for local/dev use.
type Gate struct {
	PassphraseHash string
	SuperUsers     []string
}

// NewGate builds a Gate from config.Config's AdminPassphraseHash.
func NewGate(passphraseHash string, superUsers ...string) *Gate {
	return &Gate{PassphraseHash: passphraseHash, SuperUsers: superUsers}
}

// Allow checks username against the superuser allowlist first, then
// verifies passphrase against the configured bcrypt hash.
func (g *Gate) Allow(username, passphrase string) error {
	if g.PassphraseHash == "" {
		return nil
	}
	for _, su := range g.SuperUsers {
		if su == username {
			return nil
		}
	}
	if err := bcrypt.CompareHashAndPassword([]byte(g.PassphraseHash), []byte(passphrase)); err != nil {
		return &DeniedError{User: username}
	}
	return nil
}

// PromptPassphrase reads a passphrase from the terminal without local
// echo, matching the teacher's pkg/cli use of golang.org/x/term for
// terminal interaction.
func PromptPassphrase(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	b, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("srauth: reading passphrase: %w", err)
	}
	return string(b), nil
}

// HashPassphrase bcrypt-hashes passphrase for storage in
// config.Config.AdminPassphraseHash (used by a one-off setup command).
func HashPassphrase(passphrase string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(passphrase), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("srauth: hashing passphrase: %w", err)
	}
	return string(h), nil
}

// DeniedError reports a failed Gate.Allow check.
type DeniedError struct {
	User string
}

func (e *DeniedError) Error() string {
	return fmt.Sprintf("srauth: permission denied: user %q supplied an incorrect passphrase", e.User)
}

func (e *DeniedError) Unwrap() error { return ErrDenied }
