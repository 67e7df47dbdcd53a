// Package privilege hands files created by a root process back to the user
// who ran it through sudo.
//
// Tracing needs root, but the collection database and config file belong to
// the operator: files written under sudo are chowned to SUDO_UID/SUDO_GID and
// the config directory resolves to the invoking user's home.
package privilege

import (
	"errors"
	"fmt"
	"os"
	"os/user"
	"strconv"
)

// Invoker is the identity of the user who started the process.
type Invoker struct {
	Username string
	UID      int
	GID      int
	HomeDir  string
}

// DetectInvoker returns the user behind sudo when SUDO_USER is set, otherwise
// the current user.
func DetectInvoker() (*Invoker, error) {
	sudoUser := os.Getenv("SUDO_USER")
	if sudoUser == "" {
		return currentUser()
	}

	uidStr, gidStr := os.Getenv("SUDO_UID"), os.Getenv("SUDO_GID")
	if uidStr == "" || gidStr == "" {
		return nil, fmt.Errorf("SUDO_USER set but SUDO_UID or SUDO_GID missing")
	}
	uid, err := strconv.Atoi(uidStr)
	if err != nil {
		return nil, fmt.Errorf("invalid SUDO_UID: %w", err)
	}
	gid, err := strconv.Atoi(gidStr)
	if err != nil {
		return nil, fmt.Errorf("invalid SUDO_GID: %w", err)
	}

	inv := &Invoker{Username: sudoUser, UID: uid, GID: gid}
	if u, err := user.Lookup(sudoUser); err == nil {
		inv.HomeDir = u.HomeDir
	}
	return inv, nil
}

func currentUser() (*Invoker, error) {
	u, err := user.Current()
	if err != nil {
		return nil, fmt.Errorf("failed to get current user: %w", err)
	}
	return &Invoker{
		Username: u.Username,
		UID:      os.Getuid(),
		GID:      os.Getgid(),
		HomeDir:  u.HomeDir,
	}, nil
}

// IsRoot reports whether the effective uid is 0.
func IsRoot() bool {
	return os.Geteuid() == 0
}

// UnderSudo reports whether SUDO_USER is set.
func UnderSudo() bool {
	return os.Getenv("SUDO_USER") != ""
}

// HomeDir returns the invoking user's home directory, falling back to the
// process's own.
func HomeDir() (string, error) {
	if UnderSudo() {
		if inv, err := DetectInvoker(); err == nil && inv.HomeDir != "" {
			return inv.HomeDir, nil
		}
	}
	return os.UserHomeDir()
}

// ChownToInvoker gives paths to the user behind sudo. It does nothing unless
// the process is root under sudo. Missing paths are skipped.
func ChownToInvoker(paths ...string) error {
	if !IsRoot() || !UnderSudo() {
		return nil
	}
	inv, err := DetectInvoker()
	if err != nil {
		return fmt.Errorf("failed to detect invoking user: %w", err)
	}

	var errs []error
	for _, p := range paths {
		if err := os.Chown(p, inv.UID, inv.GID); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, fmt.Errorf("failed to chown %s to %d:%d: %w", p, inv.UID, inv.GID, err))
		}
	}
	return errors.Join(errs...)
}
