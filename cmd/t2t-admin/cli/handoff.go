package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"golang.org/x/term"
)

// errNoSecureChannel is returned when a generated password has nowhere safe
// to go: stdout is not a terminal and no --output-file was given.
var errNoSecureChannel = errors.New("stdout is not a terminal; pass --output-file to receive the password")

// handoff delivers a freshly generated password exactly once, either to an
// interactive terminal or to a new file readable only by the operator.
type handoff struct {
	out        io.Writer
	outputFile string
	isTerminal bool
}

func newHandoff(out io.Writer, outputFile string) *handoff {
	return &handoff{
		out:        out,
		outputFile: outputFile,
		isTerminal: term.IsTerminal(int(os.Stdout.Fd())),
	}
}

// check fails before any account is touched if the password could not be
// delivered afterwards.
func (h *handoff) check() error {
	if h.outputFile != "" {
		if _, err := os.Lstat(h.outputFile); err == nil {
			return fmt.Errorf("%s already exists; refusing to overwrite", h.outputFile)
		}
		return nil
	}
	if !h.isTerminal {
		return errNoSecureChannel
	}
	return nil
}

// deliver hands over the password. The file is created exclusively with
// mode 0600 so nobody else can have it open.
func (h *handoff) deliver(title, email, password string) error {
	if h.outputFile != "" {
		f, err := os.OpenFile(h.outputFile, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
		if err != nil {
			return fmt.Errorf("write password file: %w", err)
		}
		_, werr := fmt.Fprintf(f, "Admin Account Credentials\nEmail: %s\nPassword: %s\nIssued: %s\n",
			email, password, time.Now().UTC().Format(time.RFC3339))
		if cerr := f.Close(); werr == nil {
			werr = cerr
		}
		if werr != nil {
			os.Remove(h.outputFile)
			return fmt.Errorf("write password file: %w", werr)
		}
		fmt.Fprintf(h.out, "%s\n  Email:    %s\n  Password: written to %s (mode 0600)\n", title, email, h.outputFile)
		fmt.Fprintln(h.out, "  Delete the file once the password has been handed over.")
		return nil
	}
	if !h.isTerminal {
		return errNoSecureChannel
	}

	fmt.Fprintln(h.out, title)
	fmt.Fprintf(h.out, "  Email:    %s\n", email)
	fmt.Fprintf(h.out, "  Password: %s\n\n", password)
	fmt.Fprintln(h.out, "This password will NOT be shown again. It is stored only as a bcrypt hash.")
	fmt.Fprintf(h.out, "If it is lost, run: t2t-admin admin reset %s\n", email)
	return nil
}
