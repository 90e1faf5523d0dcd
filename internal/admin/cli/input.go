package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/dmitrijs2005/newsletter/internal/common"
	"github.com/dmitrijs2005/newsletter/internal/server/passwords"
)

// readPassword and isTerminal are test seams for the x/term calls.
var (
	readPassword = term.ReadPassword
	isTerminal   = term.IsTerminal
)

// prompter reads secrets without echo from a terminal, or one line at a
// time when input is piped.
type prompter struct {
	in  *bufio.Reader
	fd  int
	out io.Writer
}

func newPrompter(in io.Reader, out io.Writer) *prompter {
	fd := -1
	if f, ok := in.(*os.File); ok {
		fd = int(f.Fd())
	}
	return &prompter{in: bufio.NewReader(in), fd: fd, out: out}
}

// Password prints prompt and returns the entered password.
func (p *prompter) Password(prompt string) (passwords.Secret, error) {
	if _, err := fmt.Fprint(p.out, prompt+": "); err != nil {
		return passwords.Secret{}, err
	}

	if p.fd >= 0 && isTerminal(p.fd) {
		b, err := readPassword(p.fd)
		fmt.Fprintln(p.out)
		if err != nil {
			return passwords.Secret{}, err
		}
		s := passwords.NewSecretBytes(b)
		common.WipeByteArray(b)
		return s, nil
	}

	line, err := p.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && len(line) > 0) {
		return passwords.Secret{}, err
	}
	return passwords.NewSecret(strings.TrimRight(line, "\r\n")), nil
}

// NewPassword asks twice and fails when the answers differ.
func (p *prompter) NewPassword() (passwords.Secret, error) {
	pw, err := p.Password("Enter password")
	if err != nil {
		return passwords.Secret{}, err
	}
	check, err := p.Password("Repeat password")
	if err != nil {
		pw.Clear()
		return passwords.Secret{}, err
	}
	defer check.Clear()

	if !pw.Equal(check) {
		pw.Clear()
		return passwords.Secret{}, errors.New("passwords do not match")
	}
	return pw, nil
}
