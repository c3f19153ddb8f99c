package auth

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// Prompter asks for credential values on a terminal
type Prompter struct {
	in     io.Reader
	out    io.Writer
	reader *bufio.Reader
}

// NewPrompter reads from in and writes questions to out. Secrets are read
// without echo when in is a terminal.
func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{in: in, out: out, reader: bufio.NewReader(in)}
}

// Fill asks for every empty field of creds. The consumer pair is required;
// the access token pair may be left blank.
func (p *Prompter) Fill(creds *Credentials) error {
	fields := []struct {
		label    string
		dst      *string
		secret   bool
		required bool
	}{
		{"Consumer key", &creds.ConsumerKey, false, true},
		{"Consumer secret", &creds.ConsumerSecret, true, true},
		{"Access token", &creds.AccessToken, false, false},
		{"Access token secret", &creds.AccessTokenSecret, true, false},
	}

	for _, f := range fields {
		if *f.dst != "" {
			continue
		}
		v, err := p.ask(f.label, f.secret)
		if err != nil {
			return err
		}
		if v == "" && f.required {
			return fmt.Errorf("%w: %s is required", ErrInvalidCredentials, strings.ToLower(f.label))
		}
		*f.dst = v
	}
	return nil
}

// Confirm asks a yes/no question, defaulting to no
func (p *Prompter) Confirm(question string) (bool, error) {
	v, err := p.ask(question+" [y/N]", false)
	if err != nil {
		return false, err
	}
	switch strings.ToLower(v) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}

// Line reads one line after printing question
func (p *Prompter) Line(question string) (string, error) {
	fmt.Fprintln(p.out, question)
	return p.readLine()
}

func (p *Prompter) ask(label string, secret bool) (string, error) {
	fmt.Fprintf(p.out, "%s: ", label)

	if f, ok := p.in.(*os.File); ok && secret && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(p.out)
		if err != nil {
			return "", fmt.Errorf("failed to read %s: %w", strings.ToLower(label), err)
		}
		return strings.TrimSpace(string(b)), nil
	}
	return p.readLine()
}

func (p *Prompter) readLine() (string, error) {
	line, err := p.reader.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}
