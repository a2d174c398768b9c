package cli

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/fahmaliyi/pwvault/vault"
)

// Shell is the line-oriented front end. It holds the master password for
// the session and passes it to every vault call.
type Shell struct {
	m          *vault.Manager
	sess       *vault.Session
	master     []byte
	in         *bufio.Reader
	out        io.Writer
	copy       func(string) error
	clearAfter time.Duration
}

func NewShell(m *vault.Manager, sess *vault.Session, master []byte, in io.Reader, out io.Writer, clearAfter time.Duration) *Shell {
	return &Shell{
		m:          m,
		sess:       sess,
		master:     master,
		in:         bufio.NewReader(in),
		out:        out,
		copy:       clipboard.WriteAll,
		clearAfter: clearAfter,
	}
}

const shellHelp = "Commands: a NAME=add, g NAME=show, c NAME=copy, u NAME=regenerate, d NAME=delete, l=list, q=quit"

// Run reads commands until q or end of input.
func (s *Shell) Run() {
	s.printSummary()
	for {
		fmt.Fprintln(s.out, "\n"+shellHelp)
		fmt.Fprint(s.out, "> ")

		line, err := s.in.ReadString('\n')
		line = strings.TrimSpace(line)
		if line == "" {
			if err != nil {
				return
			}
			continue
		}

		cmd, service, _ := strings.Cut(line, " ")
		service = strings.TrimSpace(service)

		switch cmd {
		case "a", "g", "c", "u", "d":
			if service == "" {
				fmt.Fprintln(s.out, "Specify a service name")
				continue
			}
			switch cmd {
			case "a":
				s.handleAdd(service)
			case "g":
				s.handleShow(service)
			case "c":
				s.handleCopy(service)
			case "u":
				s.handleUpdate(service)
			case "d":
				s.handleDelete(service)
			}
		case "l":
			s.handleList()
		case "q":
			fmt.Fprintln(s.out, "Exiting.")
			return
		default:
			fmt.Fprintln(s.out, "Unknown command")
		}
	}
}

func (s *Shell) printSummary() {
	n, err := s.m.Count(s.sess)
	if err != nil {
		fmt.Fprintln(s.out, describeError(err))
		return
	}
	fmt.Fprintf(s.out, "Session opened %s. Stored secrets: %d\n", formatTime(s.sess.OpenedAt()), n)
}

func (s *Shell) confirm(question string) bool {
	fmt.Fprintf(s.out, "%s [y/N] ", question)
	answer, _ := s.in.ReadString('\n')
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}

func (s *Shell) handleAdd(service string) {
	secret, err := addSecret(s.m, service, s.master, func(service string) bool {
		return s.confirm(fmt.Sprintf("An entry for %q exists. Overwrite?", service))
	})
	if err != nil {
		fmt.Fprintln(s.out, describeError(err))
		return
	}
	fmt.Fprintf(s.out, "Secret for %s: %s\n", service, secret)
	vault.Wipe(secret)
}

func (s *Shell) handleShow(service string) {
	secret, err := s.m.Get(service, s.master)
	if err != nil {
		fmt.Fprintln(s.out, describeError(err))
		return
	}
	fmt.Fprintf(s.out, "Secret for %s: %s\n", service, secret)
	vault.Wipe(secret)
}

func (s *Shell) handleCopy(service string) {
	secret, err := s.m.Get(service, s.master)
	if err != nil {
		fmt.Fprintln(s.out, describeError(err))
		return
	}
	if err := copySecret(s.copy, secret, s.clearAfter); err != nil {
		fmt.Fprintln(s.out, "Clipboard unavailable:", err)
		return
	}
	fmt.Fprintf(s.out, "Secret copied to clipboard. Clearing in %s...\n", s.clearAfter)
}

func (s *Shell) handleUpdate(service string) {
	if !s.confirm(fmt.Sprintf("Replace the secret for %q with a new one?", service)) {
		return
	}
	secret, err := s.m.Update(service, s.master)
	if err != nil {
		fmt.Fprintln(s.out, describeError(err))
		return
	}
	fmt.Fprintf(s.out, "New secret for %s: %s\n", service, secret)
	vault.Wipe(secret)
}

func (s *Shell) handleDelete(service string) {
	if !s.confirm(fmt.Sprintf("Delete the secret for %q?", service)) {
		return
	}
	if err := s.m.Delete(service, s.master); err != nil {
		fmt.Fprintln(s.out, describeError(err))
		return
	}
	fmt.Fprintln(s.out, "Entry deleted!")
}

func (s *Shell) handleList() {
	entries, err := s.m.List(s.sess)
	if err != nil {
		fmt.Fprintln(s.out, describeError(err))
		return
	}
	if len(entries) == 0 {
		fmt.Fprintln(s.out, "No secrets stored yet")
		return
	}
	fmt.Fprintln(s.out, "Vault entries:")
	for i, e := range entries {
		fmt.Fprintf(s.out, "%2d) %-30s updated %s | last access %s\n",
			i+1, e.Service, formatTime(e.UpdatedAt), formatTime(e.LastAccessedAt))
	}
}
