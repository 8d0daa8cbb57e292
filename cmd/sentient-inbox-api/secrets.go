package main

import (
	"bufio"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/memakingbeats/sentient-inbox-main/internal/credential"
)

const secretsUsage = `usage: sentient-inbox-api secrets <command>

  list          show which secrets are in the keyring
  set <key>     read the value from stdin and store it
  delete <key>  remove a secret

keys: %s
`

// runSecrets manages the keyring entries the backend falls back to when a
// secret is not in the environment.
func runSecrets(args []string, in io.Reader, out io.Writer) error {
	if len(args) == 0 {
		return fmt.Errorf(secretsUsage, strings.Join(credential.Keys(), ", "))
	}

	switch args[0] {
	case "list":
		stored, err := credential.Stored()
		if err != nil {
			return err
		}
		for _, k := range credential.Keys() {
			state := "missing"
			if slices.Contains(stored, k) {
				state = "stored"
			}
			fmt.Fprintf(out, "%-22s %s\n", k, state)
		}
		return nil

	case "set":
		if len(args) != 2 {
			return fmt.Errorf("usage: sentient-inbox-api secrets set <key>")
		}
		sc := bufio.NewScanner(in)
		if !sc.Scan() {
			if err := sc.Err(); err != nil {
				return fmt.Errorf("reading value: %w", err)
			}
			return fmt.Errorf("no value on stdin")
		}
		if err := credential.Set(args[1], strings.TrimSpace(sc.Text())); err != nil {
			return err
		}
		fmt.Fprintf(out, "stored %s\n", args[1])
		return nil

	case "delete":
		if len(args) != 2 {
			return fmt.Errorf("usage: sentient-inbox-api secrets delete <key>")
		}
		if err := credential.Delete(args[1]); err != nil {
			return err
		}
		fmt.Fprintf(out, "deleted %s\n", args[1])
		return nil

	default:
		return fmt.Errorf("unknown secrets command %q", args[0])
	}
}
