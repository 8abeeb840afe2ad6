// netrunnerctl is an interactive operator shell for the netrunner
// backend.
//
// The token is read from NETRUNNER_TOKEN or prompted for with echo
// disabled; it is never taken as a flag so it stays out of shell
// history and process listings.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/c-bata/go-prompt"
	"golang.org/x/term"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	serverURL := flag.String("server", "http://127.0.0.1:8090", "server base URL")
	flag.Parse()

	token, err := readToken()
	if err != nil {
		fmt.Fprintf(os.Stderr, "netrunnerctl: %v\n", err)
		os.Exit(1)
	}

	sh := newShell(*serverURL, token)

	fmt.Printf("netrunnerctl %s (server %s)\n", Version, *serverURL)
	fmt.Println("Type 'help' for commands, 'exit' to quit.")

	p := prompt.New(
		sh.execute,
		sh.complete,
		prompt.OptionPrefix("netrunner> "),
		prompt.OptionTitle("netrunnerctl"),
	)
	p.Run()
}

// readToken gets the dashboard token from the environment or an
// echo-disabled terminal prompt.
func readToken() (string, error) {
	if token := os.Getenv("NETRUNNER_TOKEN"); token != "" {
		return token, nil
	}

	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("no terminal for token prompt (set NETRUNNER_TOKEN)")
	}

	fmt.Fprint(os.Stderr, "Token: ")
	raw, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("read token: %w", err)
	}
	if len(raw) == 0 {
		return "", fmt.Errorf("empty token")
	}
	return string(raw), nil
}
