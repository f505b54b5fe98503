package cli

import (
	"fmt"
	"os"

	"golang.org/x/term"
)

// promptToken reads the API bearer token without echoing it to the terminal.
func promptToken() (string, error) {
	fmt.Print("API token: ")
	b, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("reading token: %w", err)
	}
	return string(b), nil
}
