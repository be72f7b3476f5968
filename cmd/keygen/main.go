// Command keygen bootstraps the at-rest encryption key for document storage.
// It refuses to overwrite an existing key; rotate by moving the old key away
// first and re-encrypting stored documents.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/loanform/loanform/internal/encrypt"
)

func main() {
	out := flag.String("out", "/var/lib/loanform/encryption.key", "path to write the base64-encoded key")
	flag.Parse()

	key, err := encrypt.GenerateKey()
	if err != nil {
		fmt.Fprintf(os.Stderr, "generate key: %v\n", err)
		os.Exit(1)
	}

	if err := encrypt.WriteKeyFile(*out, key); err != nil {
		fmt.Fprintf(os.Stderr, "write key: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("encryption key written to %s\n", *out)
}
