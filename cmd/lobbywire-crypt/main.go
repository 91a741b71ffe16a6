// lobbywire-crypt encrypts and decrypts files using the same at-rest
// Blowfish format lobbyd's configuration would use, matching the
// original's standalone encrypt/decrypt tools.
package main

import (
	"fmt"
	"os"

	"github.com/lobbywire/lobbywire/internal/crypto"
)

func main() {
	if len(os.Args) != 4 {
		fmt.Fprintf(os.Stderr, "USAGE: %s <encrypt|decrypt> IN OUT\n", os.Args[0])
		os.Exit(1)
	}

	mode, in, out := os.Args[1], os.Args[2], os.Args[3]

	data, err := os.ReadFile(in)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to read %s: %v\n", in, err)
		os.Exit(1)
	}

	var result []byte
	switch mode {
	case "encrypt":
		result, err = crypto.EncryptFile(data)
	case "decrypt":
		result, err = crypto.DecryptFile(data)
	default:
		fmt.Fprintf(os.Stderr, "USAGE: %s <encrypt|decrypt> IN OUT\n", os.Args[0])
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s failed: %v\n", mode, err)
		os.Exit(1)
	}

	if err := os.WriteFile(out, result, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "failed to write %s: %v\n", out, err)
		os.Exit(1)
	}
}
