// Command keygen prints a fresh hex-encoded 32-byte master key for
// SECRETS_ENCRYPTION_KEY.
package main

import (
	"fmt"
	"log"

	"github.com/gatehouse-dev/gatehouse/internal/crypto"
)

func main() {
	key, err := crypto.GenerateKey()
	if err != nil {
		log.Fatalf("key generation failed: %v", err)
	}
	fmt.Println(key)
}
