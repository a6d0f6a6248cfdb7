// Package main provides a CLI for local key handling against a dim agent:
// generating wallet keys and producing the signatures the agent and relying
// parties expect. Keys are printed in clear; use only for development.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"dim/internal/session/models"
	"dim/internal/signer"
	"dim/pkg/secrets"
)

type keyOutput struct {
	Address    string `json:"address"`
	PrivateKey string `json:"private_key,omitempty"`
}

type signatureOutput struct {
	Address   string `json:"address"`
	Message   string `json:"message"`
	Signature string `json:"signature"`
	SignedAt  int64  `json:"signed_at,omitempty"`
}

func main() {
	keygenCmd := flag.NewFlagSet("keygen", flag.ExitOnError)
	keygenJSON := keygenCmd.Bool("json", false, "Output as JSON")

	addressCmd := flag.NewFlagSet("address", flag.ExitOnError)
	addressKey := addressCmd.String("key", os.Getenv("SIGNER_KEY_HEX"), "Hex private key (defaults to SIGNER_KEY_HEX)")

	signCmd := flag.NewFlagSet("sign", flag.ExitOnError)
	signKey := signCmd.String("key", os.Getenv("SIGNER_KEY_HEX"), "Hex private key (defaults to SIGNER_KEY_HEX)")
	signMessage := signCmd.String("message", "", "Message to sign")
	signJSON := signCmd.Bool("json", false, "Output as JSON")

	loginCmd := flag.NewFlagSet("login", flag.ExitOnError)
	loginKey := loginCmd.String("key", os.Getenv("SIGNER_KEY_HEX"), "Hex private key (defaults to SIGNER_KEY_HEX)")
	loginChallenge := loginCmd.String("challenge", "", "Challenge value returned by POST /auth/challenge")
	loginJSON := loginCmd.Bool("json", false, "Output as JSON")

	secretCmd := flag.NewFlagSet("secret", flag.ExitOnError)

	verifyCmd := flag.NewFlagSet("verify", flag.ExitOnError)
	verifyMessage := verifyCmd.String("message", "", "Signed message")
	verifySignature := verifyCmd.String("signature", "", "0x-prefixed signature")

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "keygen":
		keygenCmd.Parse(os.Args[2:]) //nolint:errcheck // ExitOnError
		generateKey(*keygenJSON)
	case "address":
		addressCmd.Parse(os.Args[2:]) //nolint:errcheck // ExitOnError
		fmt.Println(mustSigner(*addressKey).Address())
	case "sign":
		signCmd.Parse(os.Args[2:]) //nolint:errcheck // ExitOnError
		sign(mustSigner(*signKey), *signMessage, 0, *signJSON)
	case "login":
		loginCmd.Parse(os.Args[2:]) //nolint:errcheck // ExitOnError
		signLogin(mustSigner(*loginKey), *loginChallenge, *loginJSON)
	case "verify":
		verifyCmd.Parse(os.Args[2:]) //nolint:errcheck // ExitOnError
		recoverSigner(*verifyMessage, *verifySignature)
	case "secret":
		secretCmd.Parse(os.Args[2:]) //nolint:errcheck // ExitOnError
		generateSecret()
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`dimctl - local key tooling for dim agents

WARNING: keys are printed and read in clear. Only use for local development.

Usage:
  dimctl <command> [flags]

Commands:
  keygen    Generate a secp256k1 wallet key
  address   Print the address of a key
  sign      Sign a message with the personal-message scheme
  login     Sign a relying-party login challenge
  verify    Recover the address that signed a message
  secret    Generate a value for JWT_SIGNING_KEY or ADMIN_TOKEN

Examples:
  # Create a key for an agent
  dimctl keygen -json

  # Answer a login challenge
  dimctl login -key $SIGNER_KEY_HEX -challenge "DIM-Auth-1700000000000-5c1f..."

Use "dimctl <command> -h" for more information about a command.`)
}

func mustSigner(hexKey string) *signer.KeySigner {
	if hexKey == "" {
		fail("a private key is required (-key or SIGNER_KEY_HEX)")
	}
	s, err := signer.NewKeySigner(hexKey)
	if err != nil {
		fail(err.Error())
	}
	return s
}

func generateKey(jsonOutput bool) {
	s, err := signer.GenerateKeySigner()
	if err != nil {
		fail(err.Error())
	}
	out := keyOutput{Address: s.Address().String(), PrivateKey: "0x" + s.ExportHex()}
	if jsonOutput {
		printJSON(out)
		return
	}
	fmt.Printf("Address:     %s\n", out.Address)
	fmt.Printf("Private Key: %s\n", out.PrivateKey)
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  SIGNER_KEY_HEX=<private key> go run ./cmd/server")
}

func sign(s *signer.KeySigner, message string, signedAt int64, jsonOutput bool) {
	if message == "" {
		fail("a message is required")
	}
	sig, err := s.Sign(context.Background(), []byte(message))
	if err != nil {
		fail(err.Error())
	}
	out := signatureOutput{
		Address:   s.Address().String(),
		Message:   message,
		Signature: signer.EncodeSignature(sig),
		SignedAt:  signedAt,
	}
	if jsonOutput {
		printJSON(out)
		return
	}
	fmt.Println(out.Signature)
}

func signLogin(s *signer.KeySigner, challenge string, jsonOutput bool) {
	if challenge == "" {
		fail("a challenge is required")
	}
	now := time.Now()
	sign(s, models.Message(challenge, s.Address(), now), now.UnixMilli(), jsonOutput)
}

func recoverSigner(message, signature string) {
	sig, err := signer.DecodeSignature(signature)
	if err != nil {
		fail(err.Error())
	}
	addr, err := signer.Recover([]byte(message), sig)
	if err != nil {
		fail(err.Error())
	}
	fmt.Println(addr)
}

func generateSecret() {
	secret, err := secrets.Generate()
	if err != nil {
		fail(err.Error())
	}
	fmt.Println(secret)
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fail(err.Error())
	}
}

func fail(msg string) {
	fmt.Fprintf(os.Stderr, "Error: %s\n", msg)
	os.Exit(1)
}
