package keys

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/lestrrat-go/jwx/v3/jwk"

	"github.com/nexauth/nexauth/internal/config"
	"github.com/nexauth/nexauth/internal/domain/auth"
)

// Command implements the keys management command
type Command struct{}

func (c *Command) Name() string {
	return "keys"
}

func (c *Command) Description() string {
	return "Manage signing keys (generate, list)"
}

func (c *Command) Run(args []string) error {
	if len(args) < 1 {
		c.printUsage()
		return fmt.Errorf("subcommand required")
	}

	switch args[0] {
	case "generate":
		return c.runGenerate(args[1:])
	case "list":
		return c.runList(args[1:])
	default:
		c.printUsage()
		return fmt.Errorf("unknown subcommand: %s", args[0])
	}
}

func (c *Command) printUsage() {
	fmt.Fprintf(os.Stderr, "Usage: nexauth-cli keys <subcommand> [args]\n\n")
	fmt.Fprintf(os.Stderr, "Subcommands:\n")
	fmt.Fprintf(os.Stderr, "  generate              Generate a new RSA key pair\n")
	fmt.Fprintf(os.Stderr, "    -kid <id>           Key ID (required)\n")
	fmt.Fprintf(os.Stderr, "    -bits <size>        Key size: 2048, 3072, or 4096 (default: 2048)\n")
	fmt.Fprintf(os.Stderr, "    -path <dir>         Custom keys directory (overrides config)\n")
	fmt.Fprintf(os.Stderr, "  list                  List all available keys\n")
}

func (c *Command) loadConfig() (*config.Config, error) {
	envConfig := config.LoadEnv()
	cfg, err := config.Load(envConfig.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

func (c *Command) runGenerate(args []string) error {
	fs := flag.NewFlagSet("generate", flag.ExitOnError)
	kid := fs.String("kid", "", "Key ID (required)")
	bits := fs.Int("bits", 2048, "Key size in bits (2048, 3072, or 4096)")
	customPath := fs.String("path", "", "Custom keys directory path (overrides config)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *kid == "" {
		return fmt.Errorf("key ID is required (use -kid)")
	}
	if *bits != 2048 && *bits != 3072 && *bits != 4096 {
		return fmt.Errorf("key size must be 2048, 3072, or 4096")
	}

	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	keysPath := cfg.Auth.KeysPath
	if *customPath != "" {
		keysPath = *customPath
	}

	if err := os.MkdirAll(keysPath, 0700); err != nil {
		return fmt.Errorf("failed to create keys directory %s: %w", keysPath, err)
	}

	privPath := filepath.Join(keysPath, fmt.Sprintf("private-%s.pem", *kid))
	pubPath := filepath.Join(keysPath, fmt.Sprintf("public-%s.pem", *kid))

	if _, err := os.Stat(privPath); err == nil {
		return fmt.Errorf("key with ID %s already exists at %s", *kid, privPath)
	}

	fmt.Printf("Generating %d-bit RSA key pair...\n", *bits)
	privateKey, err := rsa.GenerateKey(rand.Reader, *bits)
	if err != nil {
		return fmt.Errorf("failed to generate RSA key: %w", err)
	}

	if err := writePEM(privPath, 0600, &pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(privateKey),
	}); err != nil {
		return err
	}

	publicKeyBytes, err := x509.MarshalPKIXPublicKey(&privateKey.PublicKey)
	if err != nil {
		return fmt.Errorf("failed to marshal public key: %w", err)
	}
	if err := writePEM(pubPath, 0644, &pem.Block{
		Type:  "PUBLIC KEY",
		Bytes: publicKeyBytes,
	}); err != nil {
		return err
	}

	fmt.Printf("Key pair generated successfully\n")
	fmt.Printf("  Private key: %s\n", privPath)
	fmt.Printf("  Public key:  %s\n", pubPath)
	fmt.Printf("  Key ID:      %s\n", *kid)
	fmt.Printf("  Key size:    %d bits\n", *bits)
	return nil
}

func writePEM(path string, mode os.FileMode, block *pem.Block) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, mode)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	if err := pem.Encode(f, block); err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	return nil
}

func (c *Command) runList(args []string) error {
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	keysPath := cfg.Auth.KeysPath
	activeKID := cfg.Auth.ActiveKID

	info, err := os.Stat(keysPath)
	if err != nil {
		fmt.Printf("Keys directory does not exist: %s\n", keysPath)
		return nil
	}
	if !info.IsDir() {
		return fmt.Errorf("keys path is not a directory: %s", keysPath)
	}

	keyStore, err := auth.LoadKeys(keysPath, activeKID, false)
	if err != nil {
		return fmt.Errorf("failed to load keys: %w", err)
	}

	keySet := keyStore.JWKS()
	if keySet.Len() == 0 {
		fmt.Printf("No keys found in %s\n", keysPath)
		return nil
	}

	fmt.Printf("Keys in %s:\n\n", keysPath)

	normalizedActiveKID := activeKID
	if !strings.HasPrefix(normalizedActiveKID, "key-") {
		normalizedActiveKID = fmt.Sprintf("key-%s", normalizedActiveKID)
	}

	for i := 0; i < keySet.Len(); i++ {
		key, ok := keySet.Key(i)
		if !ok {
			continue
		}

		kid, _ := key.KeyID()
		active := ""
		if kid == normalizedActiveKID {
			active = " (ACTIVE)"
		}
		keyID := strings.TrimPrefix(kid, "key-")

		var rawKey any
		if err := jwk.Export(key, &rawKey); err == nil {
			if rsaKey, ok := rawKey.(*rsa.PublicKey); ok {
				fmt.Printf("  %s%s\n", kid, active)
				fmt.Printf("    Key size: %d bits\n", rsaKey.N.BitLen())
				fmt.Printf("    Private:  private-%s.pem\n", keyID)
				fmt.Printf("    Public:   public-%s.pem\n", keyID)
				fmt.Println()
			}
		}
	}

	fmt.Printf("Active KID: %s\n", activeKID)
	return nil
}
