package clients

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/nexauth/nexauth/internal/config"
	"github.com/nexauth/nexauth/internal/database"
	"github.com/nexauth/nexauth/internal/domain/client"
	"github.com/nexauth/nexauth/internal/migrations"
	"github.com/nexauth/nexauth/internal/validation"
)

// Command implements relying-party provisioning. Every OAuth flow needs at
// least one registration, so a fresh deployment starts here.
type Command struct{}

func (c *Command) Name() string {
	return "clients"
}

func (c *Command) Description() string {
	return "Manage relying-party registrations (register, list, show, set-active, set-redirect-uris)"
}

func (c *Command) Run(args []string) error {
	if len(args) < 1 {
		c.printUsage()
		return fmt.Errorf("subcommand required")
	}

	switch args[0] {
	case "register":
		return c.runRegister(args[1:])
	case "list":
		return c.runList(args[1:])
	case "show":
		return c.runShow(args[1:])
	case "set-active":
		return c.runSetActive(args[1:])
	case "set-redirect-uris":
		return c.runSetRedirectURIs(args[1:])
	default:
		c.printUsage()
		return fmt.Errorf("unknown subcommand: %s", args[0])
	}
}

func (c *Command) printUsage() {
	fmt.Fprintf(os.Stderr, "Usage: nexauth-cli clients <subcommand> [args]\n\n")
	fmt.Fprintf(os.Stderr, "Subcommands:\n")
	fmt.Fprintf(os.Stderr, "  register                    Register a relying party\n")
	fmt.Fprintf(os.Stderr, "    -client-id <id>           Client identifier (required)\n")
	fmt.Fprintf(os.Stderr, "    -name <name>              Display name (required)\n")
	fmt.Fprintf(os.Stderr, "    -cluster <cluster>        Downstream cluster (required)\n")
	fmt.Fprintf(os.Stderr, "    -redirect-uris <a,b>      Comma-separated redirect URIs (required)\n")
	fmt.Fprintf(os.Stderr, "    -scopes <a,b>             Comma-separated allowed scopes\n")
	fmt.Fprintf(os.Stderr, "    -grant-types <a,b>        Comma-separated allowed grant types\n")
	fmt.Fprintf(os.Stderr, "    -public                   Register as a public (PKCE-only) client\n")
	fmt.Fprintf(os.Stderr, "  list                        List active registrations\n")
	fmt.Fprintf(os.Stderr, "  show -cluster <cluster>     Show the registration for a cluster\n")
	fmt.Fprintf(os.Stderr, "  set-active -client-id <id> -active <bool>\n")
	fmt.Fprintf(os.Stderr, "  set-redirect-uris -client-id <id> -redirect-uris <a,b>\n")
}

// connect loads configuration, opens the database and runs migrations so a
// first-boot register works against an empty database.
func (c *Command) connect() (client.Service, error) {
	envConfig := config.LoadEnv()
	cfg, err := config.Load(envConfig.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := database.ConnectDB(&cfg.Database); err != nil {
		return nil, err
	}
	if err := migrations.RunMigrations(cfg); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return client.NewService(client.NewRepository(database.DB)), nil
}

func (c *Command) runRegister(args []string) error {
	fs := flag.NewFlagSet("register", flag.ExitOnError)
	clientID := fs.String("client-id", "", "Client identifier")
	name := fs.String("name", "", "Display name")
	cluster := fs.String("cluster", "", "Downstream cluster")
	redirectURIs := fs.String("redirect-uris", "", "Comma-separated redirect URIs")
	scopes := fs.String("scopes", "openid,profile,email", "Comma-separated allowed scopes")
	grantTypes := fs.String("grant-types", "authorization_code,refresh_token", "Comma-separated allowed grant types")
	public := fs.Bool("public", false, "Register as a public client")
	if err := fs.Parse(args); err != nil {
		return err
	}

	svc, err := c.connect()
	if err != nil {
		return err
	}

	req := client.RegisterRequest{
		ClientID:     *clientID,
		Name:         *name,
		Cluster:      *cluster,
		RedirectURIs: splitList(*redirectURIs),
		Scopes:       splitList(*scopes),
		GrantTypes:   splitList(*grantTypes),
		Public:       *public,
	}
	return register(svc, validation.New(), req, os.Stdout)
}

func (c *Command) runList(args []string) error {
	svc, err := c.connect()
	if err != nil {
		return err
	}
	return list(svc, os.Stdout)
}

func (c *Command) runShow(args []string) error {
	fs := flag.NewFlagSet("show", flag.ExitOnError)
	cluster := fs.String("cluster", "", "Downstream cluster")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *cluster == "" {
		return fmt.Errorf("cluster is required (use -cluster)")
	}

	svc, err := c.connect()
	if err != nil {
		return err
	}
	return show(svc, *cluster, os.Stdout)
}

func (c *Command) runSetActive(args []string) error {
	fs := flag.NewFlagSet("set-active", flag.ExitOnError)
	clientID := fs.String("client-id", "", "Client identifier")
	active := fs.Bool("active", true, "Whether the client may authenticate")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *clientID == "" {
		return fmt.Errorf("client ID is required (use -client-id)")
	}

	svc, err := c.connect()
	if err != nil {
		return err
	}
	return setActive(svc, *clientID, *active, os.Stdout)
}

func (c *Command) runSetRedirectURIs(args []string) error {
	fs := flag.NewFlagSet("set-redirect-uris", flag.ExitOnError)
	clientID := fs.String("client-id", "", "Client identifier")
	redirectURIs := fs.String("redirect-uris", "", "Comma-separated redirect URIs")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *clientID == "" {
		return fmt.Errorf("client ID is required (use -client-id)")
	}
	uris := splitList(*redirectURIs)
	if len(uris) == 0 {
		return fmt.Errorf("at least one redirect URI is required (use -redirect-uris)")
	}

	svc, err := c.connect()
	if err != nil {
		return err
	}
	return setRedirectURIs(svc, *clientID, uris, os.Stdout)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func register(svc client.Service, v *validation.Validator, req client.RegisterRequest, w io.Writer) error {
	if err := v.Validate(req); err != nil {
		return err
	}

	cl, secret, err := svc.Register(req)
	if err != nil {
		return fmt.Errorf("failed to register client: %w", err)
	}

	fmt.Fprintf(w, "Client registered\n")
	fmt.Fprintf(w, "  Client ID:     %s\n", cl.ClientID)
	fmt.Fprintf(w, "  Name:          %s\n", cl.Name)
	fmt.Fprintf(w, "  Cluster:       %s\n", cl.Cluster)
	fmt.Fprintf(w, "  Redirect URIs: %s\n", strings.Join(cl.RedirectURIs, ", "))
	fmt.Fprintf(w, "  Scopes:        %s\n", strings.Join(cl.Scopes, " "))
	fmt.Fprintf(w, "  Grant types:   %s\n", strings.Join(cl.GrantTypes, " "))
	fmt.Fprintf(w, "  Public:        %t\n", cl.Public)
	if secret != "" {
		fmt.Fprintf(w, "  Client secret: %s\n", secret)
		fmt.Fprintf(w, "\nStore the secret now. Only its hash is kept and it cannot be recovered later.\n")
	}
	return nil
}

func list(svc client.Service, w io.Writer) error {
	clients, err := svc.ListActive()
	if err != nil {
		return fmt.Errorf("failed to list clients: %w", err)
	}
	if len(clients) == 0 {
		fmt.Fprintf(w, "No active clients registered\n")
		return nil
	}

	for _, cl := range clients {
		kind := "confidential"
		if cl.Public {
			kind = "public"
		}
		fmt.Fprintf(w, "%s  cluster=%s  %s  redirect_uris=%s\n",
			cl.ClientID, cl.Cluster, kind, strings.Join(cl.RedirectURIs, ","))
	}
	return nil
}

func show(svc client.Service, cluster string, w io.Writer) error {
	cl, err := svc.GetByCluster(cluster)
	if err != nil {
		return fmt.Errorf("failed to resolve cluster %s: %w", cluster, err)
	}

	fmt.Fprintf(w, "Client ID:     %s\n", cl.ClientID)
	fmt.Fprintf(w, "Name:          %s\n", cl.Name)
	fmt.Fprintf(w, "Cluster:       %s\n", cl.Cluster)
	fmt.Fprintf(w, "Redirect URIs: %s\n", strings.Join(cl.RedirectURIs, ", "))
	fmt.Fprintf(w, "Scopes:        %s\n", strings.Join(cl.Scopes, " "))
	fmt.Fprintf(w, "Grant types:   %s\n", strings.Join(cl.GrantTypes, " "))
	fmt.Fprintf(w, "Public:        %t\n", cl.Public)
	fmt.Fprintf(w, "Active:        %t\n", cl.Active)
	return nil
}

func setActive(svc client.Service, clientID string, active bool, w io.Writer) error {
	if err := svc.SetActive(clientID, active); err != nil {
		return fmt.Errorf("failed to update client %s: %w", clientID, err)
	}
	state := "disabled"
	if active {
		state = "enabled"
	}
	fmt.Fprintf(w, "Client %s %s\n", clientID, state)
	return nil
}

func setRedirectURIs(svc client.Service, clientID string, uris []string, w io.Writer) error {
	if err := svc.UpdateRedirectURIs(clientID, uris); err != nil {
		return fmt.Errorf("failed to update client %s: %w", clientID, err)
	}
	fmt.Fprintf(w, "Client %s redirect URIs set to %s\n", clientID, strings.Join(uris, ", "))
	return nil
}
