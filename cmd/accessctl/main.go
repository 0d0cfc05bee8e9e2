// Command accessctl is the operator tool for the access subsystem: it
// explains what a role holds, mints bearer tokens and provisions users and
// service keys directly in the database.
package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	flag "github.com/spf13/pflag"

	"langhub.io/internal/auth"
	"langhub.io/internal/config"
	"langhub.io/internal/obs"
	"langhub.io/internal/store/pg"
)

func main() {
	if len(os.Args) < 2 {
		usage()
	}
	var err error
	switch os.Args[1] {
	case "explain":
		err = runExplain(os.Args[2:])
	case "token":
		err = runToken(os.Args[2:])
	case "create-user":
		err = runCreateUser(os.Args[2:])
	case "service-key":
		err = runServiceKey(os.Args[2:])
	default:
		usage()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", os.Args[1], err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, "usage: %s explain|token|create-user|service-key [flags]\n", os.Args[0])
	os.Exit(2)
}

// runExplain prints the abilities and limits a membership would resolve to.
// It needs neither a database nor a config file.
func runExplain(args []string) error {
	fs := flag.NewFlagSet("explain", flag.ContinueOnError)
	distribution := fs.String("distribution", string(auth.DistributionCloud), "cloud or self-hosted")
	role := fs.String("role", string(auth.RoleMember), "membership role")
	kind := fs.String("kind", string(auth.MembershipHuman), "human or service")
	plan := fs.String("plan", string(auth.PlanFree), "billing plan")
	provider := fs.Bool("provider", false, "an auto-translation provider is configured")
	if err := fs.Parse(args); err != nil {
		return err
	}

	dist, err := auth.ParseDistribution(*distribution)
	if err != nil {
		return err
	}
	sys := auth.SystemConfiguration{Distribution: dist, AutoTranslateProviderConfigured: *provider}

	m := auth.Membership{ID: "explain", WorkspaceID: "explain", Role: auth.Role(*role)}
	switch auth.MembershipKind(*kind) {
	case auth.MembershipHuman:
		m.UserID = "explain"
	case auth.MembershipService:
		m.ServiceID = "explain"
	default:
		return fmt.Errorf("unknown kind %q", *kind)
	}
	billing := auth.BillingSettings{WorkspaceID: "explain", Plan: auth.Plan(*plan), Status: auth.SubscriptionActive}
	access, err := auth.NewWorkspaceAccess(sys, auth.MembershipRecord{
		Membership: m,
		Workspace:  auth.Workspace{ID: "explain"},
		Billing:    &billing,
	})
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "distribution\t%s\n", dist)
	fmt.Fprintf(w, "role\t%s\n", access.Role())
	if !access.RoleRecognized() {
		fmt.Fprintf(w, "\t(unknown role, baseline abilities only)\n")
	}
	fmt.Fprintf(w, "projects_count\t%s\n", access.Limits().ProjectsCount)
	fmt.Fprintf(w, "phrases_count\t%s\n", access.Limits().PhrasesCount)
	for _, b := range auth.BuiltinAbilities {
		mark := "-"
		if access.HasAbility(b.Ability) {
			mark = "yes"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", b.Ability, mark, b.Description)
	}
	return w.Flush()
}

func runToken(args []string) error {
	fs := flag.NewFlagSet("token", flag.ContinueOnError)
	configPath := fs.String("config", "", "Path to langhub.yaml (default $LANGHUB_CONFIG)")
	user := fs.String("user", "", "user id to mint the token for")
	ttl := fs.Duration("ttl", 0, "token lifetime (default auth.token_ttl)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	tokens, err := auth.NewTokenIssuer(cfg.Auth.TokenSecret, auth.WithIssuer(cfg.Auth.Issuer))
	if err != nil {
		return err
	}
	if *ttl <= 0 {
		*ttl = cfg.Auth.TokenTTL
	}
	token, exp, err := tokens.Issue(*user, *ttl)
	if err != nil {
		return err
	}
	fmt.Println(token)
	fmt.Fprintf(os.Stderr, "expires %s\n", exp.UTC().Format(time.RFC3339))
	return nil
}

func runCreateUser(args []string) error {
	fs := flag.NewFlagSet("create-user", flag.ContinueOnError)
	configPath := fs.String("config", "", "Path to langhub.yaml (default $LANGHUB_CONFIG)")
	email := fs.String("email", "", "email of the new user")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *email == "" {
		return fmt.Errorf("--email is required")
	}
	store, err := openStore(*configPath)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	u, err := store.CreateUser(ctx, *email)
	if err != nil {
		return err
	}
	fmt.Println(u.ID)
	return nil
}

// runServiceKey provisions a service account without an owner requester,
// for bootstrapping automation before any human has signed in.
func runServiceKey(args []string) error {
	fs := flag.NewFlagSet("service-key", flag.ContinueOnError)
	configPath := fs.String("config", "", "Path to langhub.yaml (default $LANGHUB_CONFIG)")
	workspace := fs.String("workspace", "", "workspace id")
	role := fs.String("role", string(auth.RoleMember), "role of the service membership")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *workspace == "" {
		return fmt.Errorf("--workspace is required")
	}
	parsed, err := auth.ParseRole(*role)
	if err != nil {
		return err
	}
	store, err := openStore(*configPath)
	if err != nil {
		return err
	}
	defer store.Close()

	key, err := auth.GenerateServiceKey()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	m, err := store.CreateServiceKey(ctx, *workspace, parsed, key.KeyID, key.SecretHash)
	if err != nil {
		return err
	}
	obs.Logger().WithFields(map[string]any{
		"workspace_id":       m.WorkspaceID,
		"service_account_id": m.ServiceID,
		"key_id":             key.KeyID,
	}).Info("service key issued")
	fmt.Println(key.Plaintext)
	return nil
}

func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if err := obs.SetLevel(cfg.Log.Level); err != nil {
		return nil, err
	}
	return cfg, nil
}

func openStore(configPath string) (*pg.Store, error) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return nil, err
	}
	if cfg.Database.DSN == "" {
		return nil, fmt.Errorf("missing DSN: set database.dsn or LANGHUB_PG_DSN")
	}
	return pg.Open(cfg.Database.DSN, pg.PoolOptions{MaxOpenConns: 2})
}
