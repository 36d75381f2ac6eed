// Command seed prepares a database for the user-hobbies server: it registers
// login accounts and imports fixture users with fixed ids.
//
// USAGE:
//
//	go run ./cmd/seed -account btriggiani:secret -account qa:secret
//	go run ./cmd/seed -users cmd/seed/testdata/users.json -owner btriggiani
//
// The database is chosen the same way the server chooses it (config.yaml,
// .env, USERHOBBIES_* environment variables). Migrations run on open, so
// seeding a fresh file creates the schema too.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/sakif/user-hobbies/internal/auth"
	"github.com/sakif/user-hobbies/internal/config"
	"github.com/sakif/user-hobbies/internal/model"
	"github.com/sakif/user-hobbies/internal/repository/sqlstore"
	"github.com/sakif/user-hobbies/internal/service"
)

// credential is one -account flag value.
type credential struct {
	username string
	password string
}

// credentialList collects repeated -account flags. It implements flag.Value.
type credentialList []credential

func (c *credentialList) String() string {
	names := make([]string, len(*c))
	for i, cred := range *c {
		names[i] = cred.username
	}
	return strings.Join(names, ",")
}

// Set parses "name:password". The password may itself contain ':'.
func (c *credentialList) Set(value string) error {
	username, password, ok := strings.Cut(value, ":")
	if !ok || username == "" || password == "" {
		return errors.New("want name:password")
	}
	*c = append(*c, credential{username: username, password: password})
	return nil
}

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	if err := run(context.Background(), os.Args[1:], logger); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		logger.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, logger *slog.Logger) error {
	fs := flag.NewFlagSet("seed", flag.ContinueOnError)
	var accounts credentialList
	fs.Var(&accounts, "account", "register an account with role USER, as name:password (repeatable)")
	usersFile := fs.String("users", "", "JSON file with an array of users to import (each needs a userId)")
	owner := fs.String("owner", "", "owner for imported users that name none")
	configFile := fs.String("config", "", "path to a YAML config file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if len(accounts) == 0 && *usersFile == "" {
		fs.Usage()
		return errors.New("nothing to do: pass -account and/or -users")
	}

	cfg, err := config.Load(*configFile)
	if err != nil {
		return err
	}

	// Read the fixtures before touching the database, so a typo in the file
	// leaves nothing half-seeded.
	var users []model.User
	if *usersFile != "" {
		users, err = readUsers(*usersFile, *owner)
		if err != nil {
			return err
		}
	}

	if cfg.Database.Driver == sqlstore.DriverSQLite && !strings.HasPrefix(cfg.Database.DSN, ":memory:") {
		if err := os.MkdirAll(filepath.Dir(cfg.Database.DSN), 0o755); err != nil {
			return fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sqlstore.Open(ctx, sqlstore.Config{
		Driver: cfg.Database.Driver,
		DSN:    cfg.Database.DSN,
	}, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	passwords, err := auth.NewPasswordServiceWithCost(cfg.Auth.BcryptCost)
	if err != nil {
		return err
	}
	accountService := service.NewAccountService(db.Accounts(), passwords, nil, logger)
	userService := service.NewUserService(db.Users(), db, logger)

	for _, cred := range accounts {
		if err := accountService.Register(ctx, cred.username, cred.password, model.RoleUser); err != nil {
			return fmt.Errorf("registering %s: %w", cred.username, err)
		}
	}

	if len(users) > 0 {
		if err := userService.Import(ctx, users); err != nil {
			return err
		}
	}

	logger.Info("seed complete",
		slog.Int("accounts", len(accounts)),
		slog.Int("users", len(users)),
		slog.String("driver", db.Driver()),
	)
	return nil
}

// readUsers decodes a fixture file. Users without an owner get defaultOwner;
// with no default either, the file is rejected.
func readUsers(path, defaultOwner string) ([]model.User, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading fixtures: %w", err)
	}

	var users []model.User
	if err := json.Unmarshal(raw, &users); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}

	for i := range users {
		if users[i].ID == nil {
			return nil, fmt.Errorf("%s: user #%d has no userId", path, i+1)
		}
		if users[i].Owner == "" {
			users[i].Owner = defaultOwner
		}
		// Requests are always scoped to an account name, so an ownerless
		// row could never be read again.
		if users[i].Owner == "" {
			return nil, fmt.Errorf("%s: user #%d has no owner (set one or pass -owner)", path, i+1)
		}
	}
	return users, nil
}
