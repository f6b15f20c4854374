package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"

	"golang.org/x/crypto/bcrypt"

	"github.com/breeze-rmm/breeze/internal/config"
	"github.com/breeze-rmm/breeze/internal/id"
	"github.com/breeze-rmm/breeze/internal/model"
	"github.com/breeze-rmm/breeze/internal/store"
)

// runBootstrapAdmin seeds the first system-scope operator, the
// control-plane analog of the teacher's bootstrap.Run: a no-op once
// any system user already exists, so it is safe to run on every
// deploy.
func runBootstrapAdmin(args []string) error {
	fs := flag.NewFlagSet("bootstrap-admin", flag.ExitOnError)
	configPath := fs.String("config", "", "path to an optional YAML config file")
	email := fs.String("email", "admin@breeze.local", "initial system admin email")
	password := fs.String("password", "", "initial system admin password (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *password == "" {
		return fmt.Errorf("-password is required")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx := context.Background()
	st, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	n, err := st.CountSystemUsers(ctx)
	if err != nil {
		return fmt.Errorf("count system users: %w", err)
	}
	if n > 0 {
		slog.Info("bootstrap-admin: skipped (a system user already exists)")
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(*password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	user := &model.User{
		ID:           id.New(),
		Email:        *email,
		Name:         "System Administrator",
		PasswordHash: string(hash),
		Status:       model.UserActive,
	}
	if err := st.CreateUser(ctx, user); err != nil {
		return fmt.Errorf("create admin user: %w", err)
	}

	role := &model.Role{
		ID:          id.New(),
		Scope:       model.ScopeSystem,
		Name:        "System Administrator",
		IsSystem:    true,
		Permissions: []model.Permission{{Resource: "*", Action: "*"}},
	}
	if err := st.CreateRole(ctx, role); err != nil {
		return fmt.Errorf("create system role: %w", err)
	}

	if err := st.CreateSystemUser(ctx, user.ID, role.ID); err != nil {
		return fmt.Errorf("grant system scope: %w", err)
	}

	slog.Info("bootstrap-admin: created system administrator", "user_id", user.ID, "email", user.Email)
	return nil
}
