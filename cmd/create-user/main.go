package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/stemsi/exam-portal/internal/config"
	"github.com/stemsi/exam-portal/internal/database"
	"github.com/stemsi/exam-portal/internal/logger"
	"github.com/stemsi/exam-portal/internal/model"
	"github.com/stemsi/exam-portal/internal/repository"
	"github.com/stemsi/exam-portal/internal/service"
	"golang.org/x/term"
)

const minPasswordLength = 6

func main() {
	cmd := &cobra.Command{
		Use:          "create-user",
		Short:        "Create a portal account interactively",
		SilenceUsage: true,
		RunE:         run,
	}
	cmd.Flags().String("role", string(model.RoleTeacher), "Account role (admin, teacher, student)")
	cmd.Flags().String("name", "", "Display name (prompted when empty)")
	cmd.Flags().String("email", "", "Login email (prompted when empty)")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, _ []string) error {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat, "")

	roleFlag, _ := cmd.Flags().GetString("role")
	role := model.Role(strings.ToLower(roleFlag))
	switch role {
	case model.RoleAdmin, model.RoleTeacher, model.RoleStudent:
	default:
		return fmt.Errorf("unknown role %q", roleFlag)
	}

	ctx := context.Background()

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("connect to PostgreSQL: %w", err)
	}
	defer pool.Close()

	userRepo := repository.NewUserRepository(pool)
	authService := service.NewAuthService(cfg, userRepo, nil)

	// ─── CLI Input ─────────────────────────────────────────────────────
	reader := bufio.NewReader(os.Stdin)
	fmt.Printf("=== Create New %s Account ===\n", role)

	name, _ := cmd.Flags().GetString("name")
	if name == "" {
		name = prompt(reader, "Enter Name: ")
	}
	if strings.TrimSpace(name) == "" {
		return errors.New("name is required")
	}

	email, _ := cmd.Flags().GetString("email")
	if email == "" {
		email = prompt(reader, "Enter Email: ")
	}
	if email == "" {
		return errors.New("email is required")
	}

	fmt.Print("Enter Password: ")
	bytePassword, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return fmt.Errorf("read password: %w", err)
	}
	password := string(bytePassword)
	if len(password) < minPasswordLength {
		return fmt.Errorf("password must be at least %d characters", minPasswordLength)
	}

	// ─── Create ────────────────────────────────────────────────────────
	hash, err := authService.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	user := &model.User{
		Name:         strings.TrimSpace(name),
		Email:        email,
		Role:         role,
		PasswordHash: hash,
	}
	if err := userRepo.Create(ctx, user); err != nil {
		return fmt.Errorf("create user: %w", err)
	}

	fmt.Printf("\nSuccess! %s '%s' (%s) created with ID: %s\n", user.Role, user.Name, user.Email, user.ID)
	return nil
}

func prompt(r *bufio.Reader, label string) string {
	fmt.Print(label)
	s, _ := r.ReadString('\n')
	return strings.TrimSpace(s)
}
