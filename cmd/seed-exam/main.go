package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/cobra"
	"github.com/stemsi/exam-portal/internal/config"
	"github.com/stemsi/exam-portal/internal/database"
	"github.com/stemsi/exam-portal/internal/i18n"
	"github.com/stemsi/exam-portal/internal/logger"
	"github.com/stemsi/exam-portal/internal/model"
	"github.com/stemsi/exam-portal/internal/repository"
	"github.com/stemsi/exam-portal/internal/service"
	appvalidator "github.com/stemsi/exam-portal/internal/validator"
)

func main() {
	cmd := &cobra.Command{
		Use:          "seed-exam <exam.json>...",
		Short:        "Load exams from JSON files into the database",
		Args:         cobra.MinimumNArgs(1),
		SilenceUsage: true,
		RunE:         run,
	}
	cmd.Flags().String("author", "Seeder", "Name recorded in the exam audit log")
	cmd.Flags().Bool("inactive", false, "Create exams deactivated")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, files []string) error {
	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat, "")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("connect to PostgreSQL: %w", err)
	}
	defer pool.Close()

	catalog, err := i18n.New(cfg.DefaultLocale)
	if err != nil {
		return err
	}

	examService := service.NewExamService(repository.NewExamRepository(pool), nil, catalog, log)

	author, _ := cmd.Flags().GetString("author")
	inactive, _ := cmd.Flags().GetBool("inactive")
	claims := &service.Claims{Name: author, Role: model.RoleAdmin}

	validate := validator.New(validator.WithRequiredStructEnabled())
	validate.SetTagName("binding")
	appvalidator.Register(validate)

	fmt.Printf("=== Seeding %d exam file(s) ===\n", len(files))

	for _, path := range files {
		req, err := readExam(path)
		if err != nil {
			return err
		}
		if err := validate.Struct(req); err != nil {
			return fmt.Errorf("%s: %v", path, appvalidator.TranslateErrors(err))
		}

		exam, err := examService.Create(ctx, claims, req)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		if inactive {
			if exam, err = examService.ToggleStatus(ctx, claims, exam.ID); err != nil {
				return fmt.Errorf("%s: deactivate: %w", path, err)
			}
		}

		fmt.Printf("Created exam %q (%d questions, active=%t) with ID: %s\n",
			exam.Title, len(exam.Questions), exam.IsActive, exam.ID)
	}
	return nil
}

func readExam(path string) (*model.UpsertExamRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var req model.UpsertExamRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return &req, nil
}
