// cmd/tools/template-seeder/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"notification-workers/internal/common/config"
	"notification-workers/internal/common/database"
	apperrors "notification-workers/internal/common/errors"
	"notification-workers/internal/common/logger"
	"notification-workers/internal/template"
	"notification-workers/pkg/registry"
)

// template-seeder loads a template registry file and creates every entry
// through the template store. Templates that already exist are skipped, so
// the tool is safe to rerun after adding new entries to the registry.
func main() {
	registryPath := flag.String("registry", "configs/template-registry.json", "Path to template registry file")
	configPath := flag.String("config", "", "Path to config file (default: standard lookup)")
	flag.Parse()

	log := logger.NewStructured("info", "console")

	reg, err := registry.LoadRegistry(*registryPath)
	if err != nil {
		fmt.Printf("Error loading registry: %v\n", err)
		os.Exit(1)
	}

	var cfg *config.Config
	if *configPath != "" {
		cfg, err = config.LoadFromFile(*configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	pg, err := database.NewPostgres(cfg.Database.Postgres)
	if err != nil {
		fmt.Printf("Error connecting to postgres: %v\n", err)
		os.Exit(1)
	}
	defer pg.Close()

	store := template.NewStore(pg.DB, log)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	created, skipped, failed := 0, 0, 0
	for _, seed := range reg.Templates {
		_, err := store.Create(ctx, template.CreateTemplateInput{
			TemplateID:  seed.TemplateID,
			Name:        seed.Name,
			Description: seed.Description,
			Channel:     seed.Channel,
			Category:    seed.Category,
			Subject:     seed.Subject,
			Body:        seed.Body,
			Language:    seed.Language,
		})
		switch {
		case err == nil:
			created++
		case apperrors.CodeOf(err) == apperrors.ErrCodeDuplicateTemplateID:
			skipped++
			continue
		default:
			fmt.Printf("Error creating %s: %v\n", seed.TemplateID, err)
			failed++
			continue
		}

		for _, tr := range seed.Translations {
			if _, err := store.AddTranslation(ctx, seed.TemplateID, tr.Language, tr.Subject, tr.Body); err != nil {
				fmt.Printf("Error adding %s translation for %s: %v\n", tr.Language, seed.TemplateID, err)
				failed++
			}
		}
	}

	fmt.Printf("Seeding complete: %d created, %d skipped, %d failed\n", created, skipped, failed)
	if failed > 0 {
		os.Exit(1)
	}
}
