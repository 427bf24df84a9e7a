package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"regexp"

	"github.com/spf13/cobra"

	"github.com/kiranshivaraju/jobstatus/internal/analysis"
	"github.com/kiranshivaraju/jobstatus/internal/app"
	"github.com/kiranshivaraju/jobstatus/internal/config"
	"github.com/kiranshivaraju/jobstatus/internal/store"
	"github.com/kiranshivaraju/jobstatus/pkg/models"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

func newCatalogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Manage the precomputed job catalog",
	}
	cmd.AddCommand(newCatalogImportCmd())
	return cmd
}

func newCatalogImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.json>",
		Short: "Load job records from a JSON array into the catalog",
		Long: "Reads a JSON array of job records (slug, title and the analysis fields), checks them " +
			"and upserts each by slug. Requires DATABASE_URL.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			records, err := readCatalogFile(args[0])
			if err != nil {
				return err
			}

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if cfg.Database.URL == "" {
				return fmt.Errorf("DATABASE_URL is required for catalog import")
			}
			catalog, closeCatalog, err := app.OpenCatalog(cmd.Context(), cfg.Database)
			if err != nil {
				return err
			}
			defer closeCatalog()

			n, err := importRecords(cmd.Context(), catalog, records)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d jobs\n", n)
			return nil
		},
	}
}

// readCatalogFile decodes and checks a catalog file. Every record must have a
// well-formed unique slug and a title; numeric scores are clamped the same
// way live analyses are.
func readCatalogFile(path string) ([]*models.JobRecord, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog file: %w", err)
	}
	var records []*models.JobRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("decode catalog file: %w", err)
	}

	seen := make(map[string]bool, len(records))
	for i, r := range records {
		if r == nil || !slugPattern.MatchString(r.Slug) {
			return nil, fmt.Errorf("record %d: invalid slug", i)
		}
		if r.Title == "" {
			return nil, fmt.Errorf("record %d (%s): title is required", i, r.Slug)
		}
		if seen[r.Slug] {
			return nil, fmt.Errorf("record %d: duplicate slug %s", i, r.Slug)
		}
		seen[r.Slug] = true
		analysis.Normalize(&r.AnalysisResult)
	}
	return records, nil
}

func importRecords(ctx context.Context, s store.Store, records []*models.JobRecord) (int, error) {
	for i, r := range records {
		if err := s.UpsertJob(ctx, r); err != nil {
			return i, err
		}
	}
	return len(records), nil
}
