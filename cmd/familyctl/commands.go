package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"screentime/internal/auth"
	"screentime/internal/config"
	"screentime/internal/docstore"
	"screentime/internal/metrics"
	"screentime/internal/models"
	"screentime/internal/repository"
	"screentime/internal/service"
)

type storeOpener func(ctx context.Context) (docstore.Store, func() error, error)

func newRootCmd(cfg *config.Config, open storeOpener) *cobra.Command {
	root := &cobra.Command{
		Use:          "familyctl",
		Short:        "Administer screen-time families",
		Long:         "Export, import and repair family documents in the configured store (STORE_BACKEND).",
		SilenceUsage: true,
	}

	root.AddCommand(
		newExportCmd(open),
		newImportCmd(open),
		newBackfillCmd(open),
		newTokenCmd(cfg),
	)
	return root
}

func withStore(cmd *cobra.Command, open storeOpener, fn func(ctx context.Context, store docstore.Store) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	store, closeStore, err := open(ctx)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer closeStore()

	return fn(ctx, store)
}

func newExportCmd(open storeOpener) *cobra.Command {
	var (
		familyID   string
		outputPath string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a family's documents to a JSON file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			familyID = strings.ToUpper(strings.TrimSpace(familyID))
			if outputPath == "" {
				outputPath = fmt.Sprintf("backup_%s_%s.json", familyID, time.Now().Format("20060102_150405"))
			}

			if dir := filepath.Dir(outputPath); dir != "." && dir != "" {
				if err := os.MkdirAll(dir, 0755); err != nil {
					return fmt.Errorf("create output directory: %w", err)
				}
			}

			return withStore(cmd, open, func(ctx context.Context, store docstore.Store) error {
				if err := service.NewBackupService(store).Export(ctx, familyID, outputPath); err != nil {
					return fmt.Errorf("export: %w", err)
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Exported family %s to %s\n", familyID, outputPath)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&familyID, "family", "", "Family code to export (required)")
	cmd.Flags().StringVar(&outputPath, "output", "", "Output file path (default: backup_<CODE>_YYYYMMDD_HHMMSS.json)")
	_ = cmd.MarkFlagRequired("family")

	return cmd
}

func newImportCmd(open storeOpener) *cobra.Command {
	var inputPath string

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Restore a family export, replacing documents at the same paths",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := os.Stat(inputPath); err != nil {
				return fmt.Errorf("input file: %w", err)
			}

			return withStore(cmd, open, func(ctx context.Context, store docstore.Store) error {
				backup, err := service.NewBackupService(store).Import(ctx, inputPath)
				if err != nil {
					return fmt.Errorf("import: %w", err)
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Imported family %s (%d documents)\n", backup.FamilyID, len(backup.Documents))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&inputPath, "input", "", "Input file path (required)")
	_ = cmd.MarkFlagRequired("input")

	return cmd
}

func newBackfillCmd(open storeOpener) *cobra.Command {
	var familyID string

	cmd := &cobra.Command{
		Use:   "backfill",
		Short: "Assign missing childIds to members and ledger records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			familyID = strings.ToUpper(strings.TrimSpace(familyID))

			return withStore(cmd, open, func(ctx context.Context, store docstore.Store) error {
				familyRepo := repository.NewFamilyRepository(store)
				migrations := service.NewMigrationService(familyRepo, repository.NewSettingsRepository(store), metrics.New())

				family, err := familyRepo.GetFamily(ctx, familyID)
				if err != nil {
					return err
				}
				if family == nil {
					return fmt.Errorf("%w: %s", service.ErrFamilyNotFound, familyID)
				}

				members, err := migrations.BackfillMemberChildIDs(ctx, family)
				if err != nil {
					return fmt.Errorf("backfill members: %w", err)
				}
				records, err := migrations.BackfillChildRecordIDs(ctx, family)
				if err != nil {
					return fmt.Errorf("backfill ledger records: %w", err)
				}

				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Family %s: %d members and %d ledger records fixed\n", familyID, members, records)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&familyID, "family", "", "Family code to repair (required)")
	_ = cmd.MarkFlagRequired("family")

	return cmd
}

func newTokenCmd(cfg *config.Config) *cobra.Command {
	var (
		identity models.Identity
		ttl      time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Sign a bearer token for local testing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cfg.JWTSecret == "" {
				return fmt.Errorf("AUTH_JWT_SECRET is not set")
			}

			token, err := auth.NewJWTManager(cfg.JWTSecret, ttl).Generate(identity)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&identity.UserID, "user", "", "User id to put in the subject claim (required)")
	cmd.Flags().StringVar(&identity.DisplayName, "name", "", "Display name claim")
	cmd.Flags().StringVar(&identity.Email, "email", "", "Email claim")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "Token lifetime")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}
