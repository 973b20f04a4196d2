package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"pdf-rag/internal/config"
	"pdf-rag/internal/db"
)

const (
	vectorsBackupFile  = "vectors.chromem"
	registryBackupFile = "registry.db"
)

func backupCmd() *cobra.Command {
	var outputDir string

	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Back up the vector store and document registry",
		Long: `Exports the chromem collection (encrypted when vector_store.encryption_key
is set) and a copy of the SQLite registry into a timestamped directory.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			ctx := context.Background()
			a, err := newApp(ctx, cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			vectors, err := a.exportable()
			if err != nil {
				return err
			}

			dir := filepath.Join(outputDir, "pdfrag-"+time.Now().Format("20060102-150405"))
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("cannot create backup directory: %w", err)
			}
			if err := vectors.Export(filepath.Join(dir, vectorsBackupFile)); err != nil {
				return err
			}
			if cfg.Database.Driver == config.DriverSQLite {
				if err := db.BackupSQLite(ctx, a.db, filepath.Join(dir, registryBackupFile)); err != nil {
					return err
				}
			}

			fmt.Printf("%s %s\n", color.GreenString("Backup created:"), dir)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputDir, "output", "o", "./backups", "directory to write the backup into")
	return cmd
}

func restoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "restore <backup-dir>",
		Short: "Restore a backup written by the backup command",
		Long: `Replaces the document registry with the backed up copy and imports the
backed up chunks into the configured collection.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := args[0]
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.VectorStore.Type != config.StoreChromem {
				return fmt.Errorf("restore needs the chromem vector store, use pg_restore for postgres")
			}

			// the registry file must be in place before it is opened
			registryBackup := filepath.Join(dir, registryBackupFile)
			if _, err := os.Stat(registryBackup); err == nil && cfg.Database.Driver == config.DriverSQLite {
				if err := copyFile(registryBackup, cfg.RegistryPath()); err != nil {
					return err
				}
			}

			ctx := context.Background()
			a, err := newApp(ctx, cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			vectors, err := a.exportable()
			if err != nil {
				return err
			}
			if err := vectors.Import(filepath.Join(dir, vectorsBackupFile)); err != nil {
				return err
			}
			count, _ := vectors.Count(ctx)
			fmt.Printf("%s %d chunks from %s\n", color.GreenString("Restored"), count, dir)
			return nil
		},
	}
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("failed to copy %s: %v", src, err)
	}
	return out.Close()
}
