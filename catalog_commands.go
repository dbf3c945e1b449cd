package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/leafo/pathfs/internal/catalog"
)

func openCatalog(ctx context.Context) (*catalog.Catalog, *sql.DB, error) {
	root, err := resolveRoot(cfg.Root)
	if err != nil {
		return nil, nil, err
	}

	db, err := catalog.OpenDatabase(ctx, cfg.DBPath)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("Opened database", "path", cfg.DBPath)

	c, err := catalog.New(db, root, cfg.Options(), logger)
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	return c, db, nil
}

func synchronize(ctx context.Context, c *catalog.Catalog) error {
	logger.Info("Launching synchronization", "root", c.Root())
	summary, err := c.Synchronize(ctx)
	if err != nil {
		return fmt.Errorf("synchronization failed: %w", err)
	}
	logger.Info("Catalog totals", "entries", summary.TotalEntries, "files", summary.TotalFiles, "bytes", summary.TotalBytes)
	return nil
}

func newIndexCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "index",
		Short: "Record the configured root directory in the catalog database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			c, db, err := openCatalog(ctx)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := synchronize(ctx, c); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "synchronization complete")
			return nil
		},
	}
}

func newWatchCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Synchronize the catalog, then keep it updated as files change",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			c, db, err := openCatalog(ctx)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := synchronize(ctx, c); err != nil {
				return err
			}

			logger.Info("Entering watch mode")
			if err := c.WatchAndSync(ctx); err != nil && ctx.Err() == nil {
				return fmt.Errorf("watch mode terminated: %w", err)
			}
			return nil
		},
	}
}

func newFilesCommand() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "files",
		Short: "Print the entries stored in the catalog database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			db, err := catalog.OpenDatabase(ctx, cfg.DBPath)
			if err != nil {
				return err
			}
			defer db.Close()

			c, err := catalog.New(db, cfg.Root, catalog.Options{}, logger)
			if err != nil {
				return err
			}
			entries, err := c.StoredEntries(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(entries)
			}

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "PATH\tSIZE\tTYPE\tUPDATED")
			for _, entry := range entries {
				kind := entry.MimeType
				if entry.IsDir {
					kind = "directory"
				}
				fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", entry.Path, entry.Size, kind, entry.UpdatedAt)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print entries as JSON")
	return cmd
}
