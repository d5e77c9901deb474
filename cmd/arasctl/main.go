package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/cbchhaya/aras/internal/config"
	"github.com/cbchhaya/aras/internal/pipeline"
	"github.com/cbchhaya/aras/internal/snapshot"
	"github.com/cbchhaya/aras/internal/store"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		log.Fatalf("FATAL: %v", err)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "arasctl",
		Short: "Access recertification analytics pipeline",
		Long:  "arasctl runs the peer-proximity, clustering, consensus, and assurance-scoring pipeline over a point-in-time access snapshot.",
	}
	root.AddCommand(runCmd())
	return root
}

func runCmd() *cobra.Command {
	var (
		configPath   string
		snapshotPath string
		postgresDSN  string
		exportPath   string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one pipeline pass over a snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Default()
			if configPath != "" {
				loaded, err := config.Load(configPath)
				if err != nil {
					return err
				}
				cfg = loaded
			}

			snap, err := loadSnapshot(cmd.Context(), snapshotPath, postgresDSN)
			if err != nil {
				return err
			}

			result, err := pipeline.Run(cmd.Context(), snap, cfg)
			if err != nil {
				return err
			}

			printSummary(result)

			if exportPath != "" {
				if err := exportResult(result, exportPath); err != nil {
					return err
				}
				log.Printf("exported results to %s", exportPath)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "path to a YAML config file (defaults to built-in defaults)")
	cmd.Flags().StringVar(&snapshotPath, "snapshot", "", "path to a JSON snapshot fixture file")
	cmd.Flags().StringVar(&postgresDSN, "postgres-dsn", "", "PostgreSQL DSN to load the snapshot from (mutually exclusive with --snapshot)")
	cmd.Flags().StringVar(&exportPath, "export", "", "write the full result document as JSON to this path")

	return cmd
}

func loadSnapshot(ctx context.Context, snapshotPath, postgresDSN string) (snapshot.Snapshot, error) {
	switch {
	case snapshotPath != "" && postgresDSN != "":
		return snapshot.Snapshot{}, fmt.Errorf("--snapshot and --postgres-dsn are mutually exclusive")
	case snapshotPath != "":
		raw, err := os.ReadFile(snapshotPath)
		if err != nil {
			return snapshot.Snapshot{}, fmt.Errorf("reading snapshot fixture: %w", err)
		}
		var snap snapshot.Snapshot
		if err := json.Unmarshal(raw, &snap); err != nil {
			return snapshot.Snapshot{}, fmt.Errorf("parsing snapshot fixture: %w", err)
		}
		if snap.SnapshotTime.IsZero() {
			snap.SnapshotTime = time.Now().UTC()
		}
		return snap, nil
	case postgresDSN != "":
		loader, err := store.Connect(ctx, postgresDSN)
		if err != nil {
			return snapshot.Snapshot{}, err
		}
		defer loader.Close()
		return loader.Load(ctx, time.Now().UTC())
	default:
		return snapshot.Snapshot{}, fmt.Errorf("one of --snapshot or --postgres-dsn is required")
	}
}

func printSummary(result *pipeline.Result) {
	s := result.Summary
	fmt.Printf("run %s\n", result.RunID)
	fmt.Printf("  employees:                %d\n", s.TotalEmployees)
	fmt.Printf("  grants:                   %d\n", s.TotalGrants)
	fmt.Printf("  high assurance:           %d\n", s.HighAssuranceCount)
	fmt.Printf("  medium assurance:         %d\n", s.MediumAssuranceCount)
	fmt.Printf("  low assurance:            %d\n", s.LowAssuranceCount)
	fmt.Printf("  auto-certify eligible:    %d\n", s.AutoCertifyEligibleCount)
	fmt.Printf("  needs human review:       %d\n", s.NeedsHumanReviewCount)
	fmt.Printf("  clustering disagreements: %d\n", s.ClusteringDisagreementCount)
}

func exportResult(result *pipeline.Result, path string) error {
	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling result: %w", err)
	}
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return fmt.Errorf("writing export: %w", err)
	}
	return nil
}
