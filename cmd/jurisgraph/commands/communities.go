package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jurisgraph/jurisgraph"
	"github.com/jurisgraph/jurisgraph/pkg/config"
	"github.com/jurisgraph/jurisgraph/pkg/logger"
)

var communitiesCmd = &cobra.Command{
	Use:   "communities",
	Short: "Manage the derived community layer",
}

var communitiesRebuildCmd = &cobra.Command{
	Use:   "rebuild",
	Short: "Recompute and atomically replace the community layer",
	Long: `Recompute the community layer: cluster the citation graph with label
propagation, summarize each cluster, compute member centrality, and swap the
layer atomically. Run this out of band, on a schedule matching
community.refresh_interval.`,
	RunE: runCommunitiesRebuild,
}

var rebuildTimeout time.Duration

func init() {
	rootCmd.AddCommand(communitiesCmd)
	communitiesCmd.AddCommand(communitiesRebuildCmd)

	communitiesRebuildCmd.Flags().DurationVar(&rebuildTimeout, "timeout", 10*time.Minute, "Rebuild timeout")
}

func runCommunitiesRebuild(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	log := logger.New(cfg.Log)

	client, err := jurisgraph.NewClient(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to initialize jurisgraph: %w", err)
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), rebuildTimeout)
	defer cancel()

	result, err := client.RebuildCommunities(ctx)
	if err != nil {
		return fmt.Errorf("community rebuild failed: %w", err)
	}

	fmt.Printf("Rebuilt %d communities over %d members\n", result.Communities, result.Members)
	return nil
}
