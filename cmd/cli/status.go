package main

import (
	"context"
	"encoding/json"
	"sort"

	"github.com/spf13/cobra"

	"github.com/kurihiro0119/github-mirror/internal/domain"
	"github.com/kurihiro0119/github-mirror/internal/storage/backend"
	"github.com/kurihiro0119/github-mirror/pkg/client"
)

var (
	apiURL     string
	outputJSON bool
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show mirrored repositories",
	Long: `Show the repositories recorded in the mirror database, or those known
to a running status server when --api is given.`,
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE:         runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&apiURL, "api", "", "status server URL, e.g. http://localhost:8080")
	statusCmd.Flags().BoolVar(&outputJSON, "json", false, "output in JSON format")
}

func runStatus(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	var (
		records []*domain.MirrorRecord
		err     error
	)
	if apiURL != "" {
		records, err = client.NewClient(apiURL).ListMirrors(ctx)
	} else {
		records, err = listLocal(ctx, cmd)
	}
	if err != nil {
		return err
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Name < records[j].Name })

	if outputJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	}
	printMirrors(cmd.OutOrStdout(), records)
	return nil
}

func listLocal(ctx context.Context, cmd *cobra.Command) ([]*domain.MirrorRecord, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	store, err := backend.Open(cfg)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	return store.ListMirrors(ctx)
}
