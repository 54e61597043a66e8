package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jingkaihe/skillscan/pkg/history"
	"github.com/jingkaihe/skillscan/pkg/presenter"
	"github.com/jingkaihe/skillscan/pkg/report"
)

type HistoryListConfig struct {
	Skill string
	Risk  string
	Limit int
}

func NewHistoryListConfig() *HistoryListConfig {
	return &HistoryListConfig{Limit: 20}
}

func getHistoryListConfigFromFlags(cmd *cobra.Command) *HistoryListConfig {
	config := NewHistoryListConfig()
	config.Skill, _ = cmd.Flags().GetString("skill")
	config.Risk, _ = cmd.Flags().GetString("risk")
	config.Limit, _ = cmd.Flags().GetInt("limit")
	return config
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Browse past scan results",
	Long:  `Browse the scans recorded in the local history database.`,
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded scans, newest first",
	Run: func(cmd *cobra.Command, _ []string) {
		config := getHistoryListConfigFromFlags(cmd)
		os.Exit(runHistoryList(cmd.Context(), config))
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show <scan-id>",
	Short: "Show a recorded scan report",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		format, _ := cmd.Flags().GetString("format")
		os.Exit(runHistoryShow(cmd.Context(), args[0], format))
	},
}

var historyDeleteCmd = &cobra.Command{
	Use:   "delete <scan-id>",
	Short: "Delete a recorded scan",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		os.Exit(runHistoryDelete(cmd.Context(), args[0]))
	},
}

func init() {
	historyListCmd.Flags().String("skill", "", "Only show scans of this skill")
	historyListCmd.Flags().String("risk", "", "Only show scans with this overall risk")
	historyListCmd.Flags().Int("limit", 20, "Maximum number of scans to show (0 = all)")
	historyShowCmd.Flags().StringP("format", "f", "json", "Report format (json, markdown)")

	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyDeleteCmd)
}

func runHistoryList(ctx context.Context, config *HistoryListConfig) int {
	store, err := history.OpenDefault(ctx)
	if err != nil {
		presenter.Error(err, "failed to open scan history")
		return exitFatal
	}
	defer store.Close()

	entries, err := store.List(ctx, history.ListOptions{
		Skill: config.Skill,
		Risk:  config.Risk,
		Limit: config.Limit,
	})
	if err != nil {
		presenter.Error(err, "failed to list scan history")
		return exitFatal
	}

	if len(entries) == 0 {
		presenter.Info("no recorded scans")
		return exitApprove
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SCAN ID\tSKILL\tRISK\tRECOMMENDATION\tFINDINGS\tSCANNED AT")
	fmt.Fprintln(tw, "-------\t-----\t----\t--------------\t--------\t----------")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\n",
			e.ScanID, e.Skill, e.OverallRisk, e.Recommendation,
			e.TotalFindings, e.ScannedAt.Local().Format("2006-01-02 15:04:05"))
	}
	tw.Flush()
	return exitApprove
}

func runHistoryShow(ctx context.Context, scanID, formatName string) int {
	format, err := report.ParseFormat(formatName)
	if err != nil {
		presenter.Error(err, "invalid arguments")
		return exitFatal
	}

	store, err := history.OpenDefault(ctx)
	if err != nil {
		presenter.Error(err, "failed to open scan history")
		return exitFatal
	}
	defer store.Close()

	rep, err := store.Get(ctx, scanID)
	if err != nil {
		presenter.Error(err, "failed to load scan")
		return exitFatal
	}

	out, err := report.Render(rep, format)
	if err != nil {
		presenter.Error(err, "failed to render report")
		return exitFatal
	}
	fmt.Print(string(out))
	return exitApprove
}

func runHistoryDelete(ctx context.Context, scanID string) int {
	store, err := history.OpenDefault(ctx)
	if err != nil {
		presenter.Error(err, "failed to open scan history")
		return exitFatal
	}
	defer store.Close()

	if err := store.Delete(ctx, scanID); err != nil {
		presenter.Error(err, "failed to delete scan")
		return exitFatal
	}
	presenter.Success("deleted scan " + scanID)
	return exitApprove
}
