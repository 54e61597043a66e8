package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jingkaihe/skillscan/pkg/presenter"
	"github.com/jingkaihe/skillscan/pkg/rules"
)

type RulesConfig struct {
	Format   string
	Language string
}

func NewRulesConfig() *RulesConfig {
	return &RulesConfig{Format: "table"}
}

func getRulesConfigFromFlags(cmd *cobra.Command) *RulesConfig {
	config := NewRulesConfig()
	config.Format, _ = cmd.Flags().GetString("format")
	config.Language, _ = cmd.Flags().GetString("language")
	return config
}

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "List the detection rule catalog",
	Long:  `List every detection rule in the catalog with its severity, category, and applicable languages.`,
	Run: func(cmd *cobra.Command, _ []string) {
		config := getRulesConfigFromFlags(cmd)
		os.Exit(runRules(config))
	},
}

func init() {
	rulesCmd.Flags().StringP("format", "f", "table", "Output format (table, json)")
	rulesCmd.Flags().StringP("language", "l", "", "Only show rules applicable to this language")
}

func runRules(config *RulesConfig) int {
	ruleset, err := rules.Load()
	if err != nil {
		presenter.Error(err, "failed to load rule catalog")
		return exitFatal
	}

	list := ruleset.Rules()
	if config.Language != "" {
		list = ruleset.MatchersFor(config.Language)
	}

	if config.Format == "json" {
		out, err := json.MarshalIndent(list, "", "  ")
		if err != nil {
			presenter.Error(err, "failed to marshal rules")
			return exitFatal
		}
		fmt.Println(string(out))
		return exitApprove
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSEVERITY\tCATEGORY\tLANGUAGES\tTITLE")
	fmt.Fprintln(tw, "--\t--------\t--------\t---------\t-----")
	for _, r := range list {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			r.ID, r.Severity, r.Category, strings.Join(r.Languages, ","), r.Title)
	}
	tw.Flush()
	return exitApprove
}
