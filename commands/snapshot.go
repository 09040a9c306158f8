package commands

import (
	"github.com/penwyp/go-activity-report/internal/presentation/formatter"
	"github.com/spf13/cobra"
)

var snapshotOutput string

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Print the latest snapshot of a report context",
	RunE:  runSnapshot,
}

func init() {
	rootCmd.AddCommand(snapshotCmd)

	snapshotCmd.Flags().StringVarP(&snapshotOutput, "output", "o", formatter.OutputTable,
		"Output format (table, json, csv, summary)")
}

func runSnapshot(cmd *cobra.Command, args []string) error {
	out, err := formatter.New(snapshotOutput)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	st, err := openStore(cmd.Context(), cfg, nil)
	if err != nil {
		return err
	}
	defer st.Backend().Close()

	return out.Format(cmd.OutOrStdout(), st.GetSnapshot(cmd.Context(), reportContext))
}
