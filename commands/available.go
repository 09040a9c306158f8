package commands

import (
	"fmt"

	"github.com/penwyp/go-activity-report/internal/application/report"
	"github.com/spf13/cobra"
)

var (
	availableOS      string
	availableVersion string
)

var availableCmd = &cobra.Command{
	Use:   "available",
	Short: "Check whether a platform can embed activity reports",
	Long: fmt.Sprintf(`Prints true when the platform supports activity reports (iOS %d or later)
and false otherwise. Exits with an error only on bad flags.`, report.MinimumIOSMajorVersion),
	RunE: runAvailable,
}

func init() {
	rootCmd.AddCommand(availableCmd)

	availableCmd.Flags().StringVar(&availableOS, "os", "ios",
		"Host operating system")
	availableCmd.Flags().StringVar(&availableVersion, "version", "",
		"Host OS version, e.g. 17.2")
	_ = availableCmd.MarkFlagRequired("version")
}

func runAvailable(cmd *cobra.Command, args []string) error {
	ok := report.IsReportAvailable(report.Platform{OS: availableOS, Version: availableVersion})
	fmt.Fprintln(cmd.OutOrStdout(), ok)
	return nil
}
