package commands

import (
	"fmt"

	"github.com/penwyp/go-activity-report/internal/data/store"
	"github.com/spf13/cobra"
)

var resetAll bool

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete the stored view-state and snapshot",
	Long: `Deletes the view-state and snapshot of the report context. With --all, every
context is reset; on the file backend the whole app group directory is cleared.`,
	RunE: runReset,
}

func init() {
	rootCmd.AddCommand(resetCmd)

	resetCmd.Flags().BoolVar(&resetAll, "all", false,
		"Reset every report context")
}

func runReset(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	st, err := openStore(cmd.Context(), cfg, nil)
	if err != nil {
		return err
	}
	defer st.Backend().Close()

	ctx := cmd.Context()
	contexts := []string{st.Sanitize(reportContext)}
	if resetAll {
		if contexts, err = st.Contexts(ctx); err != nil {
			return err
		}
	}

	if fb, ok := st.Backend().(*store.FileBackend); ok && resetAll {
		if err := fb.Clear(); err != nil {
			return err
		}
	} else {
		for _, c := range contexts {
			if err := st.Reset(ctx, c); err != nil {
				return err
			}
		}
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Reset %d report context(s)\n", len(contexts))
	return nil
}
