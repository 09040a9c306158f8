package commands

import (
	"fmt"
	"io"

	"github.com/bytedance/sonic"
	"github.com/penwyp/go-activity-report/internal/application/report"
	"github.com/penwyp/go-activity-report/internal/core/model"
	"github.com/penwyp/go-activity-report/internal/metrics"
	"github.com/penwyp/go-activity-report/internal/presentation/formatter"
	"github.com/spf13/cobra"
)

var (
	viewStateFrom         float64
	viewStateTo           float64
	viewStateSegmentation string
	viewStateOutput       string

	// View property flags
	viewUsers     string
	viewDevices   []int
	viewSelection string
)

var viewStateCmd = &cobra.Command{
	Use:   "view-state",
	Short: "Inspect and change the view-state read by the report extension",
}

var viewStateGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Print the view-state of a report context",
	Long: `Prints the stored view-state of a report context. Missing or malformed
state falls back to today so far with daily segmentation.`,
	RunE: runViewStateGet,
}

var viewStateSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Write the view-state of a report context",
	Long: `Updates the view-state of a report context. Only the given flags change;
the range is normalized so that from < to.`,
	RunE: runViewStateSet,
}

var viewStateListCmd = &cobra.Command{
	Use:   "list",
	Short: "List report contexts with stored state",
	RunE:  runViewStateList,
}

var viewStateApplyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Apply report view properties and print the resulting filter",
	Long: `Applies properties the way an embedded report view receives them from the
host UI: each property persists the view-state, then the activity filter the
host would query with is printed as JSON.`,
	RunE: runViewStateApply,
}

func init() {
	rootCmd.AddCommand(viewStateCmd)
	viewStateCmd.AddCommand(viewStateGetCmd, viewStateSetCmd, viewStateListCmd, viewStateApplyCmd)

	viewStateGetCmd.Flags().StringVarP(&viewStateOutput, "output", "o", "json",
		"Output format (json, text)")

	for _, cmd := range []*cobra.Command{viewStateSetCmd, viewStateApplyCmd} {
		cmd.Flags().Float64Var(&viewStateFrom, "from", 0,
			"Range start in Unix seconds")
		cmd.Flags().Float64Var(&viewStateTo, "to", 0,
			"Range end in Unix seconds")
		cmd.Flags().StringVar(&viewStateSegmentation, "segmentation", "",
			"Segmentation (hourly, daily, weekly)")
	}

	viewStateApplyCmd.Flags().StringVar(&viewUsers, "users", "",
		"User selection (all, children)")
	viewStateApplyCmd.Flags().IntSliceVar(&viewDevices, "devices", nil,
		"Device model raw values, empty for all devices")
	viewStateApplyCmd.Flags().StringVar(&viewSelection, "selection", "",
		"Activity selection as JSON or base64 JSON")
}

func runViewStateGet(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	st, err := openStore(cmd.Context(), cfg, nil)
	if err != nil {
		return err
	}
	defer st.Backend().Close()

	state := st.GetViewState(cmd.Context(), reportContext)
	switch viewStateOutput {
	case "text":
		return formatter.NewSummaryFormatter().FormatViewState(cmd.OutOrStdout(), state)
	case "json":
		return writeJSON(cmd.OutOrStdout(), state)
	default:
		return fmt.Errorf("unknown output format %q (expected json or text)", viewStateOutput)
	}
}

func runViewStateSet(cmd *cobra.Command, args []string) error {
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
	state := st.GetViewState(ctx, reportContext)
	flags := cmd.Flags()
	if flags.Changed("from") {
		state.From = viewStateFrom
	}
	if flags.Changed("to") {
		state.To = viewStateTo
	}
	if flags.Changed("segmentation") {
		state.Segmentation = model.ParseSegmentation(viewStateSegmentation)
	}
	// Restamp on every write.
	state.GeneratedAt = ""

	if err := st.SetViewState(ctx, reportContext, state); err != nil {
		return err
	}
	return writeJSON(cmd.OutOrStdout(), st.GetViewState(ctx, reportContext))
}

func runViewStateList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	st, err := openStore(cmd.Context(), cfg, nil)
	if err != nil {
		return err
	}
	defer st.Backend().Close()

	contexts, err := st.Contexts(cmd.Context())
	if err != nil {
		return err
	}
	if len(contexts) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No report contexts found")
		return nil
	}
	for _, c := range contexts {
		fmt.Fprintln(cmd.OutOrStdout(), c)
	}
	return nil
}

func runViewStateApply(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	st, err := openStore(cmd.Context(), cfg, metrics.New())
	if err != nil {
		return err
	}
	defer st.Backend().Close()

	view := report.NewView(cmd.Context(), st)
	flags := cmd.Flags()
	if flags.Changed("context") {
		view.SetContext(&reportContext)
	}
	if flags.Changed("from") {
		view.SetFrom(&viewStateFrom)
	}
	if flags.Changed("to") {
		view.SetTo(&viewStateTo)
	}
	if flags.Changed("segmentation") {
		view.SetSegmentation(&viewStateSegmentation)
	}
	if flags.Changed("users") {
		view.SetUsers(&viewUsers)
	}
	if flags.Changed("devices") {
		view.SetDevices(viewDevices)
	}
	if flags.Changed("selection") {
		view.SetFamilyActivitySelection(&viewSelection)
	}

	return writeJSON(cmd.OutOrStdout(), view.Filter())
}

func writeJSON(w io.Writer, v any) error {
	data, err := sonic.ConfigStd.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
