package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ppiankov/firecheck/internal/model"
	"github.com/ppiankov/firecheck/internal/pipeline"
	"github.com/ppiankov/firecheck/internal/store"
)

var (
	runsLimit   int
	runsVerdict string
	runsFormat  string
)

// runsCmd represents the runs command
var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect saved check results",
}

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent runs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openConfiguredStore()
		if err != nil {
			return err
		}
		defer s.Close()

		opts := store.ListOptions{Limit: runsLimit}
		if runsVerdict != "" {
			v, ok := model.ParseOverallVerdict(runsVerdict)
			if !ok && !strings.EqualFold(runsVerdict, string(model.OverallError)) {
				return fmt.Errorf("unknown verdict %q", runsVerdict)
			}
			if !ok {
				v = model.OverallError
			}
			opts.Verdict = v
		}

		runs, err := s.List(cmd.Context(), opts)
		if err != nil {
			return err
		}
		printRuns(cmd.OutOrStdout(), runs)
		return nil
	},
}

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show a saved run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openConfiguredStore()
		if err != nil {
			return err
		}
		defer s.Close()

		result, err := s.Get(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if runsFormat == "markdown" || runsFormat == "md" {
			_, err = io.WriteString(cmd.OutOrStdout(), pipeline.NewRenderer(true).Markdown(result))
			return err
		}
		return pipeline.WriteJSON(cmd.OutOrStdout(), result)
	},
}

func init() {
	rootCmd.AddCommand(runsCmd)
	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)

	runsListCmd.Flags().IntVar(&runsLimit, "limit", 20, "maximum runs to list")
	runsListCmd.Flags().StringVar(&runsVerdict, "verdict", "", "only runs with this overall verdict")
	runsShowCmd.Flags().StringVar(&runsFormat, "format", "json", "output format (json, markdown)")
}

func openConfiguredStore() (*store.Store, error) {
	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return nil, err
	}
	return openStore(cfg.Store)
}

func printRuns(w io.Writer, runs []store.RunSummary) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs found.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN ID\tSTARTED\tVERDICT\tCLAIMS\tERRORS\tSTATEMENT")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%s\n",
			r.RunID, r.StartedAt.Local().Format(time.DateTime), r.OverallVerdict, r.Claims, r.Errors, truncate(r.Statement, 60))
	}
	_ = tw.Flush()
}

func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
