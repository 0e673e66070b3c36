package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check every active alert once",
	Long: `Check loads all active alerts, fetches the current fare for each one and
notifies on price drops. Individual alert failures are logged and do not
change the exit code; only a failure to start the batch does.`,
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger, closer, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer closer.Close()

	summary, err := runBatch(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}

	fmt.Printf("Checked %d alerts in %s: %d dropped, %d unchanged, %d expired, %d failed\n",
		summary.Total, summary.Duration.Round(time.Millisecond), summary.Dropped,
		summary.Unchanged, summary.Expired, summary.Failed)
	return nil
}
