package main

import (
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/JaimeStill/vigil/internal/workitem"
)

var (
	importSheet  string
	importDryRun bool
)

var importCmd = &cobra.Command{
	Use:   "import FILE.xlsx",
	Short: "Bulk-enqueue calls from a spreadsheet",
	Long: `Reads work items from an .xlsx workbook whose first row names the columns:
call_id, recording_url, owner_id, agent_id, created_at (RFC3339), language,
webhook_url, save_recording, and any number of metadata.<key> columns.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		file, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("open %s: %w", args[0], err)
		}
		defer file.Close()

		items, rowErrs, err := workitem.ReadSheet(file, importSheet, time.Now().UTC())
		if err != nil {
			return err
		}
		for _, re := range rowErrs {
			logrus.WithField("row", re.Row).WithError(re.Err).Warn("skipping row")
		}

		if importDryRun {
			fmt.Fprintf(cmd.OutOrStdout(), "%d valid rows, %d skipped\n", len(items), len(rowErrs))
			return nil
		}

		t, closeFn, log, err := openTarget(ctx)
		if err != nil {
			return err
		}
		defer closeFn()

		var enqueued, rejected int
		for _, item := range items {
			id, err := t.submit(ctx, item)
			if err != nil {
				rejected++
				log.WithField("call_id", item.CallID).WithError(err).Warn("work item rejected")
				continue
			}
			enqueued++
			log.WithFields(logrus.Fields{
				"call_id":    item.CallID,
				"message_id": id,
			}).Debug("call enqueued")
		}

		log.WithFields(logrus.Fields{
			"enqueued": enqueued,
			"rejected": rejected,
			"skipped":  len(rowErrs),
		}).Info("import complete")

		if enqueued == 0 && len(items) > 0 {
			return fmt.Errorf("no rows enqueued from %s", args[0])
		}
		return nil
	},
}

func init() {
	importCmd.Flags().StringVar(&importSheet, "sheet", "", "Sheet name (defaults to the first sheet)")
	importCmd.Flags().BoolVar(&importDryRun, "dry-run", false, "Parse and report without enqueueing")
}
