package main

import (
	"fmt"

	"github.com/spf13/cobra"

	kafkaadapter "github.com/couchcryptid/wildfire-risk-engine/internal/adapter/kafka"
	"github.com/couchcryptid/wildfire-risk-engine/internal/config"
)

func ingestCmd() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "ingest [csv-path-or-url]",
		Short: "Publish FIRMS rows to the source topic",
		Long: `Read a FIRMS CSV export (a local file, a URL, or FIRMS_URL) and publish
each row as a raw detection record to KAFKA_SOURCE_TOPIC.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger := cliLogger(cfg)

			recs, err := readFIRMSRecords(cmd.Context(), firstArg(args), cfg, logger)
			if err != nil {
				return err
			}
			if dryRun {
				fmt.Fprintf(cmd.OutOrStdout(), "%d records would be published to %s\n", len(recs), cfg.KafkaSourceTopic)
				return nil
			}

			w := kafkaadapter.NewSourceWriter(cfg, logger)
			defer w.Close()
			if err := w.PublishRecords(cmd.Context(), recs); err != nil {
				return err
			}
			logger.Info("records published", "records", len(recs), "topic", cfg.KafkaSourceTopic)
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "parse the export and report the record count without publishing")
	return cmd
}
