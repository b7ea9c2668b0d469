package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/schemakeep/schemakeep/internal/aws"
	"github.com/schemakeep/schemakeep/internal/snapshot"
)

var (
	exportOut      string
	exportS3Bucket string
	exportS3Prefix string
	exportGlueDB   string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write a catalog snapshot, optionally publishing to AWS",
	Long: `Serialize the whole catalog (tables, columns, indexes, column
statistics) into a YAML snapshot. With --s3-bucket the snapshot is also
uploaded to S3; with --glue-database the table definitions are synced to
the AWS Glue Data Catalog.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cat, cfg, err := openCatalog(cmd.Context())
		if err != nil {
			return err
		}
		defer cat.Close(cmd.Context())

		snap, err := snapshot.Take(cmd.Context(), cat)
		if err != nil {
			return fmt.Errorf("taking snapshot: %w", err)
		}

		if exportOut != "" {
			if err := snapshot.WriteYAML(snap, exportOut); err != nil {
				return fmt.Errorf("writing snapshot: %w", err)
			}
			fmt.Printf("Snapshot written to %s (%d tables, %d indexes).\n",
				exportOut, len(snap.Tables), len(snap.Indexes))
		}

		bucket := exportS3Bucket
		if bucket == "" {
			bucket = cfg.AWS.S3Bucket
		}
		glueDB := exportGlueDB
		if glueDB == "" {
			glueDB = cfg.AWS.GlueDatabase
		}
		if bucket == "" && glueDB == "" {
			if exportOut == "" {
				return fmt.Errorf("nothing to do: pass --out, --s3-bucket or --glue-database")
			}
			return nil
		}

		client, err := aws.NewRealClient(cmd.Context(), cfg.AWS.Profile, cfg.AWS.Region)
		if err != nil {
			return fmt.Errorf("initializing AWS client: %w", err)
		}

		pre, err := aws.RunPreflight(cmd.Context(), client, bucket)
		if err != nil {
			return err
		}
		fmt.Printf("AWS identity: %s\n", pre.Identity.ARN)
		for _, e := range pre.Errors {
			fmt.Printf("  warning: %s\n", e)
		}

		if bucket != "" && pre.BucketReachable {
			data, err := snapshot.ToYAML(snap)
			if err != nil {
				return fmt.Errorf("encoding snapshot: %w", err)
			}
			uploader := aws.NewSnapshotUploader(client, bucket, exportS3Prefix)
			key, err := uploader.Upload(cmd.Context(), data, snap.TakenAt)
			if err != nil {
				return fmt.Errorf("uploading snapshot: %w", err)
			}
			fmt.Printf("Snapshot uploaded to s3://%s/%s\n", bucket, key)
		}

		if glueDB != "" {
			synced, err := aws.SyncTables(cmd.Context(), client, glueDB, snap.Tables)
			if err != nil {
				return fmt.Errorf("syncing Glue catalog: %w", err)
			}
			fmt.Printf("Synced %d tables to Glue database %s.\n", synced, glueDB)
		}
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportOut, "out", "", "snapshot file to write")
	exportCmd.Flags().StringVar(&exportS3Bucket, "s3-bucket", "", "S3 bucket for snapshot upload (default from config)")
	exportCmd.Flags().StringVar(&exportS3Prefix, "s3-prefix", "snapshots", "S3 key prefix")
	exportCmd.Flags().StringVar(&exportGlueDB, "glue-database", "", "Glue database to sync table definitions into (default from config)")
	rootCmd.AddCommand(exportCmd)
}
