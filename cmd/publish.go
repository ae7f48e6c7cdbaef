package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// publishCmd represents the publish command
var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Upload the generated patch to object storage",
	Long:  `Uploads the patch (or --file, relative to the game path) to the configured S3/MinIO bucket.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		file, _ := cmd.Flags().GetString("file")

		a, err := setup()
		if err != nil {
			return err
		}
		defer a.logger.Sync()

		svc, err := a.service(true)
		if err != nil {
			return err
		}

		pub, err := svc.Publish(cmd.Context(), file)
		if err != nil {
			return err
		}
		fmt.Printf("Published %s/%s (%d bytes)\n", pub.Bucket, pub.Object, pub.Size)
		return nil
	},
}

func init() {
	publishCmd.Flags().String("file", "", "Archive to publish instead of the configured patch")
	RootCmd.AddCommand(publishCmd)
}
