package main

import (
	"fmt"
	"os"

	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/tipee-sa/sherpa/repository"
)

var exportCmd = &cobra.Command{
	Use:   "export NAME",
	Short: "Pack a cluster's state into a portable archive",
	Long: "Export writes the cluster's snapshot and pinned host keys into a\n" +
		"zstd-compressed tar archive that can be imported on another machine.\n" +
		"Private key material is left out unless --save-keys is given.",
	Args: cobra.ExactArgs(1),

	RunE: func(cmd *cobra.Command, args []string) error {
		repo, err := openRepository()
		if err != nil {
			return err
		}

		output := lo.Must(cmd.Flags().GetString("output"))
		if output == "" {
			output = args[0] + ".tar.zst"
		}
		f, err := os.OpenFile(output, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
		if err != nil {
			return fmt.Errorf("create archive '%s': %w", output, err)
		}
		defer f.Close()

		if err := repo.Export(args[0], f, repository.ExportOptions{
			IncludeKeys: lo.Must(cmd.Flags().GetBool("save-keys")),
		}); err != nil {
			os.Remove(output)
			return err
		}
		cmd.Printf("Exported cluster '%s' to %s\n", args[0], output)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringP("output", "o", "", "archive file to write (default NAME.tar.zst)")
	exportCmd.Flags().Bool("save-keys", false, "include the cluster's SSH private key material in the archive")
}
