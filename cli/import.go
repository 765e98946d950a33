package main

import (
	"fmt"
	"os"

	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/tipee-sa/sherpa/log"
	"github.com/tipee-sa/sherpa/repository"
)

var importCmd = &cobra.Command{
	Use:   "import ARCHIVE",
	Short: "Register a cluster from an archive produced by export",
	Args:  cobra.ExactArgs(1),

	RunE: func(cmd *cobra.Command, args []string) error {
		repo, err := openRepository()
		if err != nil {
			return err
		}
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("open archive '%s': %w", args[0], err)
		}
		defer f.Close()

		name, err := repo.Import(f, repository.ImportOptions{
			Rename: lo.Must(cmd.Flags().GetString("rename")),
		})
		if err != nil {
			return err
		}
		cmd.Printf("Imported cluster '%s'\n", name)

		c, err := repo.Load(name)
		if err != nil {
			return err
		}
		if _, err := os.Stat(c.SSH.PrivateKeyPath); err != nil {
			log.Warn("Archive carried no key material and the recorded private key is not readable on this machine",
				"path", c.SSH.PrivateKeyPath)
		}
		return nil
	},
}

func init() {
	importCmd.Flags().String("rename", "", "import the cluster under a different name")
}
