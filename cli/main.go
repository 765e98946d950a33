package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/fatih/color"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/tipee-sa/sherpa/flags"
	"github.com/tipee-sa/sherpa/log"
)

// Versioning information set at build time
var version, commit = "dev", "n/a"

var sherpaCmd = &cobra.Command{
	Use:   "sherpa",
	Short: "Sherpa provisions and manages multi-node compute clusters on pluggable cloud back-ends.",

	SilenceUsage:  true,
	SilenceErrors: true,

	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return log.Init()
	},
}

func init() {
	pf := sherpaCmd.PersistentFlags()
	pf.String(flags.LogFormat, "text", "log format (json, text)")
	pf.String(flags.LogLevel, "WARN", "minimum log level (DEBUG forces the worker pool to size 1)")
	pf.Bool(flags.LogSource, false, "add source code location to logs")
	pf.StringP(flags.Config, "c", "", "path to the configuration file")
	pf.StringP(flags.Storage, "s", "", "directory holding cluster snapshots (default ~/.sherpa/storage)")
	pf.String(flags.SnapshotFormat, flags.DefaultSnapshotFormat, "encoding for new cluster snapshots (gob, json)")
	pf.Int(flags.Workers, flags.DefaultWorkers, "worker pool size for cloud and SSH fan-out")
	pf.Duration(flags.StartupTimeout, flags.DefaultStartupTimeout, "global timeout for nodes to become reachable")
	pf.Duration(flags.PollInterval, flags.DefaultPollInterval, "initial delay between liveness polling rounds")
	pf.Float64(flags.PollBackoff, flags.DefaultPollBackoff, "multiplier applied to the polling delay after every round")
	pf.Duration(flags.SSHTimeout, flags.DefaultSSHTimeout, "per-attempt timeout of a single SSH probe")

	viper.SetEnvPrefix("sherpa")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	lo.Must0(viper.BindPFlags(pf))

	sherpaCmd.AddCommand(
		startCmd,
		stopCmd,
		setupCmd,
		resizeCmd,
		listCmd,
		listNodesCmd,
		sshCmd,
		sftpCmd,
		exportCmd,
		importCmd,
		versionCmd,
	)
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	setupInterrupts(cancel)

	if err := sherpaCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", color.HiRedString("✗"), err)
		os.Exit(1)
	}
}

// setupInterrupts handles Ctrl+C with a double-tap pattern: the first signal
// cancels the command context so the orchestrator can flush its state, the
// second one forces an immediate exit.
func setupInterrupts(cancel context.CancelFunc) {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt)

	go func() {
		<-sig
		fmt.Fprintln(os.Stderr, "Interrupt received, attempting graceful shutdown")
		cancel()
		<-sig
		fmt.Fprintln(os.Stderr, "Second interrupt received, forcing exit")
		os.Exit(1)
	}()
}
