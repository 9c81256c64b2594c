package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"
)

var version = "0.1.0"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var cfgPath string

	root := &cobra.Command{
		Use:           "spawnsim",
		Short:         "Time-sliced spawner simulation over pooled entities",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "Path to the TOML config (default $SPAWNSIM_CONFIG or config/spawnsim.toml)")

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("spawnsim v%s\n", version)
			fmt.Printf("Go version: %s\n", runtime.Version())
			fmt.Printf("OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	})

	var opts runOptions
	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Load the level and drive the simulation until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.configPath = cfgPath
			return run(opts)
		},
	}
	runCmd.Flags().IntVar(&opts.ticks, "ticks", 0, "Stop after this many ticks (0 runs until SIGINT/SIGTERM)")
	runCmd.Flags().BoolVar(&opts.fresh, "fresh", false, "Discard saved spawner state for the level before loading")
	runCmd.Flags().BoolVar(&opts.noSave, "no-save", false, "Do not save spawner state on shutdown")
	root.AddCommand(runCmd)

	root.AddCommand(&cobra.Command{
		Use:   "check",
		Short: "Resolve every prototype and build the pools without running",
		RunE: func(cmd *cobra.Command, args []string) error {
			return check(cfgPath)
		},
	})

	return root
}
