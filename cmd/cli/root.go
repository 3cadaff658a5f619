// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Mufeed Ali

package cli

import (
	"device-manager/internal/bluetooth"
	"device-manager/internal/config"
	"device-manager/internal/logger"
	"device-manager/internal/menu"
	"device-manager/internal/prompt"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var (
	configPath        string
	logLevelFlag      string
	hostKeyPolicyFlag string

	appConfig config.Config
	appLog    *slog.Logger
	closeLog  = func() error { return nil }
)

var rootCmd = &cobra.Command{
	Use:   "dm",
	Short: "BT-SSH Device Manager",
	Long: `An interactive tool to scan for nearby Bluetooth Low Energy devices and to
run a single command on a remote host over SSH.

Run without arguments to open the menu. Settings are read from
~/.config/device-manager/config.yaml when it exists.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setup(cmd, os.Stderr)
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return closeLog()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMenu(cmd)
	},
}

func RunCLI() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to the config file (default ~/.config/device-manager/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&hostKeyPolicyFlag, "host-key-policy", "", "SSH host key policy: auto-trust or known-hosts")

	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(connectCmd)
	rootCmd.AddCommand(execCmd)
}

// setup loads the configuration, applies flag overrides and initializes the
// logger exactly once for the process.
func setup(cmd *cobra.Command, logOut io.Writer) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("log-level") {
		cfg.Log.Level = logLevelFlag
	}
	if cmd.Flags().Changed("host-key-policy") {
		cfg.SSH.HostKeyPolicy = hostKeyPolicyFlag
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	log, w, closer, err := logger.New(logger.Options{
		Level:  cfg.Log.Level,
		File:   cfg.Log.File,
		Stderr: logOut,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	level, _ := logger.ParseLevel(cfg.Log.Level)
	bluetooth.UseStackLogger(w, level)

	appConfig = cfg
	appLog = log
	closeLog = closer
	return nil
}

func runMenu(cmd *cobra.Command) error {
	out := cmd.OutOrStdout()
	in := prompt.New(os.Stdin, out)

	m := &menu.Menu{
		Prompt:         in,
		Credentials:    prompt.NewTerminalCredentials(os.Stdin, out, in),
		Out:            out,
		Log:            appLog,
		BLE:            newBLEFlow(out, stdoutIsTerminal()),
		SSH:            newSSHRunner(out),
		DefaultCommand: appConfig.SSH.DefaultCommand,
		ScanContext:    interruptContext,
	}
	return m.Run(cmd.Context())
}
