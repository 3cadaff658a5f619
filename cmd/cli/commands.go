// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Mufeed Ali

package cli

import (
	"device-manager/internal/prompt"
	"device-manager/internal/ssh"
	"device-manager/internal/ui"
	"device-manager/internal/util"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var (
	scanTimeout time.Duration
	connectHold time.Duration

	execUser     string
	execPort     int
	execIdentity string
	execPassword bool
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan for nearby BLE devices",
	Long: `Scan for nearby Bluetooth Low Energy devices and print each one with its
address. The scan runs for the configured timeout or until Ctrl+C.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Changed("timeout") {
			appConfig.BLE.ScanTimeout = scanTimeout
		}
		ctx, cancel := interruptContext(cmd.Context())
		defer cancel()

		// The flow already printed the failure.
		_, err := newBLEFlow(cmd.OutOrStdout(), stdoutIsTerminal()).Scan(ctx)
		return err
	},
}

var connectCmd = &cobra.Command{
	Use:   "connect <address>",
	Short: "Open and close a BLE link to a device",
	Long: `Connect to the BLE device with the given address, keep the link open for
the hold duration (or until Ctrl+C) and disconnect.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Changed("hold") {
			appConfig.BLE.ConnectHold = connectHold
		}
		ctx, cancel := interruptContext(cmd.Context())
		defer cancel()

		if !newBLEFlow(cmd.OutOrStdout(), false).Connect(ctx, args[0]) {
			return fmt.Errorf("could not connect to %s", args[0])
		}
		ui.SuccessColor.Fprintf(cmd.OutOrStdout(), "Link to %s closed cleanly.\n", args[0])
		return nil
	},
}

var execCmd = &cobra.Command{
	Use:   "exec <host> [command...]",
	Short: "Run one command on a remote host over SSH",
	Long: `Connect to <host> over SSH, run a single command and print its standard
output and standard error. Host aliases from ~/.ssh/config are honored.
Without a command the configured default is run.`,
	Example: `  dm exec 192.168.1.10 uptime
  dm exec -u pi --password raspberrypi.local -- df -h /`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		req := ssh.Request{
			Host:    args[0],
			Port:    execPort,
			User:    execUser,
			KeyPath: execIdentity,
		}
		if len(args) > 1 {
			req.Command = util.JoinShellArgs(args[1:])
		}
		if execPassword {
			in := prompt.New(os.Stdin, out)
			creds := prompt.NewTerminalCredentials(os.Stdin, out, in)
			password, err := creds.Password(fmt.Sprintf("Password for %s: ", req.Host))
			if err != nil {
				return fmt.Errorf("failed to read password: %w", err)
			}
			req.Password = password
		}

		// The runner already printed the failure.
		return newSSHRunner(out).Run(cmd.Context(), req)
	},
}

func init() {
	scanCmd.Flags().DurationVarP(&scanTimeout, "timeout", "t", 0, "how long to scan (default from config)")
	connectCmd.Flags().DurationVar(&connectHold, "hold", 0, "how long to keep the link open (default from config)")

	execCmd.Flags().StringVarP(&execUser, "user", "u", "", "SSH username (default from ~/.ssh/config or the current user)")
	execCmd.Flags().IntVarP(&execPort, "port", "p", 0, "SSH port (default from ~/.ssh/config or config file)")
	execCmd.Flags().StringVarP(&execIdentity, "identity", "i", "", "private key file")
	execCmd.Flags().BoolVar(&execPassword, "password", false, "prompt for a password")
}
