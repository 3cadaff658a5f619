// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Mufeed Ali

package cli

import (
	"context"
	"device-manager/internal/bluetooth"
	"device-manager/internal/ssh"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/briandowns/spinner"
	"golang.org/x/term"
)

// stdoutIsTerminal reports whether the spinner can redraw in place.
func stdoutIsTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// interruptContext lets Ctrl-C end a running scan without leaving the menu.
func interruptContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(ctx, os.Interrupt)
}

func newBLEFlow(out io.Writer, withSpinner bool) *bluetooth.Flow {
	adapter := &bluetooth.HCIAdapter{
		DeviceID:       appConfig.BLE.HCIDevice,
		ConnectTimeout: appConfig.BLE.ConnectTimeout,
		Log:            appLog,
	}
	flow := &bluetooth.Flow{
		Scanner:     adapter,
		Connector:   adapter,
		Out:         out,
		Log:         appLog,
		ScanTimeout: appConfig.BLE.ScanTimeout,
		Hold:        appConfig.BLE.ConnectHold,
	}
	if withSpinner {
		s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
		s.Color("cyan")
		s.Suffix = " Scanning for BLE devices..."
		s.Writer = out
		flow.Indicator = s
	}
	return flow
}

func newSSHRunner(out io.Writer) *ssh.Runner {
	return &ssh.Runner{
		Dialer: ssh.ClientDialer{Options: ssh.ClientOptions{
			Timeout:        appConfig.SSH.ConnectTimeout,
			HostKeyPolicy:  appConfig.SSH.HostKeyPolicy,
			KnownHostsPath: appConfig.SSH.KnownHosts,
			UseAgent:       appConfig.SSH.UseAgent,
			Log:            appLog,
		}},
		Out:            out,
		Log:            appLog,
		DefaultPort:    appConfig.SSH.Port,
		DefaultKeyPath: appConfig.SSH.KeyPath,
		DefaultCommand: appConfig.SSH.DefaultCommand,
		SSHConfigPath:  appConfig.SSH.SSHConfigPath,
	}
}
