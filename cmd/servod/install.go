package main

import (
	"fmt"
	"os"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/servokit/servod/pkg/config"
	daemonutils "github.com/servokit/servod/pkg/utils/daemon"
)

// NewInstallCommand .
func NewInstallCommand() *cobra.Command {
	allowNonRootAccess := false
	idleTimeout := time.Duration(0)

	cmd := &cobra.Command{
		Use:     "install",
		Short:   "Install servod as a systemd service",
		GroupID: gInstallation,
		Long: `Install the servod daemon as a systemd service.

This makes servod run in the background and start on boot. You must run this command as root.

By default, only root is allowed to access the daemon socket. Use --allow-non-root-access to let other users command servos without sudo.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			conf, err := config.NewFile(configPath)
			if err != nil {
				return err
			}

			conf.SetAllowNonRootAccess(allowNonRootAccess)
			if allowNonRootAccess {
				logrus.Info("non-root users are allowed to access the servod daemon.")
			} else {
				logrus.Info("only root user is allowed to access the servod daemon.")
			}

			if cmd.Flags().Changed("idle-timeout") {
				conf.SetIdleTimeout(idleTimeout)
				logrus.Infof("servos are disabled after %s without commands", idleTimeout)
			}

			// The unit starts the daemon, so the config goes first.
			err = conf.Save()
			if err != nil {
				return pkgerrors.Wrapf(err, "failed to save config")
			}

			err = daemonutils.Install(configPath, unixSocketPath)
			if err != nil {
				// check if current user is root
				if os.Geteuid() != 0 {
					logrus.Errorf("you must run this command as root")
				}
				return fmt.Errorf("failed to install daemon: %v. Are you root?", err)
			}

			logrus.Infof("installation succeeded")

			exePath, _ := os.Executable()

			cmd.Printf("systemd will use the current binary (%s) at startup so please make sure you do not move it. Once it is moved or deleted, you will need to run `servod install' again.\n", exePath)

			return nil
		},
	}

	cmd.Flags().BoolVar(&allowNonRootAccess, "allow-non-root-access", false, "Allow non-root users to access servod daemon.")
	cmd.Flags().DurationVar(&idleTimeout, "idle-timeout", 0, "Disable servos not commanded for this long. 0 never disables.")

	return cmd
}

// NewUninstallCommand .
func NewUninstallCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "uninstall",
		Short:   "Uninstall the servod systemd service",
		GroupID: gInstallation,
		Long: `Stop the servod daemon and remove its systemd unit.

The daemon releases every servo pin when it stops. You must run this command as root.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			err := daemonutils.Uninstall()
			if err != nil {
				// check if current user is root
				if os.Geteuid() != 0 {
					logrus.Errorf("you must run this command as root")
				}
				return fmt.Errorf("failed to uninstall daemon: %v", err)
			}

			cmd.Println("successfully uninstalled")

			cmd.Printf("Your config is kept in %s, in case you want to use `servod' again. If you want a complete uninstall, remove both the config file and servod itself manually.\n", configPath)

			return nil
		},
	}

	return cmd
}
