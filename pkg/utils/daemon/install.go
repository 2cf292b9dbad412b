package daemon

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
)

var (
	unitName = "handbrake.service"
	unitDir  = "/etc/systemd/system"

	// systemctl is replaced in tests.
	systemctl = func(args ...string) error {
		out, err := exec.Command("systemctl", args...).CombinedOutput()
		if err != nil {
			return fmt.Errorf("systemctl %s: %w: %s", strings.Join(args, " "), err, strings.TrimSpace(string(out)))
		}
		return nil
	}
)

const unitTemplate = `[Unit]
Description=handbrake USB HID lever
After=local-fs.target
# The HID gadget must exist before the daemon opens it.
After=sys-kernel-config.mount

[Service]
Type=simple
ExecStart=/path/to/handbrake daemon
Restart=always
RestartSec=1

[Install]
WantedBy=multi-user.target
`

func unitPath() string {
	return filepath.Join(unitDir, unitName)
}

// Unit renders the systemd unit for the binary at exePath, passing args to
// the daemon command.
func Unit(exePath string, args ...string) string {
	start := exePath + " daemon"
	if len(args) > 0 {
		start += " " + strings.Join(args, " ")
	}
	return strings.ReplaceAll(unitTemplate, "/path/to/handbrake daemon", start)
}

// Install writes the unit for the current executable, then enables and
// starts it.
func Install(args ...string) error {
	// Get the path to the current executable
	exePath, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to get the path to the current executable: %w", err)
	}
	exePath, err = filepath.Abs(exePath)
	if err != nil {
		return fmt.Errorf("failed to get the absolute path to the current executable: %w", err)
	}

	err = os.Chmod(exePath, 0755)
	if err != nil {
		return fmt.Errorf("failed to chmod the current executable to 0755: %w", err)
	}

	logrus.Infof("current executable path: %s", exePath)

	return install(Unit(exePath, args...))
}

func install(unit string) error {
	logrus.Infof("writing systemd unit to %s", unitDir)

	// mkdir -p
	err := os.MkdirAll(unitDir, 0755)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", unitDir, err)
	}

	// warn if the file already exists
	_, err = os.Stat(unitPath())
	if err == nil {
		logrus.Warnf("%s already exists, overwriting", unitPath())
	}

	err = os.WriteFile(unitPath(), []byte(unit), 0644)
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", unitPath(), err)
	}

	logrus.Infof("starting handbrake")

	if err := systemctl("daemon-reload"); err != nil {
		return err
	}
	if err := systemctl("enable", "--now", unitName); err != nil {
		return fmt.Errorf("failed to start %s: %w", unitName, err)
	}

	return nil
}
