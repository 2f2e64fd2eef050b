// Package notify delivers task completion messages as desktop notifications.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"strings"

	"github.com/hupe1980/assetpipe/internal/logging"
	"github.com/hupe1980/assetpipe/internal/plugin"
	"github.com/hupe1980/assetpipe/internal/plugin/execx"
)

// Desktop sends notifications through the platform's notification tool.
// When the tool is unavailable the message is logged instead.
type Desktop struct {
	runner execx.Runner
	goos   string
}

// Option configures a Desktop notifier.
type Option func(*Desktop)

// WithGOOS overrides the detected operating system.
func WithGOOS(goos string) Option {
	return func(d *Desktop) { d.goos = goos }
}

// NewDesktop creates a desktop notifier.
func NewDesktop(runner execx.Runner, opts ...Option) *Desktop {
	d := &Desktop{runner: runner, goos: runtime.GOOS}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// Notify shows n. A missing tool or unsupported platform is not an error.
func (d *Desktop) Notify(ctx context.Context, n plugin.Notification) error {
	cmd, ok := command(d.goos, n)
	if !ok {
		logNotification(ctx, n)
		return nil
	}

	if _, err := d.runner.Run(ctx, cmd); err != nil {
		if errors.Is(err, plugin.ErrToolNotFound) {
			logging.FromContext(ctx).Debug("notification tool unavailable", slog.String("tool", cmd.Name))
			logNotification(ctx, n)

			return nil
		}

		return fmt.Errorf("sending notification: %w", err)
	}

	return nil
}

func command(goos string, n plugin.Notification) (execx.Command, bool) {
	switch goos {
	case "darwin":
		script := fmt.Sprintf("display notification %s with title %s", appleScriptString(n.Message), appleScriptString(n.Title))
		return execx.Command{Name: "osascript", Args: []string{"-e", script}}, true
	case "linux", "freebsd", "openbsd", "netbsd":
		urgency := "normal"
		if n.Level == plugin.LevelFailure {
			urgency = "critical"
		}

		return execx.Command{Name: "notify-send", Args: []string{"--urgency=" + urgency, "--app-name=assetpipe", n.Title, n.Message}}, true
	case "windows":
		icon := "Info"
		if n.Level == plugin.LevelFailure {
			icon = "Error"
		}

		script := strings.Join([]string{
			"Add-Type -AssemblyName System.Windows.Forms",
			"$n = New-Object System.Windows.Forms.NotifyIcon",
			"$n.Icon = [System.Drawing.SystemIcons]::Information",
			"$n.Visible = $true",
			fmt.Sprintf("$n.ShowBalloonTip(5000, %s, %s, '%s')", powerShellString(n.Title), powerShellString(n.Message), icon),
			"Start-Sleep -Seconds 5",
			"$n.Dispose()",
		}, "; ")

		return execx.Command{Name: "powershell", Args: []string{"-NoProfile", "-NonInteractive", "-Command", script}}, true
	default:
		return execx.Command{}, false
	}
}

func appleScriptString(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
}

func powerShellString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// Log writes notifications to the context logger only. It is used when
// desktop notifications are disabled.
type Log struct{}

// Notify logs n.
func (Log) Notify(ctx context.Context, n plugin.Notification) error {
	logNotification(ctx, n)
	return nil
}

func logNotification(ctx context.Context, n plugin.Notification) {
	logger := logging.FromContext(ctx)
	attrs := []any{slog.String("title", n.Title), slog.String("message", n.Message)}

	if n.Level == plugin.LevelFailure {
		logger.Error("notification", attrs...)
		return
	}

	logger.Info("notification", attrs...)
}

var (
	_ plugin.Notifier = (*Desktop)(nil)
	_ plugin.Notifier = Log{}
)
