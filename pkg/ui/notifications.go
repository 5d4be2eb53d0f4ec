package ui

import (
	"fmt"
	"os/exec"
	"runtime"
	"strings"

	"shopscraper/pkg/config"
	"shopscraper/pkg/models"
)

// NotificationSender interface for platform-specific notification implementations
type NotificationSender interface {
	Send(title, message string) error
}

// LinuxNotificationSender sends notifications on Linux using notify-send
type LinuxNotificationSender struct{}

func (l *LinuxNotificationSender) Send(title, message string) error {
	return exec.Command("notify-send", "--app-name=shopscraper", title, message).Run()
}

// MacOSNotificationSender sends notifications on macOS using osascript
type MacOSNotificationSender struct{}

func (m *MacOSNotificationSender) Send(title, message string) error {
	script := fmt.Sprintf(`display notification %q with title %q`, message, title)
	return exec.Command("osascript", "-e", script).Run()
}

// WindowsNotificationSender sends notifications on Windows using PowerShell
type WindowsNotificationSender struct{}

func (w *WindowsNotificationSender) Send(title, message string) error {
	script := fmt.Sprintf(`
		[Windows.UI.Notifications.ToastNotificationManager, Windows.UI.Notifications, ContentType = WindowsRuntime] | Out-Null
		[Windows.Data.Xml.Dom.XmlDocument, Windows.Data.Xml.Dom.XmlDocument, ContentType = WindowsRuntime] | Out-Null
		$xml = @"
<toast>
	<visual>
		<binding template="ToastText02">
			<text id="1">%s</text>
			<text id="2">%s</text>
		</binding>
	</visual>
</toast>
"@
		$doc = [Windows.Data.Xml.Dom.XmlDocument]::new()
		$doc.LoadXml($xml)
		$toast = [Windows.UI.Notifications.ToastNotification]::new($doc)
		[Windows.UI.Notifications.ToastNotificationManager]::CreateToastNotifier("Shop Scraper").Show($toast)
	`, xmlEscape(title), xmlEscape(message))

	return exec.Command("powershell", "-NoProfile", "-NonInteractive", "-Command", script).Run()
}

func xmlEscape(s string) string {
	return strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;").Replace(s)
}

// platformSender picks the sender for the current OS, or nil when there is none
func platformSender() NotificationSender {
	switch runtime.GOOS {
	case "linux":
		return &LinuxNotificationSender{}
	case "darwin":
		return &MacOSNotificationSender{}
	case "windows":
		return &WindowsNotificationSender{}
	default:
		return nil
	}
}

// Notifier reports run outcomes on the console and, when enabled, on the desktop
type Notifier struct {
	sender NotificationSender
	cfg    config.NotificationConfig
}

// NewNotifier creates a Notifier for the current platform
func NewNotifier(cfg config.NotificationConfig) *Notifier {
	return NewNotifierWithSender(cfg, platformSender())
}

// NewNotifierWithSender creates a Notifier that sends through sender
func NewNotifierWithSender(cfg config.NotificationConfig, sender NotificationSender) *Notifier {
	return &Notifier{sender: sender, cfg: cfg}
}

// RunCompleted announces a finished run. Aborted categories are mentioned
// but do not turn the run into a failure.
func (n *Notifier) RunCompleted(meta models.RunMetadata) {
	msg := fmt.Sprintf("%d products from %d categories in %.1fs",
		meta.TotalProducts, meta.CategoriesScraped, meta.DurationSeconds)
	if len(meta.CategoriesAborted) > 0 {
		msg += fmt.Sprintf(", %d aborted", len(meta.CategoriesAborted))
	}
	printf("\n%s: %s\n", Green("Scrape complete"), Green(msg))
	if n.cfg.OnComplete {
		n.send("Scrape complete", msg)
	}
}

// RunFailed announces a run that could not produce its output
func (n *Notifier) RunFailed(err error) {
	printf("\n%s: %s\n", Red("Scrape failed"), Red(err.Error()))
	if n.cfg.OnError {
		n.send("Scrape failed", err.Error())
	}
}

func (n *Notifier) send(title, message string) {
	if !n.cfg.Enabled || n.sender == nil {
		return
	}
	// Desktop notifications are best effort.
	_ = n.sender.Send(title, message)
}
