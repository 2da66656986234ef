package infrastructure

import (
	"fmt"
	"os/exec"
	"strings"

	"github.com/yourusername/streamsaviour-go/internal/domain"
	"go.uber.org/zap"
)

// NotificationService sends desktop notifications for session outcomes
type NotificationService struct {
	config *domain.NotificationConfig
	logger *zap.Logger
	run    func(name string, args ...string) error
}

// NewNotificationService creates a new notification service
func NewNotificationService(config *domain.NotificationConfig, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		config: config,
		logger: logger,
		run: func(name string, args ...string) error {
			return exec.Command(name, args...).Run()
		},
	}
}

// Send sends a notification
func (n *NotificationService) Send(title, message string) error {
	if !n.config.Enabled {
		n.logger.Debug("Notifications disabled, skipping",
			zap.String("title", title),
			zap.String("message", message))
		return nil
	}

	var name string
	var args []string
	switch n.config.Method {
	case "osascript":
		name, args = "osascript", []string{"-e", n.appleScript(title, message)}
	case "notify-send":
		name, args = "notify-send", []string{"--app-name=StreamSaviour", title, message}
	default:
		n.logger.Warn("Unknown notification method", zap.String("method", n.config.Method))
		return nil
	}

	if err := n.run(name, args...); err != nil {
		n.logger.Error("Failed to send notification",
			zap.String("method", n.config.Method),
			zap.Error(err))
		return err
	}

	n.logger.Debug("Notification sent",
		zap.String("title", title),
		zap.String("message", message))
	return nil
}

func (n *NotificationService) appleScript(title, message string) string {
	script := fmt.Sprintf(`display notification "%s" with title "%s"`, escapeAppleScript(message), escapeAppleScript(title))
	if n.config.Sound {
		script += ` sound name "Glass"`
	}
	return script
}

// NotifySessionCompleted reports a finished download
func (n *NotificationService) NotifySessionCompleted(title, fileName string) {
	n.Send("Download Completed", fmt.Sprintf("%s (%s)", truncateString(title, 40), fileName))
}

// NotifySessionFailed reports a failed download
func (n *NotificationService) NotifySessionFailed(title, message string) {
	n.Send("Download Failed", fmt.Sprintf("%s: %s", truncateString(title, 40), message))
}

func escapeAppleScript(s string) string {
	return strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s)
}

// truncateString truncates a string to the specified length
func truncateString(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "..."
}
