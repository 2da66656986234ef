package infrastructure

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/streamsaviour-go/internal/domain"
)

type recordedCommand struct {
	name string
	args []string
}

func newRecordingNotifier(config *domain.NotificationConfig, err error) (*NotificationService, *[]recordedCommand) {
	var calls []recordedCommand
	n := NewNotificationService(config, nil)
	n.run = func(name string, args ...string) error {
		calls = append(calls, recordedCommand{name: name, args: args})
		return err
	}
	return n, &calls
}

func TestNotificationService_Disabled(t *testing.T) {
	n, calls := newRecordingNotifier(&domain.NotificationConfig{Enabled: false, Method: "notify-send"}, nil)

	n.NotifySessionCompleted("Clip", "clip.mp4")

	assert.Empty(t, *calls)
}

func TestNotificationService_NotifySend(t *testing.T) {
	n, calls := newRecordingNotifier(&domain.NotificationConfig{Enabled: true, Method: "notify-send"}, nil)

	n.NotifySessionCompleted("Clip", "clip-1.mp4")

	require.Len(t, *calls, 1)
	assert.Equal(t, "notify-send", (*calls)[0].name)
	assert.Equal(t, []string{"--app-name=StreamSaviour", "Download Completed", "Clip (clip-1.mp4)"}, (*calls)[0].args)
}

func TestNotificationService_OSAScriptEscapesQuotes(t *testing.T) {
	n, calls := newRecordingNotifier(&domain.NotificationConfig{Enabled: true, Method: "osascript", Sound: true}, nil)

	n.NotifySessionFailed(`My "best" clip`, "Requested format is not available")

	require.Len(t, *calls, 1)
	script := (*calls)[0].args[1]
	assert.Contains(t, script, `My \"best\" clip`)
	assert.Contains(t, script, `sound name "Glass"`)
}

func TestNotificationService_UnknownMethod(t *testing.T) {
	n, calls := newRecordingNotifier(&domain.NotificationConfig{Enabled: true, Method: "carrier-pigeon"}, nil)

	assert.NoError(t, n.Send("t", "m"))
	assert.Empty(t, *calls)
}

func TestNotificationService_CommandFailure(t *testing.T) {
	n, _ := newRecordingNotifier(&domain.NotificationConfig{Enabled: true, Method: "notify-send"}, errors.New("not found"))

	assert.Error(t, n.Send("t", "m"))
}

func TestTruncateString(t *testing.T) {
	assert.Equal(t, "short", truncateString("short", 10))
	assert.Equal(t, "abc...", truncateString("abcdef", 3))
	assert.Equal(t, "héé...", truncateString("hééllo", 3))
}
