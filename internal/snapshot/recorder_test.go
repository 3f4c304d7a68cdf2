package snapshot

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewRecorderRequiresSchedule(t *testing.T) {
	_, err := NewRecorder("")
	require.Error(t, err)

	recorder, err := NewRecorder("@every 5m")
	require.NoError(t, err)
	require.NotNil(t, recorder)
}

func TestStartRejectsMalformedSchedule(t *testing.T) {
	recorder, err := NewRecorder("every five minutes")
	require.NoError(t, err, "schedule syntax is checked at start, not construction")

	require.Error(t, recorder.Start())
}

func TestStartAndStop(t *testing.T) {
	recorder, err := NewRecorder("@every 1h")
	require.NoError(t, err)

	require.NoError(t, recorder.Start())
	recorder.Stop()
}
