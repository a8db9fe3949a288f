package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONEntriesCarryFields(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "info", "json").Component("webhook").WithStr("delivery_id", "d-1")

	log.Error("sync failed", errors.New("boom"))

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "error", entry["level"])
	assert.Equal(t, "sync failed", entry["message"])
	assert.Equal(t, "boom", entry["error"])
	assert.Equal(t, "webhook", entry["component"])
	assert.Equal(t, "d-1", entry["delivery_id"])
}

func TestLevelFilters(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "warn", "json")

	log.Info("hidden")
	log.Debugf("hidden %d", 1)
	assert.Zero(t, buf.Len())

	log.Warnf("shown %d", 2)
	assert.Contains(t, buf.String(), "shown 2")
}

func TestUnknownLevelDefaultsToInfo(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "loud", "json")

	log.Debug("hidden")
	log.Info("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}
