package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Config{Level: "warn", Format: FormatJSON}, buf)
	log.Info().Msg("hidden")
	log.Warn().Str("batch_id", "B-1").Msg("shown")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 1)
	record := map[string]interface{}{}
	require.NoError(t, json.Unmarshal(lines[0], &record))
	assert.Equal(t, "shown", record["message"])
	assert.Equal(t, "B-1", record["batch_id"])
	assert.Equal(t, "reconciler", record["service"])
}

func TestConfig_Validate(t *testing.T) {
	testCases := []struct {
		config    Config
		expectErr bool
	}{
		{config: Config{}},
		{config: Config{Level: "DEBUG", Format: FormatConsole}},
		{config: Config{Level: "loud"}, expectErr: true},
		{config: Config{Format: "xml"}, expectErr: true},
	}
	for _, tc := range testCases {
		err := tc.config.Validate()
		assert.Equal(t, tc.expectErr, err != nil, "%+v", tc.config)
	}
}
