package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fertilizer-advisor/internal/domain"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name      string
		config    domain.LoggingConfig
		wantLevel logrus.Level
		wantJSON  bool
		wantErr   bool
	}{
		{name: "defaults", config: domain.LoggingConfig{}, wantLevel: logrus.InfoLevel, wantJSON: true},
		{name: "debug text", config: domain.LoggingConfig{Level: "debug", Format: "text"}, wantLevel: logrus.DebugLevel},
		{name: "bad level", config: domain.LoggingConfig{Level: "loud", Output: "stderr"}, wantLevel: logrus.InfoLevel, wantJSON: true},
		{name: "bad output", config: domain.LoggingConfig{Output: "syslog"}, wantErr: true},
		{name: "file without name", config: domain.LoggingConfig{Output: "file"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := New(tt.config)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantLevel, logger.GetLevel())
			_, isJSON := logger.Formatter.(*logrus.JSONFormatter)
			assert.Equal(t, tt.wantJSON, isJSON)
		})
	}
}

func TestNewFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "advisor.log")
	logger, err := New(domain.LoggingConfig{Level: "info", Output: "file", Filename: path})
	require.NoError(t, err)

	logger.WithField("crop_type", "Rice").Info("hello")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"message":"hello"`)
	assert.Contains(t, string(data), `"crop_type":"Rice"`)
}
