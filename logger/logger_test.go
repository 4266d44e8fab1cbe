package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestInitLoggerWritesJSONToFile(t *testing.T) {
	defer func() { Logger = zap.NewNop() }()

	logFile := filepath.Join(t.TempDir(), "logs", "node.log")
	require.NoError(t, InitLogger(logFile, "info", 1024, 2))

	Logger.Info("block registered", zap.String("block_id", "abc"))
	Logger.Debug("filtered out")
	require.NoError(t, Close())

	data, err := os.ReadFile(logFile)
	require.NoError(t, err)
	content := string(data)
	require.Contains(t, content, `"block_id":"abc"`)
	require.Contains(t, content, `"time"`)
	require.False(t, strings.Contains(content, "filtered out"))
}

func TestInitLoggerRejectsUnknownLevel(t *testing.T) {
	require.Error(t, InitLogger("", "loud", 1024, 1))
}
