package logger

import (
	"os"
	"path/filepath"

	"github.com/jrick/logrotate/rotator"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the process wide logger. It discards everything until InitLogger is called.
var Logger = zap.NewNop()

var logRotator *rotator.Rotator

// InitLogger builds a JSON logger writing to a rotating logFile, or to stdout when logFile is empty.
// thresholdKB is the size at which the file is rolled, maxRolls how many rolled files are kept.
func InitLogger(logFile string, level string, thresholdKB int64, maxRolls int) error {
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "time"
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder

	atom := zap.NewAtomicLevel()
	if err := atom.UnmarshalText([]byte(level)); err != nil {
		return errors.Wrapf(err, "invalid log level %q", level)
	}

	writeSyncer := zapcore.AddSync(os.Stdout)
	if logFile != "" {
		if dir := filepath.Dir(logFile); dir != "." {
			if err := os.MkdirAll(dir, 0700); err != nil {
				return errors.Wrap(err, "failed to create log directory")
			}
		}
		r, err := rotator.New(logFile, thresholdKB, false, maxRolls)
		if err != nil {
			return errors.Wrap(err, "failed to create log rotator")
		}
		logRotator = r
		writeSyncer = zapcore.AddSync(r)
	}

	encoder := zapcore.NewJSONEncoder(cfg)

	core := zapcore.NewCore(encoder, writeSyncer, atom)
	Logger = zap.New(core, zap.AddCaller())

	return nil
}

// Close flushes the logger and releases the log file.
func Close() error {
	_ = Logger.Sync()
	if logRotator == nil {
		return nil
	}
	err := logRotator.Close()
	logRotator = nil
	return err
}
