package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// newLogger builds the logger described by the log.* keys. Without a log
// file, output goes to stderr.
func newLogger(v *viper.Viper, stderr io.Writer) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(strings.ToLower(strings.TrimSpace(v.GetString(logLevelKey))))); err != nil {
		return nil, fmt.Errorf("invalid log level %q", v.GetString(logLevelKey))
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var enc zapcore.Encoder
	switch format := v.GetString(logFormatKey); format {
	case "json":
		enc = zapcore.NewJSONEncoder(encCfg)
	case "console", "":
		encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		enc = zapcore.NewConsoleEncoder(encCfg)
	default:
		return nil, fmt.Errorf("invalid log format %q (want console or json)", format)
	}

	var sink zapcore.WriteSyncer
	if file := strings.TrimSpace(v.GetString(logFileKey)); file != "" {
		sink = zapcore.AddSync(&lumberjack.Logger{
			Filename:   file,
			MaxSize:    v.GetInt(logMaxSizeKey),
			MaxBackups: v.GetInt(logMaxBackupsKey),
			MaxAge:     v.GetInt(logMaxAgeKey),
		})
	} else {
		sink = zapcore.AddSync(stderr)
	}

	return zap.New(zapcore.NewCore(enc, sink, level)), nil
}
