// Package logging は zap ベースの構造化ロガーを提供します。
package logging

import (
	"os"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New はアプリケーション用ロガーを作成します。
// debug モードではコンソール出力、それ以外では JSON 出力になります。
func New(mode string) (*zap.Logger, error) {
	var encoder zapcore.Encoder
	var level zapcore.Level

	if mode == gin.ReleaseMode {
		encoderConfig := zap.NewProductionEncoderConfig()
		encoderConfig.TimeKey = "time"
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		encoderConfig.EncodeLevel = zapcore.LowercaseLevelEncoder
		encoder = zapcore.NewJSONEncoder(encoderConfig)
		level = zap.InfoLevel
	} else {
		encoder = zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
		level = zap.DebugLevel
	}

	core := zapcore.NewCore(
		encoder,
		zapcore.AddSync(os.Stdout),
		zap.NewAtomicLevelAt(level),
	)

	logger := zap.New(core, zap.AddCaller(), zap.AddStacktrace(zap.ErrorLevel))
	logger = logger.With(zap.String("service", "fuel-tracker-api"))

	return logger, nil
}
