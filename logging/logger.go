package logging

import (
	"context"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var Log *zap.Logger = zap.NewNop()

// Init builds the global logger. Development gets a colored console
// encoder, production structured JSON.
func Init() {
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "development"
	}

	var config zap.Config
	if env == "production" {
		config = zap.NewProductionConfig()
		config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	} else {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	var err error
	Log, err = config.Build()
	if err != nil {
		panic(err)
	}

	zap.ReplaceGlobals(Log)
}

// FromContext returns the global logger annotated with the request id
// when one is present on the context.
func FromContext(ctx context.Context) *zap.Logger {
	if reqID, ok := ctx.Value("request_id").(string); ok {
		return Log.With(zap.String("request_id", reqID))
	}
	return Log
}
