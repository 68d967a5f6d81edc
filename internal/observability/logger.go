// Package observability wires structured logging, tracing and metrics for
// every entrypoint.
package observability

import (
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"github.com/stackspendlabs/stackspend/internal/config"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var Module = fx.Module("observability",
	fx.Provide(NewLogger),
	fx.Provide(NewRegistry),
	fx.Invoke(SetupTracing),
	fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
		return &fxevent.ZapLogger{Logger: log.Named("fx")}
	}),
)

// NewLogger builds the production zap logger. The level is atomic and follows
// config file edits at runtime so operators can raise verbosity without a
// restart.
func NewLogger(cfg config.Config, v *viper.Viper) (*zap.Logger, error) {
	level := zap.NewAtomicLevelAt(parseLevel(cfg.Log.Level))

	zcfg := zap.NewProductionConfig()
	zcfg.Level = level
	log, err := zcfg.Build()
	if err != nil {
		return nil, err
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		var next config.Config
		if err := v.Unmarshal(&next); err != nil {
			log.Warn("config reload failed", zap.String("file", e.Name), zap.Error(err))
			return
		}
		level.SetLevel(parseLevel(next.Log.Level))
		log.Info("log level applied from config change",
			zap.String("file", e.Name),
			zap.String("level", next.Log.Level),
		)
	})
	v.WatchConfig()

	return log, nil
}

func parseLevel(s string) zapcore.Level {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return zapcore.InfoLevel
	}
	return level
}
