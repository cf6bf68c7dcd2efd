package logster

import (
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type ZapAdapter struct {
	prefix string
	*zap.SugaredLogger
}

func (z *ZapAdapter) WithPrefix(prefix string) Logger {
	return &ZapAdapter{SugaredLogger: z.SugaredLogger, prefix: prefix}
}

func (z *ZapAdapter) WithField(key string, value interface{}) Logger {
	return z.with(z.prefix+key, value)
}

func (z *ZapAdapter) WithError(err error) Logger {
	if err != nil {
		return z.with(zap.String("error", err.Error()))
	}
	return z.with(zap.String("error", "<nil>"))
}

func (z *ZapAdapter) with(args ...interface{}) Logger {
	return &ZapAdapter{SugaredLogger: z.With(args...), prefix: z.prefix}
}

func LogIfError(logger Logger, err error, msg string, args ...interface{}) error {
	if err != nil {
		logger.WithError(err).Errorf(msg, args...)
	}
	return err
}

var textToZapLevelMap = map[string]zapcore.Level{
	"error": zapcore.ErrorLevel,
	"warn":  zapcore.WarnLevel,
	"info":  zapcore.InfoLevel,
	"debug": zapcore.DebugLevel,
}

// ValidLevel reports whether level is one of the names New understands.
func ValidLevel(level string) bool {
	_, ok := textToZapLevelMap[level]
	return ok
}

// Wrap adapts an existing sugared logger, e.g. one from zaptest.
func Wrap(sugar *zap.SugaredLogger) *ZapAdapter {
	return &ZapAdapter{SugaredLogger: sugar}
}

func New(w zapcore.WriteSyncer, cfg Config) *ZapAdapter {
	if cfg.Project == "" {
		panic("logster: project field should be nonempty")
	}

	level, ok := textToZapLevelMap[cfg.Level]
	if !ok {
		level = zapcore.InfoLevel
	}

	fields := []zap.Field{
		zap.String("project", cfg.Project),
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.EncodeTime = func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
		enc.AppendString(t.UTC().Format("2006-01-02T15:04:05.999Z07:00"))
	}

	var enc zapcore.Encoder
	switch cfg.Format {
	case "json":
		enc = zapcore.NewJSONEncoder(encoderCfg)
	default:
		encoderCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		enc = zapcore.NewConsoleEncoder(encoderCfg)
	}

	options := []zap.Option{
		zap.Fields(fields...),
		zap.AddCaller(),
	}

	core := zapcore.NewCore(enc, w, level)
	sugar := zap.New(core).WithOptions(options...).Sugar()

	return &ZapAdapter{SugaredLogger: sugar}
}
