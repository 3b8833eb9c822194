package log

import (
	"os"
	"path/filepath"
	"time"

	zaplogfmt "github.com/jsternberg/zap-logfmt"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var _ Logger = (*ZapLogger)(nil)

// ZapLogger backs the Logger interface with Uber's zap.
type ZapLogger struct {
	lg *zap.SugaredLogger
}

// Config selects the output format, minimum level and destination of the
// zap-backed logger. All fields are readable from the environment.
type Config struct {
	Format string `env:"LOG_FORMAT" env-default:"console"` // console, logfmt or json
	Level  Level  `env:"LOG_LEVEL" env-default:"info"`
	Output string `env:"LOG_OUTPUT" env-default:"stderr"` // stderr, stdout or a file path
}

// NewZapLogger builds a Logger from the given configuration.
// Extra write syncers may be supplied to duplicate output, which is
// mostly useful in tests.
func NewZapLogger(conf Config, extraWriters ...zapcore.WriteSyncer) Logger {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = func(ts time.Time, encoder zapcore.PrimitiveArrayEncoder) {
		encoder.AppendString(ts.UTC().Format(time.RFC3339))
	}

	var encoder zapcore.Encoder
	switch conf.Format {
	case "logfmt":
		encoder = zaplogfmt.NewEncoder(encCfg)
	case "json":
		encoder = zapcore.NewJSONEncoder(encCfg)
	default:
		encoder = zapcore.NewConsoleEncoder(encCfg)
	}

	var ws zapcore.WriteSyncer
	switch conf.Output {
	case "", "stderr":
		ws = zapcore.Lock(os.Stderr)
	case "stdout":
		ws = zapcore.Lock(os.Stdout)
	default:
		// Fall back to stderr when the log file cannot be opened.
		mkdirErr := os.MkdirAll(filepath.Dir(conf.Output), 0o755)
		file, openErr := os.OpenFile(conf.Output, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o666)
		if mkdirErr != nil || openErr != nil {
			ws = zapcore.Lock(os.Stderr)
		} else {
			ws = zapcore.AddSync(file)
		}
	}
	wss := zapcore.NewMultiWriteSyncer(append(extraWriters, ws)...)

	core := zapcore.NewCore(encoder, wss, toZapLevel(conf.Level))
	// AddCallerSkip(1) reports the caller of the Logger method, not the
	// wrapper itself.
	zl := zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1)).Sugar()

	return &ZapLogger{lg: zl}
}

func (l *ZapLogger) Debug(msg string, keysAndValues ...any) {
	l.lg.Debugw(msg, keysAndValues...)
}

func (l *ZapLogger) Info(msg string, keysAndValues ...any) {
	l.lg.Infow(msg, keysAndValues...)
}

func (l *ZapLogger) Warn(msg string, keysAndValues ...any) {
	l.lg.Warnw(msg, keysAndValues...)
}

func (l *ZapLogger) Error(msg string, keysAndValues ...any) {
	l.lg.Errorw(msg, keysAndValues...)
}

func (l *ZapLogger) Fatal(msg string, keysAndValues ...any) {
	l.lg.Fatalw(msg, keysAndValues...)
}

func (l *ZapLogger) With(key string, value any) Logger {
	return &ZapLogger{lg: l.lg.With(key, value)}
}

func (l *ZapLogger) Named(name string) Logger {
	return &ZapLogger{lg: l.lg.Named(name)}
}

func (l *ZapLogger) Name() string {
	return l.lg.Desugar().Name()
}

func toZapLevel(level Level) zapcore.Level {
	switch level {
	case LevelDebug:
		return zapcore.DebugLevel
	case LevelWarn:
		return zapcore.WarnLevel
	case LevelError:
		return zapcore.ErrorLevel
	case LevelFatal:
		return zapcore.FatalLevel
	default:
		return zapcore.InfoLevel
	}
}
