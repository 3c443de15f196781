package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger define a interface para logging estruturado.
// A aplicação (Handler, Service, Repositórios) deve depender apenas desta interface.
type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, err error)
	Fatal(msg string, err error)
	Sync() error
}

// ZapLogger é a implementação concreta da interface Logger sobre o zap.
type ZapLogger struct {
	zl *zap.Logger
}

// NewLogger cria e retorna uma nova instância do Logger com saída JSON.
// Esta função é chamada no main.go.
func NewLogger(level string) Logger {
	config := zap.NewProductionConfig()
	config.Level = zap.NewAtomicLevelAt(parseLevel(level))
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.EncoderConfig.MessageKey = "message"
	config.InitialFields = map[string]interface{}{
		"service": "goinventory",
	}

	zl, err := config.Build(zap.AddCallerSkip(1))
	if err != nil {
		// Sem logger não há como reportar nada; recorre a um core mínimo no stderr.
		zl = zap.New(zapcore.NewCore(
			zapcore.NewJSONEncoder(config.EncoderConfig),
			zapcore.Lock(os.Stderr),
			config.Level,
		))
	}
	return &ZapLogger{zl: zl}
}

// NewNop retorna um Logger que descarta tudo. Usado nos testes.
func NewNop() Logger {
	return &ZapLogger{zl: zap.NewNop()}
}

// Sync descarrega buffers pendentes. Chamado no encerramento do processo.
func (l *ZapLogger) Sync() error {
	return l.zl.Sync()
}

func parseLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func toZapFields(fields map[string]interface{}) []zap.Field {
	if len(fields) == 0 {
		return nil
	}
	out := make([]zap.Field, 0, len(fields))
	for k, v := range fields {
		out = append(out, zap.Any(k, v))
	}
	return out
}

// Implementações da Interface Logger

func (l *ZapLogger) Debug(msg string, fields map[string]interface{}) {
	l.zl.Debug(msg, toZapFields(fields)...)
}

func (l *ZapLogger) Info(msg string, fields map[string]interface{}) {
	l.zl.Info(msg, toZapFields(fields)...)
}

func (l *ZapLogger) Warn(msg string, fields map[string]interface{}) {
	l.zl.Warn(msg, toZapFields(fields)...)
}

func (l *ZapLogger) Error(msg string, err error) {
	l.zl.Error(msg, zap.Error(err))
}

func (l *ZapLogger) Fatal(msg string, err error) {
	l.zl.Fatal(msg, zap.Error(err))
}
