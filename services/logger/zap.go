package logsvc

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/tailwebs/classwork/core"
)

// ZapLogger is the console logger. Args are turned into zap fields.
type ZapLogger struct {
	z *zap.Logger
}

var _ core.Logger = (*ZapLogger)(nil)

// NewZapLogger builds a console logger; debug lowers the level and switches to the development encoder.
func NewZapLogger(conf *core.Config) (*ZapLogger, error) {
	var zc zap.Config
	if conf.Debug {
		zc = zap.NewDevelopmentConfig()
	} else {
		zc = zap.NewProductionConfig()
		zc.Encoding = "console"
		zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}
	zc.OutputPaths = []string{"stderr"}
	z, err := zc.Build(zap.AddCallerSkip(1), zap.Fields(zap.String("app", conf.AppName)))
	if err != nil {
		return nil, err
	}
	return &ZapLogger{z: z}, nil
}

// NewNopLogger discards everything. Used by tests.
func NewNopLogger() *ZapLogger {
	return &ZapLogger{z: zap.NewNop()}
}

func (l *ZapLogger) Sync() error { return l.z.Sync() }

func (l *ZapLogger) fields(args []interface{}) []zap.Field {
	flds := make([]zap.Field, 0, len(args))
	for _, arg := range args {
		switch a := arg.(type) {
		case error:
			flds = append(flds, zap.Error(a))
		case core.Person:
			flds = append(flds, zap.String("person.id", a.ID), zap.String("person.email", a.Email))
		case map[string]interface{}:
			for k, v := range a {
				flds = append(flds, zap.Any(k, v))
			}
		case zap.Field:
			flds = append(flds, a)
		default:
			flds = append(flds, zap.Any("arg", a))
		}
	}
	return flds
}

func (l *ZapLogger) Debug(msg string, args ...interface{}) { l.z.Debug(msg, l.fields(args)...) }
func (l *ZapLogger) Info(msg string, args ...interface{})  { l.z.Info(msg, l.fields(args)...) }
func (l *ZapLogger) Warn(msg string, args ...interface{})  { l.z.Warn(msg, l.fields(args)...) }
func (l *ZapLogger) Error(msg string, args ...interface{}) { l.z.Error(msg, l.fields(args)...) }
func (l *ZapLogger) Fatal(msg string, args ...interface{}) { l.z.Fatal(msg, l.fields(args)...) }
