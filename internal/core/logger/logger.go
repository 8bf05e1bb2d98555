package logger

import (
	"io"
	"log"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

type FileRotate struct {
	Enable     bool   // 是否启用文件写入 + 切割
	Filename   string // 日志文件路径，如 data/log/order.log
	MaxSizeMB  int    // 单个文件最大 MB
	MaxBackups int    // 保留旧文件个数
	MaxAgeDays int    // 保留天数
	Compress   bool   // 是否压缩旧日志
}

type Options struct {
	Level       string // debug / info / warn / error
	JSON        bool
	AddCaller   bool
	Development bool
	Rotate      FileRotate
	// TimeZone 为空则使用本地时区
	TimeZone *time.Location
}

func New(level string, json bool) (*zap.Logger, func()) {
	return Build(Options{Level: level, JSON: json, AddCaller: true, Development: !json})
}

func NewWithRotate(level string, json bool, rotate FileRotate, tz *time.Location) (*zap.Logger, func()) {
	return Build(Options{
		Level:       level,
		JSON:        json,
		AddCaller:   true,
		Development: !json,
		Rotate:      rotate,
		TimeZone:    tz,
	})
}

func Build(opt Options) (*zap.Logger, func()) {
	var lvl zapcore.Level
	if err := lvl.Set(opt.Level); err != nil {
		lvl = zapcore.InfoLevel
	}

	layout := "2006-01-02 15:04:05.000"
	timeEnc := zapcore.TimeEncoderOfLayout(layout)
	if opt.TimeZone != nil {
		tz := opt.TimeZone
		timeEnc = func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
			enc.AppendString(t.In(tz).Format(layout))
		}
	}

	console := zap.NewDevelopmentEncoderConfig()
	console.EncodeTime = timeEnc
	console.EncodeCaller = zapcore.ShortCallerEncoder

	jsonCfg := zap.NewProductionEncoderConfig()
	jsonCfg.TimeKey = "ts"
	jsonCfg.EncodeTime = timeEnc
	jsonCfg.EncodeCaller = zapcore.ShortCallerEncoder

	var stdEnc zapcore.Encoder
	if opt.JSON {
		stdEnc = zapcore.NewJSONEncoder(jsonCfg)
	} else {
		console.EncodeLevel = zapcore.CapitalColorLevelEncoder
		stdEnc = zapcore.NewConsoleEncoder(console)
	}

	sinks := []zapcore.Core{zapcore.NewCore(stdEnc, zapcore.AddSync(os.Stdout), lvl)}

	if opt.Rotate.Enable && opt.Rotate.Filename != "" {
		rotator := &lumberjack.Logger{
			Filename:   opt.Rotate.Filename,
			MaxSize:    max(1, opt.Rotate.MaxSizeMB),
			MaxBackups: max(0, opt.Rotate.MaxBackups),
			MaxAge:     max(0, opt.Rotate.MaxAgeDays),
			Compress:   opt.Rotate.Compress,
		}
		// 文件里不要 ANSI 颜色
		fileCfg := console
		fileCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		fileEnc := zapcore.NewConsoleEncoder(fileCfg)
		if opt.JSON {
			fileEnc = zapcore.NewJSONEncoder(jsonCfg)
		}
		sinks = append(sinks, zapcore.NewCore(fileEnc, zapcore.AddSync(rotWriter{rotator}), lvl))
	}

	core := zapcore.NewSamplerWithOptions(zapcore.NewTee(sinks...), time.Second, 100, 100)

	var opts []zap.Option
	if opt.AddCaller {
		opts = append(opts, zap.AddCaller())
	}
	if opt.Development {
		opts = append(opts, zap.Development())
	}
	l := zap.New(core, opts...)
	return l, func() { _ = l.Sync() }
}

type rotWriter struct{ *lumberjack.Logger }

func (w rotWriter) Sync() error { return nil }

type zapIOWriter struct {
	l     *zap.Logger
	level zapcore.Level
}

func (w *zapIOWriter) Write(p []byte) (int, error) {
	msg := strings.TrimRight(string(p), "\r\n")
	if ce := w.l.Check(w.level, msg); ce != nil {
		ce.Write()
	}
	return len(p), nil
}

// ToWriter 把 io.Writer 输出（如 gin 的调试输出）转进 zap
func ToWriter(l *zap.Logger, level zapcore.Level) io.Writer {
	return &zapIOWriter{l: l, level: level}
}

func ToStdLogger(l *zap.Logger, level zapcore.Level) (*log.Logger, error) {
	return zap.NewStdLogAt(l, level)
}

func RedirectStdLog(l *zap.Logger, level zapcore.Level) func() {
	undo, err := zap.RedirectStdLogAt(l, level)
	if err != nil {
		return func() {}
	}
	return undo
}
