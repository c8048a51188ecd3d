package logger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	gormlogger "gorm.io/gorm/logger"
)

const slowQueryThreshold = 200 * time.Millisecond

// SQLLogger routes gorm output through the request-scoped zap logger.
// Bound parameters are never logged; missing rows are not errors.
type SQLLogger struct {
	level gormlogger.LogLevel
	slow  time.Duration
}

// NewSQLLogger logs every statement at debug level when verbose, otherwise
// only failures and statements slower than 200ms.
func NewSQLLogger(verbose bool) *SQLLogger {
	level := gormlogger.Warn
	if verbose {
		level = gormlogger.Info
	}
	return &SQLLogger{level: level, slow: slowQueryThreshold}
}

func (l *SQLLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	next := *l
	next.level = level
	return &next
}

func (l *SQLLogger) Info(ctx context.Context, msg string, args ...interface{}) {
	l.printf(ctx, gormlogger.Info, zapcore.InfoLevel, msg, args)
}

func (l *SQLLogger) Warn(ctx context.Context, msg string, args ...interface{}) {
	l.printf(ctx, gormlogger.Warn, zapcore.WarnLevel, msg, args)
}

func (l *SQLLogger) Error(ctx context.Context, msg string, args ...interface{}) {
	l.printf(ctx, gormlogger.Error, zapcore.ErrorLevel, msg, args)
}

func (l *SQLLogger) printf(ctx context.Context, need gormlogger.LogLevel, level zapcore.Level, msg string, args []interface{}) {
	if l.level < need {
		return
	}
	FromContext(ctx).Named("sql").Log(level, fmt.Sprintf(msg, args...))
}

func (l *SQLLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	level, ok := l.traceLevel(time.Since(begin), err)
	if !ok {
		return
	}
	log := FromContext(ctx).Named("sql")
	ce := log.Check(level, "sql statement")
	if ce == nil {
		return
	}

	statement, rows := fc()
	verb, table := describeStatement(statement)
	fields := []zap.Field{
		zap.String("sql.operation", verb),
		zap.String("sql.table", table),
		zap.Duration("elapsed", time.Since(begin)),
		zap.String("sql", statement),
	}
	if rows >= 0 {
		fields = append(fields, zap.Int64("rows", rows))
	}
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	ce.Write(fields...)
}

func (l *SQLLogger) traceLevel(elapsed time.Duration, err error) (zapcore.Level, bool) {
	switch {
	case l.level <= gormlogger.Silent:
		return 0, false
	case err != nil && !errors.Is(err, gormlogger.ErrRecordNotFound) && l.level >= gormlogger.Error:
		return zapcore.ErrorLevel, true
	case elapsed > l.slow && l.level >= gormlogger.Warn:
		return zapcore.WarnLevel, true
	case l.level >= gormlogger.Info:
		return zapcore.DebugLevel, true
	}
	return 0, false
}

// ParamsFilter keeps bound values (emails, password hashes) out of the logs.
func (l *SQLLogger) ParamsFilter(_ context.Context, statement string, _ ...interface{}) (string, []interface{}) {
	return statement, nil
}

// describeStatement returns the leading verb of a statement and the first
// table it touches, or "" when neither can be found.
func describeStatement(statement string) (verb, table string) {
	words := strings.Fields(statement)
	marker := ""
	for i, word := range words {
		w := strings.ToUpper(strings.Trim(word, "();"))
		if verb == "" {
			switch w {
			case "SELECT", "DELETE":
				verb, marker = w, "FROM"
			case "INSERT":
				verb, marker = w, "INTO"
			case "UPDATE":
				verb = w
				if i+1 < len(words) {
					return verb, cleanTable(words[i+1])
				}
			}
			continue
		}
		if w == marker && i+1 < len(words) {
			return verb, cleanTable(words[i+1])
		}
	}
	return verb, ""
}

func cleanTable(word string) string {
	return strings.Trim(word, "`\"();")
}

var _ gormlogger.Interface = (*SQLLogger)(nil)
