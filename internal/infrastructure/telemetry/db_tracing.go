package telemetry

import (
	"context"
	"errors"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DBTracingConfig holds configuration for database tracing.
type DBTracingConfig struct {
	Enabled         bool
	LogFullSQL      bool // include query variables in spans, dev only
	SlowQueryThresh time.Duration
	DBName          string
}

// DefaultDBTracingConfig returns the default database tracing configuration
func DefaultDBTracingConfig() DBTracingConfig {
	return DBTracingConfig{
		Enabled:         false,
		LogFullSQL:      false,
		SlowQueryThresh: 200 * time.Millisecond,
		DBName:          "postgresql",
	}
}

// DBTracingPlugin wraps the otelgorm plugin with slow query detection.
type DBTracingPlugin struct {
	config DBTracingConfig
	logger *zap.Logger
}

// NewDBTracingPlugin creates a database tracing plugin
func NewDBTracingPlugin(cfg DBTracingConfig, logger *zap.Logger) *DBTracingPlugin {
	return &DBTracingPlugin{config: cfg, logger: logger}
}

// Register installs the otelgorm plugin plus the timing callbacks on the
// GORM instance. A no-op when tracing is disabled.
func (p *DBTracingPlugin) Register(db *gorm.DB) error {
	if !p.config.Enabled {
		p.logger.Debug("database tracing disabled, skipping otelgorm registration")
		return nil
	}

	opts := []otelgorm.Option{
		otelgorm.WithDBName(p.config.DBName),
	}
	if !p.config.LogFullSQL {
		// Keep query parameters out of spans
		opts = append(opts, otelgorm.WithoutQueryVariables())
	}
	if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
		return err
	}

	if err := p.registerTimingCallbacks(db); err != nil {
		return err
	}

	p.logger.Info("database tracing enabled",
		zap.Bool("log_full_sql", p.config.LogFullSQL),
		zap.Duration("slow_query_threshold", p.config.SlowQueryThresh))

	return nil
}

type contextKey string

const queryStartTimeKey contextKey = "query_start_time"

// registerTimingCallbacks brackets every GORM operation with a start-time
// marker and a slow-query check that annotates the active span.
func (p *DBTracingPlugin) registerTimingCallbacks(db *gorm.DB) error {
	before := func(db *gorm.DB) {
		if db.Statement.Context != nil {
			db.Statement.Context = context.WithValue(db.Statement.Context, queryStartTimeKey, time.Now())
		}
	}

	hooks := map[string]struct {
		before func(name string, fn func(*gorm.DB)) error
		after  func(name string, fn func(*gorm.DB)) error
	}{
		"create": {
			before: func(n string, fn func(*gorm.DB)) error {
				return db.Callback().Create().Before("gorm:create").Register(n, fn)
			},
			after: func(n string, fn func(*gorm.DB)) error {
				return db.Callback().Create().After("gorm:create").Register(n, fn)
			},
		},
		"query": {
			before: func(n string, fn func(*gorm.DB)) error {
				return db.Callback().Query().Before("gorm:query").Register(n, fn)
			},
			after: func(n string, fn func(*gorm.DB)) error {
				return db.Callback().Query().After("gorm:query").Register(n, fn)
			},
		},
		"update": {
			before: func(n string, fn func(*gorm.DB)) error {
				return db.Callback().Update().Before("gorm:update").Register(n, fn)
			},
			after: func(n string, fn func(*gorm.DB)) error {
				return db.Callback().Update().After("gorm:update").Register(n, fn)
			},
		},
		"delete": {
			before: func(n string, fn func(*gorm.DB)) error {
				return db.Callback().Delete().Before("gorm:delete").Register(n, fn)
			},
			after: func(n string, fn func(*gorm.DB)) error {
				return db.Callback().Delete().After("gorm:delete").Register(n, fn)
			},
		},
		"raw": {
			before: func(n string, fn func(*gorm.DB)) error {
				return db.Callback().Raw().Before("gorm:raw").Register(n, fn)
			},
			after: func(n string, fn func(*gorm.DB)) error {
				return db.Callback().Raw().After("gorm:raw").Register(n, fn)
			},
		},
	}

	for op, h := range hooks {
		if err := h.before("otel_timing:before_"+op, before); err != nil {
			return err
		}
		if err := h.after("otel_timing:after_"+op, p.afterCallback); err != nil {
			return err
		}
	}
	return nil
}

// afterCallback annotates the active span with row counts, errors and slow
// query events once the operation finishes.
func (p *DBTracingPlugin) afterCallback(db *gorm.DB) {
	ctx := db.Statement.Context
	if ctx == nil {
		return
	}

	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}

	if db.Statement.RowsAffected >= 0 {
		span.SetAttributes(attribute.Int64("db.rows_affected", db.Statement.RowsAffected))
	}
	if db.Statement.Table != "" {
		span.SetAttributes(attribute.String("db.sql.table", db.Statement.Table))
	}
	if db.Error != nil && !errors.Is(db.Error, gorm.ErrRecordNotFound) {
		span.SetStatus(codes.Error, db.Error.Error())
		span.RecordError(db.Error)
	}

	if startTime, ok := ctx.Value(queryStartTimeKey).(time.Time); ok {
		elapsed := time.Since(startTime)
		if elapsed > p.config.SlowQueryThresh {
			span.SetAttributes(
				attribute.Bool("db.slow_query", true),
				attribute.Int64("db.query_duration_ms", elapsed.Milliseconds()),
			)
			span.AddEvent("slow_query_warning", trace.WithAttributes(
				attribute.Int64("duration_ms", elapsed.Milliseconds()),
				attribute.Int64("threshold_ms", p.config.SlowQueryThresh.Milliseconds()),
			))
		}
	}
}
