/*
Package log provides structured logging for shoal using zerolog.

The log package wraps the zerolog library to provide JSON-structured logging
with component-specific loggers, configurable log levels, and helper
functions for common logging patterns. All logs include timestamps and
support filtering by severity level for production debugging.

# Core Components

Global Logger:
  - Package-level zerolog.Logger instance
  - Initialized once via log.Init()
  - Accessible from all shoal packages
  - Thread-safe concurrent writes

Log Levels:
  - Debug: Detailed debugging information (per-request tracing)
  - Info: General informational messages
  - Warn: Warning messages (potential issues)
  - Error: Error messages (operation failed)
  - Fatal: Critical errors (process exits)

Context Loggers:
  - WithComponent: Add component name to all logs
  - WithPoolID: Add pool ID context
  - WithHandleID: Add connection handle ID context
  - WithStreamID: Add execution stream ID context

# Usage

Initializing the Logger:

	log.Init(log.Config{
		Level:      log.InfoLevel,
		JSONOutput: true,
		Output:     os.Stdout,
	})

Structured Logging:

	log.Logger.Info().
		Str("pool_id", poolID.String()).
		Uint32("map_version", version).
		Msg("pool map updated")

Component Loggers:

	cacheLog := log.WithComponent("pool-cache")
	cacheLog.Debug().Str("pool_id", id.String()).Msg("creating")

# Integration Points

This package integrates with:

  - pkg/pool: Logs pool cache and handle table lifecycle
  - pkg/executor: Logs execution stream start/stop
  - pkg/target: Logs request handling and replies
  - pkg/rpc: Logs transport accept/serve errors
  - cmd/shoal: Initializes the logger from config

Wire replies carry only aggregated failure counts; these logs are the only
place where the underlying cause of a failed request is recorded, keyed by
pool and handle identifiers.
*/
package log
