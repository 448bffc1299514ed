// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Resolute Contributors

package config

import (
	"github.com/spf13/pflag"
)

// RegisterFlags adds the flags that override config keys. Flag defaults are
// only informational; an unset flag never masks the file or built-in value.
func RegisterFlags(fs *pflag.FlagSet) {
	d := Defaults()
	fs.String("addr", d["http.addr"].(string), "web listen address")
	fs.String("metrics-addr", d["metrics.addr"].(string), "metrics and health listen address (empty disables)")
	fs.String("database-url", "", "PostgreSQL connection URL (or "+DatabaseURLEnv+")")
	fs.String("log-format", d["log.format"].(string), "log format (json or text)")
	fs.String("log-level", d["log.level"].(string), "log level (debug, info, warn, error)")
	fs.Bool("secure-cookie", false, "mark the session cookie Secure")
	fs.Duration("session-ttl", 0, "session lifetime (default from config)")
	fs.Duration("sweep-interval", 0, "expired session sweep interval (default from config)")
	fs.String("verdict", d["progress.verdict"].(string), "weekly verdict policy (count_and_duration or count_only)")
}
