package flags

import "time"

// Flag names shared between the CLI and the packages reading them from viper.
const (
	LogFormat = "log-format"
	LogLevel  = "log-level"
	LogSource = "log-source"

	Config         = "config"
	Storage        = "storage"
	SnapshotFormat = "snapshot-format"

	Workers        = "workers"
	StartupTimeout = "startup-timeout"
	PollInterval   = "poll-interval"
	PollBackoff    = "poll-backoff"
	SSHTimeout     = "ssh-timeout"
)

// Defaults for the tunables above. The worker pool drops to size 1 at debug
// verbosity so that cloud API traces interleave deterministically.
const (
	DefaultSnapshotFormat = "gob"
	DefaultWorkers        = 10
	DefaultStartupTimeout = 600 * time.Second
	DefaultPollInterval   = 5 * time.Second
	DefaultPollBackoff    = 1.5
	DefaultSSHTimeout     = 5 * time.Second
)
