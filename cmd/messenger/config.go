package main

import "time"

type Config struct {
	BufferSize            int           `env:"BUFFER_SIZE,required=true"`
	ConnectionBufferSize  int           `env:"CONNECTION_BUFFER_SIZE,required=true"`
	SinkTimeout           time.Duration `env:"SINK_TIMEOUT,required=true"`
	BadgerFilepath        string        `env:"BADGER_FILEPATH,required=true"`
	LogLevel              string        `env:"LOG_LEVEL,required=true"`
	Host                  string        `env:"HOST,default=localhost"`
	Port                  int           `env:"PORT,default=8080"`
	PresenceAwayAfter     time.Duration `env:"PRESENCE_AWAY_AFTER,default=5m"`
	PresenceSweepInterval time.Duration `env:"PRESENCE_SWEEP_INTERVAL,default=30s"`
	ShutdownTimeout       time.Duration `env:"SHUTDOWN_TIMEOUT,default=10s"`
}
