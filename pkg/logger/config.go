package logger

import "log/slog"

type Backend string

const (
	BackendStd Backend = "std" // slog TextHandler
	BackendZap Backend = "zap" // JSON via slog-zap, with sampling
)

type Config struct {
	Service    string
	Version    string
	InstanceID string

	Level   slog.Level
	Env     Env
	Backend Backend // default: zap for stage/prod, std for dev
	Debug   bool

	// zap sampling
	SampleInitial    int
	SampleThereafter int
	SampleTick       int

	AddSource bool
}
