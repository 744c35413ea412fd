// Package appid holds the names pacer uses for its binary, config
// directory and environment variables.
package appid

const (
	BinaryName  = "pacer"
	ConfigName  = "pacer"
	EnvPrefix   = "PACER_"
	Description = "Pace payload deliveries to an HTTP endpoint with adaptive backoff"
)
