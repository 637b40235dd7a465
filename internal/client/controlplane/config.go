package controlplane

import "time"

const (
	readTimeout  = 10 * time.Second
	writeTimeout = 30 * time.Second
	idleTimeout  = 2 * time.Minute
)

// Config of the local control plane server.
type Config struct {
	Addr      string // listen address, empty disables the server
	AuthToken string // shared token, empty disables auth
	// RateLimit is the number of requests per second per client. Zero uses the default.
	RateLimit int64
}

const defaultRateLimit = 10
