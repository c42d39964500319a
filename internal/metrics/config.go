package metrics

import (
	"net"

	"codeberg.org/mutker/healthsync/internal/errors"
)

const defaultListen = "127.0.0.1:9464"

type Config struct {
	Enabled bool
	// Listen is where the daemon serves /metrics
	Listen string
}

func DefaultConfig() Config {
	return Config{
		Listen:  defaultListen,
		Enabled: false, // Disabled by default
	}
}

func (c Config) Validate() error {
	errFactory := errors.New()

	// Only validate the address if metrics is enabled
	if !c.Enabled {
		return nil
	}
	if _, _, err := net.SplitHostPort(c.Listen); err != nil {
		return errFactory.Wrap(ErrInvalidListen, err)
	}
	return nil
}
