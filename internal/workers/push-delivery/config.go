// internal/workers/push-delivery/config.go
package pushdelivery

import "time"

type Config struct {
	AWSRegion string
	Timeout   time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Timeout: 30 * time.Second,
	}
}
