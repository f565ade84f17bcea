// internal/workers/email-delivery/config.go
package emaildelivery

import "time"

type Config struct {
	FromEmail string
	AWSRegion string
	Timeout   time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Timeout: 30 * time.Second,
	}
}
