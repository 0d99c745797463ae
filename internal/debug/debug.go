package debug

import (
	"log"
	"os"
	"strings"
)

var enabled bool

func SetEnabled(enable bool) {
	enabled = enable
}

// EnableFromEnv turns debug output on when DEBUG is set to a truthy value.
// Stage binaries take no flags, so this is their only switch.
func EnableFromEnv() {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("DEBUG"))) {
	case "1", "true", "yes", "on":
		enabled = true
	}
}

func Printf(format string, args ...interface{}) {
	if enabled {
		log.Printf("DEBUG: "+format, args...)
	}
}

func IsEnabled() bool {
	return enabled
}
