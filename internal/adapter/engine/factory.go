package engine

import (
	"log"
	"os"
	"time"
)

const (
	// EnvSwitchboardMode is the environment variable name for mode selection.
	EnvSwitchboardMode = "SWITCHBOARD_MODE"
	// ModeScripted indicates the scripted engine should be used.
	ModeScripted = "SCRIPTED"
)

// NewEngine creates an engine based on the SWITCHBOARD_MODE environment
// variable. If SWITCHBOARD_MODE=SCRIPTED, returns the scripted engine;
// otherwise returns an HTTP client.
func NewEngine(baseURL, apiKey, model string, timeout time.Duration) Engine {
	if os.Getenv(EnvSwitchboardMode) == ModeScripted {
		log.Println("SWITCHBOARD_MODE=SCRIPTED detected, using scripted engine")
		return NewScripted()
	}
	return NewClient(baseURL, apiKey, model, timeout)
}
