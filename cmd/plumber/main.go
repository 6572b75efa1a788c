package main

import (
	"encoding/json"
	"net/http"
	"os"
	"time"

	"github.com/conduit-lang/plumber/internal/cli/commands"
	"github.com/conduit-lang/plumber/internal/plumbing"
	"github.com/conduit-lang/plumber/internal/registry"
)

// appGroup is the default app name controllers built into the binary
// register under
const appGroup = "app"

var started = time.Now()

func main() {
	controllers := registry.NewControllers()
	controllers.MustRegister(appGroup, "health_controller", plumbing.Controller{
		"check": plumbing.Configure(plumbing.HandlerConfig{
			Handler:     health,
			Description: "Liveness probe",
		}),
	})

	if err := commands.Execute(commands.Options{Controllers: controllers}); err != nil {
		os.Exit(1)
	}
}

func health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status": "ok",
		"uptime": time.Since(started).Round(time.Second).String(),
	})
}
