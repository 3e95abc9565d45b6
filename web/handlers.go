package web

import (
	"encoding/json"
	"net/http"
)

func writeJSON(controller AppController, w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(payload); err != nil {
		controller.Logger().LogError("Web: failed to encode response: %v", err)
	}
}

func statusHandler(controller AppController) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(controller, w, controller.GetStatusData())
	}
}

func pnlHandler(controller AppController) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(controller, w, controller.GetPnLData())
	}
}

func universeHandler(controller AppController) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(controller, w, controller.GetUniverseData())
	}
}

// configHandler serves the running configuration with the webhook URL
// stripped so the dashboard never leaks the secret.
func configHandler(controller AppController) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cfg := controller.GetConfig()
		cfg.Discord.WebhookURL = ""
		writeJSON(controller, w, cfg)
	}
}
