package handler

import (
	"net/http"
)

type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}

// Health is a liveness probe; it does not check downstream dependencies.
func Health(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, HealthResponse{
		Status:  "ok",
		Service: "mediahub",
	})
}
