package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/VISHAAL-KUMAR-A/Lexi/internal/jagriti"
	"github.com/VISHAAL-KUMAR-A/Lexi/internal/search"
)

type errorDetail struct {
	Detail string `json:"detail"`
}

type captchaResponse struct {
	Detail  string `json:"detail"`
	Captcha bool   `json:"captcha"`
	Message string `json:"message"`
}

const captchaMessage = "Jagriti returned a captcha; request cannot be completed automatically."

func sendJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// sendError maps a classified failure onto the API's status-code contract.
// Upstream payload details never reach the caller; each kind gets a fixed,
// sanitized message.
func sendError(w http.ResponseWriter, err error) {
	var validationErr *search.ValidationError
	if errors.As(err, &validationErr) {
		sendJSON(w, http.StatusBadRequest, errorDetail{Detail: validationErr.Message})
		return
	}

	var upstreamValidationErr *jagriti.ValidationError
	if errors.As(err, &upstreamValidationErr) {
		sendJSON(w, http.StatusBadRequest, errorDetail{Detail: "Jagriti rejected the search parameters."})
		return
	}

	var notFoundErr *jagriti.NotFoundError
	if errors.As(err, &notFoundErr) {
		sendJSON(w, http.StatusNotFound, errorDetail{Detail: notFoundErr.Error()})
		return
	}

	var captchaErr *jagriti.CaptchaError
	if errors.As(err, &captchaErr) {
		sendJSON(w, http.StatusServiceUnavailable, captchaResponse{
			Detail:  "captcha_required",
			Captcha: true,
			Message: captchaMessage,
		})
		return
	}

	var timeoutErr *jagriti.TimeoutError
	if errors.As(err, &timeoutErr) {
		sendJSON(w, http.StatusGatewayTimeout, errorDetail{Detail: "Request to Jagriti timed out. Please try again later."})
		return
	}

	var upstreamErr *jagriti.UpstreamError
	if errors.As(err, &upstreamErr) {
		sendJSON(w, http.StatusBadGateway, errorDetail{Detail: "Error communicating with Jagriti. Please try again later."})
		return
	}

	log.Printf("api: unexpected error: %v", err)
	sendJSON(w, http.StatusInternalServerError, errorDetail{Detail: "An unexpected error occurred. Please try again later."})
}
