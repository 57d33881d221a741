package main

import (
	"encoding/json"
	"errors"
	"net/http"

	"flightcast-service/internal/domain/entity"
	"flightcast-service/internal/domain/repository"
	"flightcast-service/internal/usecase"
	"flightcast-service/pkg/logger"
)

type statusUpdateRequest struct {
	FlightNumber string                 `json:"flightNumber"`
	NewStatus    string                 `json:"newStatus"`
	Reason       string                 `json:"reason,omitempty"`
	Actor        string                 `json:"actor"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
}

type statusUpdateResponse struct {
	Flight   *entity.Flight      `json:"flight"`
	Dispatch *entity.BatchResult `json:"dispatch"`
}

// handleStatusUpdate is the external entry point for status transitions: it
// applies the transition and fans the change out to subscribers
func handleStatusUpdate(flightRepo repository.FlightRepository, sm *usecase.StatusMachine, dispatcher *usecase.NotificationDispatcher, log logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req statusUpdateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}

		ctx := r.Context()
		flight, err := flightRepo.FindByNumber(ctx, req.FlightNumber)
		if err != nil {
			var nfe *entity.NotFoundError
			if errors.As(err, &nfe) {
				http.Error(w, err.Error(), http.StatusNotFound)
				return
			}
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		oldStatus := flight.CurrentStatus
		flight, err = sm.RequestTransition(ctx, flight, entity.FlightStatus(req.NewStatus), req.Reason, req.Actor, req.Metadata)
		if err != nil {
			var ite *entity.InvalidTransitionError
			if errors.As(err, &ite) {
				http.Error(w, err.Error(), http.StatusConflict)
				return
			}
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		result, err := dispatcher.Dispatch(ctx, flight, oldStatus, req.Actor)
		if err != nil {
			log.Error("Dispatch aborted", "flightNumber", flight.FlightNumber, "error", err)
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(statusUpdateResponse{
			Flight:   flight,
			Dispatch: result,
		})
	}
}
