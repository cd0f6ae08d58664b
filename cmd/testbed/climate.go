package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"fault-testbed/middleware/session"
	"fault-testbed/middleware/session/domain"
	"fault-testbed/middleware/session/infra"
)

type climateRequest struct {
	UserID    string `json:"user_id"`
	VehicleID string `json:"vehicle_id"`
}

type climateResponse struct {
	Status     string `json:"status"`
	VehicleID  string `json:"vehicle_id"`
	SessionKey string `json:"session_key"`
}

// climateWork é o trabalho feito após a admissão: grava uma linha no log
// (I/O serializado) e manda START_CLIMATE para o simulador, se configurado.
func climateWork(appender domain.LogAppender, vehicle *infra.VehicleClient) session.WorkFunc {
	return func(ctx context.Context, r *http.Request, key domain.Key) (any, error) {
		var req climateRequest
		// corpo inválido não é erro do testbed: segue com vehicle_id "unknown"
		_ = json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req)
		if req.VehicleID == "" {
			req.VehicleID = "unknown"
		}

		if appender != nil {
			line := fmt.Sprintf("%s climate-start session=%s user=%s vehicle=%s",
				time.Now().UTC().Format(time.RFC3339Nano), key, req.UserID, req.VehicleID)
			if err := appender.Append(ctx, line); err != nil {
				return nil, err
			}
		}

		out := climateResponse{Status: "accepted", VehicleID: req.VehicleID, SessionKey: string(key)}
		if vehicle == nil {
			return out, nil
		}
		res, err := vehicle.StartClimate(ctx, req.VehicleID)
		if err != nil {
			return nil, err
		}
		out.Status = res.Status
		return out, nil
	}
}
