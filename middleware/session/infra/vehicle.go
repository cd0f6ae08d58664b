package infra

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"fault-testbed/middleware/session/domain"
)

// VehicleClient chama o simulador de veículo (POST /command).
type VehicleClient struct {
	baseURL string
	http    *http.Client
	timeout time.Duration
}

// CommandResult é a resposta do simulador.
type CommandResult struct {
	Status    string `json:"status"`
	VehicleID string `json:"vehicle_id"`
}

type VehicleOption func(*VehicleClient)

func WithHTTPClient(c *http.Client) VehicleOption {
	return func(v *VehicleClient) { v.http = c }
}

// WithDownstreamTimeout limita cada chamada (0 = só o prazo do ctx).
func WithDownstreamTimeout(d time.Duration) VehicleOption {
	return func(v *VehicleClient) { v.timeout = d }
}

func NewVehicleClient(baseURL string, opts ...VehicleOption) *VehicleClient {
	v := &VehicleClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    http.DefaultClient,
		timeout: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// StartClimate envia START_CLIMATE para o veículo.
// Estouro de prazo vira domain.ErrDownstreamTimeout; o resto, domain.ErrDownstreamError.
func (v *VehicleClient) StartClimate(ctx context.Context, vehicleID string) (CommandResult, error) {
	return v.Command(ctx, "START_CLIMATE", vehicleID)
}

func (v *VehicleClient) Command(ctx context.Context, command, vehicleID string) (CommandResult, error) {
	if v.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, v.timeout)
		defer cancel()
	}

	body, err := json.Marshal(map[string]string{"command": command, "vehicle_id": vehicleID})
	if err != nil {
		return CommandResult{}, fmt.Errorf("%w: encode command: %w", domain.ErrDownstreamError, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.baseURL+"/command", bytes.NewReader(body))
	if err != nil {
		return CommandResult{}, fmt.Errorf("%w: build request: %w", domain.ErrDownstreamError, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := v.http.Do(req)
	if err != nil {
		return CommandResult{}, classifyTransport(err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode/100 != 2 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return CommandResult{}, fmt.Errorf("%w: vehicle returned %d", domain.ErrDownstreamError, resp.StatusCode)
	}

	var out CommandResult
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return CommandResult{}, classifyTransport(err)
	}
	return out, nil
}

func classifyTransport(err error) error {
	var te interface{ Timeout() bool }
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &te) && te.Timeout()) {
		return fmt.Errorf("%w: %w", domain.ErrDownstreamTimeout, err)
	}
	return fmt.Errorf("%w: %w", domain.ErrDownstreamError, err)
}
