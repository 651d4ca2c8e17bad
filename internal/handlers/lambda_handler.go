package handlers

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambdacontext"
	"github.com/google/uuid"

	"cropsim-platform/internal/models"
	"cropsim-platform/pkg/logging"
)

const lambdaEndpoint = "lambda"

// LambdaHandler adapts the simulation handler to Lambda function URL and
// API Gateway proxy events
type LambdaHandler struct {
	sim *SimulationHandler
}

// NewLambdaHandler creates a new Lambda handler
func NewLambdaHandler(sim *SimulationHandler) *LambdaHandler {
	return &LambdaHandler{sim: sim}
}

// lambdaEnvelope is the part of an HTTP event that carries the request body
type lambdaEnvelope struct {
	Body            json.RawMessage `json:"body"`
	IsBase64Encoded bool            `json:"isBase64Encoded"`
}

// Handle is the Lambda entry point. Every outcome, including invalid input, is
// returned as a response; the error result is reserved for the runtime.
func (h *LambdaHandler) Handle(ctx context.Context, event json.RawMessage) (events.LambdaFunctionURLResponse, error) {
	startTime := time.Now()
	ctx = logging.ContextWithRequestID(ctx, lambdaRequestID(ctx))

	defer func() {
		h.sim.metrics.APIRequestDuration.WithLabelValues(lambdaEndpoint).Observe(time.Since(startTime).Seconds())
	}()

	var (
		status  int
		payload interface{}
		err     error
	)
	body, err := extractBody(event)
	if err != nil {
		status, payload = errorResponse(err)
	} else {
		status, payload, err = h.sim.Execute(ctx, body)
	}

	if err != nil {
		h.sim.logFailure(ctx, status, err)
		h.sim.metrics.RecordAPIError(errorType(status), lambdaEndpoint)
	}
	h.sim.metrics.RecordAPIRequest(lambdaEndpoint, http.MethodPost, strconv.Itoa(status))

	encoded, err := json.Marshal(payload)
	if err != nil {
		h.sim.logger.Error(ctx, "[LAMBDA_ENCODE_ERROR] Failed to encode response", logging.Fields{}, err)
		status = http.StatusInternalServerError
		encoded, _ = json.Marshal(ErrorResponse{Error: "internal server error", Details: err.Error()})
	}

	return events.LambdaFunctionURLResponse{
		StatusCode: status,
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       string(encoded),
	}, nil
}

// extractBody returns the request JSON from an event. The body may be a JSON
// string (optionally base64 encoded), an embedded object, or absent, in which
// case the event itself is the request.
func extractBody(event json.RawMessage) ([]byte, error) {
	var envelope lambdaEnvelope
	if err := json.Unmarshal(event, &envelope); err != nil {
		return nil, &models.ValidationError{Field: "body", Message: "event is not a JSON object: " + err.Error()}
	}

	raw := bytes.TrimSpace(envelope.Body)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return event, nil
	}

	if raw[0] != '"' {
		return raw, nil
	}

	var text string
	if err := json.Unmarshal(raw, &text); err != nil {
		return nil, &models.ValidationError{Field: "body", Message: "invalid body string: " + err.Error()}
	}
	if envelope.IsBase64Encoded {
		decoded, err := base64.StdEncoding.DecodeString(text)
		if err != nil {
			return nil, &models.ValidationError{Field: "body", Message: "invalid base64 body: " + err.Error()}
		}
		return decoded, nil
	}
	return []byte(text), nil
}

func lambdaRequestID(ctx context.Context) string {
	if lc, ok := lambdacontext.FromContext(ctx); ok && lc.AwsRequestID != "" {
		return lc.AwsRequestID
	}
	return uuid.NewString()
}
