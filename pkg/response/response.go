package response

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/vozsegura-api/internal/models"
	appErrors "github.com/noah-isme/vozsegura-api/pkg/errors"
)

// Envelope represents the common response contract.
type Envelope struct {
	Success    bool                   `json:"success"`
	Message    string                 `json:"message,omitempty"`
	Data       interface{}            `json:"data,omitempty"`
	Error      *ErrorBody             `json:"error,omitempty"`
	Pagination *models.Pagination     `json:"pagination,omitempty"`
	Meta       map[string]interface{} `json:"meta,omitempty"`

	// Payload keys are written at the top level beside data.
	Payload map[string]interface{} `json:"-"`
}

const payloadContextKey = "response.payload"

// MarshalJSON flattens Payload into the envelope. Keys that collide with an
// envelope field are dropped.
func (e Envelope) MarshalJSON() ([]byte, error) {
	type envelope Envelope
	raw, err := json.Marshal(envelope(e))
	if err != nil || len(e.Payload) == 0 {
		return raw, err
	}
	merged := map[string]json.RawMessage{}
	if err := json.Unmarshal(raw, &merged); err != nil {
		return nil, err
	}
	for key, value := range e.Payload {
		if isEnvelopeKey(key) {
			continue
		}
		encoded, err := json.Marshal(value)
		if err != nil {
			return nil, err
		}
		merged[key] = encoded
	}
	return json.Marshal(merged)
}

func isEnvelopeKey(key string) bool {
	switch key {
	case "success", "message", "data", "error", "pagination", "meta":
		return true
	}
	return false
}

// Mirror exposes value under key at the top level of the success envelope
// written for this request.
func Mirror(c *gin.Context, key string, value interface{}) {
	if existing, ok := c.Get(payloadContextKey); ok {
		if payload, ok := existing.(map[string]interface{}); ok {
			payload[key] = value
			return
		}
	}
	c.Set(payloadContextKey, map[string]interface{}{key: value})
}

func mirrored(c *gin.Context) map[string]interface{} {
	if existing, ok := c.Get(payloadContextKey); ok {
		payload, _ := existing.(map[string]interface{})
		return payload
	}
	return nil
}

// ErrorBody is the client-facing part of an application error.
type ErrorBody struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Status  int               `json:"status"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// JSON sends a success response with optional pagination metadata.
func JSON(c *gin.Context, status int, data interface{}, pagination *models.Pagination, meta ...map[string]interface{}) {
	noStore(c)
	envelope := Envelope{Success: true, Data: data, Pagination: pagination, Payload: mirrored(c)}
	if len(meta) > 0 && len(meta[0]) > 0 {
		envelope.Meta = meta[0]
	}
	c.JSON(status, envelope)
}

// Message sends a success response carrying a human readable message.
func Message(c *gin.Context, status int, message string, data interface{}) {
	noStore(c)
	c.JSON(status, Envelope{Success: true, Message: message, Data: data, Payload: mirrored(c)})
}

// Created responds with HTTP 201 Created.
func Created(c *gin.Context, message string, data interface{}) {
	Message(c, http.StatusCreated, message, data)
}

// Error sends an error response converting the error to the common structure.
// The raw cause is attached to the gin context for the request logger and never serialised.
func Error(c *gin.Context, err error) {
	appErr := appErrors.FromError(err)
	_ = c.Error(err)
	noStore(c)
	c.JSON(appErr.Status, Envelope{
		Success: false,
		Message: appErr.Message,
		Error:   &ErrorBody{Code: appErr.Code, Message: appErr.Message, Status: appErr.Status, Fields: appErr.Fields},
	})
}

// NoContent sends a 204 response.
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

func noStore(c *gin.Context) {
	c.Header("Cache-Control", "no-store")
	c.Header("Pragma", "no-cache")
}
