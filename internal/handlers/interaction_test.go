package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/temcen/reelrank/internal/services"
	"github.com/temcen/reelrank/pkg/models"
)

type MockInteractionRecorder struct {
	mock.Mock
}

func (m *MockInteractionRecorder) Record(ctx context.Context, req *models.RecordInteractionRequest) (*models.InteractionEvent, error) {
	args := m.Called(ctx, req)
	event, _ := args.Get(0).(*models.InteractionEvent)
	return event, args.Error(1)
}

func TestInteractionHandler_Record(t *testing.T) {
	gin.SetMode(gin.TestMode)

	rating := 4.5
	valid := map[string]interface{}{
		"user_id":          uuid.New().String(),
		"item_id":          uuid.New().String(),
		"item_type":        "movie",
		"interaction_type": "rating",
		"value":            rating,
	}

	with := func(key string, value interface{}) map[string]interface{} {
		body := make(map[string]interface{}, len(valid))
		for k, v := range valid {
			body[k] = v
		}
		if value == nil {
			delete(body, key)
		} else {
			body[key] = value
		}
		return body
	}

	tests := []struct {
		name           string
		body           interface{}
		mockSetup      func(*MockInteractionRecorder)
		expectedStatus int
		expectedCode   string
	}{
		{
			name: "accepted",
			body: valid,
			mockSetup: func(m *MockInteractionRecorder) {
				m.On("Record", mock.Anything, mock.MatchedBy(func(req *models.RecordInteractionRequest) bool {
					return req.Type == models.InteractionRating && *req.Value == rating
				})).Return(&models.InteractionEvent{ID: uuid.New(), Timestamp: time.Now()}, nil)
			},
			expectedStatus: http.StatusAccepted,
		},
		{
			name:           "malformed json",
			body:           "{not json",
			expectedStatus: http.StatusBadRequest,
			expectedCode:   "INVALID_REQUEST",
		},
		{
			name:           "unknown interaction type",
			body:           with("interaction_type", "share"),
			expectedStatus: http.StatusBadRequest,
			expectedCode:   "VALIDATION_FAILED",
		},
		{
			name:           "unknown item type",
			body:           with("item_type", "podcast"),
			expectedStatus: http.StatusBadRequest,
			expectedCode:   "VALIDATION_FAILED",
		},
		{
			name:           "missing user",
			body:           with("user_id", nil),
			expectedStatus: http.StatusBadRequest,
			expectedCode:   "VALIDATION_FAILED",
		},
		{
			name:           "negative value",
			body:           with("value", -1),
			expectedStatus: http.StatusBadRequest,
			expectedCode:   "VALIDATION_FAILED",
		},
		{
			name: "rating out of range",
			body: with("value", 7),
			mockSetup: func(m *MockInteractionRecorder) {
				m.On("Record", mock.Anything, mock.Anything).
					Return(nil, fmt.Errorf("%w: rating must be between 0 and 5", services.ErrInvalidInteraction))
			},
			expectedStatus: http.StatusBadRequest,
			expectedCode:   "INVALID_INTERACTION",
		},
		{
			name: "bus unavailable",
			body: valid,
			mockSetup: func(m *MockInteractionRecorder) {
				m.On("Record", mock.Anything, mock.Anything).Return(nil, errors.New("kafka: leader not available"))
			},
			expectedStatus: http.StatusServiceUnavailable,
			expectedCode:   "INTERACTION_FAILED",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recorder := new(MockInteractionRecorder)
			if tt.mockSetup != nil {
				tt.mockSetup(recorder)
			}

			handler := NewInteractionHandler(newTestLogger(), recorder)
			router := gin.New()
			router.POST("/api/v1/interactions", handler.Record)

			var payload []byte
			if s, ok := tt.body.(string); ok {
				payload = []byte(s)
			} else {
				payload, _ = json.Marshal(tt.body)
			}

			req := httptest.NewRequest(http.MethodPost, "/api/v1/interactions", bytes.NewReader(payload))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedCode != "" {
				assert.Contains(t, w.Body.String(), tt.expectedCode)
			}
			if tt.mockSetup == nil {
				recorder.AssertNotCalled(t, "Record", mock.Anything, mock.Anything)
			}
			recorder.AssertExpectations(t)
		})
	}
}
