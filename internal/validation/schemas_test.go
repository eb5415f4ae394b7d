package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newValidator(t *testing.T) *SchemaValidator {
	t.Helper()
	sv, err := NewSchemaValidator()
	require.NoError(t, err)
	return sv
}

func TestNewSchemaValidator_LoadsEmbeddedSchemas(t *testing.T) {
	sv := newValidator(t)

	assert.True(t, sv.SchemaExists(InteractionEventSchema))
	assert.True(t, sv.SchemaExists(RecommendationResponseSchema))
	assert.False(t, sv.SchemaExists("content-item"))
}

func TestValidateInteractionEvent(t *testing.T) {
	sv := newValidator(t)

	tests := []struct {
		name    string
		payload string
		valid   bool
	}{
		{
			name: "view without value",
			payload: `{"id":"6f1c1f44-3c1e-4f0a-9a55-0b7d1f0b3c11","user_id":"0e6f7d0a-93d1-4d4c-8c0a-5b8b3a9f2d10",
				"item_id":"a2d8a1c4-0b5e-4b73-9f61-3e8a1d6c9b22","item_type":"movie","interaction_type":"view",
				"timestamp":"2024-05-01T10:00:00Z"}`,
			valid: true,
		},
		{
			name: "rating with value",
			payload: `{"id":"6f1c1f44-3c1e-4f0a-9a55-0b7d1f0b3c11","user_id":"0e6f7d0a-93d1-4d4c-8c0a-5b8b3a9f2d10",
				"item_id":"a2d8a1c4-0b5e-4b73-9f61-3e8a1d6c9b22","item_type":"series","interaction_type":"rating",
				"value":4.5,"timestamp":"2024-05-01T10:00:00Z"}`,
			valid: true,
		},
		{
			name: "rating without value",
			payload: `{"id":"6f1c1f44-3c1e-4f0a-9a55-0b7d1f0b3c11","user_id":"0e6f7d0a-93d1-4d4c-8c0a-5b8b3a9f2d10",
				"item_id":"a2d8a1c4-0b5e-4b73-9f61-3e8a1d6c9b22","item_type":"series","interaction_type":"rating",
				"timestamp":"2024-05-01T10:00:00Z"}`,
			valid: false,
		},
		{
			name: "rating out of range",
			payload: `{"id":"6f1c1f44-3c1e-4f0a-9a55-0b7d1f0b3c11","user_id":"0e6f7d0a-93d1-4d4c-8c0a-5b8b3a9f2d10",
				"item_id":"a2d8a1c4-0b5e-4b73-9f61-3e8a1d6c9b22","item_type":"series","interaction_type":"rating",
				"value":9,"timestamp":"2024-05-01T10:00:00Z"}`,
			valid: false,
		},
		{
			name: "unknown interaction type",
			payload: `{"id":"6f1c1f44-3c1e-4f0a-9a55-0b7d1f0b3c11","user_id":"0e6f7d0a-93d1-4d4c-8c0a-5b8b3a9f2d10",
				"item_id":"a2d8a1c4-0b5e-4b73-9f61-3e8a1d6c9b22","item_type":"movie","interaction_type":"purchase",
				"timestamp":"2024-05-01T10:00:00Z"}`,
			valid: false,
		},
		{
			name:    "missing ids",
			payload: `{"item_type":"movie","interaction_type":"view","timestamp":"2024-05-01T10:00:00Z"}`,
			valid:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := sv.ValidateInteractionEvent([]byte(tt.payload))
			assert.Equal(t, tt.valid, result.Valid, "errors: %v", result.Errors)
			if tt.valid {
				assert.NoError(t, result.Err())
			} else {
				assert.Error(t, result.Err())
			}
		})
	}
}

func TestValidateInteractionEvent_MalformedJSON(t *testing.T) {
	sv := newValidator(t)

	result := sv.ValidateInteractionEvent([]byte(`{"id": `))

	assert.False(t, result.Valid)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "MALFORMED_DOCUMENT", result.Errors[0].Code)
}

func TestValidateRecommendationResponse(t *testing.T) {
	sv := newValidator(t)

	body := map[string]interface{}{
		"count":        1,
		"generated_at": "2024-05-01T10:00:00Z",
		"recommendations": []map[string]interface{}{
			{
				"item_id":   "a2d8a1c4-0b5e-4b73-9f61-3e8a1d6c9b22",
				"item_type": "movie",
				"score":     0.62,
				"algorithm": "hybrid",
				"reason":    "Recommended based on your preferences",
			},
		},
	}

	assert.True(t, sv.ValidateRecommendationResponse(body).Valid)

	body["recommendations"].([]map[string]interface{})[0]["algorithm"] = "random"
	assert.False(t, sv.ValidateRecommendationResponse(body).Valid)
}
