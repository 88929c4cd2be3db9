package shared

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
)

func TestDecodeJSON(t *testing.T) {
	type reviewPayload struct {
		Rating     int    `json:"rating"`
		ReviewText string `json:"review_text"`
	}

	tests := []struct {
		name        string
		requestBody string
		target      interface{}
		wantErr     bool
		errContains string
	}{
		{
			name:        "valid json",
			requestBody: `{"rating": 4, "review_text": "worked well at home"}`,
			target:      &reviewPayload{},
			wantErr:     false,
		},
		{
			name:        "invalid json",
			requestBody: `{"rating": 4,}`,
			target:      &reviewPayload{},
			wantErr:     true,
			errContains: "invalid character",
		},
		{
			name:        "empty body",
			requestBody: "",
			target:      &reviewPayload{},
			wantErr:     true,
			errContains: "EOF",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(
				http.MethodPost,
				"/test",
				bytes.NewBufferString(tc.requestBody),
			)

			err := DecodeJSON(req, tc.target)

			if tc.wantErr {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tc.errContains)
				return
			}
			assert.NoError(t, err)
			if tc.name == "valid json" {
				data := tc.target.(*reviewPayload)
				assert.Equal(t, 4, data.Rating)
				assert.Equal(t, "worked well at home", data.ReviewText)
			}
		})
	}
}

type errorReader struct{}

func (er errorReader) Read(p []byte) (n int, err error) {
	return 0, io.ErrUnexpectedEOF
}

func TestDecodeJSONWithReadError(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/test", errorReader{})

	var target struct{}
	err := DecodeJSON(req, &target)

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected EOF")
}

// selfValidating exercises the Validate-interface branch of ValidateRequest.
type selfValidating struct {
	Reason string `validate:"required"`
}

func (v *selfValidating) Validate() error {
	if v.Reason == "invalid" {
		return &validator.ValidationErrors{}
	}
	return nil
}

func TestValidateRequest(t *testing.T) {
	tests := []struct {
		name    string
		req     interface{}
		wantErr bool
	}{
		{
			name:    "valid request with custom validator",
			req:     &selfValidating{Reason: "INAPPROPRIATE"},
			wantErr: false,
		},
		{
			name:    "invalid request with custom validator",
			req:     &selfValidating{Reason: "invalid"},
			wantErr: true,
		},
		{
			name: "struct tag validation passes",
			req: &struct {
				Rating int `validate:"min=1,max=5"`
			}{Rating: 3},
			wantErr: false,
		},
		{
			name: "struct tag validation fails",
			req: &struct {
				Rating int `validate:"min=1,max=5"`
			}{Rating: 9},
			wantErr: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateRequest(tc.req)

			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
