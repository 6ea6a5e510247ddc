package validation

import (
	"testing"

	"github.com/ametnes/nesis-console/internal/models"
)

func TestValidateResourceID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		id      string
		wantErr bool
	}{
		{id: "123", wantErr: false},
		{id: "some.id", wantErr: false},
		{id: "", wantErr: true},
		{id: "   ", wantErr: true},
		{id: "undefined", wantErr: true},
		{id: "null", wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.id, func(t *testing.T) {
			t.Parallel()
			err := ValidateResourceID(tt.id)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateResourceID(%q) error = %v, wantErr %v", tt.id, err, tt.wantErr)
			}
		})
	}
}

func TestValidateAzureTokenResult(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		result  *models.AzureTokenResult
		wantErr bool
	}{
		{
			name: "valid",
			result: &models.AzureTokenResult{
				AccessToken: "token",
				Account:     models.AzureAccount{Username: "jane@example.com", Name: "Jane"},
			},
		},
		{name: "nil", result: nil, wantErr: true},
		{
			name:    "missing access token",
			result:  &models.AzureTokenResult{Account: models.AzureAccount{Username: "jane@example.com"}},
			wantErr: true,
		},
		{
			name:    "missing username",
			result:  &models.AzureTokenResult{AccessToken: "token"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := ValidateAzureTokenResult(tt.result)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateAzureTokenResult() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
