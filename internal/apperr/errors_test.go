package apperr

import (
	"errors"
	"fmt"
	"testing"

	"gorm.io/gorm"
)

func TestStorage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"nil stays nil", nil, nil},
		{"duplicate key is a conflict", gorm.ErrDuplicatedKey, ErrConflict},
		{"missing record", gorm.ErrRecordNotFound, ErrNotFound},
		{"generic failure", errors.New("connection reset"), ErrStorage},
		{"already classified passes through", Reference("dish %s", "999"), ErrReferentialIntegrity},
		{"wrapped classified", fmt.Errorf("save: %w", Validation("qty")), ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Storage("op", tt.err)
			if tt.want == nil {
				if got != nil {
					t.Fatalf("expected nil, got %v", got)
				}
				return
			}
			if !errors.Is(got, tt.want) {
				t.Errorf("Storage() = %v, want wrapping %v", got, tt.want)
			}
		})
	}
}
