package repositories

import (
	"testing"

	"github.com/gigmarket/backend/internal/apperr"
)

func TestCheckPendingRoom(t *testing.T) {
	tests := []struct {
		name       string
		pending    int
		maxPending int
		wantErr    bool
	}{
		{"well under cap", 0, 5, false},
		{"one below cap", 4, 5, false},
		{"at cap rejects the next submission", 5, 5, true},
		{"over cap", 6, 5, true},
		{"critical tier holds a single slot", 1, 1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkPendingRoom(tt.pending, tt.maxPending)
			if tt.wantErr {
				if !apperr.IsKind(err, apperr.KindLimitExceeded) {
					t.Fatalf("checkPendingRoom(%d, %d) = %v, want limit_exceeded",
						tt.pending, tt.maxPending, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("checkPendingRoom(%d, %d) = %v, want nil", tt.pending, tt.maxPending, err)
			}
		})
	}
}
