package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestIsNotFound(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{
			name: "order not found",
			err:  ErrOrderNotFound,
			want: true,
		},
		{
			name: "wrapped key not found",
			err:  fmt.Errorf("get orders: %w", ErrKeyNotFound),
			want: true,
		},
		{
			name: "joined error",
			err:  errors.Join(ErrOrderNotFound, errors.New("additional context")),
			want: true,
		},
		{
			name: "other error",
			err:  ErrPersistFailed,
			want: false,
		},
		{
			name: "nil error",
			err:  nil,
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IsNotFound(tt.err)
			if got != tt.want {
				t.Errorf("IsNotFound() = %v, want %v", got, tt.want)
			}
		})
	}
}
