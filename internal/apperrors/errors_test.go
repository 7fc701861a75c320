package apperrors

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewNilIsNil(t *testing.T) {
	assert.NoError(t, New(KindService, "op", nil))
}

func TestKindOfThroughWrapping(t *testing.T) {
	base := errors.New("boom")
	err := fmt.Errorf("column description: %w", Service("translate item 3", base))

	kind, ok := KindOf(err)
	assert.True(t, ok)
	assert.Equal(t, KindService, kind)
	assert.ErrorIs(t, err, base)
	assert.Contains(t, err.Error(), "translate item 3: service error: boom")
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"service", Service("", errors.New("x")), true},
		{"persistence", Persistence("", errors.New("x")), true},
		{"language", Language("", errors.New("x")), false},
		{"integrity", Integrity("", errors.New("x")), false},
		{"validation", Validation("", errors.New("x")), false},
		{"unclassified", context.DeadlineExceeded, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryable(tt.err))
		})
	}
}
