package trace

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEnsureKeepsExistingTraceID(t *testing.T) {
	ctx := WithContext(context.Background(), "abc")
	assert.Equal(t, "abc", FromContext(Ensure(ctx)))
}

func TestEnsureGeneratesTraceID(t *testing.T) {
	ctx := Ensure(context.Background())
	assert.Len(t, FromContext(ctx), 32)
}
