package schedule

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddRejectsBadSpec(t *testing.T) {
	s := New(nil)
	err := s.Add(context.Background(), Job{Name: "sync", Spec: "every now and then", Run: func(context.Context) error { return nil }})
	assert.ErrorContains(t, err, "sync")
	assert.Empty(t, s.Jobs())
}

func TestAddSkipsDisabledJobs(t *testing.T) {
	s := New(nil)
	require.NoError(t, s.Add(context.Background(), Job{Name: "publish", Spec: ""}))
	require.NoError(t, s.Add(context.Background(), Job{Name: "sync", Spec: "@every 30m", Run: func(context.Context) error { return nil }}))
	assert.Equal(t, []string{"sync"}, s.Jobs())
	s.Start()
	s.Stop()
}
