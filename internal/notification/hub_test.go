package notification

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHubRecordAndList(t *testing.T) {
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	hub := NewHub(WithClock(func() time.Time { return fixed }))

	assert.Empty(t, hub.List("alice"))

	hub.Record("alice", "first")
	hub.Record("alice", "second")
	hub.Record("bob", "hello")

	got := hub.List("alice")
	require.Len(t, got, 2)
	assert.Equal(t, "first", got[0].Message)
	assert.Equal(t, "second", got[1].Message)
	assert.Equal(t, "alice", got[0].AccountID)
	assert.Equal(t, fixed, got[0].CreatedAt)

	// a cópia devolvida não altera o estado interno
	got[0].Message = "changed"
	assert.Equal(t, "first", hub.List("alice")[0].Message)
}

func TestHubClose(t *testing.T) {
	hub := NewHub()
	hub.Record("alice", "before")
	hub.Close()

	assert.Empty(t, hub.List("alice"))
	hub.Record("alice", "after")
	assert.Empty(t, hub.List("alice"))
}

func TestHubConcurrentRecord(t *testing.T) {
	hub := NewHub()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			hub.Record("alice", fmt.Sprintf("msg %d", i))
			_ = hub.List("alice")
		}(i)
	}
	wg.Wait()
	assert.Len(t, hub.List("alice"), 50)
}
