package sse

import (
	"encoding/json"
	"testing"
	"time"

	"echoplex-server/internal/core/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receiveEvent(t *testing.T, client Client) ScanEvent {
	t.Helper()
	select {
	case message := <-client:
		var event ScanEvent
		require.NoError(t, json.Unmarshal(message, &event))
		return event
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for SSE message")
		return ScanEvent{}
	}
}

func TestHubBroadcastImageScan(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	client := make(Client, 4)
	hub.Register(client)
	defer hub.Unregister(client)

	hub.BroadcastImageScan(models.FrameResult{
		PersonCount:   2,
		FacesDetected: 1,
		Matches: []models.ScoredMatch{
			{CaseID: "a", FullName: "Alice", Confidence: 87.5},
		},
	})

	event := receiveEvent(t, client)
	assert.Equal(t, "image", event.Type)
	assert.Equal(t, 2, event.PersonCount)
	assert.Equal(t, 1, event.FacesDetected)
	require.Len(t, event.Matches, 1)
	assert.Equal(t, "a", event.Matches[0].CaseID)
	assert.Equal(t, 87.5, event.Matches[0].Confidence)
}

func TestHubBroadcastVideoScan(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	client := make(Client, 4)
	hub.Register(client)
	defer hub.Unregister(client)

	hub.BroadcastVideoScan(12, []models.AggregatedMatch{
		{CaseID: "a", FullName: "Alice", BestConfidence: 92.1, Hits: 4},
	})

	event := receiveEvent(t, client)
	assert.Equal(t, "video", event.Type)
	assert.Equal(t, 12, event.FramesAnalyzed)
	require.Len(t, event.Matches, 1)
	assert.Equal(t, 92.1, event.Matches[0].Confidence)
}

func TestHubBroadcastReachesAllClients(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	first := make(Client, 4)
	second := make(Client, 4)
	hub.Register(first)
	hub.Register(second)
	defer hub.Unregister(second)

	hub.Broadcast([]byte(`{"type":"image","matches":[]}`))

	receiveEvent(t, first)
	receiveEvent(t, second)

	// An unregistered client receives nothing further.
	hub.Unregister(first)
	hub.Broadcast([]byte(`{"type":"image","matches":[]}`))
	receiveEvent(t, second)
}
