package queue

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatMovedLine(t *testing.T) {
	notes := "moved during cleanup"
	ev := ItemMovedEvent{
		ItemID:         10,
		ItemName:       "Cordless Drill",
		SpaceID:        2,
		FromLocationID: 5,
		ToLocationID:   8,
		MovedByID:      3,
		Notes:          &notes,
		MovedAt:        time.Date(2026, 8, 28, 9, 30, 0, 0, time.UTC),
	}

	line := formatMovedLine(ev)
	assert.Contains(t, line, "[2026-08-28T09:30:00Z]")
	assert.Contains(t, line, `item="Cordless Drill"`)
	assert.Contains(t, line, "from_location_id=5")
	assert.Contains(t, line, "to_location_id=8")
	assert.Contains(t, line, `notes="moved during cleanup"`)
	assert.Equal(t, uint8('\n'), line[len(line)-1])
}

func TestFormatMovedLineWithoutNotes(t *testing.T) {
	line := formatMovedLine(ItemMovedEvent{ItemID: 1, ItemName: "Box"})
	assert.Contains(t, line, `notes=""`)
}

func TestItemMovedEventJSONRoundTrip(t *testing.T) {
	ev := ItemMovedEvent{
		ItemID:       7,
		ItemName:     "Ladder",
		SpaceID:      1,
		ToLocationID: 4,
		MovedByID:    2,
		MovedAt:      time.Now().UTC().Truncate(time.Second),
	}
	body, err := json.Marshal(ev)
	require.NoError(t, err)

	var got ItemMovedEvent
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Equal(t, ev, got)
	assert.Nil(t, got.Notes)
}
