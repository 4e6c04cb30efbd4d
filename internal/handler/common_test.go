package handler

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetMemberID(t *testing.T) {
	tests := []struct {
		name    string
		value   interface{}
		want    uint64
		wantErr bool
	}{
		{"float64 from jwt claims", float64(42), 42, false},
		{"uint64", uint64(7), 7, false},
		{"int", 3, 3, false},
		{"int64", int64(9), 9, false},
		{"numeric string", "15", 15, false},
		{"garbage string", "abc", 0, true},
		{"missing", nil, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestContext(t, http.MethodGet, "/", "")
			if tt.value != nil {
				c.Set("user_id", tt.value)
			}
			got, err := getMemberID(c)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidColor(t *testing.T) {
	assert.True(t, validColor("#A1B2C3"))
	assert.True(t, validColor("#ffffff"))
	assert.False(t, validColor("A1B2C3"))
	assert.False(t, validColor("#A1B2C"))
	assert.False(t, validColor("#A1B2C3D"))
	assert.False(t, validColor("#GGGGGG"))
	assert.False(t, validColor(""))
}

func TestCheckReferencePair(t *testing.T) {
	id := "04:A3:22:1B"
	typ := "NFC"
	bad := "RFID"

	assert.Empty(t, checkReferencePair(nil, nil, nil))
	assert.Empty(t, checkReferencePair(nil, &id, &typ))
	// Unknown type is rejected.
	details := checkReferencePair(nil, &id, &bad)
	require.Len(t, details, 1)
	assert.Equal(t, "reference_type", details[0].Path)
	// Type without id is rejected.
	details = checkReferencePair(nil, nil, &typ)
	require.Len(t, details, 1)
	assert.Equal(t, "reference_id", details[0].Path)
}

func TestRequireName(t *testing.T) {
	name, details := requireName(nil, "  Garage ")
	assert.Equal(t, "Garage", name)
	assert.Empty(t, details)

	_, details = requireName(nil, "   ")
	require.Len(t, details, 1)
	assert.Equal(t, "name", details[0].Path)
}

func TestParseLocationUpdate(t *testing.T) {
	t.Run("reparent to null makes root", func(t *testing.T) {
		req, details := parseLocationUpdate(map[string]interface{}{"parent_location_id": nil})
		assert.Empty(t, details)
		assert.True(t, req.SetParent)
		assert.Nil(t, req.ParentID)
	})

	t.Run("reparent to id", func(t *testing.T) {
		req, details := parseLocationUpdate(map[string]interface{}{"parent_location_id": float64(5)})
		assert.Empty(t, details)
		assert.True(t, req.SetParent)
		require.NotNil(t, req.ParentID)
		assert.Equal(t, uint64(5), *req.ParentID)
	})

	t.Run("absent parent key leaves parent alone", func(t *testing.T) {
		req, details := parseLocationUpdate(map[string]interface{}{"name": "Shelf"})
		assert.Empty(t, details)
		assert.False(t, req.SetParent)
		require.NotNil(t, req.Name)
		assert.Equal(t, "Shelf", *req.Name)
	})

	t.Run("bad values rejected", func(t *testing.T) {
		_, details := parseLocationUpdate(map[string]interface{}{
			"name":               "  ",
			"location_type":      "WAREHOUSE",
			"parent_location_id": float64(0),
		})
		assert.Len(t, details, 3)
	})

	t.Run("location type normalized", func(t *testing.T) {
		req, details := parseLocationUpdate(map[string]interface{}{"location_type": "room"})
		assert.Empty(t, details)
		require.NotNil(t, req.LocationType)
		assert.Equal(t, "ROOM", *req.LocationType)
	})
}
