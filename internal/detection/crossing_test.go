package detection

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsCrossing(t *testing.T) {
	tests := []struct {
		name  string
		edges []Point
		lineY int
		want  bool
	}{
		{"empty row", nil, 5, false},
		{"edge on row", []Point{{3, 5}}, 5, true},
		{"edge at row start", []Point{{0, 5}}, 5, true},
		{"edge at row end", []Point{{19, 5}}, 5, true},
		{"edge one row above", []Point{{3, 4}}, 5, false},
		{"edge one row below", []Point{{3, 6}}, 5, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newEdgeMap(20, 10, tt.edges...)
			assert.Equal(t, tt.want, IsCrossing(m, tt.lineY))
		})
	}
}

func TestIsCrossing_NonZeroOrigin(t *testing.T) {
	m := image.NewGray(image.Rect(10, 20, 30, 30))
	m.SetGray(15, 22, color.Gray{Y: 255})

	// Row 2 relative to the map's top row.
	assert.True(t, IsCrossing(m, 2))
	assert.False(t, IsCrossing(m, 3))
}

func TestIsCrossing_RowOutOfRangePanics(t *testing.T) {
	m := newEdgeMap(4, 4)
	assert.Panics(t, func() { IsCrossing(m, 4) })
	assert.Panics(t, func() { IsCrossing(m, -1) })
}

func TestParseTriggerMode(t *testing.T) {
	mode, err := ParseTriggerMode("")
	assert.NoError(t, err)
	assert.Equal(t, TriggerEdge, mode)

	mode, err = ParseTriggerMode("level")
	assert.NoError(t, err)
	assert.Equal(t, TriggerLevel, mode)

	_, err = ParseTriggerMode("pulse")
	assert.Error(t, err)
}

func TestTrigger(t *testing.T) {
	tests := []struct {
		name     string
		mode     TriggerMode
		cooldown int
		in       []bool
		want     []bool
	}{
		{
			name: "level fires on every crossing frame",
			mode: TriggerLevel,
			in:   []bool{false, true, true, false, true},
			want: []bool{false, true, true, false, true},
		},
		{
			name: "edge fires on rising transitions only",
			mode: TriggerEdge,
			in:   []bool{false, true, true, false, true, true},
			want: []bool{false, true, false, false, true, false},
		},
		{
			name: "edge fires on first frame when already occupied",
			mode: TriggerEdge,
			in:   []bool{true, true},
			want: []bool{true, false},
		},
		{
			name:     "cooldown suppresses flicker",
			mode:     TriggerEdge,
			cooldown: 3,
			in:       []bool{true, false, true, false, true, false},
			want:     []bool{true, false, false, false, true, false},
		},
		{
			name:     "level ignores cooldown",
			mode:     TriggerLevel,
			cooldown: 10,
			in:       []bool{true, true, true},
			want:     []bool{true, true, true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := NewTrigger(tt.mode, tt.cooldown)
			got := make([]bool, len(tt.in))
			for i, c := range tt.in {
				got[i] = tr.Update(c)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTrigger_Reset(t *testing.T) {
	tr := NewTrigger(TriggerEdge, 0)
	assert.True(t, tr.Update(true))
	assert.False(t, tr.Update(true))

	tr.Reset()
	assert.True(t, tr.Update(true), "reset should forget the occupied line")
}
