package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventValidAt(t *testing.T) {
	from := time.Date(1998, 5, 19, 0, 0, 0, 0, time.UTC)
	to := time.Date(2016, 9, 30, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		event Event
		at    time.Time
		want  bool
	}{
		{
			name:  "before window",
			event: Event{ValidFrom: from, ValidTo: &to},
			at:    time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC),
			want:  false,
		},
		{
			name:  "inside window",
			event: Event{ValidFrom: from, ValidTo: &to},
			at:    time.Date(2005, 6, 1, 0, 0, 0, 0, time.UTC),
			want:  true,
		},
		{
			name:  "at window start",
			event: Event{ValidFrom: from, ValidTo: &to},
			at:    from,
			want:  true,
		},
		{
			name:  "after closed window",
			event: Event{ValidFrom: from, ValidTo: &to},
			at:    time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
			want:  false,
		},
		{
			name:  "open window after start",
			event: Event{ValidFrom: from},
			at:    time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC),
			want:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.event.ValidAt(tt.at))
		})
	}
}

func TestEventValidate(t *testing.T) {
	from := time.Date(2016, 10, 1, 0, 0, 0, 0, time.UTC)
	before := from.AddDate(-1, 0, 0)

	require.NoError(t, (&Event{ValidFrom: from}).Validate())
	require.Error(t, (&Event{ValidFrom: from, ValidTo: &before}).Validate())
}

func TestEdgeValidAtWithoutEvent(t *testing.T) {
	edge := Edge{ID: "e1", Type: CitesEdge, SourceID: "a", TargetID: "b"}
	assert.True(t, edge.ValidAt(time.Date(1800, 1, 1, 0, 0, 0, 0, time.UTC)))
	assert.True(t, edge.ValidAt(time.Now()))
}

func TestRequestWithDefaults(t *testing.T) {
	req := Request{Query: "liability"}.WithDefaults()
	assert.Equal(t, StrategyHybrid, req.Strategy)
	assert.Equal(t, 10, req.MaxResults)

	req = Request{Query: "liability", Strategy: StrategyLocal, MaxResults: 3}.WithDefaults()
	assert.Equal(t, StrategyLocal, req.Strategy)
	assert.Equal(t, 3, req.MaxResults)
}

func TestRequestValidate(t *testing.T) {
	tests := []struct {
		name    string
		req     Request
		wantErr error
	}{
		{"valid", Request{Query: "q", Strategy: StrategyHybrid, MaxResults: 5}, nil},
		{"empty query", Request{Strategy: StrategyHybrid}, ErrEmptyQuery},
		{"unknown strategy", Request{Query: "q", Strategy: "psychic"}, ErrUnknownStrategy},
		{"negative limit", Request{Query: "q", Strategy: StrategyLocal, MaxResults: -1}, ErrInvalidLimit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestStreamEventTerminal(t *testing.T) {
	assert.False(t, StreamEvent{Kind: ProgressEvent}.Terminal())
	assert.False(t, StreamEvent{Kind: TokenEvent}.Terminal())
	assert.True(t, StreamEvent{Kind: CompleteEvent}.Terminal())
	assert.True(t, StreamEvent{Kind: ErrorEvent}.Terminal())
}

func TestEntityDisplayText(t *testing.T) {
	e := &Entity{Title: "t", Text: "full text", Snippet: "snip"}
	assert.Equal(t, "snip", e.DisplayText())

	e.Snippet = ""
	assert.Equal(t, "full text", e.DisplayText())

	e.Text = ""
	assert.Equal(t, "t", e.DisplayText())
}

func TestEntityValidate(t *testing.T) {
	assert.ErrorIs(t, (&Entity{Title: "x"}).Validate(), ErrEmptyID)
	assert.ErrorIs(t, (&Entity{ID: "x"}).Validate(), ErrEmptyTitle)
	assert.NoError(t, (&Entity{ID: "x", Title: "y"}).Validate())
}
