package campaign

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestInput_Validate(t *testing.T) {
	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 7)

	tests := []struct {
		name    string
		in      Input
		wantErr error
	}{
		{
			name: "valid",
			in: Input{
				Title:     "Sale",
				Reduction: decimal.NewFromInt(20),
				StartDate: &start,
				EndDate:   &end,
			},
		},
		{
			name:    "missing title",
			in:      Input{Reduction: decimal.NewFromInt(20)},
			wantErr: ErrTitleRequired,
		},
		{
			name:    "negative reduction",
			in:      Input{Title: "Sale", Reduction: decimal.NewFromInt(-1)},
			wantErr: ErrReductionRange,
		},
		{
			name:    "reduction above hundred",
			in:      Input{Title: "Sale", Reduction: decimal.NewFromInt(101)},
			wantErr: ErrReductionRange,
		},
		{
			name:    "inverted window",
			in:      Input{Title: "Sale", StartDate: &end, EndDate: &start},
			wantErr: ErrDateOrder,
		},
		{
			name: "open window is fine",
			in:   Input{Title: "Sale", StartDate: &start},
		},
		{
			name: "boundary reduction values",
			in:   Input{Title: "Sale", Reduction: decimal.NewFromInt(100)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.in.Validate()
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestCampaign_Backlink(t *testing.T) {
	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 7)

	c := &Campaign{
		ID:          "c1",
		Title:       "Sale",
		Description: "not copied",
		Reduction:   decimal.NewFromInt(20),
		StartDate:   &start,
		EndDate:     &end,
		Products:    []string{"p1"},
	}

	snap := c.Backlink()
	assert.Equal(t, "c1", snap.ID)
	assert.Equal(t, "Sale", snap.Title)
	assert.True(t, decimal.NewFromInt(20).Equal(snap.Reduction))
	assert.Equal(t, &start, snap.StartDate)
	assert.Equal(t, &end, snap.EndDate)
}
