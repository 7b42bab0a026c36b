package pricing

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/xenking/boutiq/internal/domain/campaign"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestDiscountedLinePrice(t *testing.T) {
	tests := []struct {
		name      string
		unitPrice string
		quantity  int
		reduction string
		want      string
	}{
		{name: "ten percent off", unitPrice: "1000", quantity: 3, reduction: "10", want: "2700"},
		{name: "zero reduction", unitPrice: "1000", quantity: 3, reduction: "0", want: "3000"},
		{name: "full reduction", unitPrice: "49.99", quantity: 2, reduction: "100", want: "0"},
		{name: "rounding to cents", unitPrice: "9.99", quantity: 3, reduction: "15", want: "25.47"},
		{name: "single unit", unitPrice: "29.90", quantity: 1, reduction: "20", want: "23.92"},
		{name: "zero quantity", unitPrice: "1000", quantity: 0, reduction: "10", want: "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DiscountedLinePrice(d(tt.unitPrice), tt.quantity, d(tt.reduction))
			assert.True(t, d(tt.want).Equal(got), "want %s, got %s", tt.want, got)
		})
	}
}

func TestDiscountedLinePrice_NeverNegative(t *testing.T) {
	got := DiscountedLinePrice(d("10"), 1, d("100"))
	assert.False(t, got.IsNegative())
	assert.True(t, got.IsZero())
}

func TestClassify(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	before := now.AddDate(0, 0, -10)
	after := now.AddDate(0, 0, 10)
	longPast := now.AddDate(0, -2, 0)
	pastEnd := now.AddDate(0, -1, 0)

	tests := []struct {
		name string
		snap *campaign.Snapshot
		want Validity
	}{
		{
			name: "no campaign attached",
			snap: nil,
			want: ValidityNone,
		},
		{
			name: "active window with reduction",
			snap: &campaign.Snapshot{Reduction: d("15"), StartDate: &before, EndDate: &after},
			want: ValidityPromotional,
		},
		{
			name: "expired window",
			snap: &campaign.Snapshot{Reduction: d("15"), StartDate: &longPast, EndDate: &pastEnd},
			want: ValidityNone,
		},
		{
			name: "not yet started",
			snap: &campaign.Snapshot{Reduction: d("15"), StartDate: &after, EndDate: &after},
			want: ValidityNone,
		},
		{
			name: "active window without reduction",
			snap: &campaign.Snapshot{StartDate: &before, EndDate: &after},
			want: ValidityNonPromotional,
		},
		{
			name: "missing end date keeps badge only",
			snap: &campaign.Snapshot{Reduction: d("15"), StartDate: &before},
			want: ValidityNonPromotional,
		},
		{
			name: "missing both dates",
			snap: &campaign.Snapshot{Reduction: d("15")},
			want: ValidityNonPromotional,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.snap, now))
		})
	}
}

func TestClassify_WindowBoundsInclusive(t *testing.T) {
	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)
	snap := &campaign.Snapshot{Reduction: d("10"), StartDate: &start, EndDate: &end}

	assert.Equal(t, ValidityPromotional, Classify(snap, start))
	assert.Equal(t, ValidityPromotional, Classify(snap, end))
}
