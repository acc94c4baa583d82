package advisory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClean(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "keeps three trimmed lines",
			text: "  - WATER RATIONING: Supply cut to 2 hours.\n\n- HEALTH: Masks advised.  \n- TRAFFIC: Avoid ring road.\n- EXTRA: Dropped.",
			want: []string{"- WATER RATIONING: Supply cut to 2 hours.", "- HEALTH: Masks advised.", "- TRAFFIC: Avoid ring road."},
		},
		{
			name: "stops at leaked example on third line",
			text: "- HEALTH EMERGENCY: Schools closed.\n- WATER: Tankers deployed.\nExample Input: Status: Conditions are stable\n- MONITORING: Normal.",
			want: []string{"- HEALTH EMERGENCY: Schools closed.", "- WATER: Tankers deployed."},
		},
		{
			name: "stops at example output case-insensitively",
			text: "- ONE: first advisory.\nEXAMPLE OUTPUT:\n- TWO: second.",
			want: []string{"- ONE: first advisory."},
		},
		{
			name: "drops meta prefixes",
			text: "Sure! Here you go\nHere are three advisories\nNote: generated\nOutput:\nStatus: stable\n- ONE: a.\n- TWO: b.",
			want: []string{"- ONE: a.", "- TWO: b."},
		},
		{
			name: "drops bare headings but keeps long colon lines",
			text: "Water Conservation:\n- Residents should store water for the coming days as follows:\n- TWO: b.",
			want: []string{"- Residents should store water for the coming days as follows:", "- TWO: b."},
		},
		{
			name: "splits on carriage returns and unicode separators",
			text: "- A: first.\r- B: second.\r\n- C: third.\u2028- D: dropped.",
			want: []string{"- A: first.", "- B: second.", "- C: third."},
		},
		{
			name: "all noise",
			text: "\n  \nSure thing\n",
			want: nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Clean(tt.text))
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		lines   []string
		wantErr bool
	}{
		{"two dash bullets", []string{"- WATER: ration.", "- HEALTH: masks."}, false},
		{"numbered and dot bullets", []string{"1. WATER: ration.", "• HEALTH: masks."}, false},
		{"single bullet", []string{"- WATER: ration.", "Stay safe everyone."}, true},
		{"no bullets", []string{"Water is short.", "Air is bad."}, true},
		{"meta keyword", []string{"- Here is the first bullet.", "- HEALTH: masks."}, true},
		{"meta keyword case-insensitive", []string{"- WATER: ration.", "- Follow the FORMAT above."}, true},
		{"keyword as substring", []string{"- PIPELINE repairs scheduled.", "- HEALTH: masks."}, true},
		{"empty", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.lines)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrValidation)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestIsBullet(t *testing.T) {
	assert.True(t, IsBullet("- a"))
	assert.True(t, IsBullet("•a"))
	assert.True(t, IsBullet("12. a"))
	assert.False(t, IsBullet("a - b"))
	assert.False(t, IsBullet("1) a"))
}
