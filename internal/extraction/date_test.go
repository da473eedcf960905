package extraction

import (
	"testing"
	"time"
)

func TestExtractValidityDate(t *testing.T) {
	tests := []struct {
		name string
		text string
		want time.Time
	}{
		{
			name: "labeled effective date",
			text: "Die Übertragung ist wirksam zum 01.04.2025.",
			want: time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "bare date zero padded",
			text: "Termin am 7.3.2024 vereinbart",
			want: time.Date(2024, 3, 7, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "two digit year expands to 20xx",
			text: "gültig ab 15.06.26",
			want: time.Date(2026, 6, 15, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "two digit year above pivot rejected as pre-2000",
			text: "gültig ab 15.06.75",
		},
		{
			name: "month out of range",
			text: "Stand 12.13.2024",
		},
		{
			name: "year out of range",
			text: "Stand 12.06.2101",
		},
		{
			name: "no date",
			text: "keine Terminangabe",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractValidityDate(tt.text)
			if tt.want.IsZero() {
				if got != nil {
					t.Fatalf("ExtractValidityDate() = %+v, want nil", got)
				}
				return
			}
			if got == nil {
				t.Fatalf("ExtractValidityDate() = nil, want %v", tt.want)
			}
			if !got.Value.Equal(tt.want) {
				t.Errorf("Value = %v, want %v", got.Value, tt.want)
			}
		})
	}
}

func TestExtractValidityDatePrefersLabeled(t *testing.T) {
	text := "Gemeldet am 01.01.2024. Die Police ist gültig ab 01.07.2024."
	got := ExtractValidityDate(text)
	if got == nil {
		t.Fatal("ExtractValidityDate() = nil")
	}
	want := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)
	if !got.Value.Equal(want) {
		t.Errorf("Value = %v, want labeled date %v", got.Value, want)
	}
}
