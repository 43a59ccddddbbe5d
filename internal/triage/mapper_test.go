package triage

import "testing"

func TestMapSpecialist(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		verdict Verdict
		want    string
	}{
		{
			name:    "mild ignores recommendation",
			verdict: Verdict{Severity: SeverityMild, RecommendedSpecialist: "Cardiologist"},
			want:    GeneralPhysician,
		},
		{
			name:    "moderate uses recommendation",
			verdict: Verdict{Severity: SeverityModerate, RecommendedSpecialist: "Dermatologist"},
			want:    "Dermatologist",
		},
		{
			name:    "severe uses recommendation",
			verdict: Verdict{Severity: SeveritySevere, RecommendedSpecialist: "Cardiologist"},
			want:    "Cardiologist",
		},
		{
			name:    "severe with general physician recommendation",
			verdict: Verdict{Severity: SeveritySevere, RecommendedSpecialist: GeneralPhysician},
			want:    GeneralPhysician,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := MapSpecialist(&tt.verdict); got != tt.want {
				t.Errorf("MapSpecialist() = %q, want %q", got, tt.want)
			}
		})
	}
}
