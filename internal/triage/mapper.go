package triage

// MapSpecialist derives the specialist category from a validated verdict.
// Mild conditions always route to a general physician regardless of what the
// classifier suggested; moderate and severe conditions route to the
// recommended specialist unchanged. Pure and total: no I/O, no failure mode.
func MapSpecialist(v *Verdict) string {
	if v.Severity == SeverityMild {
		return GeneralPhysician
	}
	return v.RecommendedSpecialist
}
