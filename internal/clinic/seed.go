package clinic

// Seed returns the built-in doctor directory used when no external data
// source is provided. Experience is in years.
func Seed() []Doctor {
	return []Doctor{
		{Name: "Dr. Richard James", Speciality: "General Physician", Location: "Downtown Clinic", Experience: 4},
		{Name: "Dr. Emily Larson", Speciality: "General Physician", Location: "Riverside Medical Center", Experience: 9},
		{Name: "Dr. Christopher Davis", Speciality: "General Physician", Location: "Northgate Practice", Experience: 12},
		{Name: "Dr. Sarah Patel", Speciality: "Cardiologist", Location: "Heart Institute", Experience: 15},
		{Name: "Dr. Timothy White", Speciality: "Cardiologist", Location: "Riverside Medical Center", Experience: 7},
		{Name: "Dr. Ava Mitchell", Speciality: "Neurologist", Location: "Neuro Care Center", Experience: 11},
		{Name: "Dr. Jeffrey King", Speciality: "Neurologist", Location: "Downtown Clinic", Experience: 6},
		{Name: "Dr. Zoe Kelly", Speciality: "Dermatologist", Location: "Skin Health Clinic", Experience: 8},
		{Name: "Dr. Patrick Harris", Speciality: "Gastroenterologist", Location: "Digestive Care Unit", Experience: 10},
		{Name: "Dr. Chloe Evans", Speciality: "Pulmonologist", Location: "Lung Center", Experience: 13},
		{Name: "Dr. Ryan Martinez", Speciality: "Orthopedist", Location: "Bone and Joint Clinic", Experience: 14},
		{Name: "Dr. Amelia Hill", Speciality: "Pediatrician", Location: "Children's Health Center", Experience: 9},
		{Name: "Dr. Andrew Williams", Speciality: "Psychiatrist", Location: "Mind Wellness Clinic", Experience: 10},
		{Name: "Dr. Natalie Cruz", Speciality: "ENT Specialist", Location: "Northgate Practice", Experience: 5},
	}
}
