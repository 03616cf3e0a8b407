package records

import "time"

// Patient is the authority's canonical patient record. The wire names
// follow the authority's schema; fields the intake form leaves blank are
// omitted.
type Patient struct {
	ID                 int64        `json:"id,omitempty"`
	Name               string       `json:"name"`
	Age                int          `json:"age,omitempty"`
	Gender             string       `json:"gender,omitempty"`
	Condition          string       `json:"condition,omitempty"`
	Phone              string       `json:"phone,omitempty"`
	Address            string       `json:"address,omitempty"`
	GuardianName       string       `json:"guardian_name,omitempty"`
	GuardianPhone      string       `json:"guardian_phone,omitempty"`
	EmergencyContact   string       `json:"emergency_contact,omitempty"`
	MedicalHistory     string       `json:"medical_history,omitempty"`
	Allergies          string       `json:"allergies,omitempty"`
	CurrentMedications string       `json:"current_medications,omitempty"`
	Medications        []Medication `json:"medications,omitempty"`
	InsuranceProvider  string       `json:"insurance_provider,omitempty"`
	InsuranceNumber    string       `json:"insurance_number,omitempty"`
	CreatedAt          time.Time    `json:"created_at,omitempty"`
}

// Medication is one entry of a patient's medication list.
type Medication struct {
	Name      string `json:"name"`
	Dosage    string `json:"dosage,omitempty"`
	Frequency string `json:"frequency,omitempty"`
}

// Document is the metadata record for one uploaded artifact.
type Document struct {
	ID         int64     `json:"id"`
	PatientID  int64     `json:"patient_id"`
	Filename   string    `json:"filename"`
	UploadedAt time.Time `json:"uploaded_at"`
}
