package policy

import (
	"time"

	"github.com/google/uuid"

	"github.com/vitalpass/vitalpass/internal/domain/record"
)

// Mode names a sharing context. Each patient holds one policy row per mode.
type Mode string

const (
	ModeEmergency      Mode = "EMERGENCY"
	ModeClinicVisit    Mode = "CLINIC_VISIT"
	ModeMedicalTourism Mode = "MEDICAL_TOURISM"
	ModeInsurance      Mode = "INSURANCE"
)

// AllModes returns every sharing mode in stable order.
func AllModes() []Mode {
	return []Mode{ModeEmergency, ModeClinicVisit, ModeMedicalTourism, ModeInsurance}
}

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool {
	switch m {
	case ModeEmergency, ModeClinicVisit, ModeMedicalTourism, ModeInsurance:
		return true
	}
	return false
}

// SharingPolicy maps to the sharing_policy table: one explicit boolean per
// record category, so adding a category forces a schema change and a
// deliberate default choice rather than an accidental share-everything.
type SharingPolicy struct {
	ID               uuid.UUID `db:"id" json:"id"`
	PatientID        uuid.UUID `db:"patient_id" json:"patient_id"`
	Mode             Mode      `db:"mode" json:"mode"`
	Allergies        bool      `db:"allergies" json:"allergies"`
	Medications      bool      `db:"medications" json:"medications"`
	Conditions       bool      `db:"conditions" json:"conditions"`
	Surgeries        bool      `db:"surgeries" json:"surgeries"`
	Vaccinations     bool      `db:"vaccinations" json:"vaccinations"`
	LabResults       bool      `db:"lab_results" json:"lab_results"`
	Documents        bool      `db:"documents" json:"documents"`
	Insurance        bool      `db:"insurance" json:"insurance"`
	AdvanceDirective bool      `db:"advance_directive" json:"advance_directive"`
	UpdatedAt        time.Time `db:"updated_at" json:"updated_at"`
}

// CategorySet returns the categories this policy allows.
func (p *SharingPolicy) CategorySet() record.CategorySet {
	s := record.NewCategorySet()
	for _, c := range record.AllCategories() {
		if p.allows(c) {
			s.Add(c)
		}
	}
	return s
}

func (p *SharingPolicy) allows(c record.Category) bool {
	switch c {
	case record.CategoryAllergies:
		return p.Allergies
	case record.CategoryMedications:
		return p.Medications
	case record.CategoryConditions:
		return p.Conditions
	case record.CategorySurgeries:
		return p.Surgeries
	case record.CategoryVaccinations:
		return p.Vaccinations
	case record.CategoryLabResults:
		return p.LabResults
	case record.CategoryDocuments:
		return p.Documents
	case record.CategoryInsurance:
		return p.Insurance
	case record.CategoryAdvanceDirective:
		return p.AdvanceDirective
	}
	return false
}

// SetCategory flips a single category flag.
func (p *SharingPolicy) SetCategory(c record.Category, allowed bool) {
	switch c {
	case record.CategoryAllergies:
		p.Allergies = allowed
	case record.CategoryMedications:
		p.Medications = allowed
	case record.CategoryConditions:
		p.Conditions = allowed
	case record.CategorySurgeries:
		p.Surgeries = allowed
	case record.CategoryVaccinations:
		p.Vaccinations = allowed
	case record.CategoryLabResults:
		p.LabResults = allowed
	case record.CategoryDocuments:
		p.Documents = allowed
	case record.CategoryInsurance:
		p.Insurance = allowed
	case record.CategoryAdvanceDirective:
		p.AdvanceDirective = allowed
	}
}

// DefaultPolicy returns the built-in policy for a mode. Patients get these
// rows at registration and can tighten or widen them afterwards.
func DefaultPolicy(patientID uuid.UUID, mode Mode) *SharingPolicy {
	p := &SharingPolicy{PatientID: patientID, Mode: mode}
	for _, c := range defaultCategories(mode) {
		p.SetCategory(c, true)
	}
	return p
}

func defaultCategories(mode Mode) []record.Category {
	switch mode {
	case ModeEmergency:
		return []record.Category{
			record.CategoryAllergies,
			record.CategoryMedications,
			record.CategoryConditions,
			record.CategoryAdvanceDirective,
		}
	case ModeClinicVisit:
		return []record.Category{
			record.CategoryAllergies,
			record.CategoryMedications,
			record.CategoryConditions,
			record.CategorySurgeries,
			record.CategoryVaccinations,
			record.CategoryLabResults,
			record.CategoryDocuments,
			record.CategoryAdvanceDirective,
		}
	case ModeMedicalTourism:
		return []record.Category{
			record.CategoryConditions,
			record.CategorySurgeries,
			record.CategoryLabResults,
			record.CategoryDocuments,
		}
	case ModeInsurance:
		return []record.Category{
			record.CategoryConditions,
			record.CategorySurgeries,
			record.CategoryInsurance,
		}
	}
	return nil
}
