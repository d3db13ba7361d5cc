// ABOUTME: Shared vocabulary for programs, subtypes, eligibility reasons, and document kinds
// ABOUTME: The rule tables in both domain agents are written against these constants

package agents

// Programs.
const (
	ProgramIdentityCard = "CI"
	ProgramSocialAid    = "AS"
)

// Identity-card subtypes.
const (
	SubtypeCEI  = "CEI"  // electronic identity card
	SubtypeCIS  = "CIS"  // simple identity card
	SubtypeVR   = "VR"   // provisional, address-change only
	SubtypeAuto = "auto" // resolve via the eligibility tool
)

// Eligibility reasons.
const (
	ReasonAge14      = "AGE_14"
	ReasonExpiry     = "EXP_60"
	ReasonChangeAddr = "CHANGE_ADDR"
	ReasonLoss       = "LOSS"
	ReasonDisability = "DISABILITY"
	ReasonLowIncome  = "LOW_INCOME"
)

// Document kinds.
const (
	DocBirthCertificate = "birth_certificate"
	DocAddressProof     = "address_proof"
	DocPriorIdentity    = "prior_identity_document"
	DocPoliceReport     = "police_report"
	DocAidRequestForm   = "aid_request_form"
	DocIncomeProof      = "income_proof"
	DocHousingProof     = "housing_proof"
	DocMedicalCert      = "medical_certificate"
)
