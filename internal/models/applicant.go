package models

import "time"

// ApplicantRecord is the canonical row shape for the Excel export. Both
// upstream collections ("candidates" and "students") are normalized into
// this one type by explicit per-source adapters.
type ApplicantRecord struct {
	SourceID       string
	Source         string // "candidates" or "students"
	FullName       string
	Email          string
	Phone          string
	Gender         string
	DateOfBirth    string
	Address        string
	City           string
	State          string
	Country        string
	Pincode        string
	Qualification  string
	Specialization string
	University     string
	GraduationYear string
	ExperienceYrs  string
	CurrentCompany string
	CurrentRole    string
	ExpectedSalary string
	NoticePeriod   string
	Skills         string
	ResumeURL      string
	IDProofURL     string
	PhotoURL       string
	AppliedAt      time.Time
}
