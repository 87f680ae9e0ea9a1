package export

import (
	"fmt"
	"strings"
	"time"

	"github.com/hireflow/hireflow/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// The two upstream collections store the same person differently. Each
// source gets its own explicit adapter into the canonical record; no
// consumer touches the raw documents.

// FromCandidateDoc maps one "candidates" document.
func FromCandidateDoc(doc bson.M) models.ApplicantRecord {
	return models.ApplicantRecord{
		SourceID:       docID(doc),
		Source:         "candidates",
		FullName:       str(doc, "fullName", "name"),
		Email:          str(doc, "email"),
		Phone:          str(doc, "phone", "phoneNumber"),
		Gender:         str(doc, "gender"),
		DateOfBirth:    str(doc, "dateOfBirth", "dob"),
		Address:        str(doc, "address"),
		City:           str(doc, "city"),
		State:          str(doc, "state"),
		Country:        str(doc, "country"),
		Pincode:        str(doc, "pincode", "zipCode"),
		Qualification:  str(doc, "qualification", "highestQualification"),
		Specialization: str(doc, "specialization"),
		University:     str(doc, "university"),
		GraduationYear: str(doc, "graduationYear", "yearOfPassing"),
		ExperienceYrs:  str(doc, "experience", "totalExperience"),
		CurrentCompany: str(doc, "currentCompany"),
		CurrentRole:    str(doc, "currentRole", "designation"),
		ExpectedSalary: str(doc, "expectedSalary"),
		NoticePeriod:   str(doc, "noticePeriod"),
		Skills:         joined(doc, "skills"),
		ResumeURL:      str(doc, "resumeUrl", "resume"),
		IDProofURL:     str(doc, "idProofUrl", "idProof"),
		PhotoURL:       str(doc, "photoUrl", "photo"),
		AppliedAt:      when(doc, "appliedAt", "createdAt"),
	}
}

// FromStudentDoc maps one "students" document, whose field names differ
// from the candidates collection.
func FromStudentDoc(doc bson.M) models.ApplicantRecord {
	return models.ApplicantRecord{
		SourceID:       docID(doc),
		Source:         "students",
		FullName:       fullName(doc),
		Email:          str(doc, "email", "emailId"),
		Phone:          str(doc, "mobile", "contactNumber"),
		Gender:         str(doc, "gender"),
		DateOfBirth:    str(doc, "dob", "birthDate"),
		Address:        str(doc, "permanentAddress", "address"),
		City:           str(doc, "city"),
		State:          str(doc, "state"),
		Country:        str(doc, "country"),
		Pincode:        str(doc, "pin", "pincode"),
		Qualification:  str(doc, "degree", "course"),
		Specialization: str(doc, "branch", "stream"),
		University:     str(doc, "college", "institution"),
		GraduationYear: str(doc, "passingYear", "batch"),
		ExperienceYrs:  str(doc, "experience"),
		CurrentCompany: str(doc, "company"),
		CurrentRole:    str(doc, "role"),
		ExpectedSalary: str(doc, "expectedCtc"),
		NoticePeriod:   str(doc, "noticePeriod"),
		Skills:         joined(doc, "skills", "technologies"),
		ResumeURL:      str(doc, "resumeLink", "resumeUrl"),
		IDProofURL:     str(doc, "idCardUrl", "idProofUrl"),
		PhotoURL:       str(doc, "profilePhoto", "photoUrl"),
		AppliedAt:      when(doc, "registeredAt", "createdAt"),
	}
}

func docID(doc bson.M) string {
	switch id := doc["_id"].(type) {
	case string:
		return id
	case primitive.ObjectID:
		return id.Hex()
	default:
		return fmt.Sprintf("%v", id)
	}
}

// str returns the first non-empty string among the listed keys.
func str(doc bson.M, keys ...string) string {
	for _, key := range keys {
		if v, ok := doc[key].(string); ok && v != "" {
			return v
		}
		// Numeric fields occasionally arrive as numbers upstream.
		switch v := doc[key].(type) {
		case int32:
			return fmt.Sprintf("%d", v)
		case int64:
			return fmt.Sprintf("%d", v)
		case float64:
			if v == float64(int64(v)) {
				return fmt.Sprintf("%d", int64(v))
			}
			return fmt.Sprintf("%g", v)
		}
	}
	return ""
}

func fullName(doc bson.M) string {
	if name := str(doc, "fullName", "name"); name != "" {
		return name
	}
	first := str(doc, "firstName")
	last := str(doc, "lastName")
	return strings.TrimSpace(first + " " + last)
}

func joined(doc bson.M, keys ...string) string {
	for _, key := range keys {
		switch v := doc[key].(type) {
		case string:
			if v != "" {
				return v
			}
		case bson.A:
			parts := make([]string, 0, len(v))
			for _, item := range v {
				if s, ok := item.(string); ok {
					parts = append(parts, s)
				}
			}
			if len(parts) > 0 {
				return strings.Join(parts, ", ")
			}
		}
	}
	return ""
}

func when(doc bson.M, keys ...string) time.Time {
	for _, key := range keys {
		switch v := doc[key].(type) {
		case time.Time:
			return v
		case primitive.DateTime:
			return v.Time()
		}
	}
	return time.Time{}
}
