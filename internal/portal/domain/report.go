package domain

import "time"

// Report is a PDF uploaded by an Admin for a Patient.
type Report struct {
	ID           string
	PatientID    string
	UploadedBy   string
	Title        string
	Description  string
	PDF          []byte // empty in list results
	UploadTime   time.Time
	DownloadTime *time.Time
}
