package http

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/patientsportal/portal/internal/portal/service"
	"github.com/patientsportal/portal/pkg/httpx"
	"github.com/patientsportal/portal/pkg/portalsdk"
)

// MaxReportUpload caps the multipart body of an upload.
const MaxReportUpload = 20 << 20

type ReportsHandler struct {
	ReportService *service.ReportService
}

// HandleList handles GET /v1/patient/{email}/reports
//
//	@Summary		List the caller's reports
//	@Tags			Reports
//	@Security		BearerAuth
//	@Produce		json
//	@Param			email	path		string	true	"Patient email, must match the token"
//	@Success		200		{array}		portalsdk.ReportSummary
//	@Failure		401		{object}	portalsdk.ErrorResponse
//	@Failure		403		{object}	portalsdk.ErrorResponse	"Email does not match the token"
//	@Router			/v1/patient/{email}/reports [get].
func (h *ReportsHandler) HandleList(w http.ResponseWriter, r *http.Request, p httpx.Principal) {
	reports, err := h.ReportService.ListForPatient(r.Context(), p.Email)
	if err != nil {
		writeError(w, r, err)
		return
	}

	out := make([]portalsdk.ReportSummary, 0, len(reports))
	for _, rep := range reports {
		out = append(out, portalsdk.ReportSummary{
			ID:           rep.ID,
			Title:        rep.Title,
			Description:  rep.Description,
			UploadTime:   rep.UploadTime,
			DownloadTime: rep.DownloadTime,
		})
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

// HandleDownload handles GET /v1/patient/{email}/reports/{reportId}/download
//
//	@Summary		Download one of the caller's reports
//	@Tags			Reports
//	@Security		BearerAuth
//	@Produce		application/pdf
//	@Param			email		path		string	true	"Patient email, must match the token"
//	@Param			reportId	path		string	true	"Report id"
//	@Success		200			{file}		file
//	@Failure		400			{object}	portalsdk.ErrorResponse	"Report has no content"
//	@Failure		401			{object}	portalsdk.ErrorResponse
//	@Failure		403			{object}	portalsdk.ErrorResponse
//	@Failure		404			{object}	portalsdk.ErrorResponse
//	@Router			/v1/patient/{email}/reports/{reportId}/download [get].
func (h *ReportsHandler) HandleDownload(w http.ResponseWriter, r *http.Request, p httpx.Principal) {
	rep, err := h.ReportService.Download(r.Context(), p.Email, r.PathValue("reportId"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	httpx.NoCache(w)
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{
		"filename": rep.Title + ".pdf",
	}))
	w.Header().Set("Content-Length", strconv.Itoa(len(rep.PDF)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(rep.PDF)
}

// HandlePatients handles GET /v1/admin/patients
//
//	@Summary		List patients
//	@Tags			Admin
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{array}		portalsdk.PatientSummary
//	@Failure		401	{object}	portalsdk.ErrorResponse
//	@Failure		403	{object}	portalsdk.ErrorResponse
//	@Router			/v1/admin/patients [get].
func (h *ReportsHandler) HandlePatients(w http.ResponseWriter, r *http.Request, _ httpx.Principal) {
	patients, err := h.ReportService.ListPatients(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	out := make([]portalsdk.PatientSummary, 0, len(patients))
	for _, a := range patients {
		out = append(out, portalsdk.PatientSummary{
			ID:          a.ID,
			Email:       a.Email,
			FirstName:   a.FirstName,
			LastName:    a.LastName,
			PhoneNumber: a.PhoneNumber,
		})
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

// HandleUpload handles POST /v1/admin/reports
//
//	@Summary		Upload a report for a patient
//	@Tags			Admin
//	@Security		BearerAuth
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			patientId			formData	string	true	"Patient account id"
//	@Param			reportTitle			formData	string	true	"Title"
//	@Param			reportDescription	formData	string	false	"Description"
//	@Param			reportPdf			formData	file	true	"PDF file"
//	@Success		201					{object}	portalsdk.UploadReportResponse
//	@Failure		400					{object}	portalsdk.ErrorResponse
//	@Failure		401					{object}	portalsdk.ErrorResponse
//	@Failure		403					{object}	portalsdk.ErrorResponse
//	@Failure		404					{object}	portalsdk.ErrorResponse	"Unknown patient"
//	@Router			/v1/admin/reports [post].
func (h *ReportsHandler) HandleUpload(w http.ResponseWriter, r *http.Request, p httpx.Principal) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxReportUpload)
	if err := r.ParseMultipartForm(MaxReportUpload); err != nil {
		portalsdk.NewAPIError(http.StatusBadRequest, portalsdk.ErrorCodeInvalidRequest, "expected a multipart form").WriteError(w)
		return
	}

	req := portalsdk.UploadReportRequest{
		PatientID:   r.FormValue("patientId"),
		Title:       r.FormValue("reportTitle"),
		Description: r.FormValue("reportDescription"),
	}

	f, hdr, err := r.FormFile("reportPdf")
	switch {
	case errors.Is(err, http.ErrMissingFile):
	case err != nil:
		portalsdk.ErrInvalidRequest.WriteError(w)
		return
	default:
		defer f.Close()
		req.FileName = hdr.Filename
		if req.PDF, err = io.ReadAll(f); err != nil {
			portalsdk.ErrInvalidRequest.WriteError(w)
			return
		}
	}

	rep, err := h.ReportService.Upload(r.Context(), p.Subject, req)
	if err != nil {
		if errors.Is(err, service.ErrAccountNotFound) {
			portalsdk.ErrPatientNotFound.WriteError(w)
			return
		}
		writeError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, portalsdk.UploadReportResponse{
		Message:  "report uploaded",
		ReportID: rep.ID,
	})
}
