package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/patientsportal/portal/internal/portal/domain"
)

type reportsRepo struct {
	db DBTX
}

func (r *reportsRepo) CreateReport(ctx context.Context, rep domain.Report) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO reports (id, patient_id, uploaded_by, title, description, pdf, upload_time)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rep.ID, rep.PatientID, rep.UploadedBy, rep.Title, rep.Description, rep.PDF, utc(rep.UploadTime),
	)
	return mapUnique(err)
}

func (r *reportsRepo) ListReportsByPatient(ctx context.Context, patientID string) ([]domain.Report, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, patient_id, uploaded_by, title, description, upload_time, download_time
		FROM reports
		WHERE patient_id = ?
		ORDER BY upload_time DESC, id DESC`, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.Report{}
	for rows.Next() {
		var (
			rep        domain.Report
			downloaded sql.NullTime
		)
		if err := rows.Scan(&rep.ID, &rep.PatientID, &rep.UploadedBy, &rep.Title, &rep.Description, &rep.UploadTime, &downloaded); err != nil {
			return nil, err
		}
		rep.UploadTime = rep.UploadTime.UTC()
		rep.DownloadTime = mapNullTimePtr(downloaded)
		out = append(out, rep)
	}
	return out, rows.Err()
}

func (r *reportsRepo) GetReportForPatient(ctx context.Context, id, patientID string) (domain.Report, error) {
	var (
		rep        domain.Report
		downloaded sql.NullTime
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, patient_id, uploaded_by, title, description, pdf, upload_time, download_time
		FROM reports
		WHERE id = ? AND patient_id = ?`, id, patientID,
	).Scan(&rep.ID, &rep.PatientID, &rep.UploadedBy, &rep.Title, &rep.Description, &rep.PDF, &rep.UploadTime, &downloaded)
	if err != nil {
		return domain.Report{}, mapNotFound(err)
	}
	rep.UploadTime = rep.UploadTime.UTC()
	rep.DownloadTime = mapNullTimePtr(downloaded)
	return rep, nil
}

func (r *reportsRepo) MarkReportDownloaded(ctx context.Context, id string, now time.Time) error {
	return expectOne(r.db.ExecContext(ctx, `UPDATE reports SET download_time = ? WHERE id = ?`, utc(now), id))
}
