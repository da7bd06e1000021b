package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strconv"
	"time"

	"ironworks/gym-app/internal/domain"
	"ironworks/gym-app/internal/repository"
	"ironworks/gym-app/internal/storage"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

var exportHeader = []string{"date", "userId", "userName", "checkInTime", "isManual", "recordedBy", "notes"}

// ExportResult is a stored export together with a temporary download link.
type ExportResult struct {
	Export      *domain.AttendanceExport `json:"export"`
	DownloadURL string                   `json:"downloadUrl"`
	ExpiresAt   time.Time                `json:"expiresAt"`
}

type ExportService interface {
	// ExportMonthlyAttendance writes every check-in of month (YYYY-MM) to a
	// CSV object and returns a presigned download URL for it.
	ExportMonthlyAttendance(ctx context.Context, month, requestedBy string) (*ExportResult, error)
}

// exportService implements the ExportService interface.
type exportService struct {
	attendanceRepo repository.AttendanceRepository
	userRepo       repository.UserRepository
	exportRepo     repository.ExportRepository
	fileStorage    storage.FileStorage
	log            *zap.Logger
	now            Clock
}

func NewExportService(
	attendanceRepo repository.AttendanceRepository,
	userRepo repository.UserRepository,
	exportRepo repository.ExportRepository,
	fileStorage storage.FileStorage,
	log *zap.Logger,
	now Clock,
) ExportService {
	if log == nil {
		log = zap.NewNop()
	}
	return &exportService{
		attendanceRepo: attendanceRepo,
		userRepo:       userRepo,
		exportRepo:     exportRepo,
		fileStorage:    fileStorage,
		log:            log,
		now:            orSystemClock(now),
	}
}

func (s *exportService) ExportMonthlyAttendance(ctx context.Context, month, requestedBy string) (*ExportResult, error) {
	from, err := parseMonth(month)
	if err != nil {
		return nil, err
	}
	to := from.AddDate(0, 1, 0)

	records, err := s.attendanceRepo.ListBetween(ctx, from, to)
	if err != nil {
		return nil, err
	}

	body, err := s.renderCSV(ctx, records)
	if err != nil {
		s.log.Error("failed to render attendance export", zap.String("month", month), zap.Error(err))
		return nil, ErrExportFailed
	}

	// Generate a unique object key
	objectKey := fmt.Sprintf("exports/attendance/%s/%s.csv", month, uuid.NewString())
	size := int64(len(body))

	if err := s.fileStorage.PutObject(ctx, objectKey, "text/csv", bytes.NewReader(body), size); err != nil {
		s.log.Error("failed to upload attendance export", zap.String("objectKey", objectKey), zap.Error(err))
		return nil, ErrExportFailed
	}

	export := &domain.AttendanceExport{
		Month:       month,
		S3ObjectKey: objectKey,
		FileName:    fmt.Sprintf("attendance-%s.csv", month),
		RowCount:    len(records),
		Size:        size,
		RequestedBy: requestedBy,
		CreatedAt:   s.now(),
	}
	id, err := s.exportRepo.Create(ctx, export)
	if err != nil {
		// Don't leave an object nobody can find
		if delErr := s.fileStorage.DeleteObject(context.WithoutCancel(ctx), objectKey); delErr != nil {
			s.log.Warn("failed to clean up orphaned export", zap.String("objectKey", objectKey), zap.Error(delErr))
		}
		return nil, err
	}
	export.ID = id

	url, err := s.fileStorage.GeneratePresignedDownloadURL(ctx, objectKey, storage.DefaultPresignedURLExpiry)
	if err != nil {
		s.log.Error("failed to presign attendance export", zap.String("objectKey", objectKey), zap.Error(err))
		return nil, ErrExportFailed
	}

	s.log.Info("attendance export created",
		zap.String("month", month),
		zap.Int("rows", export.RowCount),
		zap.String("objectKey", objectKey),
	)
	return &ExportResult{
		Export:      export,
		DownloadURL: url,
		ExpiresAt:   s.now().Add(storage.DefaultPresignedURLExpiry),
	}, nil
}

func (s *exportService) renderCSV(ctx context.Context, records []domain.AttendanceRecord) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(exportHeader); err != nil {
		return nil, err
	}

	names, err := s.memberNames(ctx, records)
	if err != nil {
		return nil, err
	}
	for _, r := range records {
		row := []string{
			r.Date.Format(dayLayout),
			r.UserID,
			names[r.UserID],
			r.CheckInTime.UTC().Format(time.RFC3339),
			strconv.FormatBool(r.IsManual),
			r.RecordedBy,
			r.Notes,
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// memberNames resolves display names for every member in records with a
// single lookup. Ids that are not accounts export with a blank name.
func (s *exportService) memberNames(ctx context.Context, records []domain.AttendanceRecord) (map[string]string, error) {
	seen := map[primitive.ObjectID]struct{}{}
	ids := []primitive.ObjectID{}
	for _, r := range records {
		oid, err := primitive.ObjectIDFromHex(r.UserID)
		if err != nil {
			continue
		}
		if _, ok := seen[oid]; !ok {
			seen[oid] = struct{}{}
			ids = append(ids, oid)
		}
	}

	names := make(map[string]string, len(ids))
	if len(ids) == 0 {
		return names, nil
	}
	users, err := s.userRepo.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, u := range users {
		names[u.ID.Hex()] = u.Name
	}
	return names, nil
}
