package service

import (
	"context"
	"encoding/csv"
	"errors"
	"strings"
	"testing"
	"time"

	"ironworks/gym-app/internal/domain"
	"ironworks/gym-app/internal/repository"
	"ironworks/gym-app/internal/repository/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type exportFixture struct {
	attendance repository.AttendanceRepository
	users      repository.UserRepository
	exports    repository.ExportRepository
	storage    *fakeStorage
	clock      *fakeClock
}

func newExportFixture(t *testing.T) *exportFixture {
	t.Helper()
	f := &exportFixture{
		attendance: memory.NewAttendanceRepository(),
		users:      memory.NewUserRepository(),
		exports:    memory.NewExportRepository(),
		storage:    newFakeStorage(),
		clock:      newFakeClock(time.Date(2025, 11, 2, 8, 0, 0, 0, time.UTC)),
	}

	ctx := context.Background()
	uid, err := f.users.Create(ctx, &domain.User{Name: "Ada", Email: "ada@example.com", PasswordHash: "x", Role: domain.RoleMember})
	require.NoError(t, err)

	for _, d := range []int{3, 1} {
		_, err := f.attendance.Create(ctx, &domain.AttendanceRecord{
			UserID:      uid.Hex(),
			Date:        time.Date(2025, 10, d, 0, 0, 0, 0, time.UTC),
			CheckInTime: time.Date(2025, 10, d, 7, 30, 0, 0, time.UTC),
			Notes:       "early, sweaty",
		})
		require.NoError(t, err)
	}
	_, err = f.attendance.Create(ctx, &domain.AttendanceRecord{
		UserID:      "walk-in",
		Date:        time.Date(2025, 10, 2, 0, 0, 0, 0, time.UTC),
		CheckInTime: time.Date(2025, 10, 2, 18, 0, 0, 0, time.UTC),
		IsManual:    true,
		RecordedBy:  "trainer-1",
	})
	require.NoError(t, err)
	// Outside the exported month.
	_, err = f.attendance.Create(ctx, &domain.AttendanceRecord{
		UserID: uid.Hex(),
		Date:   time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	return f
}

func (f *exportFixture) service(exports repository.ExportRepository) ExportService {
	return NewExportService(f.attendance, f.users, exports, f.storage, zap.NewNop(), f.clock.Now)
}

func TestExportMonthlyAttendance(t *testing.T) {
	f := newExportFixture(t)
	ctx := context.Background()

	result, err := f.service(f.exports).ExportMonthlyAttendance(ctx, "2025-10", "admin-1")
	require.NoError(t, err)

	export := result.Export
	assert.Equal(t, "2025-10", export.Month)
	assert.Equal(t, 3, export.RowCount)
	assert.Equal(t, "attendance-2025-10.csv", export.FileName)
	assert.Equal(t, "admin-1", export.RequestedBy)
	assert.True(t, strings.HasPrefix(export.S3ObjectKey, "exports/attendance/2025-10/"))
	assert.Contains(t, result.DownloadURL, export.S3ObjectKey)
	assert.Equal(t, f.clock.Now().Add(15*time.Minute), result.ExpiresAt)

	stored, err := f.exports.GetByID(ctx, export.ID)
	require.NoError(t, err)
	assert.Equal(t, export.S3ObjectKey, stored.S3ObjectKey)

	body, ok := f.storage.objects[export.S3ObjectKey]
	require.True(t, ok)
	assert.Equal(t, int64(len(body)), export.Size)

	rows, err := csv.NewReader(strings.NewReader(string(body))).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, exportHeader, rows[0])
	assert.Equal(t, "2025-10-01", rows[1][0])
	assert.Equal(t, "Ada", rows[1][2])
	assert.Equal(t, "2025-10-01T07:30:00Z", rows[1][3])
	assert.Equal(t, "early, sweaty", rows[1][6])
	assert.Equal(t, []string{"2025-10-02", "walk-in", "", "2025-10-02T18:00:00Z", "true", "trainer-1", ""}, rows[2])
	assert.Equal(t, "2025-10-03", rows[3][0])
}

func TestExportRejectsBadMonth(t *testing.T) {
	f := newExportFixture(t)
	_, err := f.service(f.exports).ExportMonthlyAttendance(context.Background(), "October", "admin-1")
	assert.ErrorIs(t, err, ErrInvalidMonth)
}

func TestExportUploadFailure(t *testing.T) {
	f := newExportFixture(t)
	f.storage.putErr = errors.New("bucket gone")

	_, err := f.service(f.exports).ExportMonthlyAttendance(context.Background(), "2025-10", "admin-1")
	assert.ErrorIs(t, err, ErrExportFailed)
	assert.Equal(t, KindInternal, KindOf(err))
}

func TestExportCleansUpWhenMetadataFails(t *testing.T) {
	f := newExportFixture(t)

	_, err := f.service(failingExportRepo{}).ExportMonthlyAttendance(context.Background(), "2025-10", "admin-1")
	assert.Error(t, err)
	assert.Empty(t, f.storage.objects)
}
