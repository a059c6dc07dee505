package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harborview/timetable-api/internal/models"
	appErrors "github.com/harborview/timetable-api/pkg/errors"
)

func newExportFixture() *ExportService {
	reader := &slotReaderStub{slots: enrollmentSlots()}
	full := &exportReaderStub{inner: reader}
	return NewExportService(full, &catalogLoaderStub{catalog: testCatalog()}, "Harborview High", nil)
}

type exportReaderStub struct {
	inner *slotReaderStub
}

func (s *exportReaderStub) ListByTerm(ctx context.Context, termID string) ([]models.ScheduleSlotRecord, error) {
	return s.inner.ListByTerm(ctx, termID)
}

func (s *exportReaderStub) ListByTeacher(ctx context.Context, termID, _ string) ([]models.ScheduleSlotRecord, error) {
	return s.inner.ListByTerm(ctx, termID)
}

func (s *exportReaderStub) ListByRoom(ctx context.Context, termID, _ string) ([]models.ScheduleSlotRecord, error) {
	return s.inner.ListByTerm(ctx, termID)
}

func TestExportServiceMasterScheduleCSV(t *testing.T) {
	svc := newExportFixture()

	result, err := svc.MasterSchedule(context.Background(), "term-fall", "csv")
	require.NoError(t, err)

	assert.Equal(t, "master-schedule-term-fall.csv", result.Filename)
	assert.Equal(t, "text/csv", result.ContentType)

	content := string(result.Content)
	assert.Contains(t, content, "Day,Period,Course,Section,Teacher,Room")
	assert.Contains(t, content, "MONDAY,1,Algebra I,1,Riley Jones,Room 101")
}

func TestExportServiceMasterSchedulePDF(t *testing.T) {
	svc := newExportFixture()

	result, err := svc.MasterSchedule(context.Background(), "term-fall", "pdf")
	require.NoError(t, err)

	assert.Equal(t, "master-schedule-term-fall.pdf", result.Filename)
	assert.Equal(t, "application/pdf", result.ContentType)
	assert.True(t, len(result.Content) > 0)
}

func TestExportServiceTeacherScheduleFilename(t *testing.T) {
	svc := newExportFixture()

	result, err := svc.TeacherSchedule(context.Background(), "term-fall", "t-jones", "csv")
	require.NoError(t, err)
	assert.Equal(t, "teacher-schedule-t-jones.csv", result.Filename)
}

func TestExportServiceUnsupportedFormat(t *testing.T) {
	svc := newExportFixture()

	_, err := svc.MasterSchedule(context.Background(), "term-fall", "xlsx")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
