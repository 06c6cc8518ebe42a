package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/classroom-api/internal/middleware"
	"github.com/noah-isme/classroom-api/internal/models"
	"github.com/noah-isme/classroom-api/internal/service"
	appErrors "github.com/noah-isme/classroom-api/pkg/errors"
)

type responseEnvelope struct {
	Data  json.RawMessage        `json:"data"`
	Error *appErrors.Error       `json:"error"`
	Meta  map[string]interface{} `json:"meta"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) responseEnvelope {
	t.Helper()
	var env responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func newTestContext(method, target string, body []byte) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(method, target, bytes.NewReader(body))
	if body != nil {
		c.Request.Header.Set("Content-Type", "application/json")
	}
	return c, rec
}

type fakeRankingSrv struct {
	board  *models.Leaderboard
	hit    bool
	err    error
	examID string
}

func (f *fakeRankingSrv) Leaderboard(_ context.Context, examID string) (*models.Leaderboard, bool, error) {
	f.examID = examID
	return f.board, f.hit, f.err
}

func TestRankingHandlerReportsCacheHit(t *testing.T) {
	srv := &fakeRankingSrv{board: &models.Leaderboard{ExamID: "exam-1", Entries: []models.RankingEntry{{Rank: 1, StudentID: "2APIC-1-1"}}}, hit: true}
	h := NewRankingHandler(srv)

	c, rec := newTestContext(http.MethodGet, "/rankings/exam-1", nil)
	c.Params = gin.Params{{Key: "examId", Value: "exam-1"}}
	h.Leaderboard(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "exam-1", srv.examID)
	env := decodeEnvelope(t, rec)
	assert.Equal(t, true, env.Meta["cache_hit"])

	var board models.Leaderboard
	require.NoError(t, json.Unmarshal(env.Data, &board))
	require.Len(t, board.Entries, 1)
	assert.Equal(t, 1, board.Entries[0].Rank)
}

func TestRankingHandlerPropagatesValidation(t *testing.T) {
	h := NewRankingHandler(&fakeRankingSrv{err: appErrors.Clone(appErrors.ErrValidation, "exam id is required")})

	c, rec := newTestContext(http.MethodGet, "/rankings/%20", nil)
	h.Leaderboard(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, appErrors.ErrValidation.Code, decodeEnvelope(t, rec).Error.Code)
}

type fakeResultSrv struct {
	studentID string
	req       service.SubmitResultRequest
	result    *models.ExamResult
	sheet     *models.GradeSheet
	err       error
}

func (f *fakeResultSrv) Submit(_ context.Context, studentID string, req service.SubmitResultRequest) (*models.ExamResult, error) {
	f.studentID = studentID
	f.req = req
	return f.result, f.err
}

func (f *fakeResultSrv) GradeSheet(_ context.Context, studentID string) (*models.GradeSheet, error) {
	f.studentID = studentID
	return f.sheet, f.err
}

func TestResultHandlerSubmit(t *testing.T) {
	srv := &fakeResultSrv{result: &models.ExamResult{ID: "r1", ExamID: "exam-1", Attempt: 2}}
	h := NewResultHandler(srv)

	c, rec := newTestContext(http.MethodPost, "/students/2APIC-1-1/results", []byte(`{"exam_id":"exam-1","score":14.5,"duration":300}`))
	c.Params = gin.Params{{Key: "id", Value: "2APIC-1-1"}}
	h.Submit(c)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "2APIC-1-1", srv.studentID)
	require.NotNil(t, srv.req.Score)
	assert.Equal(t, 14.5, *srv.req.Score)
}

func TestResultHandlerSubmitRejectsMalformedJSON(t *testing.T) {
	h := NewResultHandler(&fakeResultSrv{})

	c, rec := newTestContext(http.MethodPost, "/students/x/results", []byte(`{"score":`))
	h.Submit(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestResultHandlerGradeSheetNotFound(t *testing.T) {
	h := NewResultHandler(&fakeResultSrv{err: appErrors.Clone(appErrors.ErrNotFound, "student not found")})

	c, rec := newTestContext(http.MethodGet, "/students/ghost/results", nil)
	c.Params = gin.Params{{Key: "id", Value: "ghost"}}
	h.GradeSheet(c)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

type fakeProfileSrv struct {
	studentID, examID string
	viewer            models.UserRole
}

func (f *fakeProfileSrv) Get(_ context.Context, studentID, examID string, viewer models.UserRole) (*models.StudentProfile, error) {
	f.studentID, f.examID, f.viewer = studentID, examID, viewer
	return &models.StudentProfile{Student: models.Student{ID: studentID}, ExamID: examID}, nil
}

func TestProfileHandlerPassesExamID(t *testing.T) {
	srv := &fakeProfileSrv{}
	h := NewProfileHandler(srv)

	c, rec := newTestContext(http.MethodGet, "/students/2APIC-1-1/profile?examId=exam-2", nil)
	c.Params = gin.Params{{Key: "id", Value: "2APIC-1-1"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "2APIC-1-1", Role: models.RoleStudent})
	h.Get(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "exam-2", srv.examID)
	assert.Equal(t, models.RoleStudent, srv.viewer)
	assert.Contains(t, rec.Body.String(), `"ranking":null`)
}

type staticCatalog struct {
	units []models.Unit
	exams []models.Exam
}

func (s staticCatalog) Units() []models.Unit { return s.units }
func (s staticCatalog) Exams() []models.Exam { return s.exams }

func TestCatalogHandlerEmptyListsAreArrays(t *testing.T) {
	h := NewCatalogHandler(staticCatalog{})

	c, rec := newTestContext(http.MethodGet, "/catalog/units", nil)
	h.Units(c)
	assert.JSONEq(t, `{"data":[]}`, rec.Body.String())

	c, rec = newTestContext(http.MethodGet, "/catalog/exams", nil)
	h.Exams(c)
	assert.JSONEq(t, `{"data":[]}`, rec.Body.String())
}

func TestAuthHandlerMe(t *testing.T) {
	h := NewAuthHandler(nil)

	c, rec := newTestContext(http.MethodGet, "/auth/me", nil)
	h.Me(c)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	c, rec = newTestContext(http.MethodGet, "/auth/me", nil)
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "2APIC-1-1", Role: models.RoleStudent, FullName: "Amine Idrissi"})
	h.Me(c)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"full_name":"Amine Idrissi"`)
}

type fakeExportSrv struct {
	path string
	err  error
}

func (f *fakeExportSrv) ExportLeaderboard(_ context.Context, examID, format string) (*service.ExportTicket, error) {
	return &service.ExportTicket{ID: "t1", FileName: "rankings-" + examID + "." + format}, f.err
}

func (f *fakeExportSrv) ExportGradeSheet(_ context.Context, studentID, format string) (*service.ExportTicket, error) {
	return &service.ExportTicket{ID: "t2", FileName: "grades-" + studentID + "." + format}, f.err
}

func (f *fakeExportSrv) Open(string) (*service.ExportDownload, error) {
	if f.err != nil {
		return nil, f.err
	}
	file, err := os.Open(f.path)
	if err != nil {
		return nil, err
	}
	return &service.ExportDownload{File: file, FileName: filepath.Base(f.path), ContentType: "text/csv; charset=utf-8"}, nil
}

func TestExportHandlerDownload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rankings-exam-1.csv")
	require.NoError(t, os.WriteFile(path, []byte("Rang,Nom\n1,Amine\n"), 0o644))
	h := NewExportHandler(&fakeExportSrv{path: path})

	c, rec := newTestContext(http.MethodGet, "/exports/tok", nil)
	h.Download(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `attachment; filename="rankings-exam-1.csv"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "Rang,Nom\n1,Amine\n", rec.Body.String())
}

func TestExportHandlerDownloadExpired(t *testing.T) {
	h := NewExportHandler(&fakeExportSrv{err: appErrors.Clone(appErrors.ErrForbidden, "download link expired")})

	c, rec := newTestContext(http.MethodGet, "/exports/tok", nil)
	h.Download(c)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

type fakePinger struct{ err error }

func (f fakePinger) Ping(context.Context) error { return f.err }

func TestMetricsHandlerReady(t *testing.T) {
	c, rec := newTestContext(http.MethodGet, "/ready", nil)
	NewMetricsHandler(nil, fakePinger{}, nil).Ready(c)
	assert.Equal(t, http.StatusOK, rec.Code)

	c, rec = newTestContext(http.MethodGet, "/ready", nil)
	NewMetricsHandler(nil, fakePinger{err: assert.AnError}, nil).Ready(c)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
