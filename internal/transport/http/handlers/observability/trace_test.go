package observability

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"traceroot/internal/core/domain/observability"
	"traceroot/internal/core/domain/organization"
	"traceroot/internal/core/domain/project"
	"traceroot/internal/core/domain/user"
	"traceroot/internal/transport/http/middleware"
	appErrors "traceroot/pkg/errors"
	"traceroot/pkg/pagination"
	"traceroot/pkg/ulid"
)

type fakeUserService struct{}

func (f *fakeUserService) Resolve(ctx context.Context, identity user.Identity) (*user.User, error) {
	return &user.User{ID: identity.Subject}, nil
}

func (f *fakeUserService) GetByID(ctx context.Context, id string) (*user.User, error) {
	return &user.User{ID: id}, nil
}

type fakeProjectRepo struct {
	project *project.Project
}

func (f *fakeProjectRepo) Create(ctx context.Context, p *project.Project) error { panic("not used") }

func (f *fakeProjectRepo) GetByID(ctx context.Context, id ulid.ULID) (*project.Project, error) {
	if f.project == nil || f.project.ID != id {
		return nil, project.ErrNotFound
	}
	return f.project, nil
}

func (f *fakeProjectRepo) ListByOrganization(ctx context.Context, orgID ulid.ULID) ([]*project.Project, error) {
	panic("not used")
}

func (f *fakeProjectRepo) NameExists(ctx context.Context, orgID ulid.ULID, name string) (bool, error) {
	panic("not used")
}

func (f *fakeProjectRepo) Update(ctx context.Context, p *project.Project) error { panic("not used") }
func (f *fakeProjectRepo) SoftDelete(ctx context.Context, id ulid.ULID) error   { panic("not used") }

type fakeMemberRepo struct {
	members map[string]*organization.Member
}

func (f *fakeMemberRepo) Create(ctx context.Context, m *organization.Member) error {
	panic("not used")
}

func (f *fakeMemberRepo) Get(ctx context.Context, orgID ulid.ULID, userID string) (*organization.Member, error) {
	m, ok := f.members[orgID.String()+"/"+userID]
	if !ok {
		return nil, organization.ErrMemberNotFound
	}
	return m, nil
}

func (f *fakeMemberRepo) ListByOrganization(ctx context.Context, orgID ulid.ULID) ([]*organization.MemberInfo, error) {
	panic("not used")
}

func (f *fakeMemberRepo) CountOwners(ctx context.Context, orgID ulid.ULID) (int64, error) {
	panic("not used")
}

func (f *fakeMemberRepo) UpdateRole(ctx context.Context, orgID ulid.ULID, userID string, role organization.Role) error {
	panic("not used")
}

func (f *fakeMemberRepo) Delete(ctx context.Context, orgID ulid.ULID, userID string) error {
	panic("not used")
}

type fakeTraceService struct {
	items      []*observability.TraceListItem
	total      int64
	trace      *observability.TraceWithSpans
	lastFilter observability.TraceFilter
	calls      int
}

func (f *fakeTraceService) ListTraces(ctx context.Context, filter observability.TraceFilter) ([]*observability.TraceListItem, pagination.Meta, error) {
	f.calls++
	f.lastFilter = filter
	return f.items, pagination.NewMeta(filter.Params, f.total), nil
}

func (f *fakeTraceService) GetTrace(ctx context.Context, projectID, traceID string) (*observability.TraceWithSpans, error) {
	f.calls++
	if f.trace == nil || f.trace.TraceID != traceID {
		return nil, appErrors.NewNotFoundError("trace")
	}
	return f.trace, nil
}

type readFixture struct {
	router    *gin.Engine
	traces    *fakeTraceService
	projectID ulid.ULID
	memberID  string
}

func newReadFixture(t *testing.T) *readFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	orgID := ulid.New()
	projectID := ulid.New()
	projects := &fakeProjectRepo{project: &project.Project{ID: projectID, OrgID: orgID, Name: "checkout"}}
	members := &fakeMemberRepo{members: map[string]*organization.Member{
		orgID.String() + "/member-1": {OrgID: orgID, UserID: "member-1", Role: organization.RoleViewer},
	}}
	traces := &fakeTraceService{}
	handler := NewTraceHandler(traces)

	router := gin.New()
	group := router.Group("/projects/:projectId",
		middleware.Identity(&fakeUserService{}, logger),
		middleware.ProjectAccess(projects, members),
	)
	group.GET("/traces", handler.ListTraces)
	group.GET("/traces/:traceId", handler.GetTrace)

	return &readFixture{router: router, traces: traces, projectID: projectID, memberID: "member-1"}
}

func (f *readFixture) get(path, asUser string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if asUser != "" {
		req.Header.Set(middleware.HeaderUserID, asUser)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func TestListTracesEmptyPage(t *testing.T) {
	f := newReadFixture(t)

	rec := f.get("/projects/"+f.projectID.String()+"/traces", f.memberID)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data []json.RawMessage `json:"data"`
		Meta pagination.Meta   `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotNil(t, resp.Data)
	assert.Empty(t, resp.Data)
	assert.Equal(t, pagination.Meta{Page: 0, Limit: pagination.DefaultLimit, Total: 0}, resp.Meta)
	// data must be a JSON array even when the page is empty.
	assert.Contains(t, rec.Body.String(), `"data":[]`)
}

func TestListTracesBeyondLastPage(t *testing.T) {
	f := newReadFixture(t)
	f.traces.total = 3

	rec := f.get("/projects/"+f.projectID.String()+"/traces?page=5", f.memberID)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data []json.RawMessage `json:"data"`
		Meta pagination.Meta   `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Empty(t, resp.Data)
	// The requested page is echoed back with the real total so clients can
	// tell an out-of-range page from an empty collection.
	assert.Equal(t, pagination.Meta{Page: 5, Limit: pagination.DefaultLimit, Total: 3}, resp.Meta)
}

func TestListTracesNormalizesQuery(t *testing.T) {
	f := newReadFixture(t)

	rec := f.get("/projects/"+f.projectID.String()+"/traces?page=-4&limit=9999&name=agent", f.memberID)
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, f.projectID.String(), f.traces.lastFilter.ProjectID)
	assert.Equal(t, "agent", f.traces.lastFilter.Name)
	assert.Equal(t, 0, f.traces.lastFilter.Page)
	assert.Equal(t, pagination.MaxLimit, f.traces.lastFilter.Limit)
}

func TestListTracesWithRows(t *testing.T) {
	f := newReadFixture(t)
	duration := int64(1250)
	f.traces.items = []*observability.TraceListItem{{
		TraceID:        "0123456789abcdef0123456789abcdef",
		ProjectID:      f.projectID.String(),
		Name:           "checkout-flow",
		TraceStartTime: time.Now().UTC(),
		SpanCount:      4,
		DurationMs:     &duration,
		Status:         "error",
	}}
	f.traces.total = 1

	rec := f.get("/projects/"+f.projectID.String()+"/traces", f.memberID)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"spanCount":4`)
	assert.Contains(t, rec.Body.String(), `"status":"error"`)
	assert.Contains(t, rec.Body.String(), `"total":1`)
}

func TestListTracesRequiresIdentity(t *testing.T) {
	f := newReadFixture(t)

	rec := f.get("/projects/"+f.projectID.String()+"/traces", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Zero(t, f.traces.calls)
}

func TestListTracesForbiddenForNonMember(t *testing.T) {
	f := newReadFixture(t)

	rec := f.get("/projects/"+f.projectID.String()+"/traces", "stranger")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Zero(t, f.traces.calls)
}

func TestListTracesUnknownProject(t *testing.T) {
	f := newReadFixture(t)

	rec := f.get("/projects/"+ulid.New().String()+"/traces", f.memberID)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.get("/projects/not-a-ulid/traces", f.memberID)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetTrace(t *testing.T) {
	f := newReadFixture(t)
	f.traces.trace = &observability.TraceWithSpans{
		Trace: observability.Trace{
			TraceID:   "0123456789abcdef0123456789abcdef",
			ProjectID: f.projectID.String(),
			Name:      "checkout-flow",
		},
	}

	rec := f.get("/projects/"+f.projectID.String()+"/traces/0123456789abcdef0123456789abcdef", f.memberID)
	require.Equal(t, http.StatusOK, rec.Code)
	// Spans render as an empty array, never null.
	assert.Contains(t, rec.Body.String(), `"spans":[]`)
	assert.Contains(t, rec.Body.String(), `"checkout-flow"`)
}

func TestGetTraceNotFound(t *testing.T) {
	f := newReadFixture(t)

	rec := f.get("/projects/"+f.projectID.String()+"/traces/ffffffffffffffffffffffffffffffff", f.memberID)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
