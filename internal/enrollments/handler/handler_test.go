package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"leaddesk_backend/internal/enrollments/domain"
	"leaddesk_backend/internal/enrollments/repository"
	"leaddesk_backend/internal/enrollments/service"
	"leaddesk_backend/internal/enrollments/transport"
	"leaddesk_backend/platform/httpkit"
	"leaddesk_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memRepo struct {
	mu   sync.Mutex
	rows map[uuid.UUID]repository.Enrollment
}

func (r *memRepo) Create(_ context.Context, p repository.CreateParams) (repository.Enrollment, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e := repository.Enrollment{
		ID: uuid.New(), LeadID: p.LeadID, Version: 1,
		Pricing: domain.Negotiation[domain.Pricing]{Live: p.Pricing},
	}
	r.rows[e.ID] = e
	return e, true, nil
}

func (r *memRepo) GetByLeadID(_ context.Context, leadID uuid.UUID) (repository.Enrollment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.rows {
		if e.LeadID == leadID {
			return e, nil
		}
	}
	return repository.Enrollment{}, repository.ErrNotFound
}

func (r *memRepo) GetByID(_ context.Context, id uuid.UUID) (repository.Enrollment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.rows[id]
	if !ok {
		return repository.Enrollment{}, repository.ErrNotFound
	}
	return e, nil
}

func (r *memRepo) List(context.Context, bool, int, int) ([]repository.Enrollment, int, error) {
	return nil, 0, nil
}

func (r *memRepo) Mutate(_ context.Context, id uuid.UUID, fn func(*repository.Enrollment) error) (repository.Enrollment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.rows[id]
	if !ok {
		return repository.Enrollment{}, repository.ErrNotFound
	}
	if err := fn(&e); err != nil {
		return repository.Enrollment{}, err
	}
	e.Version++
	r.rows[id] = e
	return e, nil
}

func (r *memRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.rows, id)
	return nil
}

// newTestEngine mounts the routes the way the router does, with roles taken
// from the X-Roles header instead of a token.
func newTestEngine(t *testing.T) (*gin.Engine, *service.Service) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	svc := service.New(&memRepo{rows: map[uuid.UUID]repository.Enrollment{}}, nil, nil)
	h := New(svc, validator.New())

	engine := gin.New()
	auth := func(c *gin.Context) {
		c.Set(httpkit.ContextUserIDKey, uuid.New())
		c.Set(httpkit.ContextRolesKey, strings.Split(c.GetHeader("X-Roles"), ","))
		c.Next()
	}
	protected := engine.Group("/api/v1", auth)
	admin := engine.Group("/api/v1/admin", auth, httpkit.RequireRole(httpkit.RoleAdmin))
	h.RegisterRoutes(protected.Group("/enrollments"))
	h.RegisterAdminRoutes(admin.Group("/enrollments"))
	return engine, svc
}

func do(engine *gin.Engine, method, path, roles, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Roles", roles)
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) transport.EnrollmentResponse {
	t.Helper()
	var resp transport.EnrollmentResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestSalesEditThenAdminApproval(t *testing.T) {
	engine, svc := newTestEngine(t)
	id, err := svc.CreateFromLead(context.Background(), uuid.New(), nil, uuid.Nil)
	require.NoError(t, err)
	base := "/api/v1/enrollments/" + id.String()

	rec := do(engine, http.MethodPatch, base+"/pricing", "sales", `{"enrollmentCharge": 900}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode(t, rec)
	assert.True(t, resp.Pricing.HasUpdate)
	assert.Equal(t, domain.RoleSales, resp.Pricing.EditedBy)
	assert.Nil(t, resp.Pricing.Live.EnrollmentCharge)

	rec = do(engine, http.MethodPost, "/api/v1/admin/enrollments/"+id.String()+"/pricing/decision", "admin", `{"approve": true}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp = decode(t, rec)
	assert.True(t, resp.Pricing.Agreed)
	require.NotNil(t, resp.Pricing.Live.EnrollmentCharge)
	assert.True(t, resp.Pricing.Live.EnrollmentCharge.Equal(decimal.NewFromInt(900)))
	assert.False(t, resp.Final.Agreed, "final phase is independent")
}

func TestApprovalRoutesRequireRole(t *testing.T) {
	engine, svc := newTestEngine(t)
	id, err := svc.CreateFromLead(context.Background(), uuid.New(), nil, uuid.Nil)
	require.NoError(t, err)

	rec := do(engine, http.MethodPatch, "/api/v1/enrollments/"+id.String()+"/pricing", "viewer", `{"enrollmentCharge": 1}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(engine, http.MethodDelete, "/api/v1/admin/enrollments/"+id.String(), "sales", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestDecisionRequiresApproveFlag(t *testing.T) {
	engine, svc := newTestEngine(t)
	id, err := svc.CreateFromLead(context.Background(), uuid.New(), nil, uuid.Nil)
	require.NoError(t, err)

	rec := do(engine, http.MethodPost, "/api/v1/enrollments/"+id.String()+"/final/decision", "sales", `{}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestUnknownEnrollment(t *testing.T) {
	engine, _ := newTestEngine(t)

	rec := do(engine, http.MethodGet, "/api/v1/enrollments/"+uuid.NewString(), "sales", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(engine, http.MethodGet, "/api/v1/enrollments/not-a-uuid", "sales", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
