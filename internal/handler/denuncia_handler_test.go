package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/vozsegura-api/internal/dto"
	"github.com/noah-isme/vozsegura-api/internal/middleware"
	"github.com/noah-isme/vozsegura-api/internal/models"
	"github.com/noah-isme/vozsegura-api/internal/service"
	appErrors "github.com/noah-isme/vozsegura-api/pkg/errors"
	"github.com/noah-isme/vozsegura-api/pkg/response"
)

type denunciaServiceMock struct {
	createPrincipal *models.Principal
	createReq       dto.CreateDenunciaRequest
	createResp      *dto.CreateDenunciaResponse
	detail          *models.DenunciaDetail
	list            []models.DenunciaResumen
	listQuery       dto.DenunciaListQuery
	seguimiento     *models.Seguimiento
	stats           *models.Estadisticas
	statsHit        bool
	export          *service.ExportResult
	deletedID       int64
	err             error
}

func (m *denunciaServiceMock) Create(_ context.Context, principal *models.Principal, req dto.CreateDenunciaRequest) (*dto.CreateDenunciaResponse, error) {
	m.createPrincipal = principal
	m.createReq = req
	return m.createResp, m.err
}

func (m *denunciaServiceMock) GetByCode(context.Context, string) (*models.DenunciaDetail, error) {
	return m.detail, m.err
}

func (m *denunciaServiceMock) Get(context.Context, *models.Principal, int64) (*models.DenunciaDetail, error) {
	return m.detail, m.err
}

func (m *denunciaServiceMock) ListMine(context.Context, *models.Principal) ([]models.DenunciaResumen, error) {
	return m.list, m.err
}

func (m *denunciaServiceMock) List(_ context.Context, query dto.DenunciaListQuery) ([]models.DenunciaResumen, error) {
	m.listQuery = query
	return m.list, m.err
}

func (m *denunciaServiceMock) TransitionStatus(context.Context, *models.Principal, int64, dto.UpdateEstadoRequest) (*models.Seguimiento, error) {
	return m.seguimiento, m.err
}

func (m *denunciaServiceMock) Update(context.Context, *models.Principal, int64, dto.UpdateDenunciaRequest) (*models.DenunciaDetail, error) {
	return m.detail, m.err
}

func (m *denunciaServiceMock) AssignResources(context.Context, *models.Principal, int64, dto.AsignarRecursosRequest) (*models.DenunciaDetail, error) {
	return m.detail, m.err
}

func (m *denunciaServiceMock) RecordAttention(context.Context, *models.Principal, int64, dto.AtencionRequest) (*models.Atencion, error) {
	return &models.Atencion{ID: 1}, m.err
}

func (m *denunciaServiceMock) Delete(_ context.Context, _ *models.Principal, id int64) error {
	m.deletedID = id
	return m.err
}

func (m *denunciaServiceMock) Statistics(context.Context) (*models.Estadisticas, bool, error) {
	return m.stats, m.statsHit, m.err
}

func (m *denunciaServiceMock) Export(context.Context, dto.DenunciaListQuery) (*service.ExportResult, error) {
	return m.export, m.err
}

type linkerMock struct {
	signed int
}

func (l *linkerMock) SignLinks(archivos []models.Archivo) {
	for i := range archivos {
		archivos[i].URL = "/api/archivos/descargar/token"
		l.signed++
	}
}

func newJSONContext(method, path string, body []byte) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	return c, w
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) response.Envelope {
	t.Helper()
	var env response.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func TestDenunciaHandlerCreateAnonymous(t *testing.T) {
	svc := &denunciaServiceMock{createResp: &dto.CreateDenunciaResponse{Codigo: "DEN-2025000001"}}
	handler := NewDenunciaHandler(svc, nil)

	body := []byte(`{"tipo":"acoso","descripcion":"Comentarios ofensivos en clase","fecha":"2025-03-01","facultad_id":3,"anonima":false}`)
	c, w := newJSONContext(http.MethodPost, "/denuncias", body)

	handler.Create(c)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Nil(t, svc.createPrincipal)
	assert.Equal(t, int64(3), svc.createReq.FacultadID)

	env := decodeEnvelope(t, w)
	assert.True(t, env.Success)
	assert.Contains(t, w.Body.String(), "DEN-2025000001")
}

func TestDenunciaHandlerCreateExposesCodeAtTopLevel(t *testing.T) {
	created := &models.Denuncia{ID: 11, Codigo: "DEN-2025000001", Estado: models.StatusRecibida}
	svc := &denunciaServiceMock{createResp: &dto.CreateDenunciaResponse{Codigo: created.Codigo, Denuncia: created}}
	handler := NewDenunciaHandler(svc, nil)

	body := []byte(`{"tipo":"acoso","descripcion":"Comentarios ofensivos en clase","fecha":"2025-03-01","gravedad":"media","facultad_id":3}`)
	c, w := newJSONContext(http.MethodPost, "/denuncias", body)
	handler.Create(c)
	require.Equal(t, http.StatusCreated, w.Code)

	var payload map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	assert.JSONEq(t, `"DEN-2025000001"`, string(payload["codigo"]))
	assert.JSONEq(t, `true`, string(payload["success"]))
	require.Contains(t, payload, "denuncia")
	assert.Contains(t, string(payload["denuncia"]), `"id":11`)
}

func TestDenunciaHandlerCreatePassesPrincipal(t *testing.T) {
	svc := &denunciaServiceMock{createResp: &dto.CreateDenunciaResponse{Codigo: "DEN-2025000002"}}
	handler := NewDenunciaHandler(svc, nil)

	c, w := newJSONContext(http.MethodPost, "/denuncias", []byte(`{"tipo":"acoso"}`))
	principal := &models.Principal{ID: 7, Role: models.RoleEstudiante}
	c.Set(middleware.ContextPrincipalKey, principal)

	handler.Create(c)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, principal, svc.createPrincipal)
}

func TestDenunciaHandlerCreateRejectsMalformedJSON(t *testing.T) {
	handler := NewDenunciaHandler(&denunciaServiceMock{}, nil)

	c, w := newJSONContext(http.MethodPost, "/denuncias", []byte(`{"tipo":`))
	handler.Create(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
	env := decodeEnvelope(t, w)
	require.NotNil(t, env.Error)
	assert.Equal(t, appErrors.ErrValidation.Code, env.Error.Code)
}

func TestDenunciaHandlerGetSignsAttachmentLinks(t *testing.T) {
	detail := &models.DenunciaDetail{Archivos: []models.Archivo{{ID: 1, Ruta: "5/a.png"}, {ID: 2, Ruta: "5/b.pdf"}}}
	links := &linkerMock{}
	handler := NewDenunciaHandler(&denunciaServiceMock{detail: detail}, links)

	c, w := newJSONContext(http.MethodGet, "/denuncias/5", nil)
	c.Params = gin.Params{{Key: "id", Value: "5"}}
	c.Set(middleware.ContextPrincipalKey, &models.Principal{ID: 1, Role: models.RoleAdmin})

	handler.Get(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2, links.signed)
	assert.Contains(t, w.Body.String(), "/api/archivos/descargar/token")
	assert.NotContains(t, w.Body.String(), "5/a.png")
}

func TestDenunciaHandlerGetInvalidID(t *testing.T) {
	handler := NewDenunciaHandler(&denunciaServiceMock{}, nil)

	c, w := newJSONContext(http.MethodGet, "/denuncias/abc", nil)
	c.Params = gin.Params{{Key: "id", Value: "abc"}}

	handler.Get(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDenunciaHandlerGetForbidden(t *testing.T) {
	handler := NewDenunciaHandler(&denunciaServiceMock{err: appErrors.Clone(appErrors.ErrForbidden, "not your report")}, nil)

	c, w := newJSONContext(http.MethodGet, "/denuncias/5", nil)
	c.Params = gin.Params{{Key: "id", Value: "5"}}
	c.Set(middleware.ContextPrincipalKey, &models.Principal{ID: 9, Role: models.RoleEstudiante})

	handler.Get(c)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestDenunciaHandlerListBindsFilters(t *testing.T) {
	svc := &denunciaServiceMock{list: []models.DenunciaResumen{{}, {}}}
	handler := NewDenunciaHandler(svc, nil)

	c, w := newJSONContext(http.MethodGet, "/denuncias?estado=en_proceso&facultad_id=4&limite=20", nil)
	handler.List(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "en_proceso", svc.listQuery.Estado)
	assert.Equal(t, int64(4), svc.listQuery.FacultadID)
	assert.Equal(t, 20, svc.listQuery.Limite)
	env := decodeEnvelope(t, w)
	assert.EqualValues(t, 2, env.Meta["total"])

	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	assert.EqualValues(t, 2, payload["total"])
	assert.Len(t, payload["denuncias"], 2)
}

func TestDenunciaHandlerUpdateStatusConflict(t *testing.T) {
	svc := &denunciaServiceMock{err: appErrors.Clone(appErrors.ErrInvalidTransition, "cannot move from resuelta to recibida")}
	handler := NewDenunciaHandler(svc, nil)

	c, w := newJSONContext(http.MethodPut, "/denuncias/5/estado", []byte(`{"estado":"recibida"}`))
	c.Params = gin.Params{{Key: "id", Value: "5"}}
	c.Set(middleware.ContextPrincipalKey, &models.Principal{ID: 1, Role: models.RoleAdmin})

	handler.UpdateStatus(c)
	require.Equal(t, http.StatusConflict, w.Code)
	env := decodeEnvelope(t, w)
	require.NotNil(t, env.Error)
	assert.Equal(t, "INVALID_TRANSITION", env.Error.Code)
}

func TestDenunciaHandlerDelete(t *testing.T) {
	svc := &denunciaServiceMock{}
	handler := NewDenunciaHandler(svc, nil)

	c, w := newJSONContext(http.MethodDelete, "/denuncias/12", nil)
	c.Params = gin.Params{{Key: "id", Value: "12"}}

	handler.Delete(c)
	c.Writer.WriteHeaderNow()
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, int64(12), svc.deletedID)
}

func TestDenunciaHandlerStatisticsReportsCacheHit(t *testing.T) {
	svc := &denunciaServiceMock{stats: &models.Estadisticas{TotalDenuncias: 3, Recibidas: 3}, statsHit: true}
	handler := NewDenunciaHandler(svc, nil)

	c, w := newJSONContext(http.MethodGet, "/denuncias/estadisticas/general", nil)
	handler.Statistics(c)

	require.Equal(t, http.StatusOK, w.Code)
	env := decodeEnvelope(t, w)
	assert.Equal(t, true, env.Meta["cache_hit"])
}

func TestDenunciaHandlerExportStreamsFile(t *testing.T) {
	svc := &denunciaServiceMock{export: &service.ExportResult{
		Filename:    "denuncias-20250304-100000.csv",
		ContentType: "text/csv",
		Data:        []byte("codigo,tipo\nDEN-2025000001,acoso\n"),
	}}
	handler := NewDenunciaHandler(svc, nil)

	c, w := newJSONContext(http.MethodGet, "/denuncias/exportar?formato=csv", nil)
	handler.Export(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.HasPrefix(w.Header().Get("Content-Type"), "text/csv"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "denuncias-20250304-100000.csv")
	assert.Contains(t, w.Body.String(), "DEN-2025000001")
}
