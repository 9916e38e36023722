package generation_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"visamate/backend/features/generation"
	"visamate/backend/internal/cache"
	"visamate/backend/internal/llm"
	"visamate/backend/internal/prompt"
	"visamate/backend/internal/scraper"
)

func newHandler(f *MockFetcher, l *MockLLM) *generation.Handler {
	svc := generation.NewService(f, nil, l, prompt.NewComposer(6000), cache.New(nil), time.Hour, nil, nil, 0.7)
	return generation.NewHandler(svc)
}

func postJSON(t *testing.T, handler http.HandlerFunc, body any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/generate/checklist", bytes.NewReader(payload))
	w := httptest.NewRecorder()
	handler(w, req)
	return w
}

func TestHandler_GenerateChecklist_Success(t *testing.T) {
	f := new(MockFetcher)
	l := new(MockLLM)
	h := newHandler(f, l)

	f.On("Fetch", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return([]scraper.Document{{URL: "u", Text: "t"}}, nil, nil)
	l.On("Generate", mock.Anything, mock.Anything, mock.Anything).Return(checklistJSON, nil)

	w := postJSON(t, h.GenerateChecklist, validRequest())

	assert.Equal(t, http.StatusOK, w.Code)

	var resp generation.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	require.NotNil(t, resp.Artifact)
	assert.Equal(t, generation.KindChecklist, resp.Artifact.Kind)
}

func TestHandler_GenerateChecklist_ValidationError(t *testing.T) {
	h := newHandler(new(MockFetcher), new(MockLLM))

	req := validRequest()
	req.Nationality = ""
	w := postJSON(t, h.GenerateChecklist, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, false, resp["success"])
	assert.NotEmpty(t, resp["error_message"])
	errObj := resp["error"].(map[string]interface{})
	assert.Equal(t, "VALIDATION_ERROR", errObj["code"])
	assert.Contains(t, resp, "correlationId")
}

func TestHandler_GenerateChecklist_MalformedBody(t *testing.T) {
	h := newHandler(new(MockFetcher), new(MockLLM))

	req := httptest.NewRequest(http.MethodPost, "/generate/checklist", bytes.NewReader([]byte("{not json")))
	w := httptest.NewRecorder()
	h.GenerateChecklist(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandler_GenerateChecklist_SourcesUnavailable(t *testing.T) {
	f := new(MockFetcher)
	l := new(MockLLM)
	h := newHandler(f, l)

	f.On("Fetch", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, []string{"source unavailable: boom"}, scraper.ErrAllSourcesFailed)

	w := postJSON(t, h.GenerateChecklist, validRequest())

	assert.Equal(t, http.StatusBadGateway, w.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, false, resp["success"])
	assert.NotEmpty(t, resp["error_message"])
	assert.Contains(t, resp["warnings"], "source unavailable: boom")
	errObj := resp["error"].(map[string]interface{})
	assert.Equal(t, "SOURCES_UNAVAILABLE", errObj["code"])
}

func TestHandler_GenerateCoverLetter_GenerationFailed(t *testing.T) {
	f := new(MockFetcher)
	l := new(MockLLM)
	h := newHandler(f, l)

	f.On("Fetch", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return([]scraper.Document{{URL: "u", Text: "t"}}, nil, nil)
	l.On("Generate", mock.Anything, mock.Anything, mock.Anything).Return("no json here", nil)

	w := postJSON(t, h.GenerateCoverLetter, validRequest())

	assert.Equal(t, http.StatusBadGateway, w.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, false, resp["success"])
	assert.NotEmpty(t, resp["error_message"])
	assert.NotContains(t, resp, "artifact")
	errObj := resp["error"].(map[string]interface{})
	assert.Equal(t, "GENERATION_FAILED", errObj["code"])
}

func TestHandler_GenerateChecklist_TimeoutTwiceFailureEnvelope(t *testing.T) {
	f := new(MockFetcher)
	l := new(MockLLM)
	h := newHandler(f, l)

	f.On("Fetch", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return([]scraper.Document{{URL: "u", Text: "t"}}, nil, nil)
	l.On("Generate", mock.Anything, mock.Anything, mock.Anything).Return("", llm.ErrTimeout)

	w := postJSON(t, h.GenerateChecklist, validRequest())

	assert.Equal(t, http.StatusBadGateway, w.Code)
	l.AssertNumberOfCalls(t, "Generate", 2)

	var resp generation.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.NotEmpty(t, resp.ErrorMessage)
	assert.Nil(t, resp.Artifact)
}
