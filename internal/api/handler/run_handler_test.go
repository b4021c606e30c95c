package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-mask-pipeline/internal/checkpoint"
)

func TestCreateRun_InvalidJSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/runs", strings.NewReader("{nope"))
	rec := httptest.NewRecorder()

	CreateRun(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateRun_MissingSource(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/runs",
		strings.NewReader(`{"rulesFile":"rules.yaml"}`))
	rec := httptest.NewRecorder()

	CreateRun(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "sourceDb")
}

func TestCreateRun_MissingRulesFile(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/runs",
		strings.NewReader(`{"sourceDb":"clinic","sourceCollection":"patients"}`))
	rec := httptest.NewRecorder()

	CreateRun(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "rulesFile")
}

func TestCreateRun_AcceptsValidSpec(t *testing.T) {
	body := `{"sourceDb":"clinic","sourceCollection":"patients","rulesFile":"rules.yaml"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/runs", strings.NewReader(body))
	rec := httptest.NewRecorder()

	CreateRun(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp["runID"])
	assert.Equal(t, "pending", resp["status"])
}

func TestGetRunErrors_MissingRunID(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/runs//errors", nil)
	rec := httptest.NewRecorder()

	GetRunErrors(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestResetCheckpoint(t *testing.T) {
	dir := t.TempDir()
	key := checkpoint.Key("clinic", "patients")
	ckpt, err := checkpoint.New(dir, key)
	require.NoError(t, err)
	ckpt.Update(100, "p-0100", true)
	_, err = os.Stat(ckpt.Path())
	require.NoError(t, err)

	body := `{"checkpointDir":"` + dir + `","sourceDb":"clinic","sourceCollection":"patients"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkpoints/reset", strings.NewReader(body))
	rec := httptest.NewRecorder()

	ResetCheckpoint(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	_, err = os.Stat(ckpt.Path())
	assert.True(t, os.IsNotExist(err), "the durable checkpoint file is gone")
}

func TestResetCheckpoint_MissingIdentity(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkpoints/reset",
		strings.NewReader(`{"checkpointDir":"x"}`))
	rec := httptest.NewRecorder()

	ResetCheckpoint(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
