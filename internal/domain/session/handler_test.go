package session_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/skillswap/skillswap-api/internal/domain/session"
	"github.com/skillswap/skillswap-api/internal/middleware"
	"github.com/skillswap/skillswap-api/internal/pkg/response"
)

func TestCreateRejectsUnauthenticated(t *testing.T) {
	handler := session.NewHandler(nil)

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	handler.Create(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestCreateRejectsInvalidJSON(t *testing.T) {
	handler := session.NewHandler(nil)

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{not json`))
	req = req.WithContext(context.WithValue(req.Context(), middleware.UserIDKey, uuid.New()))
	rec := httptest.NewRecorder()
	handler.Create(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}

	var resp response.Response
	requireNoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	if resp.Success || resp.Error == nil || resp.Error.Code != "BAD_REQUEST" {
		t.Fatalf("unexpected envelope: %+v", resp)
	}
}

func TestCreateValidatesFields(t *testing.T) {
	handler := session.NewHandler(nil)

	body := `{"teacher_id":"` + uuid.New().String() + `","credits_amount":-3}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req = req.WithContext(context.WithValue(req.Context(), middleware.UserIDKey, uuid.New()))
	rec := httptest.NewRecorder()
	handler.Create(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}

	var resp response.Response
	requireNoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	if resp.Error == nil || resp.Error.Code != "VALIDATION_FAILED" {
		t.Fatalf("expected VALIDATION_FAILED, got %+v", resp.Error)
	}
	if _, ok := resp.Error.Details["skill_id"]; !ok {
		t.Fatalf("expected skill_id field error, got %v", resp.Error.Details)
	}
	if _, ok := resp.Error.Details["credits_amount"]; !ok {
		t.Fatalf("expected credits_amount field error, got %v", resp.Error.Details)
	}
}
