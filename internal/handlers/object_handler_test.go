package handlers

import (
	"net/http"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	apperrors "github.com/xemwebe/finql/internal/errors"
)

func setupObjectRouter(handler *ObjectHandler) *gin.Engine {
	r := gin.New()
	r.GET("/objects/:id", handler.GetObject)
	r.PUT("/objects/:id", handler.PutObject)
	r.DELETE("/objects/:id", handler.DeleteObject)
	return r
}

func TestObjectHandler_GetObject(t *testing.T) {
	t.Run("returns_bytes_verbatim", func(t *testing.T) {
		raw := `{"b": 1,   "a": [true, null]}`
		svc := &mockObjectService{
			getRawObjectFn: func(id string) ([]byte, error) {
				if id != "portfolio-settings" {
					t.Errorf("unexpected id %q", id)
				}
				return []byte(raw), nil
			},
		}
		r := setupObjectRouter(NewObjectHandler(svc))

		rec := doRequest(r, "GET", "/objects/portfolio-settings", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if rec.Body.String() != raw {
			t.Errorf("expected body %q, got %q", raw, rec.Body.String())
		}
		if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
			t.Errorf("expected JSON content type, got %q", ct)
		}
	})

	t.Run("returns_404", func(t *testing.T) {
		r := setupObjectRouter(NewObjectHandler(&mockObjectService{}))

		rec := doRequest(r, "GET", "/objects/missing", "")

		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "OBJECT_NOT_FOUND")
	})
}

func TestObjectHandler_PutObject(t *testing.T) {
	t.Run("stores_body", func(t *testing.T) {
		var gotRaw string
		svc := &mockObjectService{
			putRawObjectFn: func(_ string, raw []byte) error {
				gotRaw = string(raw)
				return nil
			},
		}
		r := setupObjectRouter(NewObjectHandler(svc))

		rec := doRequest(r, "PUT", "/objects/cfg", `{"x":1}`)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if gotRaw != `{"x":1}` {
			t.Errorf("expected raw body passed through, got %q", gotRaw)
		}
	})

	t.Run("returns_400_for_invalid_json", func(t *testing.T) {
		svc := &mockObjectService{
			putRawObjectFn: func(string, []byte) error { return apperrors.ErrInvalidInput },
		}
		r := setupObjectRouter(NewObjectHandler(svc))

		rec := doRequest(r, "PUT", "/objects/cfg", `{not json`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("rejects_oversized_body", func(t *testing.T) {
		called := false
		svc := &mockObjectService{
			putRawObjectFn: func(string, []byte) error {
				called = true
				return nil
			},
		}
		r := setupObjectRouter(NewObjectHandler(svc))

		body := `"` + strings.Repeat("x", maxObjectSize) + `"`
		rec := doRequest(r, "PUT", "/objects/big", body)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		if called {
			t.Error("service should not be called for oversized body")
		}
	})
}

func TestObjectHandler_DeleteObject(t *testing.T) {
	svc := &mockObjectService{
		deleteObjectFn: func(id string) error {
			if id == "missing" {
				return apperrors.ErrObjectNotFound
			}
			return nil
		},
	}
	r := setupObjectRouter(NewObjectHandler(svc))

	if rec := doRequest(r, "DELETE", "/objects/cfg", ""); rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if rec := doRequest(r, "DELETE", "/objects/missing", ""); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}
