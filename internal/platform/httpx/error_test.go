package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/SubbarajuGitHub/subbaraju-qr-code/internal/platform/requestctx"
)

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return body
}

func TestWriteError_StorefrontResultEnvelope(t *testing.T) {
	ctx := context.WithValue(context.Background(), middleware.RequestIDKey, "req-1")
	ctx = requestctx.WithTrace(ctx, requestctx.TraceInfo{TraceID: "4bf92f3577b34da6a3ce929d0e0e4736"})

	rec := httptest.NewRecorder()
	WriteError(ctx, rec, NewError("cart_empty", "Your cart is empty", http.StatusConflict).
		WithResult("cartEmpty").
		WithDetails(map[string]any{"status": 200, "items": 0}))

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
	if rec.Header().Get("Content-Type") != "application/json" || rec.Header().Get("Cache-Control") != "no-store" {
		t.Fatalf("unexpected headers %v", rec.Header())
	}
	body := decodeEnvelope(t, rec)
	if body["error"] != "cart_empty" || body["result"] != "cartEmpty" || body["status"] != float64(http.StatusConflict) {
		t.Fatalf("unexpected envelope %v", body)
	}
	if body["request_id"] != "req-1" || body["trace_id"] != "4bf92f3577b34da6a3ce929d0e0e4736" {
		t.Fatalf("expected request and trace ids, got %v", body)
	}
	if body["items"] != float64(0) {
		t.Fatalf("expected details to be merged, got %v", body)
	}
}

func TestWriteError_OmitsEmptyFields(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(context.Background(), rec, NewError("invalid_form", "bad\nform\x00", 0))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("zero status should default to 500, got %d", rec.Code)
	}
	body := decodeEnvelope(t, rec)
	for _, key := range []string{"result", "request_id", "trace_id"} {
		if _, ok := body[key]; ok {
			t.Fatalf("did not expect %s in %v", key, body)
		}
	}
	if body["message"] != "bad form" {
		t.Fatalf("control characters should be stripped, got %q", body["message"])
	}
}

func TestPayloadTooLarge(t *testing.T) {
	err := PayloadTooLarge(16 << 10)
	if err.Status != http.StatusRequestEntityTooLarge || err.Code != "payload_too_large" {
		t.Fatalf("unexpected error %+v", err)
	}
	if err.Details["limit"] != int64(16<<10) {
		t.Fatalf("expected limit detail, got %v", err.Details)
	}
	if err.Error() != "payload_too_large (413): request body exceeds 16384 bytes" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}
