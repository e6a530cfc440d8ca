package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestWhapiEndpoints_NotImplemented(t *testing.T) {
	gin.SetMode(gin.TestMode)
	conn := &WhapiConnector{Configured: false}
	r := gin.New()
	r.POST("/canales/whapi/events", conn.WhapiEvents)
	r.POST("/canales/whapi/send", conn.WhapiSend)
	r.GET("/canales/whapi/health", conn.WhapiHealth)

	for _, tc := range []struct{ method, path string }{
		{http.MethodPost, "/canales/whapi/events"},
		{http.MethodPost, "/canales/whapi/send"},
	} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(tc.method, tc.path, nil))
		if w.Code != http.StatusOK {
			t.Fatalf("%s: status = %d", tc.path, w.Code)
		}
		var resp map[string]any
		_ = json.Unmarshal(w.Body.Bytes(), &resp)
		if resp["status"] != "not_implemented" {
			t.Fatalf("%s: body = %v", tc.path, resp)
		}
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/canales/whapi/health", nil))
	var resp map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp["connected"] != false || resp["configured"] != false {
		t.Fatalf("health body = %v", resp)
	}
}
