package trace

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHandlerCountsRequests(t *testing.T) {
	m := NewMiddleware(nil)
	h := m.Handler(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		if rec.Code != http.StatusNoContent {
			t.Fatalf("status = %d, want 204", rec.Code)
		}
	}
	if got := m.TotalRequests(); got != 3 {
		t.Errorf("TotalRequests = %d, want 3", got)
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{
			name:    "x-forwarded-for wins",
			headers: map[string]string{"X-Forwarded-For": "1.2.3.4", "X-Real-IP": "5.6.7.8"},
			remote:  "9.9.9.9:1234",
			want:    "1.2.3.4",
		},
		{
			name:    "x-real-ip next",
			headers: map[string]string{"X-Real-IP": "5.6.7.8"},
			remote:  "9.9.9.9:1234",
			want:    "5.6.7.8",
		},
		{
			name:   "remote addr fallback",
			remote: "9.9.9.9:1234",
			want:   "9.9.9.9:1234",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			if got := ClientIP(r); got != tt.want {
				t.Errorf("ClientIP = %q, want %q", got, tt.want)
			}
		})
	}
}
