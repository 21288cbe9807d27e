package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"

	"github.com/emprendopolis/Plataforma-sub001/internal/usertoken"
)

func TestCSVUploadRateLimit(t *testing.T) {
	redis := miniredis.RunT(t)
	verifier, err := usertoken.NewVerifier(usertoken.Config{Secret: testSecret})
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}
	csv := &fakeCSV{}
	s, err := New(Config{
		Schema:        &fakeSchema{},
		Records:       &fakeRecords{},
		History:       &fakeHistory{},
		Files:         &fakeFiles{},
		CSV:           csv,
		Objects:       &fakeObjects{},
		TokenVerifier: verifier,
		RedisAddr:     redis.Addr(),
		CsvRateLimit:  1,
	})
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	srv := httptest.NewServer(s.Router())
	defer srv.Close()
	token := staffToken(t)

	send := func() int {
		buf, contentType := multipartBody(t, "file", "datos.csv", []byte("Nombre\nAna\n"))
		req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/tables/pi_activos/csv", buf)
		if err != nil {
			t.Fatalf("new request: %v", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Content-Type", contentType)
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("upload: %v", err)
		}
		resp.Body.Close()
		return resp.StatusCode
	}

	if status := send(); status != http.StatusCreated {
		t.Fatalf("first upload expected 201, got %d", status)
	}
	if status := send(); status != http.StatusTooManyRequests {
		t.Fatalf("second upload expected 429, got %d", status)
	}
}
