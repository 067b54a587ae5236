package classify_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/greenflow/impact-engine/classify"
	"github.com/greenflow/impact-engine/csr"
)

func newService(t *testing.T, handler http.HandlerFunc) *classify.Client {
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return classify.New(srv.URL, "test-key")
}

func TestClient_ExactCode(t *testing.T) {
	// GIVEN: A service answering with an exact code
	// WHEN: Classifying
	// THEN: The code is returned and the request carries auth + payload

	c := newService(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/classify" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("unexpected auth header %q", got)
		}
		w.Write([]byte(`{"sdg_code": "sdg15"}`))
	})

	got, err := c.ClassifySDG(context.Background(), "planted trees")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != csr.SDG15 {
		t.Errorf("expected sdg15, got %s", got)
	}
}

func TestClient_NormalizesCode(t *testing.T) {
	c := newService(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"sdg_code": "  SDG14 "}`))
	})

	got, err := c.ClassifySDG(context.Background(), "beach cleanup")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != csr.SDG14 {
		t.Errorf("expected sdg14, got %s", got)
	}
}

func TestClient_ChattyResponseRescanned(t *testing.T) {
	// GIVEN: A service that answers in prose instead of an exact code
	// WHEN: Classifying
	// THEN: The code substring is extracted from the text

	c := newService(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"sdg_code": "This is clearly sdg14 (life below water)"}`))
	})

	got, err := c.ClassifySDG(context.Background(), "beach cleanup")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != csr.SDG14 {
		t.Errorf("expected sdg14 from re-scan, got %s", got)
	}
}

func TestClient_MalformedJSONRescanned(t *testing.T) {
	c := newService(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`the answer is sdg4, obviously`))
	})

	got, err := c.ClassifySDG(context.Background(), "tutoring")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != csr.SDG4 {
		t.Errorf("expected sdg4 from raw-body re-scan, got %s", got)
	}
}

func TestClient_MalformedJSONNoCode(t *testing.T) {
	c := newService(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json and no code`))
	})

	if _, err := c.ClassifySDG(context.Background(), "whatever"); err == nil {
		t.Error("expected error for undecipherable response")
	}
}

func TestClient_UnrecognizedCodeDefaultsToOther(t *testing.T) {
	c := newService(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"sdg_code": "unknown"}`))
	})

	got, err := c.ClassifySDG(context.Background(), "whatever")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != csr.SDGOther {
		t.Errorf("expected sdg_other, got %s", got)
	}
}

func TestClient_ServerError(t *testing.T) {
	c := newService(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "internal error", http.StatusInternalServerError)
	})

	if _, err := c.ClassifySDG(context.Background(), "whatever"); err == nil {
		t.Error("expected error for 500 response")
	}
}

func TestClient_EmptyDescriptionSkipsCall(t *testing.T) {
	called := false
	c := newService(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	got, err := c.ClassifySDG(context.Background(), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != csr.SDGOther {
		t.Errorf("expected sdg_other, got %s", got)
	}
	if called {
		t.Error("empty description should not hit the service")
	}
}
