package translate

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestParseGoogleResponse(t *testing.T) {
	body := `[[["Xin chào\n","Hello\n",null,null,10],["thế giới","world",null,null,10]],null,"en"]`
	got, err := parseGoogleResponse([]byte(body))
	if err != nil {
		t.Fatalf("parseGoogleResponse: %v", err)
	}
	if diff := cmp.Diff([]string{"Xin chào", "thế giới"}, got); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
}

func TestParseGoogleResponseErrors(t *testing.T) {
	for _, body := range []string{"", "not json", `[]`, `[null,null,"en"]`, `[[[null,"x"]]]`} {
		if _, err := parseGoogleResponse([]byte(body)); err == nil {
			t.Errorf("parseGoogleResponse(%q) should fail", body)
		}
	}
}

func newTestGoogle(t *testing.T, h http.HandlerFunc) Backend {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return newGoogle(GoogleConfig{Endpoint: srv.URL + "/translate_a/single", MaxChunkBytes: 64})
}

// echoGoogle answers with every input line prefixed by "vi:".
func echoGoogle(t *testing.T, queries *[]string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		for k, want := range map[string]string{"client": "gtx", "sl": "en", "tl": "vi", "dt": "t"} {
			if got := q.Get(k); got != want {
				t.Errorf("%s = %q, want %q", k, got, want)
			}
		}
		if !strings.HasPrefix(r.Header.Get("User-Agent"), "Mozilla/5.0") {
			t.Errorf("User-Agent = %q", r.Header.Get("User-Agent"))
		}
		if queries != nil {
			*queries = append(*queries, q.Get("q"))
		}
		lines := strings.Split(q.Get("q"), "\n")
		var segs []string
		for i, l := range lines {
			s := "vi:" + l
			if i < len(lines)-1 {
				s += `\n`
			}
			segs = append(segs, `["`+s+`","`+l+`",null,null,3]`)
		}
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		_, _ = w.Write([]byte(`[[` + strings.Join(segs, ",") + `],null,"en"]`))
	}
}

func TestGoogleTranslateBatch(t *testing.T) {
	b := newTestGoogle(t, echoGoogle(t, nil))
	got, err := b.TranslateBatch(context.Background(), []string{"Iron plate", "Copper cable"}, "vi", "en")
	if err != nil {
		t.Fatalf("TranslateBatch: %v", err)
	}
	if diff := cmp.Diff([]string{"vi:Iron plate", "vi:Copper cable"}, got); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
}

func TestGoogleLineCountMismatch(t *testing.T) {
	b := newTestGoogle(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[[["merged answer","a b",null,null,3]],null,"en"]`))
	})
	if _, err := b.TranslateBatch(context.Background(), []string{"a", "b"}, "vi", "en"); err == nil {
		t.Fatal("expected mismatch error")
	}
}

func TestGoogleBadStatus(t *testing.T) {
	b := newTestGoogle(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})
	if _, err := b.TranslateBatch(context.Background(), []string{"a"}, "vi", "en"); err == nil {
		t.Fatal("expected status error")
	}
}

func TestGoogleClientChunksAndPaces(t *testing.T) {
	var queries []string
	srv := httptest.NewServer(echoGoogle(t, &queries))
	defer srv.Close()

	clock := newFakeClock()
	c, err := New(GoogleConfig{
		Endpoint:      srv.URL,
		MaxChunkBytes: 20,
		MinDelay:      time.Second,
		MaxDelay:      2 * time.Second,
	}, Options{Clock: clock})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	c.Limiter().jitter = func() float64 { return 1.0 }

	in := []string{"Iron plate", "Copper cable", "Steel", "Iron plate"}
	got, err := c.Translate(context.Background(), in, "vi", "en")
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	want := []string{"vi:Iron plate", "vi:Copper cable", "vi:Steel", "vi:Iron plate"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"Iron plate", "Copper cable\nSteel"}, queries); diff != "" {
		t.Fatalf("chunks mismatch (-want +got):\n%s", diff)
	}
	// Only the second request waits; the delay shrank on success but not
	// below the floor.
	if diff := cmp.Diff([]time.Duration{time.Second}, clock.Sleeps()); diff != "" {
		t.Fatalf("sleeps mismatch (-want +got):\n%s", diff)
	}
	if st := c.Limiter().State(); st.RequestsThisMinute != 2 {
		t.Fatalf("limiter state = %+v", st)
	}
}
