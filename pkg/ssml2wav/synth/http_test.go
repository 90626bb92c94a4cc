package synth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shouni/go-ssml2wav/pkg/ssml2wav/api"
	"github.com/shouni/go-ssml2wav/pkg/ssml2wav/audio"
)

// statusServer は statuses を順に返し、尽きたら WAV を返すサーバーです。
func statusServer(t *testing.T, statuses ...int) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	wav, err := audio.Encode(audio.PCM24kMono16, []byte("pcm-data"))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := int(hits.Add(1))
		if n <= len(statuses) {
			w.WriteHeader(statuses[n-1])
			_, _ = w.Write([]byte("error"))
			return
		}
		w.Header().Set("Content-Type", "audio/wav")
		_, _ = w.Write(wav)
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func httpJob(t *testing.T) Job {
	return Job{Index: 1, SSML: "<speak/>", WavPath: filepath.Join(t.TempDir(), "b.part01.wav")}
}

func TestSynthesizeDoesNotRetryUnauthorized(t *testing.T) {
	srv, hits := statusServer(t, http.StatusUnauthorized, http.StatusUnauthorized, http.StatusUnauthorized)
	client := api.NewClient(api.Config{Key: "k", Endpoint: srv.URL, Timeout: 5 * time.Second})

	d := NewDriver(client, Config{Retry: fastPolicy(), Workers: 1, Expected: audio.PCM24kMono16})
	_, err := d.Synthesize(context.Background(), httpJob(t))

	var se *ErrSynthesis
	if !errors.As(err, &se) {
		t.Fatalf("Synthesize() error = %v, want *ErrSynthesis", err)
	}
	if se.Attempts != 1 {
		t.Errorf("attempts = %d, want 1", se.Attempts)
	}
	if code, ok := api.StatusCode(err); !ok || code != http.StatusUnauthorized {
		t.Errorf("StatusCode() = %d, %v", code, ok)
	}
	if n := hits.Load(); n != 1 {
		t.Errorf("server hits = %d, want 1", n)
	}
}

func TestSynthesizeRetriesTooManyRequests(t *testing.T) {
	srv, hits := statusServer(t, http.StatusTooManyRequests, http.StatusTooManyRequests)
	client := api.NewClient(api.Config{Key: "k", Endpoint: srv.URL, Timeout: 5 * time.Second})

	d := NewDriver(client, Config{Retry: fastPolicy(), Workers: 1, Expected: audio.PCM24kMono16})
	res, err := d.Synthesize(context.Background(), httpJob(t))
	if err != nil {
		t.Fatalf("Synthesize() error: %v", err)
	}
	if res.Attempts != 3 {
		t.Errorf("attempts = %d, want 3", res.Attempts)
	}
	if n := hits.Load(); n != 3 {
		t.Errorf("server hits = %d, want 3", n)
	}
}

func TestSynthesizeSendsOneRequestPerAttempt(t *testing.T) {
	srv, hits := statusServer(t, http.StatusServiceUnavailable, http.StatusServiceUnavailable)
	client := api.NewClient(api.Config{Key: "k", Endpoint: srv.URL, Timeout: 5 * time.Second})

	policy := fastPolicy()
	policy.MaxAttempts = 1
	d := NewDriver(client, Config{Retry: policy, Workers: 1, Expected: audio.PCM24kMono16})
	_, err := d.Synthesize(context.Background(), httpJob(t))

	var se *ErrSynthesis
	if !errors.As(err, &se) || se.Attempts != 1 {
		t.Fatalf("Synthesize() error = %v, want *ErrSynthesis after 1 attempt", err)
	}
	if n := hits.Load(); n != 1 {
		t.Errorf("server hits = %d, want 1", n)
	}
}
