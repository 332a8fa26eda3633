package expansion_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/okian/skillmatch/internal/adapters/expansion"
	"github.com/okian/skillmatch/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

type recorded struct {
	Path     string
	Topic    string   `json:"topic"`
	SubTopic []string `json:"sub_topics"`
	Keywords []string `json:"keywords"`
}

func newServer(status int, response any) (*httptest.Server, *[]recorded, *sync.Mutex) {
	var (
		mu    sync.Mutex
		calls []recorded
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var rec recorded
		_ = json.NewDecoder(r.Body).Decode(&rec)
		rec.Path = r.URL.Path
		mu.Lock()
		calls = append(calls, rec)
		mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(response)
	}))
	return srv, &calls, &mu
}

func TestClientQuery(t *testing.T) {
	Convey("Given an expansion service returning comma-joined terms", t, func() {
		srv, calls, mu := newServer(http.StatusOK, map[string]any{
			"response": []string{"Guitar, Chords , Strumming", "music theory", ""},
		})
		defer srv.Close()

		c := expansion.New(srv.URL+"/api/v1/", expansion.WithLogger(logger.Nop()))

		Convey("When querying with a topic and sub-topics", func() {
			out, err := c.Query(context.Background(), "Guitar", []string{"chords", " strumming ", ""})

			Convey("Then the response is flattened into normalized tags", func() {
				So(err, ShouldBeNil)
				So(out, ShouldResemble, []string{"guitar", "chords", "strumming", "music theory"})
			})

			Convey("And one request carried the topic and cleaned sub-topics", func() {
				mu.Lock()
				defer mu.Unlock()
				So(len(*calls), ShouldEqual, 1)
				So((*calls)[0].Path, ShouldEqual, "/api/v1/llm/query")
				So((*calls)[0].Topic, ShouldEqual, "Guitar")
				So((*calls)[0].SubTopic, ShouldResemble, []string{"chords", "strumming"})
			})
		})

		Convey("When the sub-topics are empty", func() {
			out, err := c.Query(context.Background(), "Guitar", []string{" ", ""})

			Convey("Then no request is made and the result is empty", func() {
				So(err, ShouldBeNil)
				So(out, ShouldNotBeNil)
				So(out, ShouldBeEmpty)
				mu.Lock()
				So(len(*calls), ShouldEqual, 0)
				mu.Unlock()
			})
		})
	})
}

func TestClientSearch(t *testing.T) {
	Convey("Given an expansion service for keyword search", t, func() {
		srv, calls, mu := newServer(http.StatusOK, map[string]any{"response": []string{"guitar,music"}})
		defer srv.Close()

		c := expansion.New(srv.URL+"/api/v1", expansion.WithLogger(logger.Nop()))

		Convey("When searching with duplicate keywords", func() {
			out, err := c.Search(context.Background(), []string{"Guitar", "guitar", "Music"})

			Convey("Then duplicates are sent once and the result is flattened", func() {
				So(err, ShouldBeNil)
				So(out, ShouldResemble, []string{"guitar", "music"})
				mu.Lock()
				defer mu.Unlock()
				So((*calls)[0].Path, ShouldEqual, "/api/v1/search/keywords")
				So((*calls)[0].Keywords, ShouldResemble, []string{"Guitar", "Music"})
			})
		})

		Convey("When searching with nothing", func() {
			out, err := c.Search(context.Background(), nil)

			Convey("Then it short-circuits", func() {
				So(err, ShouldBeNil)
				So(out, ShouldBeEmpty)
				mu.Lock()
				So(len(*calls), ShouldEqual, 0)
				mu.Unlock()
			})
		})
	})
}

func TestClientFailures(t *testing.T) {
	Convey("Given an expansion service that fails", t, func() {
		Convey("When it answers with a 5xx", func() {
			srv, _, _ := newServer(http.StatusBadGateway, map[string]string{"error": "upstream"})
			defer srv.Close()
			c := expansion.New(srv.URL, expansion.WithLogger(logger.Nop()))

			_, err := c.Search(context.Background(), []string{"guitar"})

			Convey("Then the error is ErrUnavailable carrying the status", func() {
				So(errors.Is(err, expansion.ErrUnavailable), ShouldBeTrue)
				var se *expansion.StatusError
				So(errors.As(err, &se), ShouldBeTrue)
				So(se.Code, ShouldEqual, http.StatusBadGateway)
				So(se.Op, ShouldEqual, "search")
			})
		})

		Convey("When it answers with an undecodable body", func() {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte("not json"))
			}))
			defer srv.Close()
			c := expansion.New(srv.URL, expansion.WithLogger(logger.Nop()))

			_, err := c.Query(context.Background(), "x", []string{"y"})

			Convey("Then the error is ErrUnavailable", func() {
				So(errors.Is(err, expansion.ErrUnavailable), ShouldBeTrue)
			})
		})

		Convey("When it is slower than the timeout", func() {
			release := make(chan struct{})
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				select {
				case <-release:
				case <-r.Context().Done():
				}
			}))
			defer srv.Close()
			defer close(release)
			c := expansion.New(srv.URL, expansion.WithTimeout(50*time.Millisecond), expansion.WithLogger(logger.Nop()))

			start := time.Now()
			_, err := c.Search(context.Background(), []string{"guitar"})

			Convey("Then it fails as a transport error within the timeout", func() {
				So(errors.Is(err, expansion.ErrUnavailable), ShouldBeTrue)
				So(time.Since(start), ShouldBeLessThan, 2*time.Second)
			})
		})

		Convey("When the service is unreachable", func() {
			srv := httptest.NewServer(http.NotFoundHandler())
			url := srv.URL
			srv.Close()
			c := expansion.New(url, expansion.WithLogger(logger.Nop()))

			_, err := c.Query(context.Background(), "x", []string{"y"})

			Convey("Then the error is ErrUnavailable", func() {
				So(errors.Is(err, expansion.ErrUnavailable), ShouldBeTrue)
			})
		})
	})
}

func TestExpandWithFallback(t *testing.T) {
	Convey("Given a searcher that always fails", t, func() {
		s := failingSearcher{}

		Convey("When the policy is FallbackOriginal", func() {
			out, err := expansion.ExpandWithFallback(context.Background(), s, []string{"Guitar", " ", "guitar"}, expansion.FallbackOriginal)

			Convey("Then the cleaned input comes back with the error", func() {
				So(err, ShouldNotBeNil)
				So(out, ShouldResemble, []string{"Guitar"})
			})
		})

		Convey("When the policy is FallbackEmpty", func() {
			out, err := expansion.ExpandWithFallback(context.Background(), s, []string{"Guitar"}, expansion.FallbackEmpty)

			Convey("Then an empty slice comes back with the error", func() {
				So(err, ShouldNotBeNil)
				So(out, ShouldNotBeNil)
				So(out, ShouldBeEmpty)
			})
		})
	})

	Convey("Given a searcher that succeeds", t, func() {
		out, err := expansion.ExpandWithFallback(context.Background(), staticSearcher{"a", "b"}, []string{"x"}, expansion.FallbackOriginal)

		Convey("Then its result is returned untouched", func() {
			So(err, ShouldBeNil)
			So(out, ShouldResemble, []string{"a", "b"})
		})
	})

	Convey("Fallback policies have readable names", t, func() {
		So(expansion.FallbackEmpty.String(), ShouldEqual, "empty")
		So(expansion.FallbackOriginal.String(), ShouldEqual, "original")
	})
}

func TestClientCache(t *testing.T) {
	Convey("Given a client with a cache", t, func() {
		var hits int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			atomic.AddInt32(&hits, 1)
			_ = json.NewEncoder(w).Encode(map[string]any{"response": []string{"guitar, music"}})
		}))
		defer srv.Close()

		cache := newMemCache()
		c := expansion.New(srv.URL, expansion.WithCache(cache), expansion.WithLogger(logger.Nop()))

		Convey("When the same keyword set is searched twice in different order", func() {
			first, err1 := c.Search(context.Background(), []string{"guitar", "music"})
			second, err2 := c.Search(context.Background(), []string{"Music", "guitar"})

			Convey("Then the second call is served from the cache", func() {
				So(err1, ShouldBeNil)
				So(err2, ShouldBeNil)
				So(second, ShouldResemble, first)
				So(atomic.LoadInt32(&hits), ShouldEqual, 1)
			})
		})

		Convey("When the cache read fails", func() {
			cache.failGet = true
			out, err := c.Search(context.Background(), []string{"guitar"})

			Convey("Then the service is still called", func() {
				So(err, ShouldBeNil)
				So(out, ShouldResemble, []string{"guitar", "music"})
				So(atomic.LoadInt32(&hits), ShouldEqual, 1)
			})
		})
	})

	Convey("CacheKey ignores order and case", t, func() {
		So(expansion.CacheKey([]string{"A", "b"}), ShouldEqual, expansion.CacheKey([]string{"B", " a"}))
		So(expansion.CacheKey([]string{"a"}), ShouldNotEqual, expansion.CacheKey([]string{"b"}))
	})
}

func TestClientRateLimit(t *testing.T) {
	Convey("Given a client limited to a tiny rate", t, func() {
		srv, _, _ := newServer(http.StatusOK, map[string]any{"response": []string{"x"}})
		defer srv.Close()
		c := expansion.New(srv.URL, expansion.WithRateLimit(0.001, 1), expansion.WithLogger(logger.Nop()))

		Convey("When the bucket is drained and the context is short", func() {
			_, err1 := c.Search(context.Background(), []string{"a"})
			ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
			defer cancel()
			_, err2 := c.Search(ctx, []string{"b"})

			Convey("Then the waiting call fails as unavailable", func() {
				So(err1, ShouldBeNil)
				So(errors.Is(err2, expansion.ErrUnavailable), ShouldBeTrue)
			})
		})
	})
}

type failingSearcher struct{}

func (failingSearcher) Search(context.Context, []string) ([]string, error) {
	return nil, expansion.ErrUnavailable
}

type staticSearcher []string

func (s staticSearcher) Search(context.Context, []string) ([]string, error) { return s, nil }

type memCache struct {
	mu      sync.Mutex
	data    map[string][]string
	failGet bool
}

func newMemCache() *memCache { return &memCache{data: map[string][]string{}} }

func (m *memCache) Get(_ context.Context, keywords []string) ([]string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failGet {
		return nil, false, errors.New("boom")
	}
	v, ok := m.data[expansion.CacheKey(keywords)]
	return v, ok, nil
}

func (m *memCache) Set(_ context.Context, keywords []string, expanded []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[expansion.CacheKey(keywords)] = expanded
	return nil
}
