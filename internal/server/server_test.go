package server

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conduit-lang/mirror/runtime/decl"
	"github.com/conduit-lang/mirror/runtime/discovery"
	"github.com/conduit-lang/mirror/runtime/registry"
)

const zooURI = "example.com/zoo"

func info(name string) decl.TypeInfo {
	return decl.TypeInfo{
		EntityInfo: decl.EntityInfo{Name: name, Public: true, LibraryURI: zooURI},
		SimpleName: name,
		PackageURI: zooURI,
	}
}

func zooLibrary() *decl.Library {
	animal := decl.NewClass(info("Animal"), decl.ClassBody{})
	mammal := info("Mammal")
	mammal.SuperClass = animal.Link()
	mammalDecl := decl.NewClass(mammal, decl.ClassBody{})
	dog := info("Dog")
	dog.SuperClass = mammalDecl.Link()

	shape := decl.NewClass(info("Shape"), decl.ClassBody{Modifiers: decl.Modifiers{Interface: true}})
	square := info("Square")
	square.Interfaces = []*decl.Link{shape.Link()}

	return decl.NewLibrary(zooURI, decl.Package{Name: zooURI, IsRoot: true}, []decl.Declaration{
		animal, mammalDecl, decl.NewClass(dog, decl.ClassBody{}),
		shape, decl.NewClass(square, decl.ClassBody{}),
	})
}

func newTestServer(t *testing.T, register bool) *Server {
	t.Helper()
	reg := registry.New(registry.Config{})
	idx := discovery.New(reg, nil)
	if register {
		_, err := reg.Register(registry.Model{Libraries: []*decl.Library{zooLibrary(), decl.BuiltinLibrary()}})
		require.NoError(t, err)
	}
	return New(reg, idx, nil)
}

func get(t *testing.T, s *Server, target string, v any) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	if v != nil {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
	}
	return rec
}

func names(docs []map[string]any) []string {
	var out []string
	for _, d := range docs {
		out = append(out, d["name"].(string))
	}
	return out
}

func TestServer_Health(t *testing.T) {
	s := newTestServer(t, false)
	rec := get(t, s, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))
}

func TestServer_RequestIDIsEchoed(t *testing.T) {
	s := newTestServer(t, false)
	const id = "8f14e45f-ceea-4e5b-9c3b-2f1d3f0a6b7c"

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(RequestIDHeader, id)
	s.ServeHTTP(rec, req)
	assert.Equal(t, id, rec.Header().Get(RequestIDHeader))
}

func TestServer_NotInitialized(t *testing.T) {
	s := newTestServer(t, false)

	var resp ErrorResponse
	rec := get(t, s, "/v1/types?name=Dog", &resp)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "REG201", resp.Code)
}

func TestServer_Generation(t *testing.T) {
	s := newTestServer(t, true)

	var resp map[string]string
	rec := get(t, s, "/v1/generation", &resp)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, resp["generation"])
	assert.Equal(t, registry.Queryable.String(), resp["state"])
}

func TestServer_Packages(t *testing.T) {
	s := newTestServer(t, true)

	var pkgs []PackageResponse
	get(t, s, "/v1/packages", &pkgs)
	require.Len(t, pkgs, 2)
	assert.Equal(t, zooURI, pkgs[0].Name)
	assert.Equal(t, 0, pkgs[0].Level)
	assert.Greater(t, pkgs[1].Level, 0)
}

func TestServer_Libraries(t *testing.T) {
	s := newTestServer(t, true)

	var uris []string
	get(t, s, "/v1/libraries", &uris)
	assert.Contains(t, uris, zooURI)

	var lib map[string]any
	rec := get(t, s, "/v1/libraries?uri="+zooURI, &lib)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, zooURI, lib["uri"])

	rec = get(t, s, "/v1/libraries?uri=example.com/none", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_FindByName(t *testing.T) {
	s := newTestServer(t, true)

	var doc map[string]any
	rec := get(t, s, "/v1/types?name=Dog", &doc)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Dog", doc["name"])
	assert.Equal(t, zooURI, doc["package"])

	var resp ErrorResponse
	rec = get(t, s, "/v1/types?name=Cat", &resp)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "REG202", resp.Code)

	rec = get(t, s, "/v1/types", &resp)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_FindVariants(t *testing.T) {
	s := newTestServer(t, true)

	var doc map[string]any
	rec := get(t, s, "/v1/types/qualified?name="+zooURI+".Square", &doc)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Square", doc["name"])

	var docs []map[string]any
	get(t, s, "/v1/types/simple?name=Shape", &docs)
	assert.Equal(t, []string{"Shape"}, names(docs))
}

func TestServer_Hierarchy(t *testing.T) {
	s := newTestServer(t, true)

	var docs []map[string]any
	get(t, s, "/v1/types/subclasses?name=Animal", &docs)
	assert.Equal(t, []string{"Mammal", "Dog"}, names(docs))

	docs = nil
	get(t, s, "/v1/types/implementers?name=Shape", &docs)
	assert.Equal(t, []string{"Square"}, names(docs))

	docs = nil
	rec := get(t, s, "/v1/types/instantiations?name=Animal", &docs)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, docs)

	rec = get(t, s, "/v1/types/ancestors?name=Animal", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_Cache(t *testing.T) {
	s := newTestServer(t, true)

	var stats discovery.Statistics
	get(t, s, "/v1/cache?preload=true", &stats)
	assert.Greater(t, stats.Entries["qualified"], 0)
}

func TestServer_RecoversPanics(t *testing.T) {
	s := newTestServer(t, false)
	s.router.Get("/boom", func(http.ResponseWriter, *http.Request) { panic("boom") })

	var resp ErrorResponse
	rec := get(t, s, "/boom", &resp)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "internal_server_error", resp.Error)
}

func TestServer_ServeShutsDownOnCancel(t *testing.T) {
	s := newTestServer(t, true)
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, l) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + l.Addr().String() + "/healthz")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
