package cli

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/complykit/complykit/pkg/analyzer"
	"github.com/complykit/complykit/pkg/graph"
	"github.com/complykit/complykit/pkg/model"
	"github.com/complykit/complykit/pkg/storage"
)

func testStore(t *testing.T) storage.Store {
	t.Helper()
	store, err := storage.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	b := graph.NewBuilder()
	project := model.NewIdentifier("NPM", "", "app", "1.0.0")
	express := model.NewIdentifier("NPM", "", "express", "4.18.0")
	_ = b.AddDependencies(project, "dependencies", []model.PackageReference{{ID: express}})
	_ = b.AddPackage(model.Package{ID: express, DeclaredLicenseSPDX: "MIT"})
	g, pkgs, err := b.Build()
	if err != nil {
		t.Fatal(err)
	}

	err = store.Save(context.Background(), &storage.RunResult{
		Name:      "acme/app",
		CreatedAt: time.Now().UTC(),
		Version:   "test",
		Analyzer:  &analyzer.Result{Graph: g, Packages: pkgs},
	})
	if err != nil {
		t.Fatal(err)
	}
	return store
}

func get(t *testing.T, srv *httptest.Server, path string) (int, map[string]any) {
	t.Helper()
	resp, err := http.Get(srv.URL + path)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode %s: %v", path, err)
	}
	return resp.StatusCode, body
}

func TestServeListResults(t *testing.T) {
	srv := httptest.NewServer(newRouter(testStore(t)))
	defer srv.Close()

	status, body := get(t, srv, "/api/results")
	if status != http.StatusOK {
		t.Fatalf("status = %d", status)
	}
	results, _ := body["results"].([]any)
	if len(results) != 1 || results[0] != "acme/app" {
		t.Errorf("results = %v", results)
	}
}

func TestServeResult(t *testing.T) {
	srv := httptest.NewServer(newRouter(testStore(t)))
	defer srv.Close()

	status, body := get(t, srv, "/api/result?name="+url.QueryEscape("acme/app"))
	if status != http.StatusOK {
		t.Fatalf("status = %d, body = %v", status, body)
	}
	if body["name"] != "acme/app" {
		t.Errorf("name = %v", body["name"])
	}

	// Unknown names are 404, a missing name parameter is 400.
	if status, _ := get(t, srv, "/api/result?name=nope"); status != http.StatusNotFound {
		t.Errorf("status = %d", status)
	}
	if status, _ := get(t, srv, "/api/result"); status != http.StatusBadRequest {
		t.Errorf("status = %d", status)
	}
}

func TestServePackages(t *testing.T) {
	srv := httptest.NewServer(newRouter(testStore(t)))
	defer srv.Close()

	status, body := get(t, srv, "/api/packages?name="+url.QueryEscape("acme/app"))
	if status != http.StatusOK {
		t.Fatalf("status = %d", status)
	}
	packages, _ := body["packages"].([]any)
	if len(packages) != 1 {
		t.Errorf("packages = %v", packages)
	}
}

func TestServePackageLicense(t *testing.T) {
	srv := httptest.NewServer(newRouter(testStore(t)))
	defer srv.Close()

	id := url.PathEscape("NPM::express:4.18.0")
	status, body := get(t, srv, "/api/packages/"+id+"/license?name="+url.QueryEscape("acme/app"))
	if status != http.StatusOK {
		t.Fatalf("status = %d, body = %v", status, body)
	}
	if body["license"] != "MIT" {
		t.Errorf("license = %v", body["license"])
	}

	missing := url.PathEscape("NPM::left-pad:1.0.0")
	if status, _ := get(t, srv, "/api/packages/"+missing+"/license?name="+url.QueryEscape("acme/app")); status != http.StatusNotFound {
		t.Errorf("status = %d for unknown package", status)
	}
}
