package bootstrap

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/edusuite/tutordesk/internal/app/system/cache"
	"github.com/edusuite/tutordesk/internal/app/system/cachekeys"
	"github.com/edusuite/tutordesk/internal/testutil"
)

func TestBuildHandler_MountsFeatureRouters(t *testing.T) {
	db := testutil.SetupTestDB(t)

	appCache = cache.New(cachekeys.DefaultPolicies())
	deps := DBDeps{
		TutorDeskMongoClient:   db.Client(),
		TutorDeskMongoDatabase: db,
	}

	h, err := BuildHandler(nil, AppConfig{}, deps, testLogger())
	if err != nil {
		t.Fatalf("BuildHandler failed: %v", err)
	}

	srv := httptest.NewServer(h)
	defer srv.Close()

	for _, path := range []string{"/health", "/families", "/settlement-notes", "/subjects"} {
		resp, err := http.Get(srv.URL + path)
		if err != nil {
			t.Fatalf("GET %s failed: %v", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode == http.StatusNotFound {
			t.Errorf("GET %s returned 404, route not mounted", path)
		}
	}
}
