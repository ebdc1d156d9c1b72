package families_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/edusuite/tutordesk/internal/app/features/families"
	familyservice "github.com/edusuite/tutordesk/internal/app/service/families"
	"github.com/edusuite/tutordesk/internal/app/system/cache"
	"github.com/edusuite/tutordesk/internal/app/system/cachekeys"
	"github.com/edusuite/tutordesk/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

func newTestServer(t *testing.T) (*httptest.Server, *testutil.Fixtures) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	c := cache.New(cachekeys.DefaultPolicies())
	svc := familyservice.New(db, c, zap.NewNop())
	h := families.NewHandler(svc, zap.NewNop())

	srv := httptest.NewServer(families.Routes(h))
	t.Cleanup(srv.Close)
	return srv, testutil.NewFixtures(t, db)
}

func TestCreateAndView(t *testing.T) {
	srv, _ := newTestServer(t)

	body := `{"contact":{"first_name":"Jean","last_name":"Dupont","email":"jd@example.com"}}`
	resp, err := http.Post(srv.URL+"/", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST /: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("POST / status = %d, want 201", resp.StatusCode)
	}
	var created struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatalf("decode create response: %v", err)
	}
	if created.Status != "prospect" {
		t.Errorf("status = %q, want prospect", created.Status)
	}

	viewResp, err := http.Get(srv.URL + "/" + created.ID)
	if err != nil {
		t.Fatalf("GET /{id}: %v", err)
	}
	defer viewResp.Body.Close()
	if viewResp.StatusCode != http.StatusOK {
		t.Errorf("GET /{id} status = %d, want 200", viewResp.StatusCode)
	}
}

func TestCreateRequiresLastName(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Post(srv.URL+"/", "application/json", strings.NewReader(`{"contact":{"first_name":"X"}}`))
	if err != nil {
		t.Fatalf("POST /: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestViewErrorMapping(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/not-a-hex-id")
	if err != nil {
		t.Fatalf("GET bad id: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("bad id status = %d, want 400", resp.StatusCode)
	}

	resp, err = http.Get(srv.URL + "/" + primitive.NewObjectID().Hex())
	if err != nil {
		t.Fatalf("GET missing id: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("missing id status = %d, want 404", resp.StatusCode)
	}
}

func TestEmptyPatchRejected(t *testing.T) {
	srv, fx := newTestServer(t)
	ctx := context.Background()
	fam := fx.CreateFamily(ctx, "Patchless")

	req, err := http.NewRequest(http.MethodPatch, srv.URL+"/"+fam.ID.Hex()+"/contact", strings.NewReader(`{}`))
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("PATCH contact: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("empty patch status = %d, want 400", resp.StatusCode)
	}
}

func TestDeleteReturnsCascadeCounts(t *testing.T) {
	srv, fx := newTestServer(t)
	ctx := context.Background()

	fam := fx.CreateFamily(ctx, "Counts")
	fx.CreateNote(ctx, fam.ID, "C1")
	fx.CreateAppointment(ctx, fam.ID, nil)

	req, err := http.NewRequest(http.MethodDelete, srv.URL+"/"+fam.ID.Hex(), nil)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("DELETE: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("DELETE status = %d, want 200", resp.StatusCode)
	}
	var res struct {
		NotesDeleted        int64 `json:"notes_deleted"`
		AppointmentsDeleted int64 `json:"appointments_deleted"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		t.Fatalf("decode delete response: %v", err)
	}
	if res.NotesDeleted != 1 || res.AppointmentsDeleted != 1 {
		t.Errorf("cascade counts = %d notes, %d appointments; want 1 and 1",
			res.NotesDeleted, res.AppointmentsDeleted)
	}
}
