package familyview

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/edusuite/tutordesk/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type fakeUsers struct {
	users []models.User
	err   error
}

func (f fakeUsers) GetByIDs(_ context.Context, ids []primitive.ObjectID) ([]models.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []models.User
	for _, u := range f.users {
		for _, id := range ids {
			if u.ID == id {
				out = append(out, u)
			}
		}
	}
	return out, nil
}

type fakeSubjects struct {
	subjects []models.Subject
	err      error
}

func (f fakeSubjects) GetByIDs(_ context.Context, ids []primitive.ObjectID) ([]models.Subject, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []models.Subject
	for _, s := range f.subjects {
		for _, id := range ids {
			if s.ID == id {
				out = append(out, s)
			}
		}
	}
	return out, nil
}

type fakeAppointments struct {
	appts []models.Appointment
	err   error
}

func (f fakeAppointments) GetByIDs(_ context.Context, ids []primitive.ObjectID) ([]models.Appointment, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []models.Appointment
	for _, a := range f.appts {
		for _, id := range ids {
			if a.ID == id {
				out = append(out, a)
			}
		}
	}
	return out, nil
}

func TestBuild_ResolvesRelations(t *testing.T) {
	creator := models.User{ID: primitive.NewObjectID(), FirstName: "Claire", LastName: "Martin"}
	admin := models.User{ID: primitive.NewObjectID(), FirstName: "Paul", LastName: "Durand"}
	maths := models.Subject{ID: primitive.NewObjectID(), Name: "Mathematics"}
	physics := models.Subject{ID: primitive.NewObjectID(), Name: "Physics"}
	appt := models.Appointment{
		ID:          primitive.NewObjectID(),
		AdminID:     &admin.ID,
		ScheduledAt: time.Date(2026, 4, 2, 18, 0, 0, 0, time.UTC),
		Location:    "office",
	}

	fam := models.Family{
		ID:             primitive.NewObjectID(),
		Status:         models.FamilyClient,
		PrimaryContact: models.PrimaryContact{FirstName: "Anne", LastName: "Petit"},
		CreatedByID:    creator.ID,
		Request: models.LessonRequest{
			SubjectIDs:   []primitive.ObjectID{maths.ID, physics.ID},
			HoursPerWeek: 3,
		},
		AppointmentRefs: []models.Ref{{ID: appt.ID}},
	}

	lk := Lookups{
		Users:        fakeUsers{users: []models.User{creator, admin}},
		Subjects:     fakeSubjects{subjects: []models.Subject{maths, physics}},
		Appointments: fakeAppointments{appts: []models.Appointment{appt}},
	}

	view, err := Build(context.Background(), lk, fam)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	if view.ContactName != "Anne Petit" {
		t.Errorf("ContactName: got %q, want %q", view.ContactName, "Anne Petit")
	}
	if view.CreatedByName != "Claire Martin" {
		t.Errorf("CreatedByName: got %q, want %q", view.CreatedByName, "Claire Martin")
	}
	if len(view.Appointments) != 1 {
		t.Fatalf("Appointments: got %d, want 1", len(view.Appointments))
	}
	if view.Appointments[0].AdminName != "Paul Durand" {
		t.Errorf("AdminName: got %q, want %q", view.Appointments[0].AdminName, "Paul Durand")
	}
	if len(view.RequestSubjects) != 2 || view.RequestSubjects[0] != "Mathematics" || view.RequestSubjects[1] != "Physics" {
		t.Errorf("RequestSubjects: got %v", view.RequestSubjects)
	}
}

func TestBuild_MissingRelationsDegrade(t *testing.T) {
	// Creator, appointment admin and one subject are all missing from
	// their collections; the build must still succeed with placeholders.
	adminID := primitive.NewObjectID()
	appt := models.Appointment{ID: primitive.NewObjectID(), AdminID: &adminID}
	maths := models.Subject{ID: primitive.NewObjectID(), Name: "Mathematics"}

	fam := models.Family{
		ID:          primitive.NewObjectID(),
		CreatedByID: primitive.NewObjectID(),
		Request: models.LessonRequest{
			SubjectIDs: []primitive.ObjectID{maths.ID, primitive.NewObjectID()},
		},
		AppointmentRefs: []models.Ref{{ID: appt.ID}},
	}

	lk := Lookups{
		Users:        fakeUsers{},
		Subjects:     fakeSubjects{subjects: []models.Subject{maths}},
		Appointments: fakeAppointments{appts: []models.Appointment{appt}},
	}

	view, err := Build(context.Background(), lk, fam)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	if view.CreatedByName != Unknown {
		t.Errorf("CreatedByName: got %q, want %q", view.CreatedByName, Unknown)
	}
	if len(view.Appointments) != 1 || view.Appointments[0].AdminName != Unknown {
		t.Errorf("Appointments: got %+v, want admin name %q", view.Appointments, Unknown)
	}
	if len(view.RequestSubjects) != 2 || view.RequestSubjects[1] != Unknown {
		t.Errorf("RequestSubjects: got %v, want second entry %q", view.RequestSubjects, Unknown)
	}
}

func TestBuild_DeletedAppointmentDropsOut(t *testing.T) {
	// A dangling appointment ref (document already deleted) is simply
	// omitted from the view.
	fam := models.Family{
		ID:              primitive.NewObjectID(),
		AppointmentRefs: []models.Ref{{ID: primitive.NewObjectID()}},
	}

	lk := Lookups{
		Users:        fakeUsers{},
		Subjects:     fakeSubjects{},
		Appointments: fakeAppointments{},
	}

	view, err := Build(context.Background(), lk, fam)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if len(view.Appointments) != 0 {
		t.Errorf("Appointments: got %d, want 0", len(view.Appointments))
	}
}

func TestBuild_LookupErrorPropagates(t *testing.T) {
	boom := errors.New("connection reset")
	fam := models.Family{ID: primitive.NewObjectID(), CreatedByID: primitive.NewObjectID()}

	lk := Lookups{
		Users:        fakeUsers{err: boom},
		Subjects:     fakeSubjects{},
		Appointments: fakeAppointments{},
	}

	if _, err := Build(context.Background(), lk, fam); !errors.Is(err, boom) {
		t.Errorf("Build error: got %v, want %v", err, boom)
	}
}

func TestBuild_NilSlicesNormalized(t *testing.T) {
	fam := models.Family{ID: primitive.NewObjectID()}

	lk := Lookups{
		Users:        fakeUsers{},
		Subjects:     fakeSubjects{},
		Appointments: fakeAppointments{},
	}

	view, err := Build(context.Background(), lk, fam)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if view.Students == nil || view.SettlementNoteRefs == nil || view.Appointments == nil || view.RequestSubjects == nil {
		t.Error("view slices must be non-nil so the JSON encoding stays stable")
	}
}
