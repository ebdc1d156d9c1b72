// internal/app/store/queries/familyview/familyview.go

// Package familyview builds the denormalized read view of a family:
// the raw document joined with the creator's display name, appointment
// details with their assigned admin's name, and subject names for the
// lesson request. This view is what gets cached and returned to clients.
package familyview

import (
	"context"
	"time"

	"github.com/edusuite/tutordesk/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Unknown is the placeholder for a relation whose document is missing.
// A cached aggregate must stay renderable even when a referenced record
// was deleted concurrently, so a missing relation degrades instead of
// failing the build.
const Unknown = "unknown"

// Minimal read interfaces satisfied by the user, subject and
// appointment stores. Kept small so tests can substitute fakes.
type UserLookup interface {
	GetByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.User, error)
}

type SubjectLookup interface {
	GetByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Subject, error)
}

type AppointmentLookup interface {
	GetByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Appointment, error)
}

// Lookups bundles the read-only collaborators of the formatter.
type Lookups struct {
	Users        UserLookup
	Subjects     SubjectLookup
	Appointments AppointmentLookup
}

// AppointmentView is one resolved appointment on the family view.
type AppointmentView struct {
	ID          primitive.ObjectID `json:"id"`
	ScheduledAt time.Time          `json:"scheduled_at"`
	Location    string             `json:"location,omitempty"`
	AdminName   string             `json:"admin_name"`
}

// FamilyView is the denormalized family aggregate.
type FamilyView struct {
	ID             primitive.ObjectID       `json:"id"`
	ContactName    string                   `json:"contact_name"`
	PrimaryContact models.PrimaryContact    `json:"primary_contact"`
	Address        models.Address           `json:"address"`
	Company        models.CompanyInfo       `json:"company,omitempty"`
	Status         string                   `json:"status"`
	Students       []models.EmbeddedStudent `json:"students"`

	SettlementNoteRefs []models.Ref `json:"settlement_note_refs"`

	RequestSubjects []string `json:"request_subjects"`
	HoursPerWeek    int      `json:"hours_per_week,omitempty"`
	RequestNotes    string   `json:"request_notes,omitempty"`

	CreatedByName string            `json:"created_by_name"`
	Appointments  []AppointmentView `json:"appointments"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Build resolves and inlines the family's relations. Lookup I/O errors
// are returned; a relation that simply does not exist resolves to the
// Unknown placeholder.
func Build(ctx context.Context, lk Lookups, fam models.Family) (FamilyView, error) {
	view := FamilyView{
		ID:                 fam.ID,
		ContactName:        fam.ContactName(),
		PrimaryContact:     fam.PrimaryContact,
		Address:            fam.Address,
		Company:            fam.Company,
		Status:             fam.Status,
		Students:           fam.Students,
		SettlementNoteRefs: fam.SettlementNoteRefs,
		HoursPerWeek:       fam.Request.HoursPerWeek,
		RequestNotes:       fam.Request.Notes,
		CreatedAt:          fam.CreatedAt,
		UpdatedAt:          fam.UpdatedAt,
	}
	if view.Students == nil {
		view.Students = []models.EmbeddedStudent{}
	}
	if view.SettlementNoteRefs == nil {
		view.SettlementNoteRefs = []models.Ref{}
	}

	apptIDs := make([]primitive.ObjectID, 0, len(fam.AppointmentRefs))
	for _, ref := range fam.AppointmentRefs {
		apptIDs = append(apptIDs, ref.ID)
	}
	appts, err := lk.Appointments.GetByIDs(ctx, apptIDs)
	if err != nil {
		return FamilyView{}, err
	}

	users, err := creatorAndAdmins(ctx, lk, fam, appts)
	if err != nil {
		return FamilyView{}, err
	}

	view.CreatedByName = Unknown
	if fam.CreatedByID != primitive.NilObjectID {
		if u, ok := users[fam.CreatedByID]; ok {
			view.CreatedByName = u.DisplayName()
		}
	}

	resolveAppointments(appts, users, &view)
	if err := resolveSubjects(ctx, lk, fam, &view); err != nil {
		return FamilyView{}, err
	}
	return view, nil
}

// creatorAndAdmins loads the creator plus every assigned admin in one
// query, keyed by id. Missing users are simply absent from the map.
func creatorAndAdmins(ctx context.Context, lk Lookups, fam models.Family, appts []models.Appointment) (map[primitive.ObjectID]models.User, error) {
	ids := make([]primitive.ObjectID, 0, 1+len(appts))
	if fam.CreatedByID != primitive.NilObjectID {
		ids = append(ids, fam.CreatedByID)
	}
	for _, a := range appts {
		if a.AdminID != nil && !a.AdminID.IsZero() {
			ids = append(ids, *a.AdminID)
		}
	}

	users, err := lk.Users.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[primitive.ObjectID]models.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}
	return byID, nil
}

func resolveAppointments(appts []models.Appointment, users map[primitive.ObjectID]models.User, view *FamilyView) {
	view.Appointments = make([]AppointmentView, 0, len(appts))
	for _, a := range appts {
		av := AppointmentView{
			ID:          a.ID,
			ScheduledAt: a.ScheduledAt,
			Location:    a.Location,
			AdminName:   Unknown,
		}
		if a.AdminID != nil {
			if u, ok := users[*a.AdminID]; ok {
				av.AdminName = u.DisplayName()
			}
		}
		view.Appointments = append(view.Appointments, av)
	}
}

func resolveSubjects(ctx context.Context, lk Lookups, fam models.Family, view *FamilyView) error {
	subs, err := lk.Subjects.GetByIDs(ctx, fam.Request.SubjectIDs)
	if err != nil {
		return err
	}
	byID := make(map[primitive.ObjectID]string, len(subs))
	for _, s := range subs {
		byID[s.ID] = s.Name
	}

	view.RequestSubjects = make([]string, 0, len(fam.Request.SubjectIDs))
	for _, id := range fam.Request.SubjectIDs {
		name, ok := byID[id]
		if !ok {
			name = Unknown
		}
		view.RequestSubjects = append(view.RequestSubjects, name)
	}
	return nil
}
