// internal/app/service/families/familyservice.go

// Package familyservice orchestrates multi-entity family mutations.
// The underlying store offers no multi-document transaction here, so
// every cascade runs as an ordered sequence of independently committed
// steps: children are deleted before their parent, and a child is
// persisted before the parent's reference to it is added. A crash
// mid-cascade therefore leaves an orphan or a dangling back-reference
// that a reconciliation pass can repair, never a reference to a record
// that cannot be recovered.
package familyservice

import (
	"context"
	"errors"

	"github.com/edusuite/tutordesk/internal/app/service/svcerrors"
	appointmentstore "github.com/edusuite/tutordesk/internal/app/store/appointments"
	seriesstore "github.com/edusuite/tutordesk/internal/app/store/couponseries"
	familystore "github.com/edusuite/tutordesk/internal/app/store/families"
	"github.com/edusuite/tutordesk/internal/app/store/queries/familyview"
	notestore "github.com/edusuite/tutordesk/internal/app/store/settlementnotes"
	studentstore "github.com/edusuite/tutordesk/internal/app/store/students"
	subjectstore "github.com/edusuite/tutordesk/internal/app/store/subjects"
	userstore "github.com/edusuite/tutordesk/internal/app/store/users"
	"github.com/edusuite/tutordesk/internal/app/system/cache"
	"github.com/edusuite/tutordesk/internal/app/system/cachekeys"
	"github.com/edusuite/tutordesk/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

const listPageSize = 20

// Service coordinates family mutations with their cache invalidations.
type Service struct {
	fams     *familystore.Store
	students *studentstore.Store
	notes    *notestore.Store
	series   *seriesstore.Store
	appts    *appointmentstore.Store
	users    *userstore.Store
	subjects *subjectstore.Store

	cache *cache.Cache
	log   *zap.Logger
}

func New(db *mongo.Database, c *cache.Cache, logger *zap.Logger) *Service {
	return &Service{
		fams:     familystore.New(db),
		students: studentstore.New(db),
		notes:    notestore.New(db),
		series:   seriesstore.New(db),
		appts:    appointmentstore.New(db),
		users:    userstore.New(db),
		subjects: subjectstore.New(db),
		cache:    c,
		log:      logger,
	}
}

func (s *Service) lookups() familyview.Lookups {
	return familyview.Lookups{
		Users:        cachedUserLookup{users: s.users, cache: s.cache},
		Subjects:     s.subjects,
		Appointments: s.appts,
	}
}

// cachedUserLookup reads user records through the users cache
// namespace. Display names change rarely, so every aggregate build
// hitting the same creator or admin should not re-query Mongo.
type cachedUserLookup struct {
	users *userstore.Store
	cache *cache.Cache
}

func (l cachedUserLookup) GetByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.User, error) {
	out := make([]models.User, 0, len(ids))
	var misses []primitive.ObjectID
	for _, id := range ids {
		if v, ok := l.cache.Get(cachekeys.NSUsers, cachekeys.User(id)); ok {
			if u, ok := v.(models.User); ok {
				out = append(out, u)
				continue
			}
		}
		misses = append(misses, id)
	}
	if len(misses) == 0 {
		return out, nil
	}
	fetched, err := l.users.GetByIDs(ctx, misses)
	if err != nil {
		return nil, err
	}
	for _, u := range fetched {
		if err := l.cache.Set(cachekeys.NSUsers, cachekeys.User(u.ID), cache.KindDetail, u); err != nil {
			return nil, err
		}
	}
	return append(out, fetched...), nil
}

// Create persists a new family, flushes the families namespace (list
// and stats views now include the new record) and returns the formatted
// aggregate.
func (s *Service) Create(ctx context.Context, fam models.Family) (familyview.FamilyView, error) {
	created, err := s.fams.Create(ctx, fam)
	if err != nil {
		return familyview.FamilyView{}, err
	}
	if _, err := s.cache.Clear(cachekeys.NSFamilies); err != nil {
		return familyview.FamilyView{}, s.cascadeFailed("create_family", created.ID, "invalidate_cache", err)
	}
	return familyview.Build(ctx, s.lookups(), created)
}

// Get returns the formatted aggregate for one family, read through the
// cache.
func (s *Service) Get(ctx context.Context, id string) (familyview.FamilyView, error) {
	oid, err := svcerrors.ParseID(id)
	if err != nil {
		return familyview.FamilyView{}, err
	}

	if cached, ok := s.cache.Get(cachekeys.NSFamilies, cachekeys.Family(oid)); ok {
		if view, ok := cached.(familyview.FamilyView); ok {
			return view, nil
		}
	}

	fam, err := s.fams.GetByID(ctx, oid)
	if err != nil {
		return familyview.FamilyView{}, mapNotFound(err)
	}
	view, err := familyview.Build(ctx, s.lookups(), fam)
	if err != nil {
		return familyview.FamilyView{}, err
	}
	if err := s.cache.Set(cachekeys.NSFamilies, cachekeys.Family(oid), cache.KindDetail, view); err != nil {
		return familyview.FamilyView{}, err
	}
	return view, nil
}

// List returns one page of families, read through the cache. Pages are
// 1-based and sorted newest first.
func (s *Service) List(ctx context.Context, page int) ([]models.Family, error) {
	if page < 1 {
		page = 1
	}
	key := cachekeys.FamilyList(page)
	if cached, ok := s.cache.Get(cachekeys.NSFamilies, key); ok {
		if fams, ok := cached.([]models.Family); ok {
			return fams, nil
		}
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip(int64((page - 1) * listPageSize)).
		SetLimit(listPageSize)
	fams, err := s.fams.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	if fams == nil {
		fams = []models.Family{}
	}
	if err := s.cache.Set(cachekeys.NSFamilies, key, cache.KindList, fams); err != nil {
		return nil, err
	}
	return fams, nil
}

// Stats summarizes the family collection.
type Stats struct {
	Total    int64            `json:"total"`
	ByStatus map[string]int64 `json:"by_status"`
}

// Stats returns the family total and counts by status, read through
// the cache.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	if cached, ok := s.cache.Get(cachekeys.NSFamilies, cachekeys.FamilyStats); ok {
		if stats, ok := cached.(Stats); ok {
			return stats, nil
		}
	}
	total, err := s.fams.Count(ctx, bson.M{})
	if err != nil {
		return Stats{}, err
	}
	byStatus, err := s.fams.CountByStatus(ctx)
	if err != nil {
		return Stats{}, err
	}
	stats := Stats{Total: total, ByStatus: byStatus}
	if err := s.cache.Set(cachekeys.NSFamilies, cachekeys.FamilyStats, cache.KindStats, stats); err != nil {
		return Stats{}, err
	}
	return stats, nil
}

// ContactUpdate carries the whitelisted primary-contact fields; empty
// strings are ignored.
type ContactUpdate struct {
	FirstName string
	LastName  string
	Email     string
	Phone     string
}

func (u ContactUpdate) set() bson.M {
	set := bson.M{}
	if u.FirstName != "" {
		set["primary_contact.first_name"] = u.FirstName
	}
	if u.LastName != "" {
		set["primary_contact.last_name"] = u.LastName
	}
	if u.Email != "" {
		set["primary_contact.email"] = u.Email
	}
	if u.Phone != "" {
		set["primary_contact.phone"] = u.Phone
	}
	return set
}

// AddressUpdate carries the whitelisted address fields.
type AddressUpdate struct {
	Street     string
	City       string
	PostalCode string
}

func (u AddressUpdate) set() bson.M {
	set := bson.M{}
	if u.Street != "" {
		set["address.street"] = u.Street
	}
	if u.City != "" {
		set["address.city"] = u.City
	}
	if u.PostalCode != "" {
		set["address.postal_code"] = u.PostalCode
	}
	return set
}

// CompanyUpdate carries the whitelisted company fields.
type CompanyUpdate struct {
	Name    string
	SIRET   string
	Address string
}

func (u CompanyUpdate) set() bson.M {
	set := bson.M{}
	if u.Name != "" {
		set["company.name"] = u.Name
	}
	if u.SIRET != "" {
		set["company.siret"] = u.SIRET
	}
	if u.Address != "" {
		set["company.address"] = u.Address
	}
	return set
}

// RequestUpdate carries the whitelisted lesson-request fields. Pointer
// fields distinguish "leave unchanged" from "set to zero".
type RequestUpdate struct {
	SubjectIDs   []primitive.ObjectID
	HoursPerWeek *int
	Notes        *string
}

func (u RequestUpdate) set() bson.M {
	set := bson.M{}
	if u.SubjectIDs != nil {
		set["request.subject_ids"] = u.SubjectIDs
	}
	if u.HoursPerWeek != nil {
		set["request.hours_per_week"] = *u.HoursPerWeek
	}
	if u.Notes != nil {
		set["request.notes"] = *u.Notes
	}
	return set
}

// sectionUpdate is implemented by the four partial-update payloads.
type sectionUpdate interface {
	set() bson.M
}

// UpdateContact applies a partial primary-contact update.
func (s *Service) UpdateContact(ctx context.Context, id string, u ContactUpdate) (familyview.FamilyView, error) {
	return s.updateSection(ctx, id, u)
}

// UpdateAddress applies a partial address update.
func (s *Service) UpdateAddress(ctx context.Context, id string, u AddressUpdate) (familyview.FamilyView, error) {
	return s.updateSection(ctx, id, u)
}

// UpdateCompany applies a partial company-info update.
func (s *Service) UpdateCompany(ctx context.Context, id string, u CompanyUpdate) (familyview.FamilyView, error) {
	return s.updateSection(ctx, id, u)
}

// UpdateRequest applies a partial lesson-request update.
func (s *Service) UpdateRequest(ctx context.Context, id string, u RequestUpdate) (familyview.FamilyView, error) {
	return s.updateSection(ctx, id, u)
}

// updateSection validates the id and payload before any store access,
// persists the partial update, then drops the one stale detail entry
// plus the list/stats views that might embed it. Unrelated cached
// aggregates stay warm.
func (s *Service) updateSection(ctx context.Context, id string, u sectionUpdate) (familyview.FamilyView, error) {
	oid, err := svcerrors.ParseID(id)
	if err != nil {
		return familyview.FamilyView{}, err
	}
	set := u.set()
	if len(set) == 0 {
		return familyview.FamilyView{}, svcerrors.ErrEmptyUpdate
	}

	matched, err := s.fams.SetFields(ctx, oid, set)
	if err != nil {
		return familyview.FamilyView{}, err
	}
	if matched == 0 {
		return familyview.FamilyView{}, svcerrors.ErrNotFound
	}

	if err := s.invalidateFamily(oid); err != nil {
		return familyview.FamilyView{}, s.cascadeFailed("update_family", oid, "invalidate_cache", err)
	}

	fam, err := s.fams.GetByID(ctx, oid)
	if err != nil {
		return familyview.FamilyView{}, mapNotFound(err)
	}
	return familyview.Build(ctx, s.lookups(), fam)
}

// AddStudent persists the canonical student record, then embeds its
// snapshot on the family. The canonical record exists before the
// family points at it, so a failure in between leaves an orphan
// student rather than a snapshot with no backing record.
func (s *Service) AddStudent(ctx context.Context, familyID string, st models.Student) (models.Student, error) {
	oid, err := svcerrors.ParseID(familyID)
	if err != nil {
		return models.Student{}, err
	}
	if _, err := s.fams.GetByID(ctx, oid); err != nil {
		return models.Student{}, mapNotFound(err)
	}

	st.FamilyID = oid
	created, err := s.students.Create(ctx, st)
	if err != nil {
		return models.Student{}, err
	}
	if err := s.fams.AddStudentSnapshot(ctx, oid, created.Snapshot()); err != nil {
		return models.Student{}, s.cascadeFailed("add_student", created.ID, "embed_snapshot", err)
	}
	if err := s.invalidateFamily(oid); err != nil {
		return models.Student{}, s.cascadeFailed("add_student", created.ID, "invalidate_cache", err)
	}
	return created, nil
}

// StudentUpdate carries the whitelisted student fields.
type StudentUpdate struct {
	FirstName string
	LastName  string
	Grade     string
	School    string
}

func (u StudentUpdate) set() bson.M {
	set := bson.M{}
	if u.FirstName != "" {
		set["first_name"] = u.FirstName
	}
	if u.LastName != "" {
		set["last_name"] = u.LastName
	}
	if u.Grade != "" {
		set["grade"] = u.Grade
	}
	if u.School != "" {
		set["school"] = u.School
	}
	return set
}

// UpdateStudent applies a partial update to the canonical student
// record and re-embeds the refreshed snapshot on the family.
func (s *Service) UpdateStudent(ctx context.Context, studentID string, u StudentUpdate) (models.Student, error) {
	oid, err := svcerrors.ParseID(studentID)
	if err != nil {
		return models.Student{}, err
	}
	set := u.set()
	if len(set) == 0 {
		return models.Student{}, svcerrors.ErrEmptyUpdate
	}

	matched, err := s.students.SetFields(ctx, oid, set)
	if err != nil {
		return models.Student{}, err
	}
	if matched == 0 {
		return models.Student{}, svcerrors.ErrNotFound
	}

	st, err := s.students.GetByID(ctx, oid)
	if err != nil {
		return models.Student{}, mapNotFound(err)
	}
	if err := s.fams.ReplaceStudentSnapshot(ctx, st.FamilyID, st.Snapshot()); err != nil {
		return models.Student{}, s.cascadeFailed("update_student", oid, "embed_snapshot", err)
	}
	if err := s.invalidateFamily(st.FamilyID); err != nil {
		return models.Student{}, s.cascadeFailed("update_student", oid, "invalidate_cache", err)
	}
	return st, nil
}

// RemoveStudent deletes the canonical student record and its embedded
// snapshot, and strips the student's note back-references.
func (s *Service) RemoveStudent(ctx context.Context, studentID string) error {
	oid, err := svcerrors.ParseID(studentID)
	if err != nil {
		return err
	}
	st, err := s.students.GetByID(ctx, oid)
	if err != nil {
		return mapNotFound(err)
	}

	if _, err := s.students.Delete(ctx, oid); err != nil {
		return s.cascadeFailed("remove_student", oid, "delete_student", err)
	}
	if err := s.fams.RemoveStudentSnapshot(ctx, st.FamilyID, oid); err != nil {
		return s.cascadeFailed("remove_student", oid, "remove_snapshot", err)
	}
	if err := s.invalidateFamily(st.FamilyID); err != nil {
		return s.cascadeFailed("remove_student", oid, "invalidate_cache", err)
	}
	return nil
}

// DeleteResult reports what a family deletion removed.
type DeleteResult struct {
	NotesDeleted        int64 `json:"notes_deleted"`
	AppointmentsDeleted int64 `json:"appointments_deleted"`
}

// Delete cascades over the family's children before removing the
// family itself: coupon series and student back-references for every
// owned note, then the notes, then the appointments, then the family.
// Deleting the parent first would strand children with an unresolvable
// owner, so children always go first.
func (s *Service) Delete(ctx context.Context, id string) (DeleteResult, error) {
	oid, err := svcerrors.ParseID(id)
	if err != nil {
		return DeleteResult{}, err
	}
	if _, err := s.fams.GetByID(ctx, oid); err != nil {
		return DeleteResult{}, mapNotFound(err)
	}

	notes, err := s.notes.ByFamily(ctx, oid)
	if err != nil {
		return DeleteResult{}, err
	}
	for _, note := range notes {
		if _, err := s.series.DeleteByNote(ctx, note.ID); err != nil {
			return DeleteResult{}, s.cascadeFailed("delete_family", oid, "delete_coupon_series", err)
		}
		if _, err := s.students.RemoveNoteRef(ctx, note.ID); err != nil {
			return DeleteResult{}, s.cascadeFailed("delete_family", oid, "remove_student_refs", err)
		}
	}

	var res DeleteResult
	res.NotesDeleted, err = s.notes.DeleteByFamily(ctx, oid)
	if err != nil {
		return DeleteResult{}, s.cascadeFailed("delete_family", oid, "delete_notes", err)
	}
	res.AppointmentsDeleted, err = s.appts.DeleteByFamily(ctx, oid)
	if err != nil {
		return res, s.cascadeFailed("delete_family", oid, "delete_appointments", err)
	}
	if _, err := s.fams.Delete(ctx, oid); err != nil {
		return res, s.cascadeFailed("delete_family", oid, "delete_family", err)
	}

	if err := s.invalidateFamily(oid); err != nil {
		return res, s.cascadeFailed("delete_family", oid, "invalidate_cache", err)
	}
	// The owned notes and appointments are gone too; their cached views
	// are all stale now.
	if _, err := s.cache.Clear(cachekeys.NSSettlementNotes); err != nil {
		return res, s.cascadeFailed("delete_family", oid, "invalidate_note_cache", err)
	}
	if _, err := s.cache.Invalidate(cachekeys.NSAppointments, cache.ExactKey(cachekeys.AppointmentList(oid))); err != nil {
		return res, s.cascadeFailed("delete_family", oid, "invalidate_appointment_cache", err)
	}
	return res, nil
}

// invalidateFamily drops one family's detail entry plus every list page
// and the stats view.
func (s *Service) invalidateFamily(id primitive.ObjectID) error {
	if _, err := s.cache.Invalidate(cachekeys.NSFamilies, cache.ExactKey(cachekeys.Family(id))); err != nil {
		return err
	}
	if _, err := s.cache.Invalidate(cachekeys.NSFamilies, cachekeys.FamilyListPrefix()); err != nil {
		return err
	}
	_, err := s.cache.Invalidate(cachekeys.NSFamilies, cache.ExactKey(cachekeys.FamilyStats))
	return err
}

func (s *Service) cascadeFailed(op string, entityID primitive.ObjectID, step string, err error) error {
	cerr := &svcerrors.CascadeError{Op: op, EntityID: entityID.Hex(), Step: step, Err: err}
	s.log.Error("cascade step failed",
		zap.String("op", op),
		zap.String("entity_id", cerr.EntityID),
		zap.String("step", step),
		zap.Error(err))
	return cerr
}

func mapNotFound(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return svcerrors.ErrNotFound
	}
	return err
}
