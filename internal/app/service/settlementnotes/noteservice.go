// internal/app/service/settlementnotes/noteservice.go

// Package noteservice orchestrates settlement-note issuance, redemption
// and deletion. Issuance and deletion touch four collections (notes,
// coupon series, students, families) plus two cache namespaces; the
// ordering rules from the family service apply here too: children
// before parents on delete, records before references on create.
package noteservice

import (
	"context"
	"errors"

	"github.com/edusuite/tutordesk/internal/app/service/svcerrors"
	counterstore "github.com/edusuite/tutordesk/internal/app/store/counters"
	seriesstore "github.com/edusuite/tutordesk/internal/app/store/couponseries"
	familystore "github.com/edusuite/tutordesk/internal/app/store/families"
	notestore "github.com/edusuite/tutordesk/internal/app/store/settlementnotes"
	studentstore "github.com/edusuite/tutordesk/internal/app/store/students"
	"github.com/edusuite/tutordesk/internal/app/system/cache"
	"github.com/edusuite/tutordesk/internal/app/system/cachekeys"
	"github.com/edusuite/tutordesk/internal/app/system/couponcode"
	"github.com/edusuite/tutordesk/internal/domain/models"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

var (
	// ErrInvalidQuantity is returned when a note is requested with a
	// non-positive coupon count.
	ErrInvalidQuantity = errors.New("coupon quantity must be positive")

	// ErrStudentNotInFamily is returned when a beneficiary does not
	// belong to the note's family.
	ErrStudentNotInFamily = errors.New("student does not belong to this family")

	// ErrCouponUnavailable is returned when a redemption targets a
	// coupon that is already used or deleted.
	ErrCouponUnavailable = errors.New("coupon is not available")
)

const listPageSize = 20

// statsMonths bounds the monthly issuance aggregation.
const statsMonths = 12

// Service coordinates settlement-note mutations with their cache
// invalidations and family status transitions.
type Service struct {
	notes    *notestore.Store
	series   *seriesstore.Store
	fams     *familystore.Store
	students *studentstore.Store
	counters *counterstore.Store

	cache *cache.Cache
	log   *zap.Logger
}

func New(db *mongo.Database, c *cache.Cache, logger *zap.Logger) *Service {
	return &Service{
		notes:    notestore.New(db),
		series:   seriesstore.New(db),
		fams:     familystore.New(db),
		students: studentstore.New(db),
		counters: counterstore.New(db),
		cache:    c,
		log:      logger,
	}
}

// CreateInput carries the issuance request for one settlement note.
type CreateInput struct {
	StudentIDs  []string
	Quantity    int
	HourlyRate  float64
	CreatedByID primitive.ObjectID
}

// Create issues a settlement note for the family: reserves a block of
// coupon codes from the global sequence, embeds the coupon batch on the
// note, mirrors it into the coupon-series tables, wires the student and
// family back-references, and promotes a prospect family to client.
func (s *Service) Create(ctx context.Context, familyID string, in CreateInput) (models.SettlementNote, error) {
	famOID, err := svcerrors.ParseID(familyID)
	if err != nil {
		return models.SettlementNote{}, err
	}
	if in.Quantity <= 0 {
		return models.SettlementNote{}, ErrInvalidQuantity
	}

	fam, err := s.fams.GetByID(ctx, famOID)
	if err != nil {
		return models.SettlementNote{}, mapNotFound(err)
	}

	studentIDs := make([]primitive.ObjectID, 0, len(in.StudentIDs))
	for _, raw := range in.StudentIDs {
		oid, err := svcerrors.ParseID(raw)
		if err != nil {
			return models.SettlementNote{}, err
		}
		st, err := s.students.GetByID(ctx, oid)
		if err != nil {
			return models.SettlementNote{}, mapNotFound(err)
		}
		if st.FamilyID != famOID {
			return models.SettlementNote{}, ErrStudentNotInFamily
		}
		studentIDs = append(studentIDs, oid)
	}

	first, err := s.counters.Next(ctx, counterstore.CouponSequence, int64(in.Quantity))
	if err != nil {
		return models.SettlementNote{}, err
	}
	codes := couponcode.Batch(first, in.Quantity)
	coupons := make([]models.Coupon, 0, len(codes))
	for _, code := range codes {
		coupons = append(coupons, models.Coupon{
			ID:     primitive.NewObjectID(),
			Code:   code,
			Status: models.CouponAvailable,
		})
	}

	note, err := s.notes.Create(ctx, models.SettlementNote{
		FamilyID:    famOID,
		Reference:   uuid.NewString(),
		StudentIDs:  studentIDs,
		Quantity:    in.Quantity,
		HourlyRate:  in.HourlyRate,
		Coupons:     coupons,
		CreatedByID: in.CreatedByID,
	})
	if err != nil {
		return models.SettlementNote{}, err
	}

	if _, err := s.series.CreateForNote(ctx, note); err != nil {
		return models.SettlementNote{}, s.cascadeFailed("create_note", note.ID, "create_coupon_series", err)
	}
	if len(studentIDs) > 0 {
		if err := s.students.AddNoteRef(ctx, studentIDs, note.ID); err != nil {
			return models.SettlementNote{}, s.cascadeFailed("create_note", note.ID, "add_student_refs", err)
		}
	}
	if err := s.fams.AddSettlementNoteRef(ctx, famOID, note.ID); err != nil {
		return models.SettlementNote{}, s.cascadeFailed("create_note", note.ID, "add_family_ref", err)
	}
	if fam.Status == models.FamilyProspect {
		if err := s.fams.SetStatus(ctx, famOID, models.FamilyClient); err != nil {
			return models.SettlementNote{}, s.cascadeFailed("create_note", note.ID, "promote_family", err)
		}
	}

	if err := s.invalidateAfterIssuance(famOID, note.ID); err != nil {
		return models.SettlementNote{}, s.cascadeFailed("create_note", note.ID, "invalidate_cache", err)
	}
	return note, nil
}

// Get returns one settlement note, read through the cache.
func (s *Service) Get(ctx context.Context, id string) (models.SettlementNote, error) {
	oid, err := svcerrors.ParseID(id)
	if err != nil {
		return models.SettlementNote{}, err
	}

	if cached, ok := s.cache.Get(cachekeys.NSSettlementNotes, cachekeys.Note(oid)); ok {
		if note, ok := cached.(models.SettlementNote); ok {
			return note, nil
		}
	}

	note, err := s.notes.GetByID(ctx, oid)
	if err != nil {
		return models.SettlementNote{}, mapNotFound(err)
	}
	if err := s.cache.Set(cachekeys.NSSettlementNotes, cachekeys.Note(oid), cache.KindDetail, note); err != nil {
		return models.SettlementNote{}, err
	}
	return note, nil
}

// List returns one page of settlement notes, newest first, read through
// the cache.
func (s *Service) List(ctx context.Context, page int) ([]models.SettlementNote, error) {
	if page < 1 {
		page = 1
	}
	key := cachekeys.NoteList(page)
	if cached, ok := s.cache.Get(cachekeys.NSSettlementNotes, key); ok {
		if notes, ok := cached.([]models.SettlementNote); ok {
			return notes, nil
		}
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip(int64((page - 1) * listPageSize)).
		SetLimit(listPageSize)
	notes, err := s.notes.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	if notes == nil {
		notes = []models.SettlementNote{}
	}
	if err := s.cache.Set(cachekeys.NSSettlementNotes, key, cache.KindList, notes); err != nil {
		return nil, err
	}
	return notes, nil
}

// Stats summarizes the settlement-note collection.
type Stats struct {
	Total   int64                    `json:"total"`
	Monthly []notestore.MonthlyTotal `json:"monthly"`
}

// Stats returns the all-time note count plus per-month issuance totals
// for the trailing year, read through the cache.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	if cached, ok := s.cache.Get(cachekeys.NSSettlementNotes, cachekeys.NoteStats); ok {
		if stats, ok := cached.(Stats); ok {
			return stats, nil
		}
	}
	total, err := s.notes.Count(ctx, bson.M{})
	if err != nil {
		return Stats{}, err
	}
	totals, err := s.notes.MonthlyTotals(ctx, statsMonths)
	if err != nil {
		return Stats{}, err
	}
	if totals == nil {
		totals = []notestore.MonthlyTotal{}
	}
	stats := Stats{Total: total, Monthly: totals}
	if err := s.cache.Set(cachekeys.NSSettlementNotes, cachekeys.NoteStats, cache.KindStats, stats); err != nil {
		return Stats{}, err
	}
	return stats, nil
}

// RedeemCoupon consumes one available coupon: the embedded copy on the
// note flips to used, the series counter is bumped under its
// exhaustion guard, and the note's cached detail is dropped.
func (s *Service) RedeemCoupon(ctx context.Context, noteID, couponID string) (models.SettlementNote, error) {
	noteOID, err := svcerrors.ParseID(noteID)
	if err != nil {
		return models.SettlementNote{}, err
	}
	couponOID, err := svcerrors.ParseID(couponID)
	if err != nil {
		return models.SettlementNote{}, err
	}

	note, err := s.notes.GetByID(ctx, noteOID)
	if err != nil {
		return models.SettlementNote{}, mapNotFound(err)
	}
	var target *models.Coupon
	for i := range note.Coupons {
		if note.Coupons[i].ID == couponOID {
			target = &note.Coupons[i]
			break
		}
	}
	if target == nil {
		return models.SettlementNote{}, svcerrors.ErrNotFound
	}
	if target.Status != models.CouponAvailable {
		return models.SettlementNote{}, ErrCouponUnavailable
	}

	if _, err := s.notes.SetCouponStatus(ctx, noteOID, couponOID, models.CouponUsed); err != nil {
		return models.SettlementNote{}, s.cascadeFailed("redeem_coupon", couponOID, "flip_embedded", err)
	}
	series, err := s.series.ByNote(ctx, noteOID)
	if err != nil {
		return models.SettlementNote{}, s.cascadeFailed("redeem_coupon", couponOID, "load_series", err)
	}
	if err := s.series.MarkUsed(ctx, series.ID, couponOID); err != nil {
		return models.SettlementNote{}, s.cascadeFailed("redeem_coupon", couponOID, "mark_series", err)
	}

	if err := s.invalidateNote(noteOID); err != nil {
		return models.SettlementNote{}, s.cascadeFailed("redeem_coupon", couponOID, "invalidate_cache", err)
	}
	return s.notes.GetByID(ctx, noteOID)
}

// CouponRows returns the normalized coupon rows backing a note's
// series, the store-level view of the coupons a reconciliation pass
// checks against the embedded copies.
func (s *Service) CouponRows(ctx context.Context, noteID string) ([]models.CouponRow, error) {
	noteOID, err := svcerrors.ParseID(noteID)
	if err != nil {
		return nil, err
	}
	if _, err := s.notes.GetByID(ctx, noteOID); err != nil {
		return nil, mapNotFound(err)
	}
	series, err := s.series.ByNote(ctx, noteOID)
	if err != nil {
		return nil, mapNotFound(err)
	}
	rows, err := s.series.Rows(ctx, series.ID)
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []models.CouponRow{}
	}
	return rows, nil
}

// Delete removes a settlement note and everything hanging off it: the
// coupon series, the student back-references and the family's ref. A
// client family whose last note disappears is demoted back to prospect.
func (s *Service) Delete(ctx context.Context, id string) error {
	oid, err := svcerrors.ParseID(id)
	if err != nil {
		return err
	}
	note, err := s.notes.GetByID(ctx, oid)
	if err != nil {
		return mapNotFound(err)
	}

	if _, err := s.series.DeleteByNote(ctx, oid); err != nil {
		return s.cascadeFailed("delete_note", oid, "delete_coupon_series", err)
	}
	if _, err := s.students.RemoveNoteRef(ctx, oid); err != nil {
		return s.cascadeFailed("delete_note", oid, "remove_student_refs", err)
	}
	if _, err := s.notes.Delete(ctx, oid); err != nil {
		return s.cascadeFailed("delete_note", oid, "delete_note", err)
	}
	if err := s.fams.RemoveSettlementNoteRef(ctx, note.FamilyID, oid); err != nil {
		return s.cascadeFailed("delete_note", oid, "remove_family_ref", err)
	}

	fam, err := s.fams.GetByID(ctx, note.FamilyID)
	if err == nil && fam.Status == models.FamilyClient && len(fam.SettlementNoteRefs) == 0 {
		if err := s.fams.SetStatus(ctx, note.FamilyID, models.FamilyProspect); err != nil {
			return s.cascadeFailed("delete_note", oid, "demote_family", err)
		}
	} else if err != nil && !errors.Is(err, mongo.ErrNoDocuments) {
		return s.cascadeFailed("delete_note", oid, "reload_family", err)
	}

	if err := s.invalidateAfterIssuance(note.FamilyID, oid); err != nil {
		return s.cascadeFailed("delete_note", oid, "invalidate_cache", err)
	}
	return nil
}

// invalidateAfterIssuance drops every cached view that embeds either
// the note or its family: the note's detail, the note list and stats
// views, and the family's detail, list and stats views.
func (s *Service) invalidateAfterIssuance(familyID, noteID primitive.ObjectID) error {
	if err := s.invalidateNote(noteID); err != nil {
		return err
	}
	if _, err := s.cache.Invalidate(cachekeys.NSFamilies, cache.ExactKey(cachekeys.Family(familyID))); err != nil {
		return err
	}
	if _, err := s.cache.Invalidate(cachekeys.NSFamilies, cachekeys.FamilyListPrefix()); err != nil {
		return err
	}
	_, err := s.cache.Invalidate(cachekeys.NSFamilies, cache.ExactKey(cachekeys.FamilyStats))
	return err
}

// invalidateNote drops the note's detail plus the list and stats views.
func (s *Service) invalidateNote(noteID primitive.ObjectID) error {
	if _, err := s.cache.Invalidate(cachekeys.NSSettlementNotes, cache.ExactKey(cachekeys.Note(noteID))); err != nil {
		return err
	}
	if _, err := s.cache.Invalidate(cachekeys.NSSettlementNotes, cachekeys.NoteListPrefix()); err != nil {
		return err
	}
	_, err := s.cache.Invalidate(cachekeys.NSSettlementNotes, cache.ExactKey(cachekeys.NoteStats))
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
