// Package apptservice coordinates appointment mutations with the
// owning family's ref array and cached aggregate.
package apptservice

import (
	"context"
	"errors"
	"time"

	"github.com/edusuite/tutordesk/internal/app/service/svcerrors"
	appointmentstore "github.com/edusuite/tutordesk/internal/app/store/appointments"
	familystore "github.com/edusuite/tutordesk/internal/app/store/families"
	"github.com/edusuite/tutordesk/internal/app/system/cache"
	"github.com/edusuite/tutordesk/internal/app/system/cachekeys"
	"github.com/edusuite/tutordesk/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// ErrScheduleInPast is returned when an appointment is requested for a
// past instant.
var ErrScheduleInPast = errors.New("appointment cannot be scheduled in the past")

type Service struct {
	appts *appointmentstore.Store
	fams  *familystore.Store

	cache *cache.Cache
	log   *zap.Logger
}

func New(db *mongo.Database, c *cache.Cache, logger *zap.Logger) *Service {
	return &Service{
		appts: appointmentstore.New(db),
		fams:  familystore.New(db),
		cache: c,
		log:   logger,
	}
}

// CreateInput carries one appointment request.
type CreateInput struct {
	AdminID     *primitive.ObjectID
	ScheduledAt time.Time
	Location    string
	Notes       string
}

// Create persists the appointment then adds the family's ref to it.
func (s *Service) Create(ctx context.Context, familyID string, in CreateInput) (models.Appointment, error) {
	famOID, err := svcerrors.ParseID(familyID)
	if err != nil {
		return models.Appointment{}, err
	}
	if in.ScheduledAt.Before(time.Now().UTC()) {
		return models.Appointment{}, ErrScheduleInPast
	}
	if _, err := s.fams.GetByID(ctx, famOID); err != nil {
		return models.Appointment{}, mapNotFound(err)
	}

	appt, err := s.appts.Create(ctx, models.Appointment{
		FamilyID:    famOID,
		AdminID:     in.AdminID,
		ScheduledAt: in.ScheduledAt,
		Location:    in.Location,
		Notes:       in.Notes,
	})
	if err != nil {
		return models.Appointment{}, err
	}
	if err := s.fams.AddAppointmentRef(ctx, famOID, appt.ID); err != nil {
		return models.Appointment{}, s.cascadeFailed("create_appointment", appt.ID, "add_family_ref", err)
	}
	if err := s.invalidate(famOID); err != nil {
		return models.Appointment{}, s.cascadeFailed("create_appointment", appt.ID, "invalidate_cache", err)
	}
	return appt, nil
}

// ByFamily lists a family's appointments, read through the cache.
func (s *Service) ByFamily(ctx context.Context, familyID string) ([]models.Appointment, error) {
	famOID, err := svcerrors.ParseID(familyID)
	if err != nil {
		return nil, err
	}

	key := cachekeys.AppointmentList(famOID)
	if cached, ok := s.cache.Get(cachekeys.NSAppointments, key); ok {
		if appts, ok := cached.([]models.Appointment); ok {
			return appts, nil
		}
	}

	appts, err := s.appts.ByFamily(ctx, famOID)
	if err != nil {
		return nil, err
	}
	if appts == nil {
		appts = []models.Appointment{}
	}
	if err := s.cache.Set(cachekeys.NSAppointments, key, cache.KindList, appts); err != nil {
		return nil, err
	}
	return appts, nil
}

// Delete removes the appointment and the family's ref to it.
func (s *Service) Delete(ctx context.Context, id string) error {
	oid, err := svcerrors.ParseID(id)
	if err != nil {
		return err
	}
	appt, err := s.appts.GetByID(ctx, oid)
	if err != nil {
		return mapNotFound(err)
	}

	if _, err := s.appts.Delete(ctx, oid); err != nil {
		return s.cascadeFailed("delete_appointment", oid, "delete_appointment", err)
	}
	if err := s.fams.RemoveAppointmentRef(ctx, appt.FamilyID, oid); err != nil {
		return s.cascadeFailed("delete_appointment", oid, "remove_family_ref", err)
	}
	if err := s.invalidate(appt.FamilyID); err != nil {
		return s.cascadeFailed("delete_appointment", oid, "invalidate_cache", err)
	}
	return nil
}

// invalidate drops every cached family view (detail aggregate, list
// pages holding full Family documents, stats) plus the per-family
// appointment list, mirroring invalidateFamily in the family service.
func (s *Service) invalidate(familyID primitive.ObjectID) error {
	if _, err := s.cache.Invalidate(cachekeys.NSFamilies, cache.ExactKey(cachekeys.Family(familyID))); err != nil {
		return err
	}
	if _, err := s.cache.Invalidate(cachekeys.NSFamilies, cachekeys.FamilyListPrefix()); err != nil {
		return err
	}
	if _, err := s.cache.Invalidate(cachekeys.NSFamilies, cache.ExactKey(cachekeys.FamilyStats)); err != nil {
		return err
	}
	_, err := s.cache.Invalidate(cachekeys.NSAppointments, cache.ExactKey(cachekeys.AppointmentList(familyID)))
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
