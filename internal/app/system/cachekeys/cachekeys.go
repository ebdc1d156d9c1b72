// internal/app/system/cachekeys/cachekeys.go

// Package cachekeys centralizes the cache namespaces, key naming
// convention and TTL policies used across the application.
//
// Keys follow "<entity>_<id>" for details, "<entities>_list_<page>" for
// list pages and "<entities>_stats" for aggregate counters. Producers
// and invalidators must build keys through these helpers so a mutation
// can drop every list variant with a single prefix scope.
package cachekeys

import (
	"strconv"
	"time"

	"github.com/edusuite/tutordesk/internal/app/system/cache"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Cache namespaces.
const (
	NSFamilies        = "families"
	NSSettlementNotes = "settlement_notes"
	NSAppointments    = "appointments"
	NSSubjects        = "subjects"
	NSUsers           = "users"
)

// DefaultPolicies returns the TTL policy for every namespace. List and
// stats views go stale on any write and get the short TTL; details are
// invalidated explicitly on mutation, so they can live longer.
func DefaultPolicies() map[string]cache.Policy {
	return map[string]cache.Policy{
		NSFamilies:        {ListTTL: 2 * time.Minute, DetailTTL: 10 * time.Minute},
		NSSettlementNotes: {ListTTL: 2 * time.Minute, DetailTTL: 10 * time.Minute},
		NSAppointments:    {ListTTL: 2 * time.Minute, DetailTTL: 10 * time.Minute},
		NSSubjects:        {ListTTL: time.Hour, DetailTTL: time.Hour},
		NSUsers:           {ListTTL: 5 * time.Minute, DetailTTL: 15 * time.Minute},
	}
}

// Family returns the detail key for one family.
func Family(id primitive.ObjectID) string {
	return "family_" + id.Hex()
}

// FamilyList returns the key for one page of the family list view.
func FamilyList(page int) string {
	return "families_list_" + strconv.Itoa(page)
}

// FamilyListPrefix scopes an invalidation to every family list page.
func FamilyListPrefix() cache.Scope {
	return cache.KeyPrefix("families_list")
}

// FamilyStats is the key for the family status counters.
const FamilyStats = "families_stats"

// Note returns the detail key for one settlement note.
func Note(id primitive.ObjectID) string {
	return "note_" + id.Hex()
}

// NoteList returns the key for one page of the settlement-note list view.
func NoteList(page int) string {
	return "notes_list_" + strconv.Itoa(page)
}

// NoteListPrefix scopes an invalidation to every note list page.
func NoteListPrefix() cache.Scope {
	return cache.KeyPrefix("notes_list")
}

// NoteStats is the key for settlement-note aggregate counters.
const NoteStats = "notes_stats"

// Appointment returns the detail key for one appointment.
func Appointment(id primitive.ObjectID) string {
	return "appointment_" + id.Hex()
}

// AppointmentList returns the key for a family's appointment list.
func AppointmentList(familyID primitive.ObjectID) string {
	return "appointments_list_" + familyID.Hex()
}

// SubjectList is the key for the full subject catalog. The catalog is
// small and changes rarely, so one list entry is enough.
const SubjectList = "subjects_list_all"

// User returns the detail key for one back-office user record.
func User(id primitive.ObjectID) string {
	return "user_" + id.Hex()
}
