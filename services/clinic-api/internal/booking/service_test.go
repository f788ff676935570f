package booking

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/clinicore/dentbook/services/clinic-api/internal/model"
)

// The test clock is pinned to Monday 2026-03-02 08:00.
var testNow = time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

var (
	staff  = Actor{ID: "user-admin", Role: RoleStaff}
	client = Actor{ID: "user-1", Role: RoleClient, ClientID: "cli-1"}
)

func date(s string) time.Time {
	d, err := model.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func clock(s string) model.Minutes {
	m, err := model.ParseClock(s)
	if err != nil {
		panic(err)
	}
	return m
}

func newFixture(t *testing.T) (*Service, *memStore) {
	t.Helper()
	store := newMemStore()
	store.addDentist("den-1")
	store.addDentist("den-2")
	store.addClient("cli-1")
	store.addClient("cli-2")
	store.addService("svc-1")

	// Mon-Fri 09:00-17:00, 30-minute slots, for both dentists.
	for _, dentist := range []string{"den-1", "den-2"} {
		for wd := 1; wd <= 5; wd++ {
			av, err := model.NewAvailability(dentist, wd, clock("09:00"), clock("17:00"), 30)
			if err != nil {
				t.Fatalf("NewAvailability: %v", err)
			}
			if _, err := store.CreateAvailability(context.Background(), av); err != nil {
				t.Fatalf("CreateAvailability: %v", err)
			}
		}
	}
	return NewWithClock(store, func() time.Time { return testNow }), store
}

func mustBook(t *testing.T, svc *Service, actor Actor, req CreateRequest) model.Appointment {
	t.Helper()
	appt, err := svc.CreateAppointment(context.Background(), actor, req)
	if err != nil {
		t.Fatalf("CreateAppointment: %v", err)
	}
	return appt
}

func TestListAvailableSlots_NextMonday(t *testing.T) {
	svc, _ := newFixture(t)

	slots, err := svc.ListAvailableSlots(context.Background(), "den-1", date("2026-03-09"))
	if err != nil {
		t.Fatalf("ListAvailableSlots: %v", err)
	}
	if len(slots) != 16 {
		t.Fatalf("expected 16 slots, got %d", len(slots))
	}
	if slots[0].Start.String() != "09:00" || slots[0].End.String() != "09:30" {
		t.Fatalf("unexpected first slot %s-%s", slots[0].Start, slots[0].End)
	}
	last := slots[15]
	if last.Start.String() != "16:30" || last.End.String() != "17:00" {
		t.Fatalf("unexpected last slot %s-%s", last.Start, last.End)
	}
	for _, s := range slots {
		if !s.Available {
			t.Fatalf("slot %s-%s should be free on an empty ledger", s.Start, s.End)
		}
	}
}

func TestListAvailableSlots_NoTemplateDay(t *testing.T) {
	svc, _ := newFixture(t)

	// Sunday has no template row: empty result, not an error.
	slots, err := svc.ListAvailableSlots(context.Background(), "den-1", date("2026-03-08"))
	if err != nil {
		t.Fatalf("ListAvailableSlots: %v", err)
	}
	if len(slots) != 0 {
		t.Fatalf("expected no slots on Sunday, got %d", len(slots))
	}
}

func TestListAvailableSlots_InactiveTemplate(t *testing.T) {
	svc, store := newFixture(t)

	av, err := store.GetAvailability(context.Background(), "den-1", 1)
	if err != nil {
		t.Fatalf("GetAvailability: %v", err)
	}
	inactive := false
	if _, err := svc.UpdateAvailability(context.Background(), staff, av.ID, AvailabilityChanges{Active: &inactive}); err != nil {
		t.Fatalf("UpdateAvailability: %v", err)
	}

	slots, err := svc.ListAvailableSlots(context.Background(), "den-1", date("2026-03-09"))
	if err != nil {
		t.Fatalf("ListAvailableSlots: %v", err)
	}
	if len(slots) != 0 {
		t.Fatalf("expected no slots for deactivated weekday, got %d", len(slots))
	}
}

func TestListAvailableSlots_MarksBookedSlots(t *testing.T) {
	svc, _ := newFixture(t)

	mustBook(t, svc, client, CreateRequest{
		DentistID: "den-1", ServiceID: "svc-1",
		Date: date("2026-03-09"), Start: clock("10:00"), End: clock("10:30"),
	})

	slots, err := svc.ListAvailableSlots(context.Background(), "den-1", date("2026-03-09"))
	if err != nil {
		t.Fatalf("ListAvailableSlots: %v", err)
	}
	for _, s := range slots {
		want := s.Start.String() != "10:00"
		if s.Available != want {
			t.Fatalf("slot %s-%s availability = %v, want %v", s.Start, s.End, s.Available, want)
		}
	}
}

func TestCreateAppointment_ReferenceFormat(t *testing.T) {
	svc, _ := newFixture(t)

	first := mustBook(t, svc, client, CreateRequest{
		DentistID: "den-1", ServiceID: "svc-1",
		Date: date("2026-03-09"), Start: clock("09:00"), End: clock("09:30"),
	})
	if first.Reference != "DC-2026-00001" {
		t.Fatalf("unexpected reference %q", first.Reference)
	}
	if first.Status != model.StatusPending {
		t.Fatalf("new appointment should be pending, got %s", first.Status)
	}

	second := mustBook(t, svc, client, CreateRequest{
		DentistID: "den-1", ServiceID: "svc-1",
		Date: date("2026-03-09"), Start: clock("11:00"), End: clock("11:30"),
	})
	if second.Reference != "DC-2026-00002" {
		t.Fatalf("unexpected reference %q", second.Reference)
	}
}

func TestCreateAppointment_ReferenceResetsEachYear(t *testing.T) {
	svc, _ := newFixture(t)

	december := mustBook(t, svc, client, CreateRequest{
		DentistID: "den-1", ServiceID: "svc-1",
		Date: date("2026-12-28"), Start: clock("09:00"), End: clock("09:30"),
	})
	if december.Reference != "DC-2026-00001" {
		t.Fatalf("unexpected reference %q", december.Reference)
	}

	// The sequence restarts at 1 in the new year, zero-padded to five
	// digits, keyed by the appointment date.
	january := mustBook(t, svc, client, CreateRequest{
		DentistID: "den-1", ServiceID: "svc-1",
		Date: date("2027-01-04"), Start: clock("09:00"), End: clock("09:30"),
	})
	if january.Reference != "DC-2027-00001" {
		t.Fatalf("unexpected reference %q", january.Reference)
	}
}

func TestCreateAppointment_PartialOverlapRejected(t *testing.T) {
	svc, _ := newFixture(t)

	booked := mustBook(t, svc, client, CreateRequest{
		DentistID: "den-1", ServiceID: "svc-1",
		Date: date("2026-03-09"), Start: clock("10:00"), End: clock("10:30"),
	})
	if _, err := svc.SetStatus(context.Background(), staff, booked.ID, model.StatusConfirmed, "", ""); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}

	other := Actor{ID: "user-2", Role: RoleClient, ClientID: "cli-2"}
	_, err := svc.CreateAppointment(context.Background(), other, CreateRequest{
		DentistID: "den-1", ServiceID: "svc-1",
		Date: date("2026-03-09"), Start: clock("09:45"), End: clock("10:15"),
	})
	var conflict *ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected ConflictError, got %v", err)
	}
	if conflict.Subject != SubjectDentist {
		t.Fatalf("expected dentist conflict, got %s", conflict.Subject)
	}
}

func TestCreateAppointment_ContainedIntervalRejected(t *testing.T) {
	svc, _ := newFixture(t)

	mustBook(t, svc, client, CreateRequest{
		DentistID: "den-1", ServiceID: "svc-1",
		Date: date("2026-03-09"), Start: clock("09:00"), End: clock("10:00"),
	})

	// Fully inside the existing booking: a boundary-only check would miss it.
	other := Actor{ID: "user-2", Role: RoleClient, ClientID: "cli-2"}
	_, err := svc.CreateAppointment(context.Background(), other, CreateRequest{
		DentistID: "den-1", ServiceID: "svc-1",
		Date: date("2026-03-09"), Start: clock("09:15"), End: clock("09:45"),
	})
	var conflict *ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected ConflictError, got %v", err)
	}
}

func TestCreateAppointment_ClientDoubleBookingAcrossDentists(t *testing.T) {
	svc, _ := newFixture(t)

	mustBook(t, svc, client, CreateRequest{
		DentistID: "den-1", ServiceID: "svc-1",
		Date: date("2026-03-09"), Start: clock("09:00"), End: clock("09:30"),
	})

	// Same client, different dentist, overlapping time.
	_, err := svc.CreateAppointment(context.Background(), client, CreateRequest{
		DentistID: "den-2", ServiceID: "svc-1",
		Date: date("2026-03-09"), Start: clock("09:15"), End: clock("09:45"),
	})
	var conflict *ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected ConflictError, got %v", err)
	}
	if conflict.Subject != SubjectClient {
		t.Fatalf("expected client conflict, got %s", conflict.Subject)
	}
}

func TestCreateAppointment_CancelledDoesNotOccupy(t *testing.T) {
	svc, _ := newFixture(t)

	appt := mustBook(t, svc, client, CreateRequest{
		DentistID: "den-1", ServiceID: "svc-1",
		Date: date("2026-03-09"), Start: clock("09:00"), End: clock("09:30"),
	})
	if _, err := svc.CancelAppointment(context.Background(), client, appt.ID, "can't make it"); err != nil {
		t.Fatalf("CancelAppointment: %v", err)
	}

	other := Actor{ID: "user-2", Role: RoleClient, ClientID: "cli-2"}
	mustBook(t, svc, other, CreateRequest{
		DentistID: "den-1", ServiceID: "svc-1",
		Date: date("2026-03-09"), Start: clock("09:00"), End: clock("09:30"),
	})
}

func TestCreateAppointment_Validation(t *testing.T) {
	svc, _ := newFixture(t)

	var verr *ValidationError
	_, err := svc.CreateAppointment(context.Background(), client, CreateRequest{
		DentistID: "den-1", ServiceID: "svc-1",
		Date: date("2026-03-09"), Start: clock("10:00"), End: clock("10:00"),
	})
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError for empty interval, got %v", err)
	}

	_, err = svc.CreateAppointment(context.Background(), client, CreateRequest{
		DentistID: "den-1", ServiceID: "svc-1",
		Date: date("2026-02-27"), Start: clock("10:00"), End: clock("10:30"),
	})
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError for past date, got %v", err)
	}

	_, err = svc.CreateAppointment(context.Background(), client, CreateRequest{
		DentistID: "den-9", ServiceID: "svc-1",
		Date: date("2026-03-09"), Start: clock("10:00"), End: clock("10:30"),
	})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown dentist, got %v", err)
	}
}

func TestCreateAppointment_ClientCannotBookForOthers(t *testing.T) {
	svc, _ := newFixture(t)

	_, err := svc.CreateAppointment(context.Background(), client, CreateRequest{
		ClientID:  "cli-2",
		DentistID: "den-1", ServiceID: "svc-1",
		Date: date("2026-03-09"), Start: clock("10:00"), End: clock("10:30"),
	})
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestUpdateAppointment_EditGuard(t *testing.T) {
	svc, _ := newFixture(t)

	tomorrow := mustBook(t, svc, client, CreateRequest{
		DentistID: "den-1", ServiceID: "svc-1",
		Date: date("2026-03-03"), Start: clock("09:00"), End: clock("09:30"),
	})
	today := mustBook(t, svc, client, CreateRequest{
		DentistID: "den-1", ServiceID: "svc-1",
		Date: date("2026-03-02"), Start: clock("09:00"), End: clock("09:30"),
	})

	newStart, newEnd := clock("11:00"), clock("11:30")
	if _, err := svc.UpdateAppointment(context.Background(), client, tomorrow.ID, Changes{Start: &newStart, End: &newEnd}); err != nil {
		t.Fatalf("editing a future appointment should be allowed: %v", err)
	}

	_, err := svc.UpdateAppointment(context.Background(), client, today.ID, Changes{Start: &newStart, End: &newEnd})
	if !errors.Is(err, ErrInvalidState) {
		t.Fatalf("same-day edit should be frozen for clients, got %v", err)
	}

	// Staff are not bound by the freeze.
	if _, err := svc.UpdateAppointment(context.Background(), staff, today.ID, Changes{Start: &newStart, End: &newEnd}); err != nil {
		t.Fatalf("staff edit of a same-day appointment failed: %v", err)
	}
}

func TestUpdateAppointment_RescheduleConflictChecked(t *testing.T) {
	svc, _ := newFixture(t)

	mustBook(t, svc, client, CreateRequest{
		DentistID: "den-1", ServiceID: "svc-1",
		Date: date("2026-03-09"), Start: clock("10:00"), End: clock("10:30"),
	})
	other := Actor{ID: "user-2", Role: RoleClient, ClientID: "cli-2"}
	victim := mustBook(t, svc, other, CreateRequest{
		DentistID: "den-1", ServiceID: "svc-1",
		Date: date("2026-03-09"), Start: clock("11:00"), End: clock("11:30"),
	})

	newStart, newEnd := clock("10:15"), clock("10:45")
	_, err := svc.UpdateAppointment(context.Background(), other, victim.ID, Changes{Start: &newStart, End: &newEnd})
	var conflict *ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected ConflictError on reschedule into occupied window, got %v", err)
	}
}

func TestUpdateAppointment_SelfExclusion(t *testing.T) {
	svc, _ := newFixture(t)

	appt := mustBook(t, svc, client, CreateRequest{
		DentistID: "den-1", ServiceID: "svc-1",
		Date: date("2026-03-09"), Start: clock("10:00"), End: clock("10:30"),
	})

	// Widening the same appointment must not collide with itself.
	newEnd := clock("11:00")
	if _, err := svc.UpdateAppointment(context.Background(), client, appt.ID, Changes{End: &newEnd}); err != nil {
		t.Fatalf("appointment collided with itself: %v", err)
	}
}

func TestUpdateAppointment_ClientCannotTouchAdminNotes(t *testing.T) {
	svc, _ := newFixture(t)

	appt := mustBook(t, svc, client, CreateRequest{
		DentistID: "den-1", ServiceID: "svc-1",
		Date: date("2026-03-09"), Start: clock("10:00"), End: clock("10:30"),
	})

	notes := "seen before"
	_, err := svc.UpdateAppointment(context.Background(), client, appt.ID, Changes{AdminNotes: &notes})
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if _, err := svc.UpdateAppointment(context.Background(), staff, appt.ID, Changes{AdminNotes: &notes}); err != nil {
		t.Fatalf("staff admin notes edit failed: %v", err)
	}
}

func TestCancelAppointment_ClientRules(t *testing.T) {
	svc, _ := newFixture(t)

	appt := mustBook(t, svc, client, CreateRequest{
		DentistID: "den-1", ServiceID: "svc-1",
		Date: date("2026-03-09"), Start: clock("10:00"), End: clock("10:30"),
	})

	other := Actor{ID: "user-2", Role: RoleClient, ClientID: "cli-2"}
	if _, err := svc.CancelAppointment(context.Background(), other, appt.ID, ""); !errors.Is(err, ErrForbidden) {
		t.Fatalf("cancelling someone else's appointment should be forbidden, got %v", err)
	}

	cancelled, err := svc.CancelAppointment(context.Background(), client, appt.ID, "schedule clash")
	if err != nil {
		t.Fatalf("CancelAppointment: %v", err)
	}
	if cancelled.Status != model.StatusCancelled {
		t.Fatalf("status = %s, want cancelled", cancelled.Status)
	}
	if cancelled.CancelledBy != model.CancelledByClient {
		t.Fatalf("cancelled_by = %q, want client", cancelled.CancelledBy)
	}
	if cancelled.CancelReason != "schedule clash" {
		t.Fatalf("cancel_reason = %q", cancelled.CancelReason)
	}

	// Idempotence: a second cancel is rejected, not silently repeated.
	if _, err := svc.CancelAppointment(context.Background(), client, appt.ID, "again"); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("re-cancel should be rejected, got %v", err)
	}
}

func TestCancelAppointment_ClientCannotCancelInProgress(t *testing.T) {
	svc, _ := newFixture(t)

	appt := mustBook(t, svc, client, CreateRequest{
		DentistID: "den-1", ServiceID: "svc-1",
		Date: date("2026-03-09"), Start: clock("10:00"), End: clock("10:30"),
	})
	if _, err := svc.SetStatus(context.Background(), staff, appt.ID, model.StatusInProgress, "", ""); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}

	if _, err := svc.CancelAppointment(context.Background(), client, appt.ID, ""); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("client cancel of in_progress should be rejected, got %v", err)
	}

	// Staff can still cancel: they correct real-world state.
	if _, err := svc.CancelAppointment(context.Background(), staff, appt.ID, "dentist fell ill"); err != nil {
		t.Fatalf("staff cancel failed: %v", err)
	}
}

func TestSetStatus_Authority(t *testing.T) {
	svc, _ := newFixture(t)

	appt := mustBook(t, svc, client, CreateRequest{
		DentistID: "den-1", ServiceID: "svc-1",
		Date: date("2026-03-09"), Start: clock("10:00"), End: clock("10:30"),
	})

	if _, err := svc.SetStatus(context.Background(), client, appt.ID, model.StatusConfirmed, "", ""); !errors.Is(err, ErrForbidden) {
		t.Fatalf("client self-confirm should be forbidden, got %v", err)
	}

	confirmed, err := svc.SetStatus(context.Background(), staff, appt.ID, model.StatusConfirmed, "verified insurance", "")
	if err != nil {
		t.Fatalf("SetStatus: %v", err)
	}
	if confirmed.Status != model.StatusConfirmed || confirmed.AdminNotes != "verified insurance" {
		t.Fatalf("unexpected appointment %+v", confirmed)
	}

	// Staff transitions are unconditional, including out of terminal states.
	done, err := svc.SetStatus(context.Background(), staff, appt.ID, model.StatusCompleted, "", "")
	if err != nil {
		t.Fatalf("SetStatus: %v", err)
	}
	if done.Status != model.StatusCompleted {
		t.Fatalf("status = %s", done.Status)
	}
	if _, err := svc.SetStatus(context.Background(), staff, appt.ID, model.StatusNoShow, "", ""); err != nil {
		t.Fatalf("staff correction out of completed failed: %v", err)
	}

	var verr *ValidationError
	if _, err := svc.SetStatus(context.Background(), staff, appt.ID, model.Status("archived"), "", ""); !errors.As(err, &verr) {
		t.Fatalf("unknown status should be a validation error, got %v", err)
	}
}

func TestSetStatus_CancelFieldsLifecycle(t *testing.T) {
	svc, _ := newFixture(t)

	appt := mustBook(t, svc, client, CreateRequest{
		DentistID: "den-1", ServiceID: "svc-1",
		Date: date("2026-03-09"), Start: clock("10:00"), End: clock("10:30"),
	})

	cancelled, err := svc.SetStatus(context.Background(), staff, appt.ID, model.StatusCancelled, "", "clinic closed")
	if err != nil {
		t.Fatalf("SetStatus: %v", err)
	}
	if cancelled.CancelledBy != model.CancelledByAdmin || cancelled.CancelReason != "clinic closed" {
		t.Fatalf("unexpected cancel fields %+v", cancelled)
	}

	// Reactivation clears the cancel fields.
	restored, err := svc.SetStatus(context.Background(), staff, appt.ID, model.StatusConfirmed, "", "")
	if err != nil {
		t.Fatalf("SetStatus: %v", err)
	}
	if restored.CancelledBy != model.CancelledByNone || restored.CancelReason != "" {
		t.Fatalf("cancel fields should be cleared, got %+v", restored)
	}
}

func TestSetStatus_RecancelKeepsAttribution(t *testing.T) {
	svc, _ := newFixture(t)

	appt := mustBook(t, svc, client, CreateRequest{
		DentistID: "den-1", ServiceID: "svc-1",
		Date: date("2026-03-09"), Start: clock("10:00"), End: clock("10:30"),
	})

	if _, err := svc.CancelAppointment(context.Background(), client, appt.ID, "feeling unwell"); err != nil {
		t.Fatalf("CancelAppointment: %v", err)
	}

	// A staff re-cancel must not rewrite who withdrew or why.
	again, err := svc.SetStatus(context.Background(), staff, appt.ID, model.StatusCancelled, "", "clinic closed")
	if err != nil {
		t.Fatalf("SetStatus: %v", err)
	}
	if again.CancelledBy != model.CancelledByClient {
		t.Fatalf("cancelled_by rewritten to %q", again.CancelledBy)
	}
	if again.CancelReason != "feeling unwell" {
		t.Fatalf("cancel reason rewritten to %q", again.CancelReason)
	}
}

func TestSetStatus_ReactivationChecksConflicts(t *testing.T) {
	svc, _ := newFixture(t)

	appt := mustBook(t, svc, client, CreateRequest{
		DentistID: "den-1", ServiceID: "svc-1",
		Date: date("2026-03-09"), Start: clock("10:00"), End: clock("10:30"),
	})
	if _, err := svc.CancelAppointment(context.Background(), staff, appt.ID, ""); err != nil {
		t.Fatalf("CancelAppointment: %v", err)
	}

	// Someone else takes the freed slot.
	other := Actor{ID: "user-2", Role: RoleClient, ClientID: "cli-2"}
	mustBook(t, svc, other, CreateRequest{
		DentistID: "den-1", ServiceID: "svc-1",
		Date: date("2026-03-09"), Start: clock("10:00"), End: clock("10:30"),
	})

	_, err := svc.SetStatus(context.Background(), staff, appt.ID, model.StatusConfirmed, "", "")
	var conflict *ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("reactivating into an occupied slot should conflict, got %v", err)
	}
}

func TestConcurrentBooking_SingleWinner(t *testing.T) {
	svc, _ := newFixture(t)

	const n = 25
	var wg sync.WaitGroup
	results := make(chan error, n)
	for i := 0; i < n; i++ {
		actor := Actor{ID: fmt.Sprintf("user-%d", i), Role: RoleClient, ClientID: fmt.Sprintf("cli-c%d", i)}
		svc.store.(*memStore).addClient(actor.ClientID)
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.CreateAppointment(context.Background(), actor, CreateRequest{
				DentistID: "den-1", ServiceID: "svc-1",
				Date: date("2026-03-09"), Start: clock("14:00"), End: clock("14:30"),
			})
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var wins, conflicts int
	for err := range results {
		switch {
		case err == nil:
			wins++
		default:
			var conflict *ConflictError
			if !errors.As(err, &conflict) {
				t.Fatalf("unexpected error: %v", err)
			}
			conflicts++
		}
	}
	if wins != 1 || conflicts != n-1 {
		t.Fatalf("expected exactly one winner, got %d wins / %d conflicts", wins, conflicts)
	}
}

func TestListAppointments_ClientScoped(t *testing.T) {
	svc, _ := newFixture(t)

	mustBook(t, svc, client, CreateRequest{
		DentistID: "den-1", ServiceID: "svc-1",
		Date: date("2026-03-09"), Start: clock("09:00"), End: clock("09:30"),
	})
	other := Actor{ID: "user-2", Role: RoleClient, ClientID: "cli-2"}
	mustBook(t, svc, other, CreateRequest{
		DentistID: "den-1", ServiceID: "svc-1",
		Date: date("2026-03-09"), Start: clock("10:00"), End: clock("10:30"),
	})

	// A client asking for another client's bookings still only sees their own.
	appts, err := svc.ListAppointments(context.Background(), client, AppointmentFilter{ClientID: "cli-2"})
	if err != nil {
		t.Fatalf("ListAppointments: %v", err)
	}
	if len(appts) != 1 || appts[0].ClientID != "cli-1" {
		t.Fatalf("client listing leaked foreign appointments: %+v", appts)
	}

	all, err := svc.ListAppointments(context.Background(), staff, AppointmentFilter{})
	if err != nil {
		t.Fatalf("ListAppointments: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("staff listing should see both appointments, got %d", len(all))
	}
}

func TestGetAppointment_Ownership(t *testing.T) {
	svc, _ := newFixture(t)

	appt := mustBook(t, svc, client, CreateRequest{
		DentistID: "den-1", ServiceID: "svc-1",
		Date: date("2026-03-09"), Start: clock("09:00"), End: clock("09:30"),
	})

	other := Actor{ID: "user-2", Role: RoleClient, ClientID: "cli-2"}
	if _, err := svc.GetAppointment(context.Background(), other, appt.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if _, err := svc.GetAppointment(context.Background(), staff, appt.ID); err != nil {
		t.Fatalf("staff read failed: %v", err)
	}
}

func TestAvailability_DuplicateWeekdayRejected(t *testing.T) {
	svc, _ := newFixture(t)

	_, err := svc.CreateAvailability(context.Background(), staff, "den-1", 1, clock("08:00"), clock("12:00"), 30)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("duplicate weekday row should be rejected, got %v", err)
	}
}

func TestAvailability_StaffOnly(t *testing.T) {
	svc, _ := newFixture(t)

	if _, err := svc.CreateAvailability(context.Background(), client, "den-1", 6, clock("09:00"), clock("13:00"), 30); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if _, err := svc.ListAvailability(context.Background(), client, "den-1"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestAvailability_Validation(t *testing.T) {
	svc, _ := newFixture(t)

	var verr *ValidationError
	if _, err := svc.CreateAvailability(context.Background(), staff, "den-1", 6, clock("13:00"), clock("09:00"), 30); !errors.As(err, &verr) {
		t.Fatalf("inverted work window should be rejected, got %v", err)
	}
	if _, err := svc.CreateAvailability(context.Background(), staff, "den-1", 6, clock("09:00"), clock("13:00"), 10); !errors.As(err, &verr) {
		t.Fatalf("sub-15-minute slots should be rejected, got %v", err)
	}
	if _, err := svc.CreateAvailability(context.Background(), staff, "den-1", 7, clock("09:00"), clock("13:00"), 30); !errors.As(err, &verr) {
		t.Fatalf("weekday 7 should be rejected, got %v", err)
	}
}

func TestDashboard(t *testing.T) {
	svc, _ := newFixture(t)

	if _, err := svc.Dashboard(context.Background(), client); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden for client actors, got %v", err)
	}

	mustBook(t, svc, client, CreateRequest{
		DentistID: "den-1", ServiceID: "svc-1",
		Date: date("2026-03-02"), Start: clock("09:00"), End: clock("09:30"),
	})
	mustBook(t, svc, client, CreateRequest{
		DentistID: "den-1", ServiceID: "svc-1",
		Date: date("2026-03-09"), Start: clock("09:00"), End: clock("09:30"),
	})

	stats, err := svc.Dashboard(context.Background(), staff)
	if err != nil {
		t.Fatalf("Dashboard: %v", err)
	}
	if stats.AppointmentsToday != 1 {
		t.Fatalf("AppointmentsToday = %d, want 1", stats.AppointmentsToday)
	}
	if stats.PendingAppointments != 2 {
		t.Fatalf("PendingAppointments = %d, want 2", stats.PendingAppointments)
	}
	if stats.ActiveDentists != 2 || stats.TotalClients != 2 {
		t.Fatalf("unexpected totals %+v", stats)
	}
}
