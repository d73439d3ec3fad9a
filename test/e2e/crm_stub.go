// Package e2e boots the full webhook-to-reply pipeline against an in-process
// CRM stub and drives it over HTTP.
package e2e

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"

	"github.com/nivelo-ai/leadrouter/pkg/crm"
)

// sentMessage is one outbound message captured by the CRM stub.
type sentMessage struct {
	ContactID string
	Body      string
	Channel   string
}

// bookedAppointment is one appointment captured by the CRM stub.
type bookedAppointment struct {
	ContactID string
	Start     string
	End       string
	Title     string
}

// fakeCRM is an httptest-backed stand-in for the CRM REST API. Seed contacts,
// history, and calendar slots before posting webhooks; inspect sent messages
// and appointments after.
type fakeCRM struct {
	srv *httptest.Server

	mu           sync.Mutex
	contacts     map[string]crm.Contact
	history      map[string][]crm.CRMMessage
	slots        []crm.Slot
	sent         []sentMessage
	appointments []bookedAppointment
	notes        []string
	nextID       int
}

func newFakeCRM(t *testing.T) *fakeCRM {
	t.Helper()
	f := &fakeCRM{
		contacts: make(map[string]crm.Contact),
		history:  make(map[string][]crm.CRMMessage),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /contacts/{id}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		contact, ok := f.contacts[r.PathValue("id")]
		if !ok {
			http.Error(w, `{"message":"contact not found"}`, http.StatusNotFound)
			return
		}
		writeJSON(w, map[string]any{"contact": contact})
	})
	mux.HandleFunc("POST /contacts/{id}/notes", func(w http.ResponseWriter, r *http.Request) {
		var payload struct {
			Body string `json:"body"`
		}
		_ = json.NewDecoder(r.Body).Decode(&payload)
		f.mu.Lock()
		defer f.mu.Unlock()
		f.notes = append(f.notes, payload.Body)
		writeJSON(w, map[string]any{"note": crm.Note{ID: "note-1", Body: payload.Body}})
	})
	mux.HandleFunc("GET /conversations/{id}/messages", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		writeJSON(w, map[string]any{
			"messages": map[string]any{"messages": f.history[r.PathValue("id")]},
		})
	})
	mux.HandleFunc("POST /conversations/messages", func(w http.ResponseWriter, r *http.Request) {
		var payload struct {
			Type      string `json:"type"`
			ContactID string `json:"contactId"`
			Message   string `json:"message"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			http.Error(w, `{"message":"bad payload"}`, http.StatusBadRequest)
			return
		}
		f.mu.Lock()
		defer f.mu.Unlock()
		f.nextID++
		f.sent = append(f.sent, sentMessage{
			ContactID: payload.ContactID,
			Body:      payload.Message,
			Channel:   payload.Type,
		})
		writeJSON(w, map[string]any{"messageId": "msg-" + strconv.Itoa(f.nextID)})
	})
	mux.HandleFunc("GET /calendars/{id}/free-slots", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		writeJSON(w, map[string]any{"slots": f.slots})
	})
	mux.HandleFunc("POST /calendars/events/appointments", func(w http.ResponseWriter, r *http.Request) {
		var payload struct {
			ContactID string `json:"contactId"`
			StartTime string `json:"startTime"`
			EndTime   string `json:"endTime"`
			Title     string `json:"title"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			http.Error(w, `{"message":"bad payload"}`, http.StatusBadRequest)
			return
		}
		f.mu.Lock()
		defer f.mu.Unlock()
		f.appointments = append(f.appointments, bookedAppointment{
			ContactID: payload.ContactID,
			Start:     payload.StartTime,
			End:       payload.EndTime,
			Title:     payload.Title,
		})
		writeJSON(w, map[string]any{"id": "appt-1", "appointmentStatus": "confirmed"})
	})

	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeCRM) seedContact(c crm.Contact) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.contacts[c.ID] = c
}

func (f *fakeCRM) seedHistory(conversationID string, msgs []crm.CRMMessage) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.history[conversationID] = msgs
}

func (f *fakeCRM) seedSlots(slots []crm.Slot) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.slots = slots
}

func (f *fakeCRM) sentMessages() []sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]sentMessage, len(f.sent))
	copy(out, f.sent)
	return out
}

func (f *fakeCRM) bookedAppointments() []bookedAppointment {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]bookedAppointment, len(f.appointments))
	copy(out, f.appointments)
	return out
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
