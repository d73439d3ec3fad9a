package crm

import "time"

// Channel selects the outbound messaging transport.
type Channel string

const (
	ChannelWhatsApp Channel = "WhatsApp"
	ChannelSMS      Channel = "SMS"
)

// Contact is the CRM contact record.
type Contact struct {
	ID           string        `json:"id"`
	FirstName    string        `json:"firstName,omitempty"`
	LastName     string        `json:"lastName,omitempty"`
	Name         string        `json:"name,omitempty"`
	Email        string        `json:"email,omitempty"`
	Phone        string        `json:"phone,omitempty"`
	Tags         []string      `json:"tags,omitempty"`
	CustomFields []CustomField `json:"customFields,omitempty"`
}

// CustomField addresses a CRM custom field by its opaque field id.
type CustomField struct {
	ID    string `json:"id"`
	Value string `json:"value"`
}

// ContactUpdate carries the mutable contact fields for UpdateContact.
// Nil slices are omitted from the request payload.
type ContactUpdate struct {
	FirstName    string        `json:"firstName,omitempty"`
	LastName     string        `json:"lastName,omitempty"`
	Email        string        `json:"email,omitempty"`
	Tags         []string      `json:"tags,omitempty"`
	CustomFields []CustomField `json:"customFields,omitempty"`
}

// Conversation is a CRM conversation summary for a contact.
type Conversation struct {
	ID              string `json:"id"`
	ContactID       string `json:"contactId"`
	LastMessageBody string `json:"lastMessageBody,omitempty"`
	LastMessageDate string `json:"lastMessageDate,omitempty"`
}

// CRMMessage is one message from a conversation's history.
// Direction is "inbound" (customer) or "outbound" (agent).
type CRMMessage struct {
	ID        string     `json:"id"`
	Body      string     `json:"body"`
	Direction string     `json:"direction"`
	Type      string     `json:"messageType,omitempty"`
	DateAdded *time.Time `json:"dateAdded,omitempty"`
}

// Note is a note attached to a contact.
type Note struct {
	ID   string `json:"id"`
	Body string `json:"body"`
}

// Slot is an open interval on a CRM calendar.
type Slot struct {
	Start time.Time `json:"startTime"`
	End   time.Time `json:"endTime"`
}

// AppointmentRequest carries the booking parameters for CreateAppointment.
type AppointmentRequest struct {
	ContactID   string
	Start       time.Time
	End         time.Time
	Title       string
	Timezone    string
	MeetingType string
}

// Appointment is the booked appointment returned by the CRM.
type Appointment struct {
	ID        string `json:"id"`
	Status    string `json:"appointmentStatus,omitempty"`
	StartTime string `json:"startTime,omitempty"`
	EndTime   string `json:"endTime,omitempty"`
}
