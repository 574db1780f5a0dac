// Package ticket turns a freshly created booking into a ticket: a
// human-readable code plus a QR image of the ticket payload.  Issuing is a
// pure transform; persisting the ticket is the caller's job.
package ticket

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/skip2/go-qrcode"

	"github.com/iliyamo/event-booking/internal/model"
)

// QRSize is the edge length of the generated PNG in pixels.
const QRSize = 256

// Encoder renders content as a PNG image.
type Encoder func(content string) ([]byte, error)

// PNGEncoder encodes content as a medium-recovery QR code.
func PNGEncoder(content string) ([]byte, error) {
	return qrcode.Encode(content, qrcode.Medium, QRSize)
}

// Payload is the JSON document embedded in the QR code.
type Payload struct {
	TicketID   string    `json:"ticketId"`
	EventID    string    `json:"eventId"`
	UserID     string    `json:"userId"`
	EventTitle string    `json:"eventTitle"`
	EventDate  time.Time `json:"eventDate"`
}

// Issuer builds tickets.  The zero value is not usable; use NewIssuer.
type Issuer struct {
	now    func() time.Time
	encode Encoder
	newID  func() string
}

// Option customises an Issuer.
type Option func(*Issuer)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option { return func(i *Issuer) { i.now = now } }

// WithEncoder replaces the QR encoder.
func WithEncoder(enc Encoder) Option { return func(i *Issuer) { i.encode = enc } }

// NewIssuer returns an Issuer using the wall clock and PNGEncoder unless
// overridden.
func NewIssuer(opts ...Option) *Issuer {
	i := &Issuer{now: time.Now, encode: PNGEncoder, newID: uuid.NewString}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Issue creates the ticket for bookingID.  The code has the form
// TKT-<last 6 of event id>-<last 6 of user id>-<unix millis>, upper-cased.
// The ticket expires when the event starts.
func (i *Issuer) Issue(event *model.Event, userID, bookingID string) (*model.Ticket, error) {
	const op = "ticket.Issue"

	code := Code(event.ID, userID, i.now())
	payload, err := json.Marshal(Payload{
		TicketID:   code,
		EventID:    event.ID,
		UserID:     userID,
		EventTitle: event.Title,
		EventDate:  event.EventDate.UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("%s: marshal payload: %w", op, err)
	}
	png, err := i.encode(string(payload))
	if err != nil {
		return nil, fmt.Errorf("%s: encode qr: %w", op, err)
	}

	return &model.Ticket{
		ID:         i.newID(),
		TicketCode: code,
		BookingID:  bookingID,
		UserID:     userID,
		EventID:    event.ID,
		QRCode:     "data:image/png;base64," + base64.StdEncoding.EncodeToString(png),
		ExpiresAt:  event.EventDate.UTC(),
	}, nil
}

// Code formats a ticket code.  It is a label: uniqueness is enforced by the
// store, not by this function.
func Code(eventID, userID string, at time.Time) string {
	return fmt.Sprintf("TKT-%s-%s-%d", tail6(eventID), tail6(userID), at.UnixMilli())
}

func tail6(s string) string {
	if len(s) > 6 {
		s = s[len(s)-6:]
	}
	return strings.ToUpper(s)
}

// DecodeDataURL returns the PNG bytes of a data URL produced by Issue.
func DecodeDataURL(dataURL string) ([]byte, error) {
	const prefix = "data:image/png;base64,"
	if !strings.HasPrefix(dataURL, prefix) {
		return nil, fmt.Errorf("not a png data url")
	}
	return base64.StdEncoding.DecodeString(strings.TrimPrefix(dataURL, prefix))
}
