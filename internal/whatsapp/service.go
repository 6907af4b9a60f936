// Package whatsapp shares event links over a linked WhatsApp account and
// answers guests who ask the account for the album link.
package whatsapp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"github.com/skip2/go-qrcode"
	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"

	"wedding-album/internal/share"
)

var ErrNotOnWhatsApp = errors.New("number is not registered on WhatsApp")

// messenger is the part of the whatsmeow client used for sending
type messenger interface {
	IsOnWhatsApp(ctx context.Context, phones []string) ([]types.IsOnWhatsAppResponse, error)
	SendMessage(ctx context.Context, to types.JID, message *waE2E.Message, extra ...whatsmeow.SendRequestExtra) (whatsmeow.SendResponse, error)
}

// LinkSource returns the text sent to a guest asking for the album link; ok is
// false when there is no event to share yet
type LinkSource func() (text string, ok bool)

type Config struct {
	DataDir    string
	Recipients []string
	// pairing QR codes are printed here
	Out io.Writer
}

// Service is a share.Sharer backed by a linked WhatsApp device
type Service struct {
	client     *whatsmeow.Client
	sender     messenger
	recipients []string
	out        io.Writer
	log        zerolog.Logger
	links      LinkSource
}

var _ share.Sharer = (*Service)(nil)

// NewService creates a new WhatsApp service with its device store in
// cfg.DataDir
func NewService(ctx context.Context, cfg *Config, logger zerolog.Logger) (*Service, error) {
	// nil logger: sqlstore falls back to a no-op logger
	container, err := sqlstore.New(ctx, "sqlite3", fmt.Sprintf("file:%s/whatsmeow.db?_foreign_keys=on", cfg.DataDir), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create database: %w", err)
	}

	deviceStore, err := container.GetFirstDevice(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get device: %w", err)
	}

	client := whatsmeow.NewClient(deviceStore, nil)
	s := newService(client, cfg, logger)
	s.client = client
	client.AddEventHandler(s.eventHandler)
	return s, nil
}

func newService(sender messenger, cfg *Config, logger zerolog.Logger) *Service {
	recipients := make([]string, 0, len(cfg.Recipients))
	for _, r := range cfg.Recipients {
		if r = NormalizePhoneNumber(r); r != "" {
			recipients = append(recipients, r)
		}
	}
	return &Service{
		sender:     sender,
		recipients: recipients,
		out:        cfg.Out,
		log:        logger.With().Str("component", "WhatsApp").Logger(),
	}
}

// NormalizePhoneNumber strips formatting and converts Israeli local numbers
// (05XXXXXXXX) to international format
func NormalizePhoneNumber(phoneNumber string) string {
	phoneNumber = strings.NewReplacer("+", "", " ", "", "-", "", "(", "", ")", "").Replace(phoneNumber)

	if strings.HasPrefix(phoneNumber, "0") && len(phoneNumber) == 10 {
		phoneNumber = "972" + phoneNumber[1:]
	}
	if strings.HasPrefix(phoneNumber, "9720") {
		phoneNumber = "972" + phoneNumber[4:]
	}
	return phoneNumber
}

// FormatPayload renders a share payload as a chat message
func FormatPayload(p share.Payload) string {
	return fmt.Sprintf("*%s*\n\n%s\n%s", p.Title, p.Text, p.URL)
}

// SetLinkSource enables replies to guests asking for the album link
func (s *Service) SetLinkSource(links LinkSource) {
	s.links = links
}

// Connect connects to WhatsApp, printing a pairing QR code when the device is
// not linked yet
func (s *Service) Connect(ctx context.Context) error {
	if s.client.Store.ID != nil {
		if err := s.client.Connect(); err != nil {
			return fmt.Errorf("failed to connect: %w", err)
		}
		return nil
	}

	return s.pair(ctx, s.client)
}

// pairer is the part of the whatsmeow client used for linking a new device
type pairer interface {
	GetQRChannel(ctx context.Context) (<-chan whatsmeow.QRChannelItem, error)
	Connect() error
}

func (s *Service) pair(ctx context.Context, c pairer) error {
	qrChan, err := c.GetQRChannel(ctx)
	if err != nil {
		return fmt.Errorf("failed to get pairing QR channel: %w", err)
	}
	if err := c.Connect(); err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	for evt := range qrChan {
		if evt.Event != "code" {
			s.log.Info().Str("event", evt.Event).Msg("Login event")
			continue
		}
		s.printPairingCode(evt.Code)
	}
	return nil
}

func (s *Service) printPairingCode(code string) {
	if s.out == nil {
		return
	}
	q, err := qrcode.New(code, qrcode.Medium)
	if err != nil {
		fmt.Fprintf(s.out, "QR Code: %s\n", code)
		fmt.Fprintln(s.out, "Please scan this QR code with WhatsApp to connect.")
		return
	}
	fmt.Fprintln(s.out, "\n"+q.ToSmallString(false))
	fmt.Fprintln(s.out, "Please scan the QR code above with WhatsApp:")
	fmt.Fprintln(s.out, "   1. Open WhatsApp on your phone")
	fmt.Fprintln(s.out, "   2. Go to Settings > Linked Devices")
	fmt.Fprintln(s.out, "   3. Tap 'Link a Device'")
	fmt.Fprintln(s.out, "   4. Scan the QR code shown above")
}

// Disconnect disconnects from WhatsApp
func (s *Service) Disconnect() {
	if s.client != nil {
		s.client.Disconnect()
	}
}

// Share sends the payload to every configured recipient. It keeps going after
// a failed recipient and returns all failures joined.
func (s *Service) Share(ctx context.Context, p share.Payload) error {
	if len(s.recipients) == 0 {
		return fmt.Errorf("%w: no WhatsApp recipients configured", share.ErrUnsupported)
	}

	text := FormatPayload(p)
	var errs []error
	for _, phone := range s.recipients {
		if err := s.SendMessage(ctx, phone, text); err != nil {
			s.log.Error().Err(err).Str("phone", phone).Msg("Failed to share event link")
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// SendMessage sends a text message to a phone number after checking it is on
// WhatsApp
func (s *Service) SendMessage(ctx context.Context, phoneNumber, message string) error {
	phoneNumber = NormalizePhoneNumber(phoneNumber)

	resp, err := s.sender.IsOnWhatsApp(ctx, []string{phoneNumber})
	if err != nil {
		return fmt.Errorf("failed to verify number on WhatsApp: %w", err)
	}
	if len(resp) == 0 || !resp[0].IsIn {
		return fmt.Errorf("%w: %s", ErrNotOnWhatsApp, phoneNumber)
	}
	return s.send(ctx, resp[0].JID, message)
}

func (s *Service) send(ctx context.Context, jid types.JID, message string) error {
	s.log.Debug().Str("jid", jid.String()).Msg("Attempting to send message")

	sent, err := s.sender.SendMessage(ctx, jid, &waE2E.Message{
		Conversation: &message,
	})
	if err != nil {
		return fmt.Errorf("failed to send message to %s: %w", jid.String(), err)
	}
	s.log.Info().Str("jid", jid.String()).Str("id", string(sent.ID)).Msg("Message sent")
	return nil
}

func (s *Service) eventHandler(evt interface{}) {
	switch evt := evt.(type) {
	case *events.Message:
		s.handleMessage(evt)
	case *events.Connected:
		s.log.Info().Msg("Connected to WhatsApp")
	case *events.Disconnected:
		s.log.Info().Msg("Disconnected from WhatsApp")
	case *events.LoggedOut:
		s.log.Info().Msg("Logged out from WhatsApp")
	}
}

func (s *Service) handleMessage(msg *events.Message) {
	if msg.Info.IsFromMe || msg.Message == nil {
		return
	}
	reply, ok := s.replyFor(msg.Message.GetConversation())
	if !ok {
		s.log.Debug().Str("sender", msg.Info.Sender.String()).Msg("Ignoring message")
		return
	}
	if err := s.send(context.Background(), msg.Info.Chat, reply); err != nil {
		s.log.Error().Err(err).Msg("Error replying to guest")
	}
}

// replyFor answers guests asking for the album link
func (s *Service) replyFor(text string) (string, bool) {
	if s.links == nil {
		return "", false
	}
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "album", "photos", "link", "אלבום", "תמונות":
	default:
		return "", false
	}
	return s.links()
}
