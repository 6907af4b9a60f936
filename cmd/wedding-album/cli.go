package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"wedding-album/internal/auth"
	"wedding-album/internal/caption"
	"wedding-album/internal/capture"
	"wedding-album/internal/config"
	"wedding-album/internal/host"
	"wedding-album/internal/models"
	"wedding-album/internal/printer"
	"wedding-album/internal/share"
	"wedding-album/internal/sharpness"
	"wedding-album/internal/storage"
	"wedding-album/internal/upload"
)

type app struct {
	cfg       *config.Config
	log       zerolog.Logger
	scanner   *bufio.Scanner
	auth      *auth.Session
	events    *storage.Events
	album     *storage.Album
	creator   *host.Creator
	captioner caption.Captioner
	printer   *printer.Printer
	sharer    share.Sharer
}

func (a *app) run(ctx context.Context) {
	for ctx.Err() == nil {
		fmt.Println("\nCommands:")
		if user, ok := a.auth.CurrentUser(); ok {
			fmt.Printf("  (signed in as %s)\n", user.Email)
			fmt.Println("  1. Create event")
			fmt.Println("  2. Print QR sheet")
			fmt.Println("  3. Share event link")
			fmt.Println("  4. Update cover photo")
			fmt.Println("  5. Close event")
			fmt.Println("  6. Log out")
		} else {
			fmt.Println("  1. Log in as host")
		}
		fmt.Println("  7. Open guest view")
		fmt.Println("  8. View album")
		fmt.Println("  9. Exit")
		fmt.Print("\nEnter command: ")

		command, ok := a.readLine()
		if !ok {
			return
		}

		_, signedIn := a.auth.CurrentUser()
		switch {
		case command == "1" && !signedIn:
			a.login()
		case command == "1":
			a.createEvent(ctx)
		case command == "2" && signedIn:
			a.printSheet(ctx)
		case command == "3" && signedIn:
			a.shareEvent(ctx)
		case command == "4" && signedIn:
			a.updateCoverPhoto()
		case command == "5" && signedIn:
			a.closeEvent()
		case command == "6" && signedIn:
			a.auth.Logout()
			fmt.Println("Logged out.")
		case command == "7":
			a.guestView(ctx)
		case command == "8":
			a.viewAlbum()
		case command == "9":
			fmt.Println("Exiting...")
			return
		default:
			fmt.Println("Invalid command. Please try again.")
		}
	}
}

func (a *app) readLine() (string, bool) {
	if !a.scanner.Scan() {
		return "", false
	}
	return strings.TrimSpace(a.scanner.Text()), true
}

func (a *app) prompt(label string) (string, bool) {
	fmt.Print(label)
	return a.readLine()
}

func (a *app) login() {
	email, ok := a.prompt("Enter email: ")
	if !ok {
		return
	}
	user, err := a.auth.Login(email)
	if err != nil {
		fmt.Printf("❌ %v\n", err)
		return
	}
	fmt.Printf("✅ Welcome, %s!\n", user.Name)
}

func (a *app) createEvent(ctx context.Context) {
	form := host.NewForm()

	names, ok := a.prompt("Couple names (e.g. Sam and Lee): ")
	if !ok {
		return
	}
	form.CoupleNames = names

	date, ok := a.prompt("Event date: ")
	if !ok {
		return
	}
	form.EventDate = date

	fmt.Println("Themes:")
	for i, p := range host.Presets() {
		fmt.Printf("  %d. %s (%s)\n", i+1, p.Style, strings.Join(p.DefaultColors, ", "))
	}
	choice, ok := a.prompt("Choose theme (1-3, empty for Modern): ")
	if !ok {
		return
	}
	if n, err := strconv.Atoi(choice); err == nil && n >= 1 && n <= len(host.Presets()) {
		form = form.WithTheme(host.Presets()[n-1].Style)
	}

	form, ok = a.editColors(form)
	if !ok {
		return
	}

	if ev, ok := a.events.Current(); ok {
		form.CoverPhotoURL = ev.CoverPhotoURL
	}

	res, form, err := a.creator.Create(ctx, form)
	var verr *host.ValidationError
	switch {
	case errors.As(err, &verr):
		for i, msg := range form.Errors {
			if msg != "" {
				fmt.Printf("  color %d: %s\n", i+1, msg)
			}
		}
		fmt.Printf("❌ %s\n", verr.Message)
		return
	case err != nil:
		fmt.Println("❌ Failed to generate QR code.")
		return
	}

	fmt.Printf("\n✅ Event created for %s!\n", res.Event.CoupleNames)
	fmt.Printf("Guest link: %s\n", res.GuestURL)
	if res.QR.Fallback {
		fmt.Println("Note: the theme colors were too close for a readable QR code, so it was printed in black and white.")
	}
	fmt.Println(res.Note)
}

// editColors lets the host change, add or remove theme color slots
func (a *app) editColors(form host.Form) (host.Form, bool) {
	for {
		fmt.Println("Theme colors:")
		for i, in := range form.Inputs {
			line := fmt.Sprintf("  %d. %s", i+1, in)
			if form.Errors[i] != "" {
				line += "  ⚠️  " + form.Errors[i]
			}
			fmt.Println(line)
		}
		cmd, ok := a.prompt("Edit color (number), 'a' to add, 'r <n>' to remove, empty to continue: ")
		if !ok {
			return form, false
		}
		switch {
		case cmd == "":
			return form, true
		case cmd == "a":
			form = form.AddColor()
		case strings.HasPrefix(cmd, "r "):
			if n, err := strconv.Atoi(strings.TrimSpace(cmd[2:])); err == nil {
				form = form.RemoveColor(n - 1)
			}
		default:
			n, err := strconv.Atoi(cmd)
			if err != nil || n < 1 || n > len(form.Inputs) {
				fmt.Println("Invalid choice.")
				continue
			}
			raw, ok := a.prompt("New color (any CSS color): ")
			if !ok {
				return form, false
			}
			form = form.WithColorInput(n-1, raw).CommitColor(n - 1)
		}
	}
}

func (a *app) printSheet(ctx context.Context) {
	event, ok := a.events.Current()
	if !ok {
		fmt.Println("No event yet. Create one first.")
		return
	}
	note, ok := a.prompt("Note (empty for default): ")
	if !ok {
		return
	}
	pdf, err := a.printer.Print(ctx, event, note)
	if err != nil {
		fmt.Printf("❌ Error printing QR sheet: %v\n", err)
		return
	}
	path := filepath.Join(".", "qr-sheet-"+event.ID+".pdf")
	if err := os.WriteFile(path, pdf, 0o644); err != nil {
		fmt.Printf("❌ Error saving QR sheet: %v\n", err)
		return
	}
	fmt.Printf("✅ QR sheet saved to %s\n", path)
}

func (a *app) guestURL(event models.WeddingEvent) (string, error) {
	return host.GuestURL(a.cfg.BaseURL, event.ID)
}

func (a *app) shareEvent(ctx context.Context) {
	event, ok := a.events.Current()
	if !ok {
		fmt.Println("No event yet. Create one first.")
		return
	}
	link, err := a.guestURL(event)
	if err != nil {
		fmt.Printf("❌ %v\n", err)
		return
	}
	err = share.Invite(ctx, a.sharer, event, link)
	switch {
	case errors.Is(err, share.ErrUnsupported):
		// no share target, show the link instead
		p := share.InvitePayload(event, link)
		fmt.Printf("\n%s\n%s\n%s\n", p.Title, p.Text, p.URL)
	case err != nil:
		fmt.Printf("❌ Error sharing event link: %v\n", err)
	default:
		fmt.Println("✅ Event link shared!")
	}
}

// inviteMessage answers guests asking the WhatsApp account for the album link
func (a *app) inviteMessage() (string, bool) {
	event, ok := a.events.Current()
	if !ok {
		return "", false
	}
	link, err := a.guestURL(event)
	if err != nil {
		return "", false
	}
	p := share.InvitePayload(event, link)
	return p.Title + "\n\n" + p.Text + "\n" + p.URL, true
}

func (a *app) updateCoverPhoto() {
	url, ok := a.prompt("Cover photo URL: ")
	if !ok {
		return
	}
	if _, err := a.events.UpdateCoverPhoto(url); err != nil {
		fmt.Printf("❌ %v\n", err)
		return
	}
	fmt.Println("✅ Cover photo updated.")
}

// closeEvent drops the current event so the host can set up a new one
func (a *app) closeEvent() {
	event, ok := a.events.Current()
	if !ok {
		fmt.Println("No event to close.")
		return
	}
	a.events.ClearEvent()
	a.log.Info().Str("event", event.ID).Msg("Event closed")
	fmt.Printf("✅ Closed the event for %s.\n", event.CoupleNames)
}

func (a *app) viewAlbum() {
	photos := a.album.GetAllPhotos()
	fmt.Printf("\n📷 Album (%d photos):\n", len(photos))
	fmt.Println(strings.Repeat("-", 60))
	for _, p := range photos {
		url := p.ImageURL
		if strings.HasPrefix(url, "data:") {
			url = fmt.Sprintf("[uploaded, %d bytes]", len(url))
		}
		fmt.Printf("Note: %s\n", p.Note)
		fmt.Printf("Image: %s\n", url)
		if !p.UploadedAt.IsZero() {
			fmt.Printf("Uploaded: %s\n", p.UploadedAt.Format("2006-01-02 15:04:05"))
		}
		fmt.Println(strings.Repeat("-", 60))
	}
}

// guestView runs one guest upload session
func (a *app) guestView(ctx context.Context) {
	event, ok := a.events.Current()
	if !ok {
		fmt.Println("No event found. The host has not set up the album yet.")
		return
	}
	fmt.Printf("\n🎉 %s, %s\n", event.CoupleNames, event.EventDate)

	camera := capture.NewSession(&capture.ImageDevice{Dir: a.cfg.CameraDir}, a.log)
	p := upload.NewPipeline(camera, sharpness.LaplacianProbe{}, a.captioner, a.album, upload.NewPreviews(),
		&upload.Config{UploadDelay: a.cfg.UploadDelay}, a.log)
	defer p.Close()

	unsubscribe := p.Subscribe(func(s upload.Snapshot) {
		a.log.Debug().Str("state", string(s.State)).Msg("Upload state changed")
	})
	defer unsubscribe()

	for ctx.Err() == nil {
		s := p.State()
		printSnapshot(s)

		fmt.Println("\nGuest commands:")
		switch s.State {
		case models.UploadIdle:
			fmt.Println("  1. Take a photo")
			fmt.Println("  2. Choose a photo file")
		case models.UploadCapturing:
			fmt.Println("  1. Capture")
			fmt.Println("  2. Switch camera")
			fmt.Println("  3. Cancel")
		case models.UploadPreview:
			fmt.Println("  1. Generate caption")
			fmt.Println("  2. Write a note")
			fmt.Println("  3. Upload")
			fmt.Println("  4. Retake")
		case models.UploadSuccess:
			fmt.Println("  1. Upload another")
		}
		fmt.Println("  0. Back")
		fmt.Print("\nEnter command: ")

		command, ok := a.readLine()
		if !ok || command == "0" {
			return
		}
		if err := a.guestCommand(ctx, p, s.State, command); err != nil {
			fmt.Printf("❌ %v\n", err)
		}
	}
}

func (a *app) guestCommand(ctx context.Context, p *upload.Pipeline, state models.UploadState, command string) error {
	switch state {
	case models.UploadIdle:
		switch command {
		case "1":
			return p.StartCamera(ctx)
		case "2":
			path, ok := a.prompt("Photo path: ")
			if !ok {
				return nil
			}
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("failed to read photo: %w", err)
			}
			return p.SelectFile(ctx, upload.File{Name: filepath.Base(path), Data: data})
		}
	case models.UploadCapturing:
		switch command {
		case "1":
			return p.Capture(ctx)
		case "2":
			return p.SwitchCamera(ctx)
		case "3":
			return p.StopCamera()
		}
	case models.UploadPreview:
		switch command {
		case "1":
			fmt.Println("Generating caption...")
			return p.GenerateCaption(ctx)
		case "2":
			note, ok := a.prompt("Note: ")
			if !ok {
				return nil
			}
			return p.SetNote(note)
		case "3":
			fmt.Println("Uploading...")
			return p.Upload(ctx)
		case "4":
			return p.Reset()
		}
	case models.UploadSuccess:
		if command == "1" {
			return p.UploadAnother()
		}
	}
	fmt.Println("Invalid command. Please try again.")
	return nil
}

func printSnapshot(s upload.Snapshot) {
	switch s.State {
	case models.UploadIdle:
		if s.CameraError != "" {
			fmt.Printf("⚠️  %s\n", s.CameraError)
		}
	case models.UploadCapturing:
		fmt.Printf("📸 Camera is on (%s)\n", s.Facing)
	case models.UploadPreview:
		fmt.Printf("🖼  %s\n", s.FileName)
		if s.BlurWarning {
			fmt.Println("⚠️  This photo looks a bit blurry. You can retake it or upload it anyway.")
		}
		if s.Caption != "" {
			fmt.Printf("Caption: %s\n", s.Caption)
		}
		if s.Note != "" {
			fmt.Printf("Note: %s\n", s.Note)
		}
	case models.UploadSuccess:
		fmt.Println("✅ Thank you! Your photo was added to the album.")
	}
}
