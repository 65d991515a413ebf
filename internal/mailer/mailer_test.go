package mailer

import (
	"html/template"
	"strings"
	"testing"
)

func TestRenderEmail(t *testing.T) {
	html, err := renderEmail(emailData{
		Title:            "Appointment scheduled",
		Intro:            "a new appointment was scheduled.",
		GuardianName:     "Carla",
		StudentName:      "Ana",
		ProfessionalName: "Dr. Alba",
		Service:          "speech therapy",
		When:             "Monday, 06 Jan 2025 at 09:00",
		ConfirmURL:       template.URL("https://agenda.example/public/appointments/confirm/abc"),
		CancelURL:        template.URL("https://agenda.example/public/appointments/cancel/def"),
		HasImage:         true,
	})
	if err != nil {
		t.Fatalf("renderEmail: %v", err)
	}

	for _, want := range []string{
		"Appointment scheduled",
		"Hello Carla",
		"Ana",
		"Dr. Alba",
		"speech therapy",
		"https://agenda.example/public/appointments/confirm/abc",
		"https://agenda.example/public/appointments/cancel/def",
		"cid:week.png",
	} {
		if !strings.Contains(html, want) {
			t.Errorf("rendered email is missing %q", want)
		}
	}
}

func TestRenderEmailOptionalParts(t *testing.T) {
	html, err := renderEmail(emailData{Title: "Appointment tomorrow", GuardianName: "Carla"})
	if err != nil {
		t.Fatalf("renderEmail: %v", err)
	}
	if strings.Contains(html, "cid:week.png") {
		t.Error("image tag should be omitted without an inline image")
	}
	if strings.Contains(html, "Where") {
		t.Error("location row should be omitted when empty")
	}
}

func TestRenderEmailEscapes(t *testing.T) {
	html, err := renderEmail(emailData{GuardianName: "<script>alert(1)</script>"})
	if err != nil {
		t.Fatalf("renderEmail: %v", err)
	}
	if strings.Contains(html, "<script>") {
		t.Error("user-supplied names must be escaped")
	}
}

func TestBuildMIME(t *testing.T) {
	raw, err := buildMIME("agenda@example.com", Message{
		To:      "carla@example.com",
		Subject: "Appointment scheduled",
		HTML:    "<p>hello</p>",
		Inline:  []byte{0x89, 'P', 'N', 'G'},
	})
	if err != nil {
		t.Fatalf("buildMIME: %v", err)
	}
	body := string(raw)

	for _, want := range []string{
		"From: agenda@example.com",
		"To: carla@example.com",
		"Subject: Appointment scheduled",
		"multipart/related",
		`text/html; charset="utf-8"`,
		"<p>hello</p>",
		"image/png",
		"Content-ID: <week.png>",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("message is missing %q", want)
		}
	}
}

func TestBuildMIMEWithoutImage(t *testing.T) {
	raw, err := buildMIME("agenda@example.com", Message{
		To:      "carla@example.com",
		Subject: "s",
		HTML:    "<p>hello</p>",
	})
	if err != nil {
		t.Fatalf("buildMIME: %v", err)
	}
	if strings.Contains(string(raw), "image/png") {
		t.Error("no image part expected")
	}
}
