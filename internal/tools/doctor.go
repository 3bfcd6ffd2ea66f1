package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/parley-ai/parley/internal/llm"
	"github.com/parley-ai/parley/internal/log"
)

// MsgExtractionFailed is the observation returned when the booking tool
// cannot pull a usable name and phone number out of the input.
const MsgExtractionFailed = "Could not reliably extract name and phone number from the input."

// maxEndpointBytes caps how much of an endpoint response is read.
const maxEndpointBytes = 1 << 20

// DoctorList fetches the available-doctor directory from a configured
// endpoint and returns the payload verbatim.
type DoctorList struct {
	url    string
	client *http.Client
	logger log.Logger
}

// NewDoctorList builds the directory tool. A nil client falls back to
// http.DefaultClient.
func NewDoctorList(url string, client *http.Client, logger log.Logger) *DoctorList {
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = log.NewNop()
	}
	return &DoctorList{url: url, client: client, logger: logger}
}

func (d *DoctorList) Name() string { return "doctor_list" }

func (d *DoctorList) Description() string {
	return "Fetches the list of available doctors with their specialties. " +
		"Input is ignored."
}

func (d *DoctorList) Invoke(ctx context.Context, _ string) (string, error) {
	if d.url == "" {
		return "", fmt.Errorf("doctor_list: endpoint not configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.url, nil)
	if err != nil {
		return "", fmt.Errorf("doctor_list: building request: %w", err)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("doctor_list: fetching directory: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("doctor_list: directory returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxEndpointBytes))
	if err != nil {
		return "", fmt.Errorf("doctor_list: reading directory: %w", err)
	}

	d.logger.Debug("doctor directory fetched", "bytes", len(body))
	return string(body), nil
}

// DoctorAppointment extracts patient contact details from free text via
// the gateway, then posts the booking to a configured endpoint.
type DoctorAppointment struct {
	bookingURL string
	gateway    llm.Gateway
	client     *http.Client
	logger     log.Logger
}

// NewDoctorAppointment builds the booking tool. A nil client falls back
// to http.DefaultClient.
func NewDoctorAppointment(bookingURL string, gateway llm.Gateway, client *http.Client, logger log.Logger) *DoctorAppointment {
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = log.NewNop()
	}
	return &DoctorAppointment{
		bookingURL: bookingURL,
		gateway:    gateway,
		client:     client,
		logger:     logger,
	}
}

func (d *DoctorAppointment) Name() string { return "doctor_appointment" }

func (d *DoctorAppointment) Description() string {
	return "Sets a doctor appointment. Input should contain the patient's " +
		"name and phone number."
}

const extractionPrompt = "Extract the patient's name and phone number from the text. " +
	`Respond with only a JSON object of the form {"name": "...", "phone": "..."}. ` +
	"Use an empty string for any value you cannot find. No other text."

// patientDetails is the extraction result posted to the booking
// endpoint.
type patientDetails struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

func (d *DoctorAppointment) Invoke(ctx context.Context, input string) (string, error) {
	if d.bookingURL == "" {
		return "", fmt.Errorf("doctor_appointment: endpoint not configured")
	}

	decision, err := d.gateway.Complete(ctx, llm.Request{
		System:   extractionPrompt,
		Messages: []llm.Message{{Role: llm.RoleUser, Text: input}},
	})
	if err != nil {
		return "", fmt.Errorf("doctor_appointment: extracting details: %w", err)
	}

	details, ok := parsePatientDetails(decision.Answer)
	if !ok {
		// The endpoint is never called with unverified details.
		return MsgExtractionFailed, nil
	}

	payload, err := json.Marshal(details)
	if err != nil {
		return "", fmt.Errorf("doctor_appointment: encoding booking: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.bookingURL, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("doctor_appointment: building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("doctor_appointment: posting booking: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, maxEndpointBytes))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("doctor_appointment: booking endpoint returned status %d", resp.StatusCode)
	}

	d.logger.Info("appointment booked", "name", details.Name)
	return fmt.Sprintf("Appointment set successfully for %s with phone %s.", details.Name, details.Phone), nil
}

// parsePatientDetails parses the extraction response, tolerating
// markdown code fences, and validates both fields.
func parsePatientDetails(answer string) (patientDetails, bool) {
	text := strings.TrimSpace(answer)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	var details patientDetails
	if err := json.Unmarshal([]byte(text), &details); err != nil {
		return patientDetails{}, false
	}

	details.Name = strings.TrimSpace(details.Name)
	details.Phone = strings.TrimSpace(details.Phone)
	if details.Name == "" || !plausiblePhone(details.Phone) {
		return patientDetails{}, false
	}
	return details, true
}

// plausiblePhone requires at least seven digits, allowing common
// separators.
func plausiblePhone(phone string) bool {
	digits := 0
	for _, r := range phone {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case r == '+' || r == '-' || r == ' ' || r == '(' || r == ')' || r == '.':
		default:
			return false
		}
	}
	return digits >= 7
}
