package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cucumber/godog"

	"claimdesk/internal/directory"
	"claimdesk/internal/mailer"
	"claimdesk/internal/platform/config"
	"claimdesk/internal/platform/logger"
)

// TestFeatures runs the Gherkin scenarios under features/ against the fully
// wired application on in-memory stores.
func TestFeatures(t *testing.T) {
	for key, value := range map[string]string{
		"CLAIMDESK_ENV":               "development",
		"DATABASE_URL":                "",
		"REDIS_URL":                   "",
		"SMTP_HOST":                   "",
		"KAFKA_BROKERS":               "",
		"OTEL_EXPORTER_OTLP_ENDPOINT": "",
		"RATE_LIMIT_DISABLED":         "false",
	} {
		t.Setenv(key, value)
	}
	base, err := config.Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	suite := godog.TestSuite{
		ScenarioInitializer: func(sc *godog.ScenarioContext) {
			w := &world{base: base}
			sc.After(func(ctx context.Context, _ *godog.Scenario, err error) (context.Context, error) {
				w.stop()
				return ctx, err
			})
			w.register(sc)
		},
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"features"},
			Strict:   true,
			TestingT: t,
		},
	}
	if suite.Run() != 0 {
		t.Fatal("feature scenarios failed")
	}
}

// outbox records every message the application sends.
type outbox struct {
	mu   sync.Mutex
	sent []mailer.Message
}

func (o *outbox) Send(_ context.Context, msg mailer.Message) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sent = append(o.sent, msg)
	return nil
}

// latest returns the most recent message to the recipient.
func (o *outbox) latest(to string) (mailer.Message, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for i := len(o.sent) - 1; i >= 0; i-- {
		if o.sent[i].To == to {
			return o.sent[i], true
		}
	}
	return mailer.Message{}, false
}

var (
	linkPattern       = regexp.MustCompile(`href="([^"]+)"`)
	passphrasePattern = regexp.MustCompile(`passphrase is\s*<strong>(\d+)</strong>`)
)

// world is the state of one scenario.
type world struct {
	base config.Config
	cfg  config.Config

	app    *app
	server *httptest.Server
	client *http.Client
	mail   *outbox

	businessEmail   string
	supervisorEmail string
	claimID         string
	companyID       string
	userID          string
	accessToken     string

	status int
	header http.Header
	body   []byte
}

func (w *world) register(sc *godog.ScenarioContext) {
	sc.Step(`^a running claimdesk with the demo directory$`, w.runningClaimdesk)
	sc.Step(`^claim routes allow (\d+) requests per minute$`, w.claimRoutesAllow)
	sc.Step(`^I submit a claim for "([^"]*)" as "([^"]*)" with supervisor "([^"]*)"$`, w.submitClaim)
	sc.Step(`^an email should have been sent to "([^"]*)"$`, w.emailSentTo)
	sc.Step(`^I open the business verification link$`, w.openBusinessLink)
	sc.Step(`^I sign in as "([^"]*)" with the emailed passphrase$`, w.signIn)
	sc.Step(`^I confirm business verification for my claim$`, w.confirmBusiness)
	sc.Step(`^the supervisor opens the verification link$`, w.openSupervisorLink)
	sc.Step(`^the response status should be (\d+)$`, w.statusShouldBe)
	sc.Step(`^the response field "([^"]*)" should be "([^"]*)"$`, w.fieldShouldBe)
	sc.Step(`^the response header "([^"]*)" should be set$`, w.headerShouldBeSet)
	sc.Step(`^my claim status should be "([^"]*)"$`, w.claimStatusShouldBe)
}

func (w *world) runningClaimdesk() error {
	w.cfg = w.base
	w.mail = &outbox{}
	w.client = &http.Client{
		Timeout: 10 * time.Second,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	return nil
}

func (w *world) claimRoutesAllow(requests int) error {
	if w.server != nil {
		return errors.New("rate limits must be set before the first request")
	}
	w.cfg.RateLimit.ClaimsRequests = requests
	w.cfg.RateLimit.ClaimsWindow = time.Minute
	return nil
}

// start builds the application on first use so earlier steps can adjust the
// configuration.
func (w *world) start() error {
	if w.server != nil {
		return nil
	}
	a, err := newApp(context.Background(), w.cfg, logger.NewWithWriter(io.Discard, w.cfg.Environment, "error"), w.mail)
	if err != nil {
		return err
	}
	w.app = a
	w.server = httptest.NewServer(a.handler)
	return nil
}

func (w *world) stop() {
	if w.server != nil {
		w.server.Close()
	}
	if w.app != nil {
		w.app.close()
	}
}

func (w *world) do(method, target string, body any) error {
	if err := w.start(); err != nil {
		return err
	}
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, w.server.URL+target, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if w.accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+w.accessToken)
	}
	resp, err := w.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	w.status = resp.StatusCode
	w.header = resp.Header
	w.body, err = io.ReadAll(resp.Body)
	return err
}

// follow requests an emailed link against the test server.
func (w *world) follow(link string) error {
	u, err := url.Parse(link)
	if err != nil {
		return fmt.Errorf("parse link %q: %w", link, err)
	}
	return w.do(http.MethodGet, u.RequestURI(), nil)
}

func (w *world) submitClaim(companyName, businessEmail, supervisorEmail string) error {
	companyID := ""
	for _, c := range directory.DemoCompanies {
		if c.Name == companyName {
			companyID = c.ID
		}
	}
	if companyID == "" {
		return fmt.Errorf("%q is not a demo company", companyName)
	}
	if err := w.do(http.MethodPost, "/claims", map[string]string{
		"business_email":   businessEmail,
		"supervisor_email": supervisorEmail,
		"company_id":       companyID,
		"company_name":     companyName,
	}); err != nil {
		return err
	}
	if w.status != http.StatusCreated {
		return nil
	}
	var resp struct {
		ClaimRequestID string `json:"claim_request_id"`
	}
	if err := json.Unmarshal(w.body, &resp); err != nil {
		return err
	}
	w.businessEmail = businessEmail
	w.supervisorEmail = supervisorEmail
	w.companyID = companyID
	w.claimID = resp.ClaimRequestID
	w.accessToken = ""
	return nil
}

func (w *world) emailSentTo(to string) error {
	if _, ok := w.mail.latest(to); !ok {
		return fmt.Errorf("no email was sent to %s", to)
	}
	return nil
}

func (w *world) emailedLink(to string) (string, error) {
	msg, ok := w.mail.latest(to)
	if !ok {
		return "", fmt.Errorf("no email was sent to %s", to)
	}
	match := linkPattern.FindStringSubmatch(msg.HTMLBody)
	if match == nil {
		return "", fmt.Errorf("email to %s has no link", to)
	}
	return html.UnescapeString(match[1]), nil
}

func (w *world) openBusinessLink() error {
	link, err := w.emailedLink(w.businessEmail)
	if err != nil {
		return err
	}
	return w.follow(link)
}

func (w *world) openSupervisorLink() error {
	link, err := w.emailedLink(w.supervisorEmail)
	if err != nil {
		return err
	}
	return w.follow(link)
}

func (w *world) signIn(email string) error {
	msg, ok := w.mail.latest(email)
	if !ok {
		return fmt.Errorf("no email was sent to %s", email)
	}
	match := passphrasePattern.FindStringSubmatch(msg.HTMLBody)
	if match == nil {
		return fmt.Errorf("email to %s carries no passphrase", email)
	}
	if err := w.do(http.MethodPost, "/identity/token", map[string]string{
		"email":      email,
		"passphrase": match[1],
	}); err != nil {
		return err
	}
	if w.status != http.StatusOK {
		return fmt.Errorf("sign in returned %d: %s", w.status, w.body)
	}
	var resp struct {
		AccessToken string `json:"access_token"`
		UserID      string `json:"user_id"`
	}
	if err := json.Unmarshal(w.body, &resp); err != nil {
		return err
	}
	w.accessToken = resp.AccessToken
	w.userID = resp.UserID
	return nil
}

func (w *world) confirmBusiness() error {
	return w.do(http.MethodPost, "/claims/verify-business", map[string]string{
		"user_id":          w.userID,
		"claim_request_id": w.claimID,
		"company_id":       w.companyID,
	})
}

func (w *world) statusShouldBe(expected int) error {
	if w.status != expected {
		return fmt.Errorf("expected status %d, got %d: %s", expected, w.status, strings.TrimSpace(string(w.body)))
	}
	return nil
}

func (w *world) fieldShouldBe(field, expected string) error {
	var resp map[string]any
	if err := json.Unmarshal(w.body, &resp); err != nil {
		return fmt.Errorf("response is not JSON: %w", err)
	}
	value, ok := resp[field]
	if !ok {
		return fmt.Errorf("response has no field %q: %s", field, w.body)
	}
	if got := fmt.Sprint(value); got != expected {
		return fmt.Errorf("expected %s to be %q, got %q", field, expected, got)
	}
	return nil
}

func (w *world) headerShouldBeSet(name string) error {
	if w.header.Get(name) == "" {
		return fmt.Errorf("response header %s is missing", name)
	}
	return nil
}

func (w *world) claimStatusShouldBe(expected string) error {
	if w.accessToken == "" {
		if err := w.signIn(w.businessEmail); err != nil {
			return err
		}
	}
	if err := w.do(http.MethodGet, "/claims/"+w.claimID, nil); err != nil {
		return err
	}
	if w.status != http.StatusOK {
		return fmt.Errorf("claim status returned %d: %s", w.status, w.body)
	}
	return w.fieldShouldBe("status", expected)
}
