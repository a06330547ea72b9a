package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/cucumber/godog"

	"github.com/doodlesbykumbi/credvault/pkg/policy"
	gormstore "github.com/doodlesbykumbi/credvault/pkg/store/gorm"
)

var placeholder = regexp.MustCompile(`\{(\w+)\}`)

// StepsContext holds state shared between step definitions
type StepsContext struct {
	tc           *TestContext
	response     *http.Response
	responseBody []byte
	authToken    string
	remembered   map[string]string
}

// NewStepsContext creates a new steps context
func NewStepsContext(tc *TestContext) *StepsContext {
	return &StepsContext{
		tc:         tc,
		remembered: make(map[string]string),
	}
}

// RegisterSteps registers all step definitions
func (s *StepsContext) RegisterSteps(sc *godog.ScenarioContext) {
	sc.Before(func(ctx context.Context, _ *godog.Scenario) (context.Context, error) {
		return ctx, s.tc.Reset()
	})

	// Background steps
	sc.Step(`^a credvault server is running$`, s.aServerIsRunning)
	sc.Step(`^the following access policy is loaded:$`, s.theFollowingAccessPolicyIsLoaded)

	// Authentication steps
	sc.Step(`^I am authenticated as "([^"]*)"$`, s.iAmAuthenticatedAs)
	sc.Step(`^I am not authenticated$`, s.iAmNotAuthenticated)
	sc.Step(`^I use an expired token for "([^"]*)"$`, s.iUseAnExpiredTokenFor)

	// Request steps
	sc.Step(`^I send a (GET|DELETE) request to "([^"]*)"$`, s.iSendARequestTo)
	sc.Step(`^I send a (POST|PATCH) request to "([^"]*)" with:$`, s.iSendARequestWith)
	sc.Step(`^I remember "([^"]*)" from the response as "([^"]*)"$`, s.iRememberFromTheResponse)

	// Response steps
	sc.Step(`^the response status should be (\d+)$`, s.theResponseStatusShouldBe)
	sc.Step(`^the response field "([^"]*)" should be "([^"]*)"$`, s.theResponseFieldShouldBe)
	sc.Step(`^the response field "([^"]*)" should be absent$`, s.theResponseFieldShouldBeAbsent)
	sc.Step(`^the response should list (\d+) items?$`, s.theResponseShouldListItems)

	// Storage steps
	sc.Step(`^the stored "([^"]*)" column of "([^"]*)" for "\{(\w+)\}" should not contain "([^"]*)"$`, s.theStoredColumnShouldNotContain)
	sc.Step(`^the audit trail should contain (\d+) "([^"]*)" entr(?:y|ies)$`, s.theAuditTrailShouldContain)
}

func (s *StepsContext) aServerIsRunning() error {
	return nil
}

func (s *StepsContext) theFollowingAccessPolicyIsLoaded(doc *godog.DocString) error {
	loader := policy.NewLoader(gormstore.NewMembershipsStore(s.tc.DB))
	_, err := loader.LoadFromReader(context.Background(), strings.NewReader(doc.Content))
	return err
}

func (s *StepsContext) iAmAuthenticatedAs(userID string) error {
	token, err := s.tc.Auth.Issue(userID, time.Hour)
	if err != nil {
		return err
	}
	s.authToken = token
	return nil
}

func (s *StepsContext) iAmNotAuthenticated() error {
	s.authToken = ""
	return nil
}

func (s *StepsContext) iUseAnExpiredTokenFor(userID string) error {
	token, err := s.tc.Auth.Issue(userID, -time.Minute)
	if err != nil {
		return err
	}
	s.authToken = token
	return nil
}

func (s *StepsContext) expand(text string) string {
	return placeholder.ReplaceAllStringFunc(text, func(m string) string {
		if v, ok := s.remembered[m[1:len(m)-1]]; ok {
			return v
		}
		return m
	})
}

func (s *StepsContext) do(method, path string, body []byte) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequest(method, s.tc.ServerURL+s.expand(path), reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if s.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+s.authToken)
	}

	resp, err := s.tc.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	s.response = resp
	s.responseBody, err = io.ReadAll(resp.Body)
	return err
}

func (s *StepsContext) iSendARequestTo(method, path string) error {
	return s.do(method, path, nil)
}

func (s *StepsContext) iSendARequestWith(method, path string, doc *godog.DocString) error {
	return s.do(method, path, []byte(s.expand(doc.Content)))
}

// lookup walks a dotted path such as "fields.username" or "0.id" through
// the decoded response body.
func (s *StepsContext) lookup(path string) (interface{}, bool, error) {
	var current interface{}
	if err := json.Unmarshal(s.responseBody, &current); err != nil {
		return nil, false, fmt.Errorf("response is not JSON: %s", s.responseBody)
	}
	for _, part := range strings.Split(path, ".") {
		switch node := current.(type) {
		case map[string]interface{}:
			v, ok := node[part]
			if !ok {
				return nil, false, nil
			}
			current = v
		case []interface{}:
			i, err := strconv.Atoi(part)
			if err != nil || i < 0 || i >= len(node) {
				return nil, false, nil
			}
			current = node[i]
		default:
			return nil, false, nil
		}
	}
	return current, true, nil
}

func (s *StepsContext) iRememberFromTheResponse(path, name string) error {
	v, ok, err := s.lookup(path)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("response has no %q: %s", path, s.responseBody)
	}
	s.remembered[name] = fmt.Sprint(v)
	return nil
}

func (s *StepsContext) theResponseStatusShouldBe(expected int) error {
	if s.response == nil {
		return fmt.Errorf("no request was sent")
	}
	if s.response.StatusCode != expected {
		return fmt.Errorf("expected status %d, got %d: %s", expected, s.response.StatusCode, s.responseBody)
	}
	return nil
}

func (s *StepsContext) theResponseFieldShouldBe(path, expected string) error {
	v, ok, err := s.lookup(path)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("response has no %q: %s", path, s.responseBody)
	}
	if got := fmt.Sprint(v); got != s.expand(expected) {
		return fmt.Errorf("expected %s to be %q, got %q", path, expected, got)
	}
	return nil
}

func (s *StepsContext) theResponseFieldShouldBeAbsent(path string) error {
	_, ok, err := s.lookup(path)
	if err != nil {
		return err
	}
	if ok {
		return fmt.Errorf("expected %s to be absent: %s", path, s.responseBody)
	}
	return nil
}

func (s *StepsContext) theResponseShouldListItems(n int) error {
	var items []json.RawMessage
	if err := json.Unmarshal(s.responseBody, &items); err != nil {
		return fmt.Errorf("response is not a list: %s", s.responseBody)
	}
	if len(items) != n {
		return fmt.Errorf("expected %d items, got %d: %s", n, len(items), s.responseBody)
	}
	return nil
}

var identifier = regexp.MustCompile(`^[a-z_]+$`)

func (s *StepsContext) theStoredColumnShouldNotContain(column, table, name, plaintext string) error {
	if !identifier.MatchString(column) || !identifier.MatchString(table) {
		return fmt.Errorf("invalid column or table name")
	}
	id, ok := s.remembered[name]
	if !ok {
		return fmt.Errorf("nothing remembered as %q", name)
	}

	var stored []byte
	row := s.tc.DB.Raw(fmt.Sprintf("SELECT %s FROM %s WHERE credential_id = ?", column, table), id).Row()
	if err := row.Scan(&stored); err != nil {
		return err
	}
	if len(stored) == 0 {
		return fmt.Errorf("%s.%s is empty", table, column)
	}
	if bytes.Contains(stored, []byte(plaintext)) {
		return fmt.Errorf("%s.%s holds plaintext", table, column)
	}
	return nil
}

func (s *StepsContext) theAuditTrailShouldContain(n int, action string) error {
	var count int64
	if err := s.tc.DB.Table("audit_logs").Where("action = ?", action).Count(&count).Error; err != nil {
		return err
	}
	if count != int64(n) {
		return fmt.Errorf("expected %d %s entries, got %d", n, action, count)
	}
	return nil
}
