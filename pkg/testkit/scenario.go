// Package testkit drives REST API tests from JSON scenario files.
//
// Each scenario describes:
//   - The HTTP request to fire (method, URL, body inline or from a file, headers)
//   - Expected HTTP status code
//   - Expected response body (optional, for JSON diff assertion)
//
// Scenario files live next to your *_test.go files:
//
//	testdata/scenarios/
//	  health.json              ← scenario
//	  signup_req.json          ← request body
//	  signup_res.json          ← expected response body
//
// A flow file holds a JSON array of scenarios that run in order against the
// same handler, so later steps see the state earlier steps created.
//
// Example _test.go:
//
//	func TestAPI(t *testing.T) {
//	    handler := kernel.Handler(opts)
//	    testkit.RunDir(t, handler, "testdata/scenarios")
//	    testkit.RunFlow(t, handler, "testdata/flows/signup.json")
//	}
package testkit

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// ─── Schema ───────────────────────────────────────────────────────────────────

// Scenario describes a single REST API test case loaded from JSON.
type Scenario struct {
	// Meta
	Name        string `json:"name"`
	Description string `json:"description"`

	// Request
	RequestMethod   string            `json:"requestMethod"`   // GET, POST, PUT, DELETE
	RequestURL      string            `json:"requestUrl"`      // e.g. /api/products
	RequestFileName string            `json:"requestFileName"` // JSON body file, relative to the scenario
	RequestBody     json.RawMessage   `json:"requestBody"`     // inline body; wins over requestFileName
	Headers         map[string]string `json:"headers"`

	// Response assertions
	ResponseFileName   string            `json:"responseFileName"`   // expected body file
	ResponseBody       json.RawMessage   `json:"responseBody"`       // inline expected body
	ExpectedCode       int               `json:"expectedCode"`       // expected HTTP status code
	ExpectedStatusCode int               `json:"expectedStatusCode"` // alias for expectedCode
	ExpectedHeaders    map[string]string `json:"expectedHeaders"`

	// Partial compares only the keys present in the expected body, so
	// generated ids and timestamps can be left out.
	Partial bool `json:"partial"`

	// resolved at load time, not in JSON
	dir string
}

// ─── Loading ──────────────────────────────────────────────────────────────────

// LoadScenario reads and validates a scenario from a JSON file.
func LoadScenario(path string) (*Scenario, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("testkit: resolve path %q: %w", path, err)
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("testkit: read %q: %w", abs, err)
	}

	var s Scenario
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("testkit: parse %q: %w", abs, err)
	}

	if err := s.validate(); err != nil {
		return nil, fmt.Errorf("testkit: invalid scenario %q: %w", abs, err)
	}

	s.dir = filepath.Dir(abs)
	return &s, nil
}

// validate performs basic sanity checks on the loaded scenario.
func (s *Scenario) validate() error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.RequestURL == "" {
		return fmt.Errorf("requestUrl is required")
	}
	if s.ExpectedCode == 0 {
		s.ExpectedCode = s.ExpectedStatusCode
	}
	if s.ExpectedCode == 0 {
		return fmt.Errorf("expectedCode is required")
	}
	if s.RequestMethod == "" {
		s.RequestMethod = "GET"
	}
	return nil
}

// RequestBodyPath returns the absolute path to the request body file,
// resolved relative to the scenario file's directory.
// Returns "" when RequestFileName is not set.
func (s *Scenario) RequestBodyPath() string {
	return s.resolve(s.RequestFileName)
}

// ResponseBodyPath returns the absolute path to the expected response file.
// Returns "" when ResponseFileName is not set.
func (s *Scenario) ResponseBodyPath() string {
	return s.resolve(s.ResponseFileName)
}

func (s *Scenario) resolve(name string) string {
	if name == "" {
		return ""
	}
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(s.dir, name)
}

// requestBody returns the inline body, else the request file, else nil.
func (s *Scenario) requestBody() ([]byte, error) {
	if len(s.RequestBody) > 0 {
		return s.RequestBody, nil
	}
	if p := s.RequestBodyPath(); p != "" {
		return os.ReadFile(p)
	}
	return nil, nil
}

// expectedBody returns the inline expectation, else the response file.
func (s *Scenario) expectedBody() ([]byte, error) {
	if len(s.ResponseBody) > 0 {
		return s.ResponseBody, nil
	}
	if p := s.ResponseBodyPath(); p != "" {
		return os.ReadFile(p)
	}
	return nil, nil
}

// LoadAllFromDir loads every *.json file in dir as a Scenario, sorted by
// file name. Files that fail to parse are collected as errors.
func LoadAllFromDir(dir string) ([]*Scenario, []error) {
	entries, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil || len(entries) == 0 {
		return nil, []error{fmt.Errorf("testkit: no scenario files found in %q", dir)}
	}
	sort.Strings(entries)

	var (
		scenarios []*Scenario
		errs      []error
	)
	for _, path := range entries {
		s, err := LoadScenario(path)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		scenarios = append(scenarios, s)
	}
	return scenarios, errs
}

// LoadFlow reads an ordered array of scenarios from one JSON file.
func LoadFlow(path string) ([]*Scenario, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("testkit: resolve flow path %q: %w", path, err)
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("testkit: read flow %q: %w", abs, err)
	}

	var steps []*Scenario
	if err := json.Unmarshal(data, &steps); err != nil {
		return nil, fmt.Errorf("testkit: parse flow %q: %w", abs, err)
	}

	dir := filepath.Dir(abs)
	for i, s := range steps {
		if err := s.validate(); err != nil {
			return nil, fmt.Errorf("testkit: flow %q step %d: %w", abs, i, err)
		}
		s.dir = dir
	}
	return steps, nil
}
