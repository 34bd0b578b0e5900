// Package testkit — runner.go
//
// Run() executes a single scenario against an http.Handler.
// RunDir() discovers all *.json files in a directory and runs them as subtests.
// RunFlow() runs an ordered array of scenarios, stopping at the first failure.
package testkit

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// ─── Public API ───────────────────────────────────────────────────────────────

// Run executes a single scenario from a JSON file against the provided handler.
//
// Lifecycle per scenario:
//  1. Load the scenario JSON file.
//  2. Read the request body (inline or from requestFileName).
//  3. Fire the request against handler using httptest.
//  4. Assert status code and headers.
//  5. Assert the response body (JSON diff) when an expectation is given.
func Run(t *testing.T, handler http.Handler, scenarioPath string) *httptest.ResponseRecorder {
	t.Helper()

	s, err := LoadScenario(scenarioPath)
	if err != nil {
		t.Fatalf("testkit: load scenario %q: %v", scenarioPath, err)
	}

	var rec *httptest.ResponseRecorder
	t.Run(s.Name, func(t *testing.T) {
		rec = Execute(t, handler, s)
	})
	return rec
}

// RunDir discovers every *.json file in dir and runs each as a t.Run subtest.
// Scenario files that fail to parse are reported as test failures (not fatal).
func RunDir(t *testing.T, handler http.Handler, dir string) {
	t.Helper()

	scenarios, errs := LoadAllFromDir(dir)
	for _, err := range errs {
		t.Errorf("%v", err)
	}

	for _, s := range scenarios {
		t.Run(s.Name, func(t *testing.T) {
			Execute(t, handler, s)
		})
	}
}

// RunFlow runs the steps of a flow file in order. A failing step skips
// the rest, since later steps depend on its effects.
func RunFlow(t *testing.T, handler http.Handler, flowPath string) {
	t.Helper()

	steps, err := LoadFlow(flowPath)
	if err != nil {
		t.Fatalf("%v", err)
	}

	for i, s := range steps {
		name := fmt.Sprintf("%02d %s", i+1, s.Name)
		if !t.Run(name, func(t *testing.T) { Execute(t, handler, s) }) {
			return
		}
	}
}

// Execute fires one scenario and asserts on the recorded response.
func Execute(t *testing.T, handler http.Handler, s *Scenario) *httptest.ResponseRecorder {
	t.Helper()

	// ── 1. Build request body ─────────────────────────────────────────────

	var reqBody io.Reader
	body, err := s.requestBody()
	if err != nil {
		t.Fatalf("[%s] read request body: %v", s.Name, err)
	}
	if body != nil {
		reqBody = bytes.NewReader(body)
	}

	// ── 2. Fire the request ───────────────────────────────────────────────

	method := strings.ToUpper(s.RequestMethod)
	if method == "" {
		method = http.MethodGet
	}

	req := httptest.NewRequest(method, s.RequestURL, reqBody)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	for k, v := range s.Headers {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	// ── 3. Assert status code and headers ─────────────────────────────────

	AssertStatusCode(t, s, rec.Code)
	AssertHeaders(t, s, rec.Header())

	// ── 4. Assert response body ───────────────────────────────────────────

	expected, err := s.expectedBody()
	if err != nil {
		t.Errorf("[%s] read expected body: %v", s.Name, err)
	} else {
		AssertJSONBody(t, s, expected, rec.Body.Bytes())
	}
	return rec
}

// ─── Debug helpers ────────────────────────────────────────────────────────────

// DumpScenario writes a human-readable summary of the scenario to w.
// Useful during test development to inspect what was loaded.
func DumpScenario(w io.Writer, s *Scenario) {
	fmt.Fprintf(w, "Scenario: %s\n", s.Name)
	fmt.Fprintf(w, "  %s %s → %d\n", s.RequestMethod, s.RequestURL, s.ExpectedCode)
	fmt.Fprintf(w, "  requestFile:  %s\n", s.RequestFileName)
	fmt.Fprintf(w, "  responseFile: %s\n", s.ResponseFileName)
	fmt.Fprintf(w, "  partial: %v\n", s.Partial)
}
