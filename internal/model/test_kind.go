package model

import "fmt"

// TestKind enumerates the psychometric tests administered in a session.
// The string values match the backend's submission routes.
type TestKind string

const (
	TestIntelligence TestKind = "cfit"
	TestEndurance    TestKind = "kraepelin"
	TestPreference   TestKind = "papi"
)

// TestCatalog is the fixed, ordered set of tests every session must complete.
var TestCatalog = [...]TestKind{TestIntelligence, TestEndurance, TestPreference}

// Valid reports whether k is one of the catalog tests.
func (k TestKind) Valid() bool {
	switch k {
	case TestIntelligence, TestEndurance, TestPreference:
		return true
	}
	return false
}

// QuestionSet reports whether k is administered by the timed question runtime.
func (k TestKind) QuestionSet() bool {
	return k == TestIntelligence || k == TestPreference
}

// Title returns the display name of the test.
func (k TestKind) Title() string {
	switch k {
	case TestIntelligence:
		return "CFIT Intelligence Test"
	case TestEndurance:
		return "Kraepelin Test"
	case TestPreference:
		return "PAPI Kostick"
	default:
		return string(k)
	}
}

// ParseTestKind converts a wire value into a TestKind.
func ParseTestKind(s string) (TestKind, error) {
	k := TestKind(s)
	if !k.Valid() {
		return "", fmt.Errorf("unknown test kind %q", s)
	}
	return k, nil
}
