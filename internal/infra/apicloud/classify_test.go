package apicloud

import (
	"errors"
	"testing"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		transport   error
		want        Outcome
		wantMalform bool
	}{
		{"success", 200, `{"status": 200, "Result": []}`, nil, OutcomeSuccess, false},
		{"string status", 200, `{"status": "200"}`, nil, OutcomeSuccess, false},
		{"app error", 200, `{"status": 404, "errormsg": "not found"}`, nil, OutcomePermanent, false},
		{"transport", 0, "", errors.New("connection reset"), OutcomeRetryable, false},
		{"http 502", 502, `{"status": 200}`, nil, OutcomeRetryable, false},
		{"http 429", 429, ``, nil, OutcomeRetryable, false},
		{"not json", 200, `<html>oops</html>`, nil, OutcomeRetryable, true},
		{"no status", 200, `{"Result": []}`, nil, OutcomeRetryable, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, got, err := Classify("kad_arbitr.php", tt.status, []byte(tt.body), tt.transport)
			if got != tt.want {
				t.Fatalf("Classify() outcome = %s, want %s", got, tt.want)
			}
			switch got {
			case OutcomeSuccess:
				if err != nil {
					t.Errorf("Expected nil error, got %v", err)
				}
			case OutcomePermanent:
				if !IsPermanent(err) {
					t.Errorf("Expected PermanentError, got %v", err)
				}
			case OutcomeRetryable:
				if !IsRetryable(err) {
					t.Errorf("Expected RetryableError, got %v", err)
				}
			}
			if errors.Is(err, ErrMalformedResponse) != tt.wantMalform {
				t.Errorf("ErrMalformedResponse = %v, want %v (err=%v)", !tt.wantMalform, tt.wantMalform, err)
			}
		})
	}
}

func TestClassify_PermanentMessage(t *testing.T) {
	_, _, err := Classify("bankrot.php", 200, []byte(`{"status": 500, "message": "Информация не найдена"}`), nil)
	var pe *PermanentError
	if !errors.As(err, &pe) {
		t.Fatalf("Expected PermanentError, got %v", err)
	}
	if pe.Status != 500 || pe.Message != "Информация не найдена" {
		t.Errorf("Unexpected error fields: %+v", pe)
	}
}

func TestEnvelope_Balance(t *testing.T) {
	tests := []struct {
		body string
		want *float64
	}{
		{`{"status": 200}`, nil},
		{`{"status": 200, "inquiry": {"balance": 250.5}}`, ptr(250.5)},
		{`{"status": 200, "inquiry": {"balance": "99"}}`, ptr(99)},
		{`{"status": 200, "inquiry": {"balance": "n/a"}}`, nil},
	}
	for _, tt := range tests {
		env, _, _ := Classify("x", 200, []byte(tt.body), nil)
		got := env.Balance()
		if (got == nil) != (tt.want == nil) || (got != nil && *got != *tt.want) {
			t.Errorf("Balance(%s) = %v, want %v", tt.body, got, tt.want)
		}
	}
}

func ptr(f float64) *float64 { return &f }
