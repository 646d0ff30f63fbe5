package telephony

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestTwilioPlaceCall(t *testing.T) {
	var gotPath, gotAuthUser string
	var gotForm map[string][]string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuthUser, _, _ = r.BasicAuth()
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		gotForm = r.PostForm
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"sid":"CA42","status":"queued","from":"+15550001111","to":"+15550002222"}`))
	}))
	defer srv.Close()

	p := NewTwilioProvider(srv.URL)
	res, err := p.PlaceCall(context.Background(), PlaceCallRequest{
		Credentials:       Credentials{AccountSID: "AC1", AuthToken: "tok"},
		From:              "+15550001111",
		To:                "+15550002222",
		Script:            "<Response></Response>",
		StatusCallbackURL: "https://api.example.com/webhooks/twilio/status",
	})
	if err != nil {
		t.Fatalf("place: %v", err)
	}
	if res.CallID != "CA42" || res.ProviderStatus != "queued" {
		t.Fatalf("unexpected result: %+v", res)
	}

	if gotPath != "/Accounts/AC1/Calls.json" {
		t.Fatalf("unexpected path: %q", gotPath)
	}
	if gotAuthUser != "AC1" {
		t.Fatalf("expected basic auth with account sid, got %q", gotAuthUser)
	}
	if gotForm["To"][0] != "+15550002222" || gotForm["Twiml"][0] != "<Response></Response>" {
		t.Fatalf("unexpected form: %+v", gotForm)
	}
	if len(gotForm["StatusCallbackEvent"]) != 4 {
		t.Fatalf("expected 4 status callback events, got %+v", gotForm["StatusCallbackEvent"])
	}
}

func TestTwilioPlaceCallWithoutCallbackOmitsCallbackFields(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		if r.PostForm.Has("StatusCallback") || r.PostForm.Has("StatusCallbackEvent") {
			t.Errorf("callback fields should be omitted: %+v", r.PostForm)
		}
		w.Write([]byte(`{"sid":"CA1","status":"queued"}`))
	}))
	defer srv.Close()

	p := NewTwilioProvider(srv.URL)
	if _, err := p.PlaceCall(context.Background(), PlaceCallRequest{
		Credentials: Credentials{AccountSID: "AC1", AuthToken: "tok"},
		From:        "+15550001111",
		To:          "+15550002222",
		Script:      "<Response></Response>",
	}); err != nil {
		t.Fatalf("place: %v", err)
	}
}

func TestTwilioPlaceCallError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"code":21211,"message":"Invalid 'To' Phone Number"}`))
	}))
	defer srv.Close()

	p := NewTwilioProvider(srv.URL)
	_, err := p.PlaceCall(context.Background(), PlaceCallRequest{
		Credentials: Credentials{AccountSID: "AC1", AuthToken: "tok"},
		From:        "+15550001111",
		To:          "+15550002222",
		Script:      "<Response></Response>",
	})
	if err == nil || !strings.Contains(err.Error(), "21211") {
		t.Fatalf("expected twilio error with code, got %v", err)
	}
}

func TestTwilioFetchCall(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/Accounts/AC1/Calls/CA42.json" {
			t.Errorf("unexpected path: %q", r.URL.Path)
		}
		w.Write([]byte(`{"sid":"CA42","status":"completed","from":"+15550001111","to":"+15550002222","direction":"outbound-api","duration":"37"}`))
	}))
	defer srv.Close()

	p := NewTwilioProvider(srv.URL)
	snap, err := p.FetchCall(context.Background(), FetchCallRequest{
		Credentials: Credentials{AccountSID: "AC1", AuthToken: "tok"},
		CallID:      "CA42",
	})
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if snap.ProviderStatus != "completed" || snap.DurationSeconds != 37 {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
}

func TestTwilioValidation(t *testing.T) {
	p := NewTwilioProvider("")
	if _, err := p.PlaceCall(context.Background(), PlaceCallRequest{}); err == nil {
		t.Fatalf("expected credential validation error")
	}
	if _, err := p.FetchCall(context.Background(), FetchCallRequest{Credentials: Credentials{AccountSID: "AC1", AuthToken: "t"}}); err == nil {
		t.Fatalf("expected call id validation error")
	}
}
