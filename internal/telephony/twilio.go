package telephony

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const defaultTwilioBaseURL = "https://api.twilio.com/2010-04-01"

// statusCallbackEvents are the lifecycle events we ask Twilio to deliver.
var statusCallbackEvents = []string{"initiated", "ringing", "answered", "completed"}

// TwilioProvider places and inspects calls through the Twilio REST API.
// It deliberately avoids the Twilio SDK; the adapter needs two endpoints.
type TwilioProvider struct {
	baseURL string
	client  *http.Client
}

func NewTwilioProvider(baseURL string) *TwilioProvider {
	if baseURL == "" {
		baseURL = defaultTwilioBaseURL
	}
	return &TwilioProvider{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

func (p *TwilioProvider) Name() string { return "twilio" }

// twilioCall is the subset of Twilio's call resource we read.
type twilioCall struct {
	Sid       string `json:"sid"`
	Status    string `json:"status"`
	From      string `json:"from"`
	To        string `json:"to"`
	Direction string `json:"direction"`
	Duration  string `json:"duration"`
}

type twilioError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (p *TwilioProvider) PlaceCall(ctx context.Context, req PlaceCallRequest) (PlaceCallResult, error) {
	if req.AccountSID == "" || req.AuthToken == "" {
		return PlaceCallResult{}, fmt.Errorf("telephony: twilio credentials required")
	}
	if req.From == "" || req.To == "" || req.Script == "" {
		return PlaceCallResult{}, fmt.Errorf("telephony: from, to and script are required")
	}

	form := url.Values{}
	form.Set("To", req.To)
	form.Set("From", req.From)
	form.Set("Twiml", req.Script)
	if req.StatusCallbackURL != "" {
		form.Set("StatusCallback", req.StatusCallbackURL)
		form.Set("StatusCallbackMethod", http.MethodPost)
		for _, ev := range statusCallbackEvents {
			form.Add("StatusCallbackEvent", ev)
		}
	}

	endpoint := fmt.Sprintf("%s/Accounts/%s/Calls.json", p.baseURL, url.PathEscape(req.AccountSID))
	var call twilioCall
	if err := p.do(ctx, req.Credentials, http.MethodPost, endpoint, strings.NewReader(form.Encode()), &call); err != nil {
		return PlaceCallResult{}, err
	}
	if call.Sid == "" {
		return PlaceCallResult{}, fmt.Errorf("telephony: twilio returned no call sid")
	}
	return PlaceCallResult{CallID: call.Sid, ProviderStatus: call.Status}, nil
}

func (p *TwilioProvider) FetchCall(ctx context.Context, req FetchCallRequest) (CallSnapshot, error) {
	if req.AccountSID == "" || req.AuthToken == "" {
		return CallSnapshot{}, fmt.Errorf("telephony: twilio credentials required")
	}
	if req.CallID == "" {
		return CallSnapshot{}, fmt.Errorf("telephony: call id required")
	}

	endpoint := fmt.Sprintf("%s/Accounts/%s/Calls/%s.json",
		p.baseURL, url.PathEscape(req.AccountSID), url.PathEscape(req.CallID))
	var call twilioCall
	if err := p.do(ctx, req.Credentials, http.MethodGet, endpoint, nil, &call); err != nil {
		return CallSnapshot{}, err
	}

	duration, _ := strconv.Atoi(call.Duration)
	return CallSnapshot{
		CallID:          call.Sid,
		ProviderStatus:  call.Status,
		From:            call.From,
		To:              call.To,
		Direction:       call.Direction,
		DurationSeconds: duration,
	}, nil
}

func (p *TwilioProvider) do(ctx context.Context, creds Credentials, method, endpoint string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("telephony: build request: %w", err)
	}
	req.SetBasicAuth(creds.AccountSID, creds.AuthToken)
	if body != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("telephony: twilio request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("telephony: read twilio response: %w", err)
	}

	if resp.StatusCode >= 300 {
		var terr twilioError
		if json.Unmarshal(raw, &terr) == nil && terr.Message != "" {
			return fmt.Errorf("telephony: twilio error %d (code %d): %s", resp.StatusCode, terr.Code, terr.Message)
		}
		return fmt.Errorf("telephony: twilio error %d", resp.StatusCode)
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("telephony: decode twilio response: %w", err)
	}
	return nil
}
