package address

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"
)

// DefaultGoogleURL is the Google Address Validation endpoint.
const DefaultGoogleURL = "https://addressvalidation.googleapis.com/v1:validateAddress"

// Google validates addresses with the Google Address Validation API.
type Google struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewGoogle creates a Google provider.
func NewGoogle(apiKey, baseURL string, timeout, rateLimit time.Duration) *Google {
	if baseURL == "" {
		baseURL = DefaultGoogleURL
	}
	return &Google{
		apiKey:  apiKey,
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		limiter: newLimiter(rateLimit),
	}
}

// Name implements Validator.
func (g *Google) Name() string { return "google" }

type googleRequest struct {
	Address googlePostalAddress `json:"address"`
}

type googlePostalAddress struct {
	RegionCode         string   `json:"regionCode"`
	AddressLines       []string `json:"addressLines"`
	Locality           string   `json:"locality"`
	AdministrativeArea string   `json:"administrativeArea"`
	PostalCode         string   `json:"postalCode"`
}

type googleResponse struct {
	Result struct {
		Verdict struct {
			AddressComplete          bool   `json:"addressComplete"`
			HasUnconfirmedComponents bool   `json:"hasUnconfirmedComponents"`
			ValidationGranularity    string `json:"validationGranularity"`
		} `json:"verdict"`
		Address struct {
			FormattedAddress string              `json:"formattedAddress"`
			PostalAddress    googlePostalAddress `json:"postalAddress"`
		} `json:"address"`
	} `json:"result"`
}

// Validate implements Validator.
func (g *Google) Validate(ctx context.Context, a Address) (Result, error) {
	if g.apiKey == "" {
		return Result{}, errors.New("google: GOOGLE_ADDRESS_API_KEY not configured")
	}
	if err := g.limiter.Wait(ctx); err != nil {
		return Result{}, fmt.Errorf("google: rate limit wait failed: %w", err)
	}

	region := a.Country
	if region == "" {
		region = "US"
	}
	lines := []string{a.Street1}
	if a.Street2 != "" {
		lines = append(lines, a.Street2)
	}

	body, err := json.Marshal(googleRequest{Address: googlePostalAddress{
		RegionCode:         region,
		AddressLines:       lines,
		Locality:           a.City,
		AdministrativeArea: a.State,
		PostalCode:         a.Zip,
	}})
	if err != nil {
		return Result{}, fmt.Errorf("google: encode request: %w", err)
	}

	endpoint := g.baseURL + "?key=" + url.QueryEscape(g.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("google: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("google: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Result{}, fmt.Errorf("google: unexpected status %d", resp.StatusCode)
	}

	var out googleResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Result{}, fmt.Errorf("google: decode response: %w", err)
	}

	verdict := out.Result.Verdict
	if verdict.AddressComplete && verdict.ValidationGranularity != "OTHER" {
		suggested := a
		postal := out.Result.Address.PostalAddress
		switch {
		case len(postal.AddressLines) > 0:
			suggested.Street1 = postal.AddressLines[0]
		case out.Result.Address.FormattedAddress != "":
			suggested.Street1 = out.Result.Address.FormattedAddress
		}
		if postal.PostalCode != "" {
			suggested.Zip = postal.PostalCode
		}
		return Result{Status: StatusValid, Messages: []string{}, SuggestedAddress: &suggested}, nil
	}

	msgs := []string{}
	if verdict.HasUnconfirmedComponents {
		msgs = append(msgs, "Some address components could not be confirmed")
	}
	if !verdict.AddressComplete {
		msgs = append(msgs, "Address appears incomplete")
	}
	return Result{Status: StatusWarning, Messages: msgs}, nil
}
