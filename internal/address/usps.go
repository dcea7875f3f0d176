package address

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// DefaultUSPSURL is the USPS Web Tools endpoint for the Verify API.
const DefaultUSPSURL = "https://secure.shippingapis.com/ShippingAPI.dll"

// USPS validates addresses with the USPS Web Tools Verify API.
type USPS struct {
	userID     string
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewUSPS creates a USPS provider. timeout bounds each HTTP call and
// rateLimit is the minimum spacing between calls.
func NewUSPS(userID, baseURL string, timeout, rateLimit time.Duration) *USPS {
	if baseURL == "" {
		baseURL = DefaultUSPSURL
	}
	return &USPS{
		userID:  userID,
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		limiter: newLimiter(rateLimit),
	}
}

// Name implements Validator.
func (u *USPS) Name() string { return "usps" }

type uspsRequest struct {
	XMLName  xml.Name    `xml:"AddressValidateRequest"`
	UserID   string      `xml:"USERID,attr"`
	Revision int         `xml:"Revision"`
	Address  uspsAddress `xml:"Address"`
}

type uspsAddress struct {
	ID       string `xml:"ID,attr"`
	Address1 string `xml:"Address1"`
	Address2 string `xml:"Address2"`
	City     string `xml:"City"`
	State    string `xml:"State"`
	Zip5     string `xml:"Zip5"`
	Zip4     string `xml:"Zip4"`
}

// uspsResponse covers both the normal response and the top-level <Error>
// document USPS returns for authorization failures.
type uspsResponse struct {
	XMLName     xml.Name
	Description string `xml:"Description"`
	Address     struct {
		Address2 string `xml:"Address2"`
		City     string `xml:"City"`
		State    string `xml:"State"`
		Zip5     string `xml:"Zip5"`
		Zip4     string `xml:"Zip4"`
		Error    *struct {
			Description string `xml:"Description"`
		} `xml:"Error"`
	} `xml:"Address"`
}

// Validate implements Validator.
func (u *USPS) Validate(ctx context.Context, a Address) (Result, error) {
	if u.userID == "" {
		return Result{}, errors.New("usps: USPS_USER_ID not configured")
	}
	if err := u.limiter.Wait(ctx); err != nil {
		return Result{}, fmt.Errorf("usps: rate limit wait failed: %w", err)
	}

	zip5 := a.Zip
	if len(zip5) > 5 {
		zip5 = zip5[:5]
	}
	body, err := xml.Marshal(uspsRequest{
		UserID:   u.userID,
		Revision: 1,
		Address: uspsAddress{
			ID:       "0",
			Address1: a.Street2,
			Address2: a.Street1,
			City:     a.City,
			State:    a.State,
			Zip5:     zip5,
		},
	})
	if err != nil {
		return Result{}, fmt.Errorf("usps: encode request: %w", err)
	}

	params := url.Values{}
	params.Set("API", "Verify")
	params.Set("XML", string(body))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return Result{}, fmt.Errorf("usps: create request: %w", err)
	}

	resp, err := u.httpClient.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("usps: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Result{}, fmt.Errorf("usps: unexpected status %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Result{}, fmt.Errorf("usps: read response: %w", err)
	}

	var out uspsResponse
	if err := xml.Unmarshal(raw, &out); err != nil {
		return Result{}, fmt.Errorf("usps: decode response: %w", err)
	}
	if out.XMLName.Local == "Error" {
		return Result{}, fmt.Errorf("usps: %s", strings.TrimSpace(out.Description))
	}

	if e := out.Address.Error; e != nil {
		msg := strings.TrimSpace(e.Description)
		if msg == "" {
			msg = "Address validation failed"
		}
		return invalid(msg), nil
	}

	suggested := a
	if out.Address.Address2 != "" {
		suggested.Street1 = out.Address.Address2
	}
	if out.Address.City != "" {
		suggested.City = out.Address.City
	}
	if out.Address.State != "" {
		suggested.State = out.Address.State
	}
	switch {
	case out.Address.Zip5 != "" && out.Address.Zip4 != "":
		suggested.Zip = out.Address.Zip5 + "-" + out.Address.Zip4
	case out.Address.Zip5 != "":
		suggested.Zip = out.Address.Zip5
	}

	return Result{Status: StatusValid, Messages: []string{}, SuggestedAddress: &suggested}, nil
}

// newLimiter allows one call per interval. A non-positive interval disables limiting.
func newLimiter(interval time.Duration) *rate.Limiter {
	if interval <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(interval), 1)
}
