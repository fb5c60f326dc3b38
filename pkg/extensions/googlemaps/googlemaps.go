// Package googlemaps geocodes addresses and plans routes with the Google Maps web services.
package googlemaps

import (
	"context"
	"fmt"
	"net/url"

	"github.com/aretw0/conduit/internal/runtime"
	"github.com/aretw0/conduit/pkg/domain"
	"github.com/aretw0/conduit/pkg/extensions/extkit"
)

const (
	Name           = "google-maps"
	ConnectionType = "google-maps"

	defaultBaseURL = "https://maps.googleapis.com"
)

// Extension returns the Google Maps extension.
func Extension(opts ...extkit.Option) domain.Extension {
	s := extkit.Apply(defaultBaseURL, opts)
	return domain.Extension{
		Name:    Name,
		Label:   "Google Maps",
		Version: "1.0.0",
		Connections: []domain.ConnectionSchema{
			{Type: ConnectionType, Label: "Google Maps API key", Fields: []domain.ConnectionField{{Name: "key", Required: true}}},
		},
		Nodes: []domain.NodeDescriptor{geocodeAddress(s), getDirections(s)},
	}
}

// statusError is a non-OK status in a 200 response.
type statusError struct {
	Status  string
	Message string
}

func (e *statusError) Error() string {
	if e.Message == "" {
		return "google maps: " + e.Status
	}
	return fmt.Sprintf("google maps: %s: %s", e.Status, e.Message)
}

type envelope struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
}

// check returns found=false for ZERO_RESULTS and an error for any other non-OK status.
func (e envelope) check() (bool, error) {
	switch e.Status {
	case "OK":
		return true, nil
	case "ZERO_RESULTS", "NOT_FOUND":
		return false, nil
	default:
		return false, &statusError{Status: e.Status, Message: e.ErrorMessage}
	}
}

func geocodeAddress(s extkit.Settings) domain.NodeDescriptor {
	fields := []domain.Field{
		extkit.ConnectionField("Google Maps Connection"),
		{Key: "address", Type: domain.FieldText, Label: "Address", Required: true},
		{Key: "language", Type: domain.FieldText, Label: "Language"},
	}
	return domain.NodeDescriptor{
		Type:         "geocodeAddress",
		DefaultLabel: "Geocode Address",
		Summary:      "Turns an address into coordinates",
		Fields:       append(fields, extkit.StorageFields("location")...),
		Sections:     []domain.Section{extkit.StorageSection()},
		Children:     extkit.Children,
		Connection:   extkit.Ref(ConnectionType),
		Function: func(ctx context.Context, inv *domain.Invocation) error {
			var cfg struct {
				Address  string `json:"address"`
				Language string `json:"language"`
			}
			if err := runtime.Decode(inv.Config, &cfg); err != nil {
				return err
			}
			target := extkit.Target(inv.Config)

			q := url.Values{"address": {cfg.Address}, "key": {inv.Connection["key"]}}
			if cfg.Language != "" {
				q.Set("language", cfg.Language)
			}
			var res struct {
				envelope
				Results []struct {
					FormattedAddress string `json:"formatted_address"`
					PlaceID          string `json:"place_id"`
					Geometry         struct {
						Location struct {
							Lat float64 `json:"lat"`
							Lng float64 `json:"lng"`
						} `json:"location"`
					} `json:"geometry"`
				} `json:"results"`
			}
			if err := s.Client.GetJSON(ctx, s.BaseURL+"/maps/api/geocode/json", q, nil, &res); err != nil {
				inv.Fail(target, err)
				return err
			}
			found, err := res.check()
			if err != nil {
				inv.Fail(target, err)
				return err
			}
			if !found || len(res.Results) == 0 {
				return extkit.Found(inv, false)
			}

			first := res.Results[0]
			inv.Store(target, map[string]any{
				"formattedAddress": first.FormattedAddress,
				"placeId":          first.PlaceID,
				"lat":              first.Geometry.Location.Lat,
				"lng":              first.Geometry.Location.Lng,
			})
			return extkit.Found(inv, true)
		},
	}
}

func getDirections(s extkit.Settings) domain.NodeDescriptor {
	fields := []domain.Field{
		extkit.ConnectionField("Google Maps Connection"),
		{Key: "origin", Type: domain.FieldText, Label: "Origin", Required: true},
		{Key: "destination", Type: domain.FieldText, Label: "Destination", Required: true},
		{
			Key:     "mode",
			Type:    domain.FieldSelect,
			Label:   "Travel mode",
			Options: []string{"driving", "walking", "bicycling", "transit"},
			Default: "driving",
		},
	}
	return domain.NodeDescriptor{
		Type:         "getDirections",
		DefaultLabel: "Get Directions",
		Fields:       append(fields, extkit.StorageFields("directions")...),
		Sections:     []domain.Section{extkit.StorageSection()},
		Children:     extkit.Children,
		Connection:   extkit.Ref(ConnectionType),
		Function: func(ctx context.Context, inv *domain.Invocation) error {
			var cfg struct {
				Origin      string `json:"origin"`
				Destination string `json:"destination"`
				Mode        string `json:"mode"`
			}
			if err := runtime.Decode(inv.Config, &cfg); err != nil {
				return err
			}
			target := extkit.Target(inv.Config)

			q := url.Values{
				"origin":      {cfg.Origin},
				"destination": {cfg.Destination},
				"mode":        {cfg.Mode},
				"key":         {inv.Connection["key"]},
			}
			var res struct {
				envelope
				Routes []struct {
					Summary string `json:"summary"`
					Legs    []struct {
						StartAddress string `json:"start_address"`
						EndAddress   string `json:"end_address"`
						Distance     struct {
							Text  string  `json:"text"`
							Value float64 `json:"value"`
						} `json:"distance"`
						Duration struct {
							Text  string  `json:"text"`
							Value float64 `json:"value"`
						} `json:"duration"`
					} `json:"legs"`
				} `json:"routes"`
			}
			if err := s.Client.GetJSON(ctx, s.BaseURL+"/maps/api/directions/json", q, nil, &res); err != nil {
				inv.Fail(target, err)
				return err
			}
			found, err := res.check()
			if err != nil {
				inv.Fail(target, err)
				return err
			}
			if !found || len(res.Routes) == 0 || len(res.Routes[0].Legs) == 0 {
				return extkit.Found(inv, false)
			}

			route := res.Routes[0]
			leg := route.Legs[0]
			inv.Store(target, map[string]any{
				"summary":         route.Summary,
				"startAddress":    leg.StartAddress,
				"endAddress":      leg.EndAddress,
				"distance":        leg.Distance.Text,
				"distanceMeters":  leg.Distance.Value,
				"duration":        leg.Duration.Text,
				"durationSeconds": leg.Duration.Value,
			})
			return extkit.Found(inv, true)
		},
	}
}
