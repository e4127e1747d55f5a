package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/nandanugg/route-guardian/module/core/domain"
)

type routePoint struct {
	Latitude  float64 `yaml:"latitude"`
	Longitude float64 `yaml:"longitude"`
}

// routeFile is the YAML layout accepted by --route-file.
type routeFile struct {
	Destination string       `yaml:"destination"`
	GuardianID  string       `yaml:"guardian_id"`
	Steps       []string     `yaml:"steps"`
	Points      []routePoint `yaml:"points"`
}

type plannedRoute struct {
	Destination string
	GuardianID  string
	Steps       []string
	Points      []domain.Coordinate
}

func loadRouteFile(path string) (*plannedRoute, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read route file: %w", err)
	}
	return parseRouteFile(raw)
}

func parseRouteFile(raw []byte) (*plannedRoute, error) {
	var f routeFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse route file: %w", err)
	}
	if len(f.Points) == 0 {
		return nil, fmt.Errorf("route file: no points")
	}

	route := &plannedRoute{
		Destination: f.Destination,
		GuardianID:  f.GuardianID,
		Steps:       f.Steps,
		Points:      make([]domain.Coordinate, len(f.Points)),
	}
	for i, p := range f.Points {
		c := domain.Coordinate{Lat: p.Latitude, Lon: p.Longitude}
		if !c.Valid() {
			return nil, fmt.Errorf("route file point %d: %w", i, domain.ErrInvalidCoordinate)
		}
		route.Points[i] = c
	}
	return route, nil
}

// parseCoord reads "lat,lon".
func parseCoord(input string) (domain.Coordinate, error) {
	parts := strings.Split(input, ",")
	if len(parts) != 2 {
		return domain.Coordinate{}, fmt.Errorf("invalid coordinate: %s", input)
	}

	lat, err1 := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	lon, err2 := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err1 != nil || err2 != nil {
		return domain.Coordinate{}, fmt.Errorf("invalid lat/lon: %s", input)
	}

	c := domain.Coordinate{Lat: lat, Lon: lon}
	if !c.Valid() {
		return domain.Coordinate{}, fmt.Errorf("coordinate %s: %w", input, domain.ErrInvalidCoordinate)
	}
	return c, nil
}

type osrmResponse struct {
	Code   string `json:"code"`
	Routes []struct {
		Geometry struct {
			Coordinates [][]float64 `json:"coordinates"`
		} `json:"geometry"`
		Legs []struct {
			Steps []struct {
				Name     string `json:"name"`
				Maneuver struct {
					Type     string `json:"type"`
					Modifier string `json:"modifier"`
				} `json:"maneuver"`
			} `json:"steps"`
		} `json:"legs"`
	} `json:"routes"`
}

// fetchWalkingRoute asks an OSRM server for a foot route between two points.
func fetchWalkingRoute(ctx context.Context, client *http.Client, baseURL string, source, target domain.Coordinate) (*plannedRoute, error) {
	url := fmt.Sprintf("%s/route/v1/foot/%.6f,%.6f;%.6f,%.6f?overview=full&geometries=geojson&steps=true",
		strings.TrimRight(baseURL, "/"), source.Lon, source.Lat, target.Lon, target.Lat)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("osrm request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("osrm returned %d", resp.StatusCode)
	}

	var parsed osrmResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("osrm decode: %w", err)
	}
	if len(parsed.Routes) == 0 || len(parsed.Routes[0].Geometry.Coordinates) == 0 {
		return nil, fmt.Errorf("osrm returned no route")
	}

	r := parsed.Routes[0]
	route := &plannedRoute{}
	for _, pair := range r.Geometry.Coordinates {
		if len(pair) < 2 {
			continue
		}
		route.Points = append(route.Points, domain.Coordinate{Lon: pair[0], Lat: pair[1]})
	}
	for _, leg := range r.Legs {
		for _, s := range leg.Steps {
			route.Steps = append(route.Steps, describeStep(s.Maneuver.Type, s.Maneuver.Modifier, s.Name))
		}
	}
	return route, nil
}

func describeStep(maneuver, modifier, name string) string {
	parts := []string{maneuver}
	if modifier != "" {
		parts = append(parts, modifier)
	}
	if name != "" {
		parts = append(parts, "onto "+name)
	}
	return strings.Join(parts, " ")
}
