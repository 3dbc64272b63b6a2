package mintapi

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// Score is a visibility score as reported by the Mint API. The upstream
// service is not consistent about numeric encoding: scores arrive as JSON
// numbers, as quoted numeric strings, or as null. UnmarshalJSON accepts
// all of these; anything unparseable reads as 0.
type Score float64

// UnmarshalJSON implements [json.Unmarshaler]. It never returns an error —
// malformed values coerce to 0 so that one odd cell cannot poison a whole
// response.
func (s *Score) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*s = 0
		return nil
	}

	if data[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			*s = 0
			return nil
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(str), 64)
		if err != nil {
			*s = 0
			return nil
		}
		*s = Score(f)
		return nil
	}

	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		*s = 0
		return nil
	}
	*s = Score(f)
	return nil
}

// Domain is one tracked brand domain from GET /domains.
type Domain struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
}

// Label returns the human-facing name: DisplayName when set, otherwise
// Name, otherwise "Unknown".
func (d Domain) Label() string {
	return label(d.DisplayName, d.Name)
}

// Topic is one market/topic under a domain from GET /domains/{id}/topics.
type Topic struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
}

// Label returns the human-facing name: DisplayName when set, otherwise
// Name, otherwise "Unknown".
func (t Topic) Label() string {
	return label(t.DisplayName, t.Name)
}

func label(display, name string) string {
	if display != "" {
		return display
	}
	if name != "" {
		return name
	}
	return "Unknown"
}

// ChartPoint is one day of an aggregated visibility series: the tracked
// brand's own score plus every competitor score observed that day.
type ChartPoint struct {
	Date        string           `json:"date"`
	Brand       Score            `json:"brand"`
	Competitors map[string]Score `json:"competitors"`
}

// AggregatedVisibility is the response of the visibility/aggregated
// endpoint. DetailedResults is only present when the request asked for
// citation details.
type AggregatedVisibility struct {
	AvailableModels []string         `json:"availableModels"`
	ChartData       []ChartPoint     `json:"chartData"`
	DetailedResults *DetailedResults `json:"detailedResults,omitempty"`
}

// DetailedResults carries the citation detail blocks attached to an
// aggregated response when [AggregatedQuery.IncludeDetails] is set.
type DetailedResults struct {
	TopDomains      []RankedSource    `json:"topDomains"`
	TopURLs         []RankedSource    `json:"topUrls"`
	DomainsOverTime []SourceTimePoint `json:"domainsOverTime"`
	URLsOverTime    []SourceTimePoint `json:"urlsOverTime"`
	GlobalMetrics   map[string]Score  `json:"globalMetrics"`
}

// RankedSource is one entry of a ranked citation list (a source domain or
// URL plus how often it was cited). The API sends no explicit rank; the
// position within the list is the rank.
type RankedSource struct {
	Source string `json:"source"`
	Count  int    `json:"count"`
}

// SourceTimePoint is one dated citation observation from the
// domainsOverTime / urlsOverTime series.
type SourceTimePoint struct {
	Date   string `json:"date"`
	Source string `json:"source"`
	Count  int    `json:"count"`
}

// Report is a single raw visibility measurement: one model's score on one
// day, before any aggregation. Served by the plain visibility endpoint.
type Report struct {
	Date  string `json:"date"`
	Model string `json:"model"`
	Score Score  `json:"score"`
}

// reportsEnvelope is the top-level response of the plain visibility
// endpoint.
type reportsEnvelope struct {
	Reports []Report `json:"reports"`
}
