package http

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/couchcryptid/flight-delay-etl/internal/resolver"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
)

const delayRoute = "/v1/delays/{dayOfWeek}/{month}/{origin}/{waypoint}/{airline}/{hour}/{layover}"

type delayResponse struct {
	Status string `json:"status"`
	Level  int    `json:"level,omitempty"`
	Error  string `json:"error,omitempty"`

	OnTimePercent      *int     `json:"onTimePercent,omitempty"`
	SevereDelayPercent *int     `json:"severeDelayPercent,omitempty"`
	DelayMedianMinutes *int     `json:"delayMedianMinutes,omitempty"`
	DelayStdMinutes    *int     `json:"delayStdMinutes,omitempty"`
	Delay90thMinutes   *int     `json:"delay90thMinutes,omitempty"`
	CancelPercent      *float64 `json:"cancelPercent,omitempty"`
	SampleSize         *int     `json:"sampleSize,omitempty"`
	Shape              *float64 `json:"shape,omitempty"`
	Scale              *float64 `json:"scale,omitempty"`
}

func handleDelay(res Resolver, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q, err := parseQuery(r)
		if err != nil {
			sharedobs.WriteJSON(w, http.StatusBadRequest, delayResponse{Status: "invalid_request", Error: err.Error()})
			return
		}

		out := res.Resolve(q)
		logger.Debug("delay query resolved",
			"airline", q.Airline,
			"origin", q.Origin,
			"outcome", out.Outcome.String(),
			"level", int(out.Level),
		)

		switch out.Outcome {
		case resolver.Matched:
			sharedobs.WriteJSON(w, http.StatusOK, matchedResponse(out))
		case resolver.MatchedButInsufficient:
			sharedobs.WriteJSON(w, http.StatusOK, delayResponse{Status: out.Outcome.String(), Level: int(out.Level)})
		default:
			sharedobs.WriteJSON(w, http.StatusNotFound, delayResponse{Status: out.Outcome.String()})
		}
	}
}

func matchedResponse(out resolver.Resolution) delayResponse {
	r := out.Result
	return delayResponse{
		Status:             out.Outcome.String(),
		Level:              int(out.Level),
		OnTimePercent:      &r.OnTimePercent,
		SevereDelayPercent: r.SevereDelayPercent,
		DelayMedianMinutes: r.DelayMedianMinutes,
		DelayStdMinutes:    r.DelayStdMinutes,
		Delay90thMinutes:   r.Delay90thMinutes,
		CancelPercent:      r.CancelPercent,
		SampleSize:         &r.SampleSize,
		Shape:              &r.Shape,
		Scale:              &r.Scale,
	}
}

func parseQuery(r *http.Request) (resolver.Query, error) {
	dow, err := intInRange(r, "dayOfWeek", 1, 7)
	if err != nil {
		return resolver.Query{}, err
	}
	month, err := intInRange(r, "month", 1, 12)
	if err != nil {
		return resolver.Query{}, err
	}
	hour, err := intInRange(r, "hour", 0, 23)
	if err != nil {
		return resolver.Query{}, err
	}

	airline := strings.ToUpper(strings.TrimSpace(r.PathValue("airline")))
	if airline == "" {
		return resolver.Query{}, errors.New("airline is required")
	}
	origin := strings.ToUpper(strings.TrimSpace(r.PathValue("origin")))
	if origin == "" {
		return resolver.Query{}, errors.New("origin is required")
	}

	return resolver.Query{
		DayOfWeek: dow,
		Month:     month,
		Origin:    origin,
		Waypoint:  r.PathValue("waypoint"),
		Airline:   airline,
		Hour:      hour,
		Layover:   r.PathValue("layover"),
	}, nil
}

func intInRange(r *http.Request, name string, lo, hi int) (int, error) {
	raw := r.PathValue(name)
	n, err := strconv.Atoi(raw)
	if err != nil || n < lo || n > hi {
		return 0, fmt.Errorf("%s must be an integer in [%d, %d], got %q", name, lo, hi, raw)
	}
	return n, nil
}
