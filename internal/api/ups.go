package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/leekd123/nutify/internal/api/models"
	"github.com/leekd123/nutify/internal/metrics"
	"github.com/leekd123/nutify/internal/nutclient"
)

const upsQueryTimeout = 5 * time.Second

// registerUPSRoutes registers the live UPS status endpoint. Unreachable is
// an answer here, not an error: the route always returns 200 so dashboards
// can render the outage instead of a broken request.
func (s *Server) registerUPSRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "get-ups",
		Method:      http.MethodGet,
		Path:        "/api/ups",
		Summary:     "UPS Status",
		Description: "Query upsd live for the UPS status and its full variable dump",
		Tags:        []string{"ups"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, func(ctx context.Context, _ *struct{}) (*models.UPSResponse, error) {
		ups := s.sup.Manager.Identity()
		body := models.UPSData{
			Name: ups.Name,
			Host: ups.Host,
		}

		cl := nutclient.New(ups.Host, s.sup.Config.StatusPort())
		qctx, cancel := context.WithTimeout(ctx, upsQueryTimeout)
		defer cancel()

		status, err := cl.Status(qctx, ups.Name)
		if cerr := nutclient.ClassifyCommError(err, s.sup.Mode.Mode); cerr != nil {
			body.Error = cerr.Error()
			body.LastKnown = lastKnown(ups.Name)
			return &models.UPSResponse{Body: body}, nil
		}

		body.Reachable = true
		if err == nil {
			body.Status = status
			if vars, verr := cl.Variables(qctx, ups.Name); verr == nil {
				body.Variables = vars
			}
		}
		return &models.UPSResponse{Body: body}, nil
	})
}

// lastKnown snapshots the health loop's metric cache for the outage answer.
// Nil until the first successful deep check.
func lastKnown(ups string) *models.UPSLastKnown {
	m := metrics.GetUPSMetrics(ups)
	if m == nil || m.LastSeen.IsZero() {
		return nil
	}
	seen := m.LastSeen
	return &models.UPSLastKnown{
		Status:         m.Status,
		BatteryCharge:  m.BatteryCharge,
		BatteryRuntime: m.BatteryRuntime,
		Load:           m.Load,
		LastSeen:       &seen,
	}
}
