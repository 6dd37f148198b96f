package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/leekd123/nutify/internal/api/models"
	"github.com/leekd123/nutify/internal/supervisor"
)

// registerServiceRoutes registers the deployment mode and service endpoints.
func (s *Server) registerServiceRoutes() {
	// Deployment mode
	huma.Register(s.api, huma.Operation{
		OperationID: "get-mode",
		Method:      http.MethodGet,
		Path:        "/api/mode",
		Summary:     "Deployment Mode",
		Description: "Get the detected deployment mode and the UPS identity being monitored",
		Tags:        []string{"system"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, func(ctx context.Context, _ *struct{}) (*models.ModeResponse, error) {
		return &models.ModeResponse{
			Body: models.ModeData{
				Mode:       s.sup.Mode.Mode.String(),
				Source:     s.sup.Mode.Source,
				UPS:        s.sup.Manager.Identity().String(),
				UsingDummy: s.sup.Manager.UsingDummy(),
			},
		}, nil
	})

	// List supervised services
	huma.Register(s.api, huma.Operation{
		OperationID: "list-services",
		Method:      http.MethodGet,
		Path:        "/api/services",
		Summary:     "List Services",
		Description: "Get the state of every supervised service in launch order",
		Tags:        []string{"services"},
		Security:    withAuth(),
		Errors:      []int{401},
	}, func(ctx context.Context, _ *struct{}) (*models.ServiceListResponse, error) {
		snapshot := s.sup.Registry.Snapshot()
		services := make([]models.ServiceData, 0, len(snapshot))
		for _, st := range snapshot {
			services = append(services, serviceData(st))
		}
		return &models.ServiceListResponse{
			Body: models.ServiceListData{
				Services: services,
				Count:    len(services),
			},
		}, nil
	})

	// Coordinated restart of the whole NUT chain. Registered before the
	// named route in source order for readability; the router picks the
	// literal path over the wildcard either way.
	huma.Register(s.api, huma.Operation{
		OperationID: "restart-all-services",
		Method:      http.MethodPost,
		Path:        "/api/services/restart",
		Summary:     "Restart NUT Chain",
		Description: "Tear down and relaunch the driver, upsd and upsmon in dependency order",
		Tags:        []string{"services"},
		Security:    withAuth(),
		Errors:      []int{401, 500},
	}, func(ctx context.Context, _ *struct{}) (*models.ServiceActionResponse, error) {
		if err := s.sup.Health.RequestCoordinatedRestart(ctx, "api request"); err != nil {
			return nil, huma.Error500InternalServerError("Coordinated restart failed", err)
		}
		return &models.ServiceActionResponse{
			Body: models.ServiceActionData{
				Service: "all",
				Action:  "restart",
				Success: true,
			},
		}, nil
	})

	// Restart one service
	huma.Register(s.api, huma.Operation{
		OperationID: "restart-service",
		Method:      http.MethodPost,
		Path:        "/api/services/{name}/restart",
		Summary:     "Restart Service",
		Description: "Stop and relaunch a single supervised service",
		Tags:        []string{"services"},
		Security:    withAuth(),
		Errors:      []int{401, 404, 500},
	}, func(ctx context.Context, input *struct {
		Name string `path:"name" maxLength:"32" example:"upsd" doc:"Service name"`
	}) (*models.ServiceActionResponse, error) {
		// Unknown names and services not managed in this mode both 404
		if _, ok := s.sup.Manager.Descriptor(input.Name); !ok {
			return nil, huma.Error404NotFound("Unknown service: " + input.Name)
		}
		if err := s.sup.Health.RequestRestart(ctx, input.Name); err != nil {
			return nil, huma.Error500InternalServerError("Restart failed", err)
		}
		return &models.ServiceActionResponse{
			Body: models.ServiceActionData{
				Service: input.Name,
				Action:  "restart",
				Success: true,
			},
		}, nil
	})
}

// serviceData converts a registry snapshot entry to its API shape.
func serviceData(st supervisor.ServiceState) models.ServiceData {
	d := models.ServiceData{
		Name:      st.Name,
		Status:    string(st.Status),
		PID:       st.PID,
		Adopted:   st.Adopted,
		Restarts:  st.Restarts,
		Failures:  st.ConsecutiveFailures,
		LastError: st.LastError,
	}
	if !st.StartedAt.IsZero() {
		t := st.StartedAt
		d.StartedAt = &t
	}
	if !st.LastChecked.IsZero() {
		t := st.LastChecked
		d.LastChecked = &t
	}
	return d
}
