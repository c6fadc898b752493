package api

import (
	"context"
	"time"

	"github.com/onkernel/hypedesk/lib/logger"
	"github.com/onkernel/hypedesk/lib/oapi"
	"github.com/onkernel/hypedesk/lib/templates"
	"github.com/samber/lo"
)

const healthTimeout = 3 * time.Second

// GetHealth reports runtime reachability and the last seen state of each
// singleton service.
func (s *ApiService) GetHealth(ctx context.Context, request oapi.GetHealthRequestObject) (oapi.GetHealthResponseObject, error) {
	ctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()

	health := oapi.Health{Status: oapi.HealthStatusOk, Runtime: "ok"}
	if s.Monitor != nil {
		services := make(map[string]string)
		for _, name := range s.Catalog.CanonicalNames() {
			if st, ok := s.Monitor.ServiceStatus(name); ok {
				services[name] = st
			}
		}
		if len(services) > 0 {
			health.Services = &services
		}
	}

	if err := s.Engine.Ping(ctx); err != nil {
		logger.FromContext(ctx).WarnContext(ctx, "runtime ping failed", "error", err)
		health.Status = oapi.HealthStatusDegraded
		health.Runtime = err.Error()
		return oapi.GetHealth503JSONResponse(health), nil
	}
	return oapi.GetHealth200JSONResponse(health), nil
}

func templateToOAPI(tmpl templates.Template, _ int) oapi.Template {
	out := oapi.Template{
		Id:            tmpl.ID,
		Name:          tmpl.Name,
		Image:         tmpl.Image,
		Ports:         lo.Ternary(tmpl.Ports == nil, []int{}, tmpl.Ports),
		AccessUrl:     lo.EmptyableToPtr(tmpl.AccessURL),
		CanonicalName: lo.EmptyableToPtr(tmpl.CanonicalName),
	}
	if len(tmpl.Env) > 0 {
		env := tmpl.Env
		out.Env = &env
	}
	if len(tmpl.Volumes) > 0 {
		volumes := lo.Map(tmpl.Volumes, func(v templates.Volume, _ int) oapi.Volume {
			return oapi.Volume{Source: v.Source, Target: v.Target, ReadOnly: lo.Ternary(v.ReadOnly, lo.ToPtr(true), nil)}
		})
		out.Volumes = &volumes
	}
	if r := tmpl.Resources; r != (templates.Resources{}) {
		out.Resources = &oapi.Resources{
			Cpu:     lo.EmptyableToPtr(r.CPU),
			Memory:  lo.EmptyableToPtr(r.Memory),
			Storage: lo.EmptyableToPtr(r.Storage),
		}
	}
	return out
}
