package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/onkernel/hypedesk/lib/instances"
	"github.com/onkernel/hypedesk/lib/logger"
	mw "github.com/onkernel/hypedesk/lib/middleware"
	"github.com/onkernel/hypedesk/lib/oapi"
	"github.com/samber/lo"
)

// ListTemplates lists the template catalog
func (s *ApiService) ListTemplates(ctx context.Context, request oapi.ListTemplatesRequestObject) (oapi.ListTemplatesResponseObject, error) {
	return oapi.ListTemplates200JSONResponse(lo.Map(s.Catalog.List(), templateToOAPI)), nil
}

// ListInstances lists the caller's instances
func (s *ApiService) ListInstances(ctx context.Context, request oapi.ListInstancesRequestObject) (oapi.ListInstancesResponseObject, error) {
	insts, err := s.InstanceManager.ListInstances(ctx, mw.GetUserIDFromContext(ctx))
	if err != nil {
		_, body := errorFor(ctx, err)
		return oapi.ListInstances500JSONResponse(body), nil
	}
	return oapi.ListInstances200JSONResponse(lo.Map(insts, instanceToOAPI)), nil
}

// CreateInstance accepts a new instance; provisioning continues in the background
func (s *ApiService) CreateInstance(ctx context.Context, request oapi.CreateInstanceRequestObject) (oapi.CreateInstanceResponseObject, error) {
	req := instances.CreateInstanceRequest{
		OwnerID:    mw.GetUserIDFromContext(ctx),
		TemplateID: request.Body.TemplateId,
		Name:       lo.FromPtr(request.Body.Name),
	}
	if r := request.Body.Resources; r != nil {
		req.Resources = instances.Resources{
			CPU:     lo.FromPtr(r.Cpu),
			Memory:  lo.FromPtr(r.Memory),
			Storage: lo.FromPtr(r.Storage),
		}
	}

	inst, err := s.InstanceManager.CreateInstance(ctx, req)
	if err != nil {
		switch status, body := errorFor(ctx, err); status {
		case http.StatusBadRequest:
			return oapi.CreateInstance400JSONResponse(body), nil
		default:
			return oapi.CreateInstance500JSONResponse(body), nil
		}
	}
	return oapi.CreateInstance201JSONResponse(instanceToOAPI(*inst, 0)), nil
}

// GetInstance gets instance details
func (s *ApiService) GetInstance(ctx context.Context, request oapi.GetInstanceRequestObject) (oapi.GetInstanceResponseObject, error) {
	inst, err := s.InstanceManager.GetInstance(ctx, request.Id, mw.GetUserIDFromContext(ctx))
	if err != nil {
		switch status, body := errorFor(ctx, err); status {
		case http.StatusNotFound:
			return oapi.GetInstance404JSONResponse(body), nil
		default:
			return oapi.GetInstance500JSONResponse(body), nil
		}
	}
	return oapi.GetInstance200JSONResponse(instanceToOAPI(*inst, 0)), nil
}

// TerminateInstance removes the container and marks the instance terminated
func (s *ApiService) TerminateInstance(ctx context.Context, request oapi.TerminateInstanceRequestObject) (oapi.TerminateInstanceResponseObject, error) {
	inst, err := s.InstanceManager.TerminateInstance(ctx, request.Id, mw.GetUserIDFromContext(ctx))
	if err != nil {
		switch status, body := errorFor(ctx, err); status {
		case http.StatusNotFound:
			return oapi.TerminateInstance404JSONResponse(body), nil
		case http.StatusServiceUnavailable:
			return oapi.TerminateInstance503JSONResponse(body), nil
		default:
			return oapi.TerminateInstance500JSONResponse(body), nil
		}
	}
	return oapi.TerminateInstance200JSONResponse(instanceToOAPI(*inst, 0)), nil
}

// StartInstance starts a stopped instance
func (s *ApiService) StartInstance(ctx context.Context, request oapi.StartInstanceRequestObject) (oapi.StartInstanceResponseObject, error) {
	inst, err := s.InstanceManager.StartInstance(ctx, request.Id, mw.GetUserIDFromContext(ctx))
	if err != nil {
		switch status, body := errorFor(ctx, err); status {
		case http.StatusNotFound:
			return oapi.StartInstance404JSONResponse(body), nil
		case http.StatusGone:
			return oapi.StartInstance410JSONResponse(body), nil
		case http.StatusServiceUnavailable:
			return oapi.StartInstance503JSONResponse(body), nil
		default:
			return oapi.StartInstance500JSONResponse(body), nil
		}
	}
	return oapi.StartInstance200JSONResponse(instanceToOAPI(*inst, 0)), nil
}

// StopInstance stops a running instance
func (s *ApiService) StopInstance(ctx context.Context, request oapi.StopInstanceRequestObject) (oapi.StopInstanceResponseObject, error) {
	inst, err := s.InstanceManager.StopInstance(ctx, request.Id, mw.GetUserIDFromContext(ctx))
	if err != nil {
		switch status, body := errorFor(ctx, err); status {
		case http.StatusNotFound:
			return oapi.StopInstance404JSONResponse(body), nil
		case http.StatusGone:
			return oapi.StopInstance410JSONResponse(body), nil
		case http.StatusServiceUnavailable:
			return oapi.StopInstance503JSONResponse(body), nil
		default:
			return oapi.StopInstance500JSONResponse(body), nil
		}
	}
	return oapi.StopInstance200JSONResponse(instanceToOAPI(*inst, 0)), nil
}

// RestartInstance restarts an instance
func (s *ApiService) RestartInstance(ctx context.Context, request oapi.RestartInstanceRequestObject) (oapi.RestartInstanceResponseObject, error) {
	inst, err := s.InstanceManager.RestartInstance(ctx, request.Id, mw.GetUserIDFromContext(ctx))
	if err != nil {
		switch status, body := errorFor(ctx, err); status {
		case http.StatusNotFound:
			return oapi.RestartInstance404JSONResponse(body), nil
		case http.StatusGone:
			return oapi.RestartInstance410JSONResponse(body), nil
		case http.StatusServiceUnavailable:
			return oapi.RestartInstance503JSONResponse(body), nil
		default:
			return oapi.RestartInstance500JSONResponse(body), nil
		}
	}
	return oapi.RestartInstance200JSONResponse(instanceToOAPI(*inst, 0)), nil
}

// statusFor maps a manager error onto an HTTP status and error code.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, instances.ErrInvalidTemplate), errors.Is(err, instances.ErrInvalidResources):
		return http.StatusBadRequest, "invalid_request"
	case errors.Is(err, instances.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, instances.ErrContainerGone):
		return http.StatusGone, "container_gone"
	case errors.Is(err, instances.ErrRuntimeUnavailable):
		return http.StatusServiceUnavailable, "runtime_unavailable"
	case errors.Is(err, instances.ErrNoPortAvailable):
		return http.StatusServiceUnavailable, "no_port_available"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// errorFor is statusFor plus the response body. Unmapped errors are logged.
func errorFor(ctx context.Context, err error) (int, oapi.Error) {
	status, code := statusFor(err)
	if status == http.StatusInternalServerError {
		logger.FromContext(ctx).ErrorContext(ctx, "request failed", "error", err)
	}
	return status, oapi.Error{Code: code, Message: err.Error()}
}

// instanceToOAPI has lo.Map's callback shape; the index is unused.
func instanceToOAPI(inst instances.Instance, _ int) oapi.Instance {
	return oapi.Instance{
		Id:            inst.ID,
		OwnerId:       inst.OwnerID,
		Name:          inst.Name,
		TemplateId:    inst.TemplateID,
		Status:        oapi.InstanceStatus(inst.Status),
		ContainerName: inst.ContainerName,
		CreatedAt:     inst.CreatedAt,
		LastStartedAt: inst.LastStartedAt,
		Ports:         lo.Ternary(inst.Ports == nil, []int{}, inst.Ports),
		Resources: oapi.Resources{
			Cpu:     lo.EmptyableToPtr(inst.Resources.CPU),
			Memory:  lo.EmptyableToPtr(inst.Resources.Memory),
			Storage: lo.EmptyableToPtr(inst.Resources.Storage),
		},
		ContainerRef: lo.EmptyableToPtr(inst.ContainerRef),
		AccessUrl:    lo.EmptyableToPtr(inst.AccessURL),
	}
}
