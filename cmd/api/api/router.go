package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/ghodss/yaml"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	openapi "github.com/onkernel/hypedesk"
	"github.com/onkernel/hypedesk/lib/logger"
	mw "github.com/onkernel/hypedesk/lib/middleware"
	"github.com/onkernel/hypedesk/lib/oapi"
	hdotel "github.com/onkernel/hypedesk/lib/otel"
	nethttpmiddleware "github.com/oapi-codegen/nethttp-middleware"
	"github.com/riandyrn/otelchi"
	"go.opentelemetry.io/otel/metric"
)

var _ oapi.StrictServerInterface = (*ApiService)(nil)

// Handler builds the router. meter may be nil.
func (s *ApiService) Handler(log *slog.Logger, meter metric.Meter) (http.Handler, error) {
	r := chi.NewRouter()

	metrics := mw.NoopHTTPMetrics()
	if meter != nil {
		m, err := hdotel.NewHTTPMetrics(meter)
		if err != nil {
			return nil, err
		}
		metrics = mw.HTTPMetrics(m)
	}

	validator, err := requestValidator()
	if err != nil {
		return nil, err
	}

	r.Use(
		chimw.Recoverer,
		mw.InjectLogger(log),
		otelchi.Middleware(s.Config.OtelServiceName, otelchi.WithChiRoutes(r)),
		mw.AccessLogger(log),
		metrics,
	)

	// Serve OpenAPI spec
	r.Get("/spec.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/vnd.oai.openapi")
		w.Write(openapi.OpenAPIYAML)
	})
	r.Get("/spec.json", func(w http.ResponseWriter, r *http.Request) {
		jsonData, err := yaml.YAMLToJSON(openapi.OpenAPIYAML)
		if err != nil {
			logger.FromContext(r.Context()).ErrorContext(r.Context(), "failed to convert spec to JSON", "error", err)
			http.Error(w, "Failed to convert YAML to JSON", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(jsonData)
	})

	// Streaming surfaces sit outside the generated API
	r.Group(func(r chi.Router) {
		r.Use(mw.VerifyJWT(s.Config.JwtSecret))
		r.Get("/events", s.StreamEvents)
		r.Get("/ws", s.ControlSocket)
	})

	strictHandler := oapi.NewStrictHandlerWithOptions(s, nil, oapi.StrictHTTPServerOptions{
		RequestErrorHandlerFunc: func(w http.ResponseWriter, r *http.Request, err error) {
			writeJSON(w, http.StatusBadRequest, oapi.Error{Code: "invalid_request", Message: err.Error()})
		},
		ResponseErrorHandlerFunc: func(w http.ResponseWriter, r *http.Request, err error) {
			logger.FromContext(r.Context()).ErrorContext(r.Context(), "failed to write response", "error", err)
			writeJSON(w, http.StatusInternalServerError, oapi.Error{Code: "internal_error", Message: err.Error()})
		},
	})

	// Later middlewares wrap earlier ones: auth runs before validation.
	oapi.HandlerWithOptions(strictHandler, oapi.ChiServerOptions{
		BaseRouter:  r,
		Middlewares: []oapi.MiddlewareFunc{validator, securedOperations(mw.VerifyJWT(s.Config.JwtSecret))},
		ErrorHandlerFunc: func(w http.ResponseWriter, r *http.Request, err error) {
			writeJSON(w, http.StatusBadRequest, oapi.Error{Code: "invalid_request", Message: err.Error()})
		},
	})

	return r, nil
}

// requestValidator checks requests against the embedded OpenAPI document.
// Authentication is left to the JWT middleware.
func requestValidator() (oapi.MiddlewareFunc, error) {
	spec, err := openapi3.NewLoader().LoadFromData(openapi.OpenAPIYAML)
	if err != nil {
		return nil, fmt.Errorf("load openapi spec: %w", err)
	}
	if err := spec.Validate(context.Background()); err != nil {
		return nil, fmt.Errorf("validate openapi spec: %w", err)
	}
	// Servers name the public URL; matching on it would reject every other host.
	spec.Servers = nil

	return nethttpmiddleware.OapiRequestValidatorWithOptions(spec, &nethttpmiddleware.Options{
		Options: openapi3filter.Options{
			AuthenticationFunc: openapi3filter.NoopAuthenticationFunc,
		},
		ErrorHandler: func(w http.ResponseWriter, message string, statusCode int) {
			writeJSON(w, statusCode, oapi.Error{Code: "invalid_request", Message: message})
		},
	}), nil
}

// securedOperations applies auth to operations that declare a security
// requirement; the generated wrapper marks those with BearerAuthScopes.
func securedOperations(auth func(http.Handler) http.Handler) oapi.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		protected := auth(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := r.Context().Value(oapi.BearerAuthScopes).([]string); ok {
				protected.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
