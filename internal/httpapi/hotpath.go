// Package httpapi exposes the two HTTP surfaces relevant to the quoting
// core (spec.md §6.4): a gorilla/mux hot-path controller for
// POST /calculate and GET /nearest-serviceable, and a gin-gonic admin
// router for UTSF CRUD, health and metrics. The split deliberately mirrors
// an inconsistency observed in the teacher's own pricing_service, whose
// PricingController.go imports gorilla/mux directly despite gin sitting in
// go.mod for the rest of the service (SPEC_FULL.md §3).
package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/iaros/freightquote/internal/apperrors"
	"github.com/iaros/freightquote/internal/logging"
	"github.com/iaros/freightquote/internal/metrics"
	"github.com/iaros/freightquote/internal/nearest"
	"github.com/iaros/freightquote/internal/quote"
)

// HotPathController serves the request/response hot path: POST /calculate
// and GET /nearest-serviceable.
type HotPathController struct {
	Engine  *quote.Engine
	Metrics *metrics.Collectors
	Log     *logging.Logger
}

// Router builds the gorilla/mux router for the hot path.
func (c *HotPathController) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(c.requestIDMiddleware)
	r.HandleFunc("/calculate", c.handleCalculate).Methods(http.MethodPost)
	r.HandleFunc("/nearest-serviceable", c.handleNearestServiceable).Methods(http.MethodGet)
	return r
}

func (c *HotPathController) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-Id")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		ctx := logging.WithRequestIDContext(r.Context(), requestID)
		w.Header().Set("X-Request-Id", requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (c *HotPathController) handleCalculate(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	c.Metrics.ActiveConnections.Inc()
	defer c.Metrics.ActiveConnections.Dec()

	var req quote.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		c.writeError(w, apperrors.New(apperrors.InvalidDimensions, "httpapi.handleCalculate", "malformed request body"))
		return
	}

	resp, err := c.Engine.Calculate(r.Context(), req)
	c.Metrics.RequestDuration.WithLabelValues("calculate").Observe(time.Since(start).Seconds())
	if err != nil {
		c.writeError(w, err)
		return
	}

	c.Metrics.RequestsTotal.WithLabelValues("success").Inc()
	c.writeJSON(w, http.StatusOK, resp)
}

func (c *HotPathController) handleNearestServiceable(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	pincode, err1 := strconv.Atoi(q.Get("pincode"))
	fromPincode, err2 := strconv.Atoi(q.Get("fromPincode"))
	if err1 != nil || err2 != nil {
		c.writeError(w, apperrors.New(apperrors.PincodeNotFound, "httpapi.handleNearestServiceable", "pincode and fromPincode query params are required"))
		return
	}
	customerID := q.Get("customerId")

	originZone, ok := c.Engine.Zones.ZoneOf(fromPincode)
	if !ok {
		c.writeError(w, apperrors.New(apperrors.PincodeNotFound, "httpapi.handleNearestServiceable", "fromPincode not found in zone index"))
		return
	}

	source := registrySource{engine: c.Engine}
	result, ok := nearest.Find(r.Context(), fromPincode, pincode, originZone, customerID, source, c.Engine.Centroids, c.Engine.Zones)
	if !ok {
		c.writeJSON(w, http.StatusOK, map[string]interface{}{"found": false})
		return
	}
	c.writeJSON(w, http.StatusOK, map[string]interface{}{
		"found":          true,
		"nearestPincode": result.NearestPincode,
		"distanceKm":     result.DistanceKM,
		"hasDistance":    result.HasDistance,
		"servedBy":       result.ServedBy,
	})
}

func (c *HotPathController) writeError(w http.ResponseWriter, err error) {
	status := apperrors.AsHTTPStatus(err)
	code := apperrors.CodeOf(err)
	c.Metrics.ErrorsTotal.WithLabelValues(string(code)).Inc()
	c.writeJSON(w, status, map[string]interface{}{
		"message": err.Error(),
		"error":   code,
	})
}

func (c *HotPathController) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		c.Log.Warn("failed to encode response body")
	}
}
