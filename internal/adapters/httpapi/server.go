package httpapi

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/Overland-East-Bay/mileage-tracker/internal/adapters/pdfreport"
	"github.com/Overland-East-Bay/mileage-tracker/internal/app/ledger"
	"github.com/Overland-East-Bay/mileage-tracker/internal/domain"
	"github.com/Overland-East-Bay/mileage-tracker/internal/ports/out/idempotency"
)

const maxBodyBytes = 1 << 20

// Server implements the mileage HTTP handlers on top of a ledger.
type Server struct {
	Ledger *ledger.Service
	Idem   idempotency.Store
	Log    *zap.Logger
}

func NewServer(l *ledger.Service, idem idempotency.Store, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{Ledger: l, Idem: idem, Log: log}
}

// CreateTrip handles POST /trips.
func (s *Server) CreateTrip(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var body CreateTripRequest
	if !s.decodeBody(w, r, &body) {
		return
	}
	if body.Count == nil {
		writeError(w, r, http.StatusUnprocessableEntity, ledger.CodeValidation, "invalid count", map[string]any{"count": "is required"})
		return
	}
	in := ledger.SubmitTripInput{Destination: body.Destination, Count: *body.Count}
	if body.Date != nil {
		in.Date = domainDate(*body.Date)
	}

	// Idempotency handling:
	// - Replay if same key+route+bodyHash
	// - Reject if same key+route with different bodyHash (409)
	idemKey := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	var respFP idempotency.Fingerprint
	if idemKey != "" && s.Idem != nil {
		bodyHash, err := hashCreateTripBody(in)
		if err != nil {
			s.writeAppError(w, r, err)
			return
		}
		metaFP := idempotency.Fingerprint{
			Key:      idempotency.Key(idemKey),
			Method:   http.MethodPost,
			Route:    "/trips",
			BodyHash: "",
		}
		if meta, ok, err := s.Idem.Get(ctx, metaFP); err != nil {
			s.writeAppError(w, r, err)
			return
		} else if ok {
			if string(meta.Body) != bodyHash {
				writeError(w, r, http.StatusConflict, "IDEMPOTENCY_KEY_REUSE", "idempotency key reuse with different payload", nil)
				return
			}
		} else {
			_ = s.Idem.Put(ctx, metaFP, idempotency.Record{
				StatusCode:  0,
				ContentType: "text/plain",
				Body:        []byte(bodyHash),
				CreatedAt:   time.Now().UTC(),
			})
		}

		respFP = metaFP
		respFP.BodyHash = bodyHash
		if rec, ok, err := s.Idem.Get(ctx, respFP); err != nil {
			s.writeAppError(w, r, err)
			return
		} else if ok && rec.StatusCode == http.StatusCreated && strings.HasPrefix(rec.ContentType, "application/json") {
			w.Header().Set("Content-Type", rec.ContentType)
			w.Header().Set("Idempotent-Replayed", "true")
			w.WriteHeader(rec.StatusCode)
			_, _ = w.Write(rec.Body)
			return
		}
	}

	trip, err := s.Ledger.SubmitTrip(ctx, in)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	resp := TripResponse{Trip: trip}

	if respFP.Key != "" {
		if b, err := json.Marshal(resp); err == nil {
			_ = s.Idem.Put(ctx, respFP, idempotency.Record{
				StatusCode:  http.StatusCreated,
				ContentType: "application/json",
				Body:        b,
				CreatedAt:   time.Now().UTC(),
			})
		}
	}
	writeJSON(w, http.StatusCreated, resp)
}

// ListTrips handles GET /trips?start=&end=.
func (s *Server) ListTrips(w http.ResponseWriter, r *http.Request) {
	v, ok := s.viewFromQuery(w, r)
	if !ok {
		return
	}
	trips := v.Trips
	if trips == nil {
		trips = []domain.Trip{}
	}
	writeJSON(w, http.StatusOK, ListTripsResponse{
		Trips:      trips,
		TotalMiles: v.Total(),
		Filtered:   v.Filtered,
		Start:      apiDate(v.Start),
		End:        apiDate(v.End),
	})
}

// UpdateTrip handles PATCH /trips/{tripId}.
func (s *Server) UpdateTrip(w http.ResponseWriter, r *http.Request) {
	id := domain.TripID(chi.URLParam(r, "tripId"))

	var body UpdateTripRequest
	if !s.decodeBody(w, r, &body) {
		return
	}
	if body.Count == nil {
		writeError(w, r, http.StatusUnprocessableEntity, ledger.CodeValidation, "invalid count", map[string]any{"count": "is required"})
		return
	}
	if body.Date.IsSpecified() && body.Date.IsNull() {
		writeError(w, r, http.StatusUnprocessableEntity, ledger.CodeValidation, "invalid date", map[string]any{"date": "must not be null"})
		return
	}

	var (
		trip domain.Trip
		err  error
	)
	if body.Date.IsSpecified() {
		d, _ := body.Date.Get()
		trip, err = s.Ledger.UpdateTrip(r.Context(), id, domainDate(d), *body.Count)
	} else {
		trip, err = s.Ledger.UpdateCount(r.Context(), id, *body.Count)
	}
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, TripResponse{Trip: trip})
}

// DeleteTrip handles DELETE /trips/{tripId}. Unknown ids are not an error.
func (s *Server) DeleteTrip(w http.ResponseWriter, r *http.Request) {
	s.Ledger.DeleteTrip(r.Context(), domain.TripID(chi.URLParam(r, "tripId")))
	w.WriteHeader(http.StatusNoContent)
}

// ExportCSV handles GET /trips/export.csv.
func (s *Server) ExportCSV(w http.ResponseWriter, r *http.Request) {
	v, ok := s.viewFromQuery(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", v.Filename()))
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, v.CSV())
}

// ExportPDF handles GET /trips/export.pdf.
func (s *Server) ExportPDF(w http.ResponseWriter, r *http.Request) {
	v, ok := s.viewFromQuery(w, r)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := pdfreport.Render(&buf, v, "Mileage Report"); err != nil {
		s.writeAppError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", ledger.ExportFilename(v, "pdf")))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) viewFromQuery(w http.ResponseWriter, r *http.Request) (ledger.View, bool) {
	q := r.URL.Query()
	var bounds [2]domain.Date
	for i, name := range []string{"start", "end"} {
		raw := strings.TrimSpace(q.Get(name))
		if raw == "" {
			continue
		}
		d, err := domain.ParseDate(raw)
		if err != nil {
			writeError(w, r, http.StatusUnprocessableEntity, ledger.CodeValidation, "invalid "+name, map[string]any{name: "must be YYYY-MM-DD"})
			return ledger.View{}, false
		}
		bounds[i] = d
	}
	return s.Ledger.View(bounds[0], bounds[1]), true
}

func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, r, http.StatusRequestEntityTooLarge, "BODY_TOO_LARGE", "request body too large", nil)
			return false
		}
		var parseErr *time.ParseError
		if errors.As(err, &parseErr) {
			writeError(w, r, http.StatusUnprocessableEntity, ledger.CodeValidation, "invalid date", map[string]any{"date": "must be YYYY-MM-DD"})
			return false
		}
		writeError(w, r, http.StatusBadRequest, "BAD_REQUEST", "request body must be a JSON object", map[string]any{"decode": err.Error()})
		return false
	}
	return true
}

// hashCreateTripBody canonicalizes fields with normalization semantics before
// hashing.
func hashCreateTripBody(in ledger.SubmitTripInput) (string, error) {
	raw, err := json.Marshal(struct {
		Date        string `json:"date"`
		Destination string `json:"destination"`
		Count       int    `json:"count"`
	}{
		Date:        string(in.Date),
		Destination: domain.NormalizeDestination(in.Destination),
		Count:       in.Count,
	})
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}
