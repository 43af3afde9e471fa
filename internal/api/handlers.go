package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/sells-group/metroscore/internal/model"
	"github.com/sells-group/metroscore/internal/scoring"
	"github.com/sells-group/metroscore/internal/store"
)

var validate = validator.New()

const maxRankBody = 1 << 20

// rankRequest is the body of POST /v1/rank. A missing preferences object
// means equal weights for a standard renter.
type rankRequest struct {
	Preferences *model.Preferences `json:"preferences"`
	CityIDs     []string           `json:"city_ids" validate:"omitempty,max=1000,dive,required,max=128"`
	Top         int                `json:"top" validate:"gte=0,lte=1000"`
	Save        bool               `json:"save"`
}

type rankResponse struct {
	RankingID       string            `json:"ranking_id,omitempty"`
	PreferencesHash string            `json:"preferences_hash"`
	Count           int               `json:"count"`
	Results         []model.CityScore `json:"results"`
}

// listQuery holds the query parameters of GET /v1/cities.
type listQuery struct {
	IDs    []string `validate:"dive,required,max=128"`
	States []string `validate:"dive,len=2,alpha"`
	Limit  int      `validate:"gte=0,lte=1000"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"categories": model.Categories,
		"metrics":    scoring.Catalogue,
	})
}

func (s *Server) handleListCities(w http.ResponseWriter, r *http.Request) {
	q := listQuery{
		IDs:    r.URL.Query()["id"],
		States: r.URL.Query()["state"],
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "limit must be an integer")
			return
		}
		q.Limit = n
	}
	if err := validate.Struct(q); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	records, err := s.store.ListCities(r.Context(), store.CityFilter{IDs: q.IDs, States: q.States, Limit: q.Limit})
	if err != nil {
		s.writeStoreError(w, r, err, "")
		return
	}
	if records == nil {
		records = []model.CityRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"count": len(records), "cities": records})
}

func (s *Server) handleGetCity(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	rec, err := s.store.GetCity(r.Context(), id)
	if err != nil {
		s.writeStoreError(w, r, err, "city not found")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleRank(w http.ResponseWriter, r *http.Request) {
	var req rankRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRankBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	prefs := model.DefaultPreferences()
	if req.Preferences != nil {
		prefs = req.Preferences.WithDefaults()
	}
	if err := scoring.ValidatePreferences(prefs); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	records, err := s.store.ListCities(r.Context(), store.CityFilter{IDs: req.CityIDs})
	if err != nil {
		s.writeStoreError(w, r, err, "")
		return
	}

	results, err := s.engine.Score(records, prefs)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp := rankResponse{
		PreferencesHash: store.PreferencesHash(prefs),
		Count:           len(results),
		Results:         results,
	}

	if req.Save {
		saved, err := s.store.SaveRanking(r.Context(), model.Ranking{Preferences: prefs, Results: results})
		if err != nil {
			s.writeStoreError(w, r, err, "")
			return
		}
		resp.RankingID = saved.ID
		s.log.Info("ranking saved", zap.String("ranking_id", saved.ID), zap.Int("cities", len(results)))
	}

	if req.Top > 0 && req.Top < len(resp.Results) {
		resp.Results = resp.Results[:req.Top]
	}
	if resp.Results == nil {
		resp.Results = []model.CityScore{}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetRanking(w http.ResponseWriter, r *http.Request) {
	rk, err := s.store.GetRanking(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeStoreError(w, r, err, "ranking not found")
		return
	}
	writeJSON(w, http.StatusOK, rk)
}
