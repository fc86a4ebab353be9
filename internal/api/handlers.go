package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/JakeFAU/creative-intel/internal/creative"
)

const maxBodyBytes = 1 << 20

type scrapeRequest struct {
	Competitors []string `json:"competitors"`
	MinDays     *int     `json:"min_days"`
}

type analysisRequest struct {
	AdIDs        []string `json:"ad_ids"`
	AnalysisType string   `json:"analysis_type"`
	AdsFile      string   `json:"ads_file"`
}

type rewriteRequest struct {
	AdIDs           []string `json:"ad_ids"`
	BrandName       string   `json:"brand_name"`
	ProductBenefits string   `json:"product_benefits"`
	AdsFile         string   `json:"ads_file"`
}

type fullPipelineRequest struct {
	Competitors     []string `json:"competitors"`
	BrandName       string   `json:"brand_name"`
	ProductBenefits string   `json:"product_benefits"`
	MinDays         *int     `json:"min_days"`
	AnalysisType    string   `json:"analysis_type"`
}

func (s *Server) triggerScrape(w http.ResponseWriter, r *http.Request) {
	var body scrapeRequest
	if !decodeBody(w, r, &body) {
		return
	}
	if body.MinDays != nil && *body.MinDays < 0 {
		writeError(w, http.StatusBadRequest, "min_days must be >= 0")
		return
	}
	s.dispatch(w, r, creative.Request{
		Action:        creative.ActionScrape,
		Competitors:   body.Competitors,
		MinDaysActive: body.MinDays,
	}, "Scraping pipeline triggered")
}

func (s *Server) triggerAnalysis(w http.ResponseWriter, r *http.Request) {
	var body analysisRequest
	if !decodeBody(w, r, &body) {
		return
	}
	kind, ok := creative.ParseAnalysisType(body.AnalysisType)
	if !ok {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown analysis_type %q", body.AnalysisType))
		return
	}
	s.dispatch(w, r, creative.Request{
		Action:       creative.ActionAnalyze,
		AdIDs:        body.AdIDs,
		AnalysisType: kind,
		AdsFile:      body.AdsFile,
	}, "Analysis pipeline triggered")
}

func (s *Server) triggerRewrite(w http.ResponseWriter, r *http.Request) {
	var body rewriteRequest
	if !decodeBody(w, r, &body) {
		return
	}
	s.dispatch(w, r, creative.Request{
		Action:  creative.ActionRewrite,
		AdIDs:   body.AdIDs,
		Brand:   creative.Brand{Name: body.BrandName, ProductBenefits: body.ProductBenefits},
		AdsFile: body.AdsFile,
	}, "Script rewriting pipeline triggered")
}

func (s *Server) triggerFullPipeline(w http.ResponseWriter, r *http.Request) {
	var body fullPipelineRequest
	if !decodeBody(w, r, &body) {
		return
	}
	kind, ok := creative.ParseAnalysisType(body.AnalysisType)
	if !ok {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown analysis_type %q", body.AnalysisType))
		return
	}
	if body.MinDays != nil && *body.MinDays < 0 {
		writeError(w, http.StatusBadRequest, "min_days must be >= 0")
		return
	}
	s.dispatch(w, r, creative.Request{
		Action:        creative.ActionFull,
		Competitors:   body.Competitors,
		MinDaysActive: body.MinDays,
		AnalysisType:  kind,
		Brand:         creative.Brand{Name: body.BrandName, ProductBenefits: body.ProductBenefits},
	}, "Full pipeline triggered")
}

// decodeBody reads an optional JSON body into dst. An empty body is accepted.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return false
	}
	return true
}
