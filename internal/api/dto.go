package api

import (
	"github.com/starford/morninglight/internal/markup"
	"github.com/starford/morninglight/internal/models"
	"github.com/starford/morninglight/internal/session"
)

// SelectRequest opens a document, optionally highlighting a search term.
type SelectRequest struct {
	Date  string `json:"date" example:"2024-03-05" validate:"required"`
	Query string `json:"query,omitempty" example:"grace"`
}

// SearchRequest submits a search.
type SearchRequest struct {
	Query string `json:"query" example:"grace" validate:"required"`
}

// PopStateRequest reports an external history navigation.
type PopStateRequest struct {
	Location string `json:"location" example:"/05-03-2024-EN" validate:"required"`
}

// DateRequest picks a calendar date.
type DateRequest struct {
	Date string `json:"date" example:"2024-03-05" validate:"required"`
}

// FontSizeRequest adjusts the font size.
type FontSizeRequest struct {
	Delta int `json:"delta" example:"1" validate:"required"`
}

// StateResponse is the session render model.
type StateResponse = session.Snapshot

// ManifestResponse lists the available entries.
type ManifestResponse struct {
	Entries  []models.ManifestEntry `json:"entries" validate:"required"`
	Checksum string                 `json:"checksum" example:"9f86d081884c7d65..."`
}

// DocumentResponse is a single devotion.
type DocumentResponse struct {
	Date     string            `json:"date" example:"2024-03-05" validate:"required"`
	Language models.Language   `json:"language" example:"EN" validate:"required"`
	Blocks   models.Document   `json:"blocks" validate:"required"`
	Rendered []markup.Rendered `json:"rendered,omitempty"`
}

// SearchResult is a single search hit in the API response.
type SearchResult struct {
	Date     string          `json:"date" example:"2024-03-05" validate:"required"`
	Title    string          `json:"title" example:"Grace" validate:"required"`
	Snippet  string          `json:"snippet" example:"...matched text..." validate:"required"`
	Language models.Language `json:"language" example:"EN" validate:"required"`
	Path     string          `json:"path" example:"/05-03-2024-EN" validate:"required"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []SearchResult `json:"results" validate:"required"`
}
