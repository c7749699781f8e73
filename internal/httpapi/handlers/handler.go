package handlers

import (
	"streamchat/internal/events"
	"streamchat/internal/news"
	"streamchat/internal/provider"
	"streamchat/internal/search"
	"streamchat/internal/session"
)

type Handler struct {
	Sessions *session.Service
	Registry *provider.Registry
	Search   *search.Client
	News     *news.Extractor

	// SearchAPIKey is the server-side Serper key used when a request does not
	// carry its own.
	SearchAPIKey string

	// Publisher may be nil; completion events are then skipped.
	Publisher *events.Publisher
}

func NewHandler(sessions *session.Service, registry *provider.Registry, searchClient *search.Client, searchAPIKey string, pub *events.Publisher) *Handler {
	return &Handler{
		Sessions:     sessions,
		Registry:     registry,
		Search:       searchClient,
		News:         news.NewExtractor(),
		SearchAPIKey: searchAPIKey,
		Publisher:    pub,
	}
}
