// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package events

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	requestutil "github.com/yomira/synccore/internal/platform/request"
	"github.com/yomira/synccore/internal/platform/respond"
	"github.com/yomira/synccore/internal/platform/sec"
)

// tokenMinter is the subset of [sec.TokenService] this handler needs.
type tokenMinter interface {
	MintCapabilityToken(channel string, ttl time.Duration) (string, error)
}

// Handler exposes capability-token minting for event-bus subscribers.
type Handler struct {
	tokens tokenMinter
	ttl    time.Duration
}

// NewHandler constructs an events [Handler].
func NewHandler(tokens *sec.TokenService, ttl time.Duration) *Handler {
	return &Handler{tokens: tokens, ttl: ttl}
}

// RegisterRoutes mounts the token-minting endpoint.
func (handler *Handler) RegisterRoutes(api chi.Router) {
	api.Post("/events/token", handler.MintToken)
}

type mintTokenRequest struct {
	Channel string `json:"channel"`
}

// POST /events/token
func (handler *Handler) MintToken(writer http.ResponseWriter, request *http.Request) {
	var input mintTokenRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	channel := input.Channel
	if channel == "" {
		channel = sec.WildcardChannel
	}

	token, err := handler.tokens.MintCapabilityToken(channel, handler.ttl)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]string{"token": token})
}
