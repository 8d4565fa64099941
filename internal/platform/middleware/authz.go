// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/yomira/synccore/internal/platform/apperr"
	"github.com/yomira/synccore/internal/platform/constants"
	"github.com/yomira/synccore/internal/platform/respond"
)

// APIKeyAuth gates every request behind a single shared admin secret,
// presented via the [constants.HeaderAPIKey] header.
//
// # Flow
//  1. Requests to exempt paths (liveness) pass through untouched.
//  2. The header value is compared to the configured secret using
//     [subtle.ConstantTimeCompare] to avoid timing side-channels.
//  3. A missing or mismatched key aborts with 401 Unauthorized.
//
// There are no user accounts in this domain: the admin surface
// authenticates exactly one caller, the operator.
func APIKeyAuth(secret string, exemptPaths ...string) func(http.Handler) http.Handler {
	exempt := make(map[string]struct{}, len(exemptPaths))
	for _, p := range exemptPaths {
		exempt[p] = struct{}{}
	}

	secretBytes := []byte(secret)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			if _, ok := exempt[request.URL.Path]; ok {
				next.ServeHTTP(writer, request)
				return
			}

			provided := request.Header.Get(constants.HeaderAPIKey)
			if provided == "" || subtle.ConstantTimeCompare([]byte(provided), secretBytes) != 1 {
				respond.Error(writer, request, apperr.Unauthorized("Missing or invalid API key"))
				return
			}

			next.ServeHTTP(writer, request)
		})
	}
}
