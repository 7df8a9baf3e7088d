// Reelmatch - Movie Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelmatch

/*
Package middleware provides HTTP middleware shared by the API router.

  - RequestID: accepts or generates an X-Request-ID and places it, together
    with a request-scoped zerolog logger, into the request context.
  - PrometheusMetrics: records request count, latency and in-flight gauge
    labelled by the chi route pattern rather than the raw path, which keeps
    label cardinality bounded when paths carry user or item IDs.

Both are chi-compatible (func(http.Handler) http.Handler):

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.PrometheusMetrics)
*/
package middleware
